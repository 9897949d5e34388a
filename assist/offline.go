package assist

import (
	"context"
	"strings"
)

// Unavailable is answered by Offline when mock mode is off.
const Unavailable = "The AI service is not available right now. Configure an AI provider API key, " +
	"or enable mock mode for testing."

// Offline answers without a provider: canned drafts keyed on the prompt in
// mock mode, the Unavailable notice otherwise.
type Offline struct {
	Mock bool
}

func (o Offline) GenerateText(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	if !o.Mock {
		return Unavailable, nil
	}

	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "conclusions"):
		return mockConclusions, nil
	case strings.Contains(p, "recommendations"):
		return mockRecommendations, nil
	case strings.Contains(p, "summary"):
		return mockSummary, nil
	}
	return mockDefault, nil
}

const mockConclusions = `## Conclusions

Based on the assessment, the patient shows indicators consistent with Generalized Anxiety Disorder of moderate intensity. The main symptoms include:

1. Excessive and persistent worry
2. Difficulty controlling the worry
3. Restlessness and muscle tension
4. Sleep disturbances
5. Irritability

These symptoms have been present for more than six months and significantly impair social and occupational functioning. Their onset coincides with major changes at work, suggesting a situational component.

On the positive side, the patient shows good insight and motivation for change, a favourable factor for the prognosis.`

const mockRecommendations = `## Recommendations

1. **Cognitive Behavioural Therapy (CBT)**: an initial programme of 12 weekly sessions focused on anxiety management, cognitive restructuring and graded exposure.

2. **Psychiatric Evaluation**: referral to assess complementary pharmacological treatment, especially for acute anxiety and sleep problems.

3. **Relaxation Techniques**: training in diaphragmatic breathing, progressive muscle relaxation and mindfulness.

4. **Sleep Hygiene**: routines and habits that support restorative sleep.

5. **Regular Physical Activity**: 30 minutes of moderate daily activity to reduce physical tension and improve mood.

6. **Reassessment**: follow-up in 3 months to review progress and adjust the interventions.`

const mockSummary = `## Executive Summary

Psychological assessment of a 34-year-old patient presenting with persistent anxiety related to the work environment. The assessment included a clinical interview, psychometric testing and functional analysis of behaviour. Results indicate a picture consistent with moderate Generalized Anxiety Disorder affecting social and occupational areas. The patient shows good insight and motivation for treatment. A multimodal approach is recommended, including cognitive behavioural therapy, possible pharmacological support and emotional self-regulation strategies. Prognosis is favourable with good adherence to treatment.`

const mockDefault = `As an assistant specialised in psychology, I can help you draft professional reports, write conclusions based on assessments, or suggest personalised therapeutic recommendations.

For better results, provide specific details about the case, such as basic demographics, assessment results and the patient's main concerns.

Which part of the psychological report do you need help with?`
