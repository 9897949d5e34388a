package assist

import (
	"fmt"
	"strings"

	"github.com/lvillar/psyreport/collect"
	"github.com/lvillar/psyreport/schema"
)

// ContentKind is the report section an AI draft is written for.
type ContentKind string

const (
	ContentConclusions     ContentKind = "conclusions"
	ContentRecommendations ContentKind = "recommendations"
	ContentSummary         ContentKind = "summary"
)

// Enhancement is a rewrite applied to existing text.
type Enhancement string

const (
	EnhanceClarity  Enhancement = "improve_clarity"
	EnhanceFormal   Enhancement = "formal_tone"
	EnhanceSimplify Enhancement = "simplify"
	EnhanceExpand   Enhancement = "expand"
)

// ContentPrompt builds the prompt drafting a kind section from the answers
// in rec, filled against tpl. Unknown kinds get a generic request.
func ContentPrompt(kind ContentKind, tpl *schema.Template, rec collect.Record, style string) string {
	var b strings.Builder
	switch kind {
	case ContentConclusions:
		b.WriteString("Generate professional psychological conclusions based on the following assessment data:\n\n")
	case ContentRecommendations:
		b.WriteString("Generate professional psychological recommendations based on the following assessment data:\n\n")
	case ContentSummary:
		b.WriteString("Generate a professional executive summary for a psychological report with the following data:\n\n")
	default:
		b.WriteString("Generate professional content for a psychological report section with the following data:\n\n")
	}

	if rec.Patient.Name != "" {
		fmt.Fprintf(&b, "Patient: %s\n", rec.Patient.Name)
	}
	if rec.Patient.Age != "" {
		fmt.Fprintf(&b, "Age: %s\n", rec.Patient.Age)
	}

	if tpl != nil && len(tpl.Sections) > 0 {
		b.WriteString("\nAssessment Data:\n")
		for i, sec := range tpl.Sections {
			var a collect.Answer
			if i < len(rec.Sections) {
				a = rec.Sections[i]
			}
			fmt.Fprintf(&b, "- %s: %s\n", sec.Name, answerText(sec, a))
		}
	}

	switch kind {
	case ContentConclusions:
		b.WriteString(`
Please generate comprehensive psychological conclusions based on the above data. Include:
1. Summary of key findings
2. Potential psychological diagnosis if applicable
3. Strengths and challenges identified
4. Overall psychological status

Use a professional, clinical tone appropriate for a psychological report.`)
	case ContentRecommendations:
		b.WriteString(`
Please generate appropriate psychological recommendations based on the above data. Include:
1. Recommended interventions or treatments
2. Frequency and duration suggestions
3. Additional assessments if needed
4. Support resources for the patient/family

Format as a numbered list in order of priority.`)
	case ContentSummary:
		b.WriteString("\nPlease generate a concise executive summary for this psychological assessment. Keep it to approximately 150-200 words.")
	}

	if style != "" {
		fmt.Fprintf(&b, "\n\nPlease use a %s writing style.", style)
	}
	return b.String()
}

func answerText(sec schema.Section, a collect.Answer) string {
	if a.Empty() {
		return "Not provided"
	}
	if sec.Kind == schema.KindCheckbox {
		return strings.Join(a.Values, ", ")
	}
	return a.Value
}

// EnhancePrompt builds the prompt rewriting text. Unknown enhancements ask
// for a general improvement.
func EnhancePrompt(text string, kind Enhancement) string {
	switch kind {
	case EnhanceClarity:
		return "Improve the clarity and readability of the following text while maintaining the professional tone:\n\n" + text
	case EnhanceFormal:
		return "Rewrite the following text to have a more formal, professional tone suitable for a psychological report:\n\n" + text
	case EnhanceSimplify:
		return "Simplify the following text to be more accessible while maintaining the professional meaning:\n\n" + text
	case EnhanceExpand:
		return "Expand on the following text to provide more detail and depth while maintaining the professional tone:\n\n" + text
	}
	return "Improve the following text while maintaining its core meaning:\n\n" + text
}

// ChatPrompt passes a free-form question through, prefixed with the report
// being edited when there is one.
func ChatPrompt(message string, tpl *schema.Template) string {
	message = strings.TrimSpace(message)
	if tpl == nil || tpl.Name == "" {
		return message
	}
	return fmt.Sprintf("I am writing a %q report (%s).\n\n%s", tpl.Name, tpl.Category, message)
}
