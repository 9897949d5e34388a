package assist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/psyreport/collect"
	"github.com/lvillar/psyreport/schema"
)

func intake() *schema.Template {
	return &schema.Template{
		Name:     "Adult Intake",
		Category: schema.CategoryAdult,
		Sections: []schema.Section{
			{Name: "Reason", Kind: schema.KindText},
			{Name: "Symptoms", Kind: schema.KindCheckbox, Options: []string{"Anxiety", "Insomnia"}},
			{Name: "Mood", Kind: schema.KindRadio, Options: []string{"Stable", "Low"}},
		},
	}
}

func TestContentPrompt(t *testing.T) {
	tpl := intake()
	rec := collect.Collect(tpl, collect.RawReport{
		Patient: collect.Patient{Name: "Jane Doe", Age: "34"},
		Sections: []collect.RawAnswer{
			{Value: "Work stress"},
			{Values: []string{"Anxiety", "Insomnia"}},
		},
	})

	p := ContentPrompt(ContentConclusions, tpl, rec, "concise")
	assert.Contains(t, p, "psychological conclusions")
	assert.Contains(t, p, "Patient: Jane Doe\nAge: 34\n")
	assert.Contains(t, p, "- Reason: Work stress\n")
	assert.Contains(t, p, "- Symptoms: Anxiety, Insomnia\n")
	assert.Contains(t, p, "- Mood: Not provided\n")
	assert.Contains(t, p, "Please use a concise writing style.")

	p = ContentPrompt("other", tpl, collect.Record{}, "")
	assert.Contains(t, p, "report section")
	assert.NotContains(t, p, "Patient:")
	assert.NotContains(t, p, "writing style")
}

func TestEnhancePrompt(t *testing.T) {
	for kind, want := range map[Enhancement]string{
		EnhanceClarity:  "clarity and readability",
		EnhanceFormal:   "more formal",
		EnhanceSimplify: "Simplify",
		EnhanceExpand:   "Expand on",
		"unknown":       "core meaning",
	} {
		p := EnhancePrompt("some text", kind)
		assert.Contains(t, p, want, kind)
		assert.Contains(t, p, "\n\nsome text", kind)
	}
}

func TestChatPrompt(t *testing.T) {
	assert.Equal(t, "hello", ChatPrompt("  hello ", nil))
	assert.Contains(t, ChatPrompt("hello", intake()), `"Adult Intake" report (Adult)`)
}

func TestOffline(t *testing.T) {
	ctx := context.Background()

	out, err := Offline{}.GenerateText(ctx, "anything", Options{})
	require.NoError(t, err)
	assert.Equal(t, Unavailable, out)

	mock := Offline{Mock: true}
	tpl := intake()
	for kind, want := range map[ContentKind]string{
		ContentConclusions:     "## Conclusions",
		ContentRecommendations: "## Recommendations",
		ContentSummary:         "## Executive Summary",
	} {
		out, err := mock.GenerateText(ctx, ContentPrompt(kind, tpl, collect.Record{}, ""), Options{})
		require.NoError(t, err)
		assert.Contains(t, out, want, kind)
	}

	_, err = mock.GenerateText(ctx, "   ", Options{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = mock.GenerateText(canceled, "hi", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	g, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.Equal(t, Offline{}, g)

	g, err = New(context.Background(), Config{APIKey: "key", Mock: true})
	require.NoError(t, err)
	assert.Equal(t, Offline{Mock: true}, g)

	_, err = NewGemini(context.Background(), "", "")
	assert.Error(t, err)
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	assert.Equal(t, DefaultSystemPrompt, o.system())
	assert.Equal(t, float32(0.7), o.temperature())
	assert.Equal(t, 500, o.maxTokens())

	o = Options{System: "s", Temperature: 0.3, MaxTokens: 50}
	assert.Equal(t, "s", o.system())
	assert.Equal(t, float32(0.3), o.temperature())
	assert.Equal(t, 50, o.maxTokens())
}
