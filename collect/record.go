// Package collect shapes the answers typed into a report form into a
// ReportRecord aligned with the template's sections.
package collect

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/lvillar/psyreport/schema"
)

// Patient identifies the person the report is about. Empty fields are
// treated as absent.
type Patient struct {
	Name       string `json:"name,omitempty"`
	Age        string `json:"age,omitempty"`
	ExternalID string `json:"id,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// UnmarshalJSON accepts the age either as a JSON number or a string.
func (p *Patient) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       string          `json:"name"`
		Age        json.RawMessage `json:"age"`
		ExternalID json.RawMessage `json:"id"`
		Phone      string          `json:"phone"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Name = strings.TrimSpace(raw.Name)
	p.Age = scalarString(raw.Age)
	p.ExternalID = scalarString(raw.ExternalID)
	p.Phone = strings.TrimSpace(raw.Phone)
	return nil
}

// scalarString renders a JSON string or number as text. null, objects and
// arrays yield "".
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Professional is the psychologist signing the report.
type Professional struct {
	Name      string `json:"name,omitempty"`
	License   string `json:"license,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

// Answer is the answer to one section. Kind mirrors the template section at
// the same index. Text answers use Value; checkbox answers use Values; radio
// and select answers use Value, empty meaning no selection.
type Answer struct {
	Kind   schema.SectionKind `json:"type"`
	Value  string             `json:"value,omitempty"`
	Values []string           `json:"values,omitempty"`
}

// Empty reports whether the answer carries no data.
func (a Answer) Empty() bool {
	if a.Kind == schema.KindCheckbox {
		return len(a.Values) == 0
	}
	return strings.TrimSpace(a.Value) == ""
}

// Record is a filled report. It is built per request and never persisted.
type Record struct {
	TemplateID      string       `json:"templateId,omitempty"`
	TemplateVersion int          `json:"templateVersion,omitempty"`
	Patient         Patient      `json:"patient"`
	Date            time.Time    `json:"date,omitempty"`
	Professional    Professional `json:"professional"`
	Sections        []Answer     `json:"sections"`
}

// RawAnswer is an unchecked answer as posted by the report form.
type RawAnswer struct {
	Name   string   `json:"name,omitempty"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// RawReport is an unchecked report as posted by the report form. Sections
// are matched to the template by position.
type RawReport struct {
	TemplateID      string       `json:"templateId,omitempty"`
	TemplateVersion int          `json:"templateVersion,omitempty"`
	Patient         Patient      `json:"patient"`
	Date            string       `json:"date,omitempty"`
	Professional    Professional `json:"professional"`
	Sections        []RawAnswer  `json:"sections"`
}

// ParseDate accepts "2006-01-02", RFC 3339 timestamps and Unix milliseconds.
// Anything else yields the zero time, which renders as today's date.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
