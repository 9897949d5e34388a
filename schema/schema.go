// Package schema defines report templates: the ordered, typed list of
// sections a psychological report collects.
//
// Example JSON:
//
//	{
//	  "name": "Child Assessment",
//	  "category": "Child",
//	  "sections": [
//	    {"name": "Reason for referral", "type": "text", "required": true},
//	    {"name": "Observed behaviours", "type": "checkbox", "options": ["Anxiety", "Inattention"]},
//	    {"name": "School level", "type": "select", "options": ["Primary", "Secondary"]}
//	  ]
//	}
package schema

import (
	"strings"
	"time"
)

// Category classifies a template. The set is closed.
type Category string

const (
	CategoryChild       Category = "Child"
	CategoryAdult       Category = "Adult"
	CategoryFamily      Category = "Family"
	CategoryEducational Category = "Educational"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryChild, CategoryAdult, CategoryFamily, CategoryEducational}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryChild, CategoryAdult, CategoryFamily, CategoryEducational:
		return true
	}
	return false
}

// ParseCategory maps a category name to a Category. It accepts the names in
// any letter case, plus the Spanish names used by templates created with the
// first version of the application. Unknown names yield "" and false.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "child", "infantil":
		return CategoryChild, true
	case "adult", "adultos":
		return CategoryAdult, true
	case "family", "familiar":
		return CategoryFamily, true
	case "educational", "educativa":
		return CategoryEducational, true
	}
	return "", false
}

// SectionKind is the input type of a section.
type SectionKind string

const (
	KindText     SectionKind = "text"
	KindCheckbox SectionKind = "checkbox"
	KindRadio    SectionKind = "radio"
	KindSelect   SectionKind = "select"
)

// Kinds lists every valid section kind.
var Kinds = []SectionKind{KindText, KindCheckbox, KindRadio, KindSelect}

// Valid reports whether k is one of the four recognised kinds.
func (k SectionKind) Valid() bool {
	switch k {
	case KindText, KindCheckbox, KindRadio, KindSelect:
		return true
	}
	return false
}

// NeedsOptions reports whether sections of kind k must list their options.
func (k SectionKind) NeedsOptions() bool {
	return k == KindCheckbox || k == KindRadio || k == KindSelect
}

// Template is a report template. Section order is document order.
type Template struct {
	ID          string    `json:"id,omitempty"`
	OwnerID     string    `json:"createdBy,omitempty"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	Description string    `json:"description,omitempty"`
	Sections    []Section `json:"sections"`
	Starred     bool      `json:"isStarred,omitempty"`
	Version     int       `json:"version,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Section is one field of a template.
type Section struct {
	Name     string      `json:"name"`
	Kind     SectionKind `json:"type"`
	Required bool        `json:"required,omitempty"`
	Options  []string    `json:"options,omitempty"`
	Default  string      `json:"defaultValue,omitempty"` // used when a report omits the section
}

// HasOption reports whether v is one of the section's options.
func (s Section) HasOption(v string) bool {
	for _, o := range s.Options {
		if o == v {
			return true
		}
	}
	return false
}

// Normalize trims names and maps legacy category names onto the canonical
// ones. It never fails; Validate decides whether the result is acceptable.
func (t *Template) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
	if c, ok := ParseCategory(string(t.Category)); ok {
		t.Category = c
	}
	for i := range t.Sections {
		t.Sections[i].Name = strings.TrimSpace(t.Sections[i].Name)
		t.Sections[i].Kind = SectionKind(strings.ToLower(strings.TrimSpace(string(t.Sections[i].Kind))))
	}
}
