package schema

import (
	"fmt"
	"strings"

	"github.com/lvillar/psyreport"
)

// Validate checks that t can be collected and rendered. The first problem
// found is returned as a *psyreport.ValidationError naming the field.
//
// Section names are not required to be unique: duplicates render fine but
// make the section ambiguous for clients that address sections by name.
func Validate(t *Template) error {
	if t == nil {
		return psyreport.NewValidationError(psyreport.ErrMissingField, "template", "template is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return psyreport.NewValidationError(psyreport.ErrMissingField, "name", "name is required")
	}
	if t.Category == "" {
		return psyreport.NewValidationError(psyreport.ErrMissingField, "category", "category is required")
	}
	if !t.Category.Valid() {
		return psyreport.NewValidationError(psyreport.ErrMissingField, "category",
			fmt.Sprintf("unknown category %q", t.Category))
	}

	for i, s := range t.Sections {
		if !s.Kind.Valid() {
			return psyreport.NewValidationError(psyreport.ErrInvalidSection,
				fmt.Sprintf("sections[%d].type", i),
				fmt.Sprintf("unknown section type %q", s.Kind))
		}
		if s.Kind.NeedsOptions() && len(s.Options) == 0 {
			return psyreport.NewValidationError(psyreport.ErrInvalidSection,
				fmt.Sprintf("sections[%d].options", i),
				fmt.Sprintf("%s section %q needs at least one option", s.Kind, s.Name))
		}
	}
	return nil
}
