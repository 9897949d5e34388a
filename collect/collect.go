package collect

import (
	"github.com/lvillar/psyreport/schema"
)

// Collect builds a Record from raw answers. It never fails: answers that do
// not fit their section are dropped rather than rejected.
//
//   - text: the raw string, "" when absent
//   - checkbox: the provided values that are options, in option order
//   - radio, select: the provided value if it is an option, else ""
//
// A section with no raw answer at all takes the section's default value,
// under the same rules. An answer that is present but empty stays empty.
//
// The result always has one answer per template section, in order, with
// the section's kind. Required sections are not enforced here; see
// MissingRequired.
func Collect(tpl *schema.Template, raw RawReport) Record {
	rec := Record{
		TemplateID:      raw.TemplateID,
		TemplateVersion: raw.TemplateVersion,
		Patient:         raw.Patient,
		Date:            ParseDate(raw.Date),
		Professional:    raw.Professional,
		Sections:        make([]Answer, len(tpl.Sections)),
	}
	if rec.TemplateID == "" {
		rec.TemplateID = tpl.ID
	}

	for i, sec := range tpl.Sections {
		in := defaultAnswer(sec)
		if i < len(raw.Sections) {
			in = raw.Sections[i]
		}
		rec.Sections[i] = collectAnswer(sec, in)
	}
	return rec
}

func collectAnswer(sec schema.Section, in RawAnswer) Answer {
	a := Answer{Kind: sec.Kind}
	switch sec.Kind {
	case schema.KindText:
		a.Value = in.Value
	case schema.KindCheckbox:
		a.Values = filterOptions(sec.Options, in.Values)
	case schema.KindRadio, schema.KindSelect:
		if sec.HasOption(in.Value) {
			a.Value = in.Value
		}
	}
	return a
}

func defaultAnswer(sec schema.Section) RawAnswer {
	if sec.Default == "" {
		return RawAnswer{}
	}
	if sec.Kind == schema.KindCheckbox {
		return RawAnswer{Values: []string{sec.Default}}
	}
	return RawAnswer{Value: sec.Default}
}

// filterOptions returns the options present in values, in option order and
// without duplicates.
func filterOptions(options, values []string) []string {
	if len(values) == 0 {
		return nil
	}
	picked := make(map[string]bool, len(values))
	for _, v := range values {
		picked[v] = true
	}
	var out []string
	for _, o := range options {
		if picked[o] {
			out = append(out, o)
			delete(picked, o)
		}
	}
	return out
}

// MissingRequired returns the indexes of required sections left unanswered
// in rec.
func MissingRequired(tpl *schema.Template, rec Record) []int {
	var missing []int
	for i, sec := range tpl.Sections {
		if !sec.Required {
			continue
		}
		if i >= len(rec.Sections) || rec.Sections[i].Empty() {
			missing = append(missing, i)
		}
	}
	return missing
}
