package mcp

import (
	"encoding/json"
	"fmt"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/schema"
)

// RegisterDefaultResources adds the reference data an assistant needs to
// write templates and branding: section kinds, categories, page formats and
// fonts. Resources use the psyreport:// scheme.
func RegisterDefaultResources(s *Server) {
	s.AddResource(Resource{
		URI:         "psyreport://section-kinds",
		Name:        "Section Kinds",
		Description: "The section types a template may use, and whether each needs options",
		MIMEType:    "application/json",
		Handler:     handleSectionKinds,
	})

	s.AddResource(Resource{
		URI:         "psyreport://categories",
		Name:        "Template Categories",
		Description: "The categories a template can belong to",
		MIMEType:    "application/json",
		Handler:     jsonResource(schema.Categories),
	})

	s.AddResource(Resource{
		URI:         "psyreport://branding",
		Name:        "Branding Options",
		Description: "Page formats, orientations, fonts and image slots accepted in a branding configuration",
		MIMEType:    "application/json",
		Handler: jsonResource(map[string]interface{}{
			"formats":      brandingFormats,
			"orientations": []string{psyreport.OrientationPortrait, psyreport.OrientationLandscape},
			"fonts":        []string{"Helvetica", "Times", "Courier"},
			"images":       imageCategories(),
		}),
	})
}

func handleSectionKinds(uri string) ([]ResourceContent, error) {
	type kind struct {
		Type         schema.SectionKind `json:"type"`
		NeedsOptions bool               `json:"needsOptions"`
	}
	kinds := make([]kind, len(schema.Kinds))
	for i, k := range schema.Kinds {
		kinds[i] = kind{Type: k, NeedsOptions: k.NeedsOptions()}
	}
	return jsonResource(kinds)(uri)
}

func jsonResource(v interface{}) ResourceHandler {
	return func(uri string) ([]ResourceContent, error) {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", uri, err)
		}
		return []ResourceContent{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}}, nil
	}
}

// brandingFormats is the page formats branding may select.
var brandingFormats = []string{
	psyreport.PageFormatA4, psyreport.PageFormatLetter, psyreport.PageFormatLegal,
	psyreport.PageFormatA3, psyreport.PageFormatA5,
}

// imageCategories lists the branding image slots by name.
func imageCategories() []string {
	out := make([]string, len(branding.ImageCategories))
	for i, c := range branding.ImageCategories {
		out[i] = string(c)
	}
	return out
}
