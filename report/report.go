// Package report is the entry point of the document pipeline: it validates
// a template, collects the filled answers, composes them with the user's
// branding and renders the PDF.
package report

import (
	"context"
	"fmt"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/collect"
	"github.com/lvillar/psyreport/compose"
	"github.com/lvillar/psyreport/render"
	"github.com/lvillar/psyreport/schema"
)

// ComposeAndRender renders rec, filled against tpl, with the branding cfg.
//
// The page format and orientation stored in cfg apply unless opts override
// them. With psyreport.WithRequiredSections, a final render of a report that
// leaves a required section unanswered fails with a ValidationError;
// previews are always rendered.
func ComposeAndRender(ctx context.Context, tpl *schema.Template, rec collect.Record, cfg branding.Config, resolver render.AssetResolver, opts ...psyreport.Option) ([]byte, error) {
	if err := schema.Validate(tpl); err != nil {
		return nil, err
	}
	s := Settings(cfg, opts...)
	if err := CheckRequired(tpl, rec, s); err != nil {
		return nil, err
	}

	blocks := compose.ComposeAt(rec, cfg, tpl, s.Now())
	doc, err := render.Layout(ctx, blocks, resolver, s)
	if err != nil {
		return nil, err
	}
	return render.Paint(doc, s)
}

// Settings resolves the render settings of cfg and opts. Options win over
// the branding page options.
func Settings(cfg branding.Config, opts ...psyreport.Option) psyreport.Settings {
	all := []psyreport.Option{
		psyreport.WithPageFormat(cfg.PDFOptions.Format),
		psyreport.WithOrientation(cfg.PDFOptions.Orientation),
	}
	return psyreport.NewSettings(append(all, opts...)...)
}

// CheckRequired enforces required sections for strict final renders.
func CheckRequired(tpl *schema.Template, rec collect.Record, s psyreport.Settings) error {
	if !s.RequireSections || s.Mode == psyreport.ModePreview {
		return nil
	}
	missing := collect.MissingRequired(tpl, rec)
	if len(missing) == 0 {
		return nil
	}
	i := missing[0]
	return psyreport.NewValidationError(psyreport.ErrMissingField,
		fmt.Sprintf("sections[%d]", i),
		fmt.Sprintf("required section %q has no answer", tpl.Sections[i].Name))
}
