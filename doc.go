// Package psyreport holds the shared error taxonomy and render options of the
// psychological report pipeline.
//
// A report is produced in four steps, each in its own package:
//
//	schema.Validate     checks a template
//	collect.Collect     shapes raw answers into a ReportRecord
//	compose.Compose     turns the record and branding into layout blocks
//	render.Render       lays the blocks out on pages and paints the PDF
//
// The report package chains them:
//
//	pdf, err := report.ComposeAndRender(ctx, tpl, rec, cfg, assets,
//	    psyreport.WithPageFormat(psyreport.PageFormatA4),
//	    psyreport.WithPreview(),
//	)
package psyreport
