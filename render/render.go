// Package render turns composed report blocks into PDF bytes in two phases.
//
// Layout measures the blocks with the core PDF fonts, resolves branding
// images and distributes the content over pages, producing a
// PagedDocument. Paint draws the body of every page, then revisits each
// page to add the overlays, the preview stamp and the page footer, which
// needs the final page count.
package render

import (
	"context"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/compose"
)

// Render lays out blocks and paints them. It returns the complete PDF or an
// error, never partial output.
func Render(ctx context.Context, blocks []compose.Block, resolver AssetResolver, opts ...psyreport.Option) ([]byte, error) {
	s := psyreport.NewSettings(opts...)
	doc, err := Layout(ctx, blocks, resolver, s)
	if err != nil {
		return nil, err
	}
	return Paint(doc, s)
}
