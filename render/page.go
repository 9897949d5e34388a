package render

import (
	"fmt"
	"strings"

	psyreport "github.com/lvillar/psyreport"
)

// Margin is the page margin on every side, in points.
const Margin = 50

// pageSizes are portrait sizes in points, keyed by lowercase format name.
var pageSizes = map[string][2]float64{
	"a3":     {841.89, 1190.55},
	"a4":     {595.28, 841.89},
	"a5":     {420.94, 595.28},
	"letter": {612, 792},
	"legal":  {612, 1008},
}

// PageSize returns the width and height in points of format in the given
// orientation, together with the gofpdf orientation code ("P" or "L").
func PageSize(format, orientation string) (w, h float64, code string, err error) {
	size, ok := pageSizes[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return 0, 0, "", fmt.Errorf("format %q: %w", format, psyreport.ErrUnknownPageFormat)
	}
	switch strings.ToLower(strings.TrimSpace(orientation)) {
	case "", "p", psyreport.OrientationPortrait:
		return size[0], size[1], "P", nil
	case "l", psyreport.OrientationLandscape:
		return size[1], size[0], "L", nil
	}
	return 0, 0, "", fmt.Errorf("orientation %q: %w", orientation, psyreport.ErrUnknownPageFormat)
}

// Formats lists the accepted page format names.
func Formats() []string {
	return []string{
		psyreport.PageFormatA3,
		psyreport.PageFormatA4,
		psyreport.PageFormatA5,
		psyreport.PageFormatLetter,
		psyreport.PageFormatLegal,
	}
}
