// Package pageops operates on finished PDF documents: counting their pages
// and merging several rendered reports into one file.
//
// Pages are imported as templates with gofpdi, so merged pages keep their
// original size and content byte for byte.
package pageops

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	realgofpdi "github.com/phpdave11/gofpdi"
)

// ErrNotPDF is returned for input that does not start with a PDF header.
var ErrNotPDF = errors.New("pageops: not a PDF document")

// A4 size in points, used when an imported page reports no MediaBox.
const (
	defaultWidth  = 595.28
	defaultHeight = 841.89
)

// PageCount returns the number of pages of doc.
func PageCount(doc []byte) (n int, err error) {
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		return 0, ErrNotPDF
	}
	defer catch(&err)

	rs := io.ReadSeeker(bytes.NewReader(doc))
	imp := realgofpdi.NewImporter()
	imp.SetSourceStream(&rs)
	if n = imp.GetNumPages(); n < 1 {
		return 0, fmt.Errorf("pageops: document has no pages")
	}
	return n, nil
}

// importPage imports one page of the current source into the target PDF.
// Returns the template ID and page dimensions.
func importPage(pdf *gofpdf.Fpdf, imp *gofpdi.Importer, rs *io.ReadSeeker, pageNum int) (tplID int, w, h float64) {
	tplID = imp.ImportPageFromStream(pdf, rs, pageNum, "/MediaBox")
	sizes := imp.GetPageSizes()
	if dims, ok := sizes[pageNum]; ok {
		if mb, ok := dims["/MediaBox"]; ok {
			w = mb["w"]
			h = mb["h"]
		}
	}
	if w == 0 || h == 0 {
		w, h = defaultWidth, defaultHeight
	}
	return
}

// catch turns a gofpdi panic on malformed input into an error.
func catch(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pageops: malformed PDF: %v", r)
	}
}
