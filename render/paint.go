package render

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/barcode"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/branding"
)

// Preview stamp and footer appearance.
const (
	PreviewText     = "PREVIEW"
	PreviewPrefix   = "PREVIEW - "
	previewOpacity  = 0.2
	previewFontSize = 100
	previewAngle    = 45 // counter-clockwise
	footerRuleY     = 50 // from the bottom edge
	footerTextY     = 40
	footerFontSize  = 10
	pdf417Columns   = 6
	pdf417Security  = 2
)

// Paint draws doc in two passes. The first pass paints the body of every
// page. The second revisits pages 1..N and paints, in order, the header and
// footer images, the watermark, the preview stamp (preview mode only) and
// the "Page i of N" footer.
func Paint(doc *PagedDocument, s psyreport.Settings) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, psyreport.NewRenderError("Paint", fmt.Errorf("empty document"))
	}

	pdf := gofpdf.New(doc.Orientation, "pt", doc.Format, "")
	pdf.SetMargins(doc.Margin, doc.Margin, doc.Margin)
	pdf.SetAutoPageBreak(false, doc.Margin)
	pdf.SetCompression(s.Compress)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	meta := doc.Meta
	if s.Mode == psyreport.ModePreview {
		meta.Title = PreviewPrefix + meta.Title
	}
	pdf.SetTitle(meta.Title, true)
	pdf.SetAuthor(meta.Author, true)
	pdf.SetSubject(meta.Subject, true)
	pdf.SetCreator("psyreport", true)
	if s.Now != nil {
		pdf.SetCreationDate(s.Now())
	}

	keys := make([]string, 0, len(doc.Images))
	for key := range doc.Images {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		img := doc.Images[key]
		pdf.RegisterImageOptionsReader(key, gofpdf.ImageOptions{ImageType: img.Type}, bytes.NewReader(img.Data))
	}

	// Pass 1: body.
	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, it := range page.Items {
			paintItem(pdf, doc, it)
		}
	}

	// Pass 2: overlays and footer.
	total := pdf.PageCount()
	for i := 1; i <= total; i++ {
		pdf.SetPage(i)
		for _, o := range doc.Overlays {
			paintOverlay(pdf, doc, o)
		}
		if s.Mode == psyreport.ModePreview {
			paintStamp(pdf, doc)
		}
		paintFooter(pdf, doc, tr(fmt.Sprintf("Page %d of %d", i, total)))
	}

	if pdf.Err() {
		return nil, psyreport.NewRenderError("Paint", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, psyreport.NewRenderError("Paint", err)
	}
	return buf.Bytes(), nil
}

func paintItem(pdf *gofpdf.Fpdf, doc *PagedDocument, it Item) {
	switch it.Kind {
	case ItemText:
		if it.Text == "" {
			return
		}
		size := fontSize(it.Style)
		pdf.SetFont(fontFamily(it.Style), fontStyle(it.Style), size)
		c := it.Style.Color
		pdf.SetTextColor(c.R, c.G, c.B)
		x := it.X + alignOffset(it.Style.Align, it.W, pdf.GetStringWidth(it.Text))
		pdf.Text(x, baseline(it.Y, it.H, size), it.Text)

	case ItemImage:
		img, ok := doc.Images[it.Image]
		if !ok {
			return
		}
		pdf.ImageOptions(it.Image, it.X, it.Y, it.W, it.H, false,
			gofpdf.ImageOptions{ImageType: img.Type}, 0, "")

	case ItemCode:
		var key string
		if it.Symbology == psyreport.SymbologyPDF417 {
			key = barcode.RegisterPdf417(pdf, it.Code, pdf417Columns, pdf417Security)
		} else {
			key = barcode.RegisterQR(pdf, it.Code, qr.M, qr.Auto)
		}
		barcode.Barcode(pdf, key, it.X, it.Y, it.W, it.H, false)
	}
}

// baseline places text vertically centered in a line box of height h.
func baseline(y, h, size float64) float64 {
	return y + (h-size)/2 + size*0.8
}

func paintOverlay(pdf *gofpdf.Fpdf, doc *PagedDocument, o Overlay) {
	img, ok := doc.Images[o.Image]
	if !ok {
		return
	}
	pdf.TransformBegin()
	if o.Rotation != 0 {
		pdf.TransformRotate(-o.Rotation, o.X+o.W/2, o.Y+o.H/2)
	}
	if o.Opacity < 1 {
		pdf.SetAlpha(o.Opacity, "Normal")
	}
	pdf.ImageOptions(o.Image, o.X, o.Y, o.W, o.H, false,
		gofpdf.ImageOptions{ImageType: img.Type}, 0, "")
	pdf.TransformEnd()
	if o.Opacity < 1 {
		pdf.SetAlpha(1, "Normal")
	}
}

// paintStamp draws the PREVIEW text diagonally across the page center. The
// font shrinks on small pages so the text stays on the page.
func paintStamp(pdf *gofpdf.Fpdf, doc *PagedDocument) {
	setFont(pdf, "Helvetica", "B", 1)
	unit := pdf.GetStringWidth(PreviewText)
	size := float64(previewFontSize)
	if diag := math.Hypot(doc.Width, doc.Height) * 0.8; unit*size > diag {
		size = diag / unit
	}
	setFont(pdf, "Helvetica", "B", size)
	setTextColor(pdf, branding.Stamp)

	cx, cy := doc.Width/2, doc.Height/2
	pdf.TransformBegin()
	pdf.TransformRotate(previewAngle, cx, cy)
	pdf.SetAlpha(previewOpacity, "Normal")
	pdf.Text(cx-unit*size/2, cy+size/3, PreviewText)
	pdf.TransformEnd()
	pdf.SetAlpha(1, "Normal")
}

func paintFooter(pdf *gofpdf.Fpdf, doc *PagedDocument, text string) {
	c := branding.Rule
	pdf.SetDrawColor(c.R, c.G, c.B)
	pdf.SetLineWidth(0.5)
	y := doc.Height - footerRuleY
	pdf.Line(doc.Margin, y, doc.Width-doc.Margin, y)

	setFont(pdf, "Helvetica", "", footerFontSize)
	setTextColor(pdf, branding.Muted)
	w := pdf.GetStringWidth(text)
	pdf.Text((doc.Width-w)/2, doc.Height-footerTextY+footerFontSize*0.8, text)
}

// setFont selects a font on the current page even when gofpdf believes it
// is already selected, which is not true after SetPage.
func setFont(pdf *gofpdf.Fpdf, family, style string, size float64) {
	pdf.SetFont(family, style, size+1)
	pdf.SetFont(family, style, size)
}

// setTextColor sets both fill and text colour on the current page so the
// colour is emitted into the revisited page's content stream.
func setTextColor(pdf *gofpdf.Fpdf, c branding.Color) {
	pdf.SetFillColor(c.R, c.G, c.B)
	pdf.SetTextColor(c.R, c.G, c.B)
}
