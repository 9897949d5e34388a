package render

import (
	"context"
	"strings"

	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/compose"
	"github.com/lvillar/psyreport/log"
)

// ItemKind tells Paint how to draw an Item.
type ItemKind int

const (
	ItemText ItemKind = iota
	ItemImage
	ItemCode
)

// Item is one placed element of a page: a single line of text, an image or
// a reference code. X and Y are the top-left corner in points.
type Item struct {
	Kind ItemKind
	X, Y float64
	W, H float64

	// Text is one line, encoded for the core fonts (cp1252).
	Text  string
	Style compose.Style

	Image string // key into PagedDocument.Images

	Code      string
	Symbology psyreport.Symbology
}

// Page holds the body items of one page.
type Page struct {
	Items []Item
}

// Overlay is an image painted on every page after the body.
type Overlay struct {
	Image     string
	Placement compose.Placement
	X, Y      float64
	W, H      float64
	Rotation  float64 // degrees, clockwise
	Opacity   float64
}

// Metadata is written to the PDF information dictionary.
type Metadata struct {
	Title   string
	Author  string
	Subject string
}

// PagedDocument is the laid-out report: pages of placed items plus the
// overlays painted on every page. It holds no reference to the asset
// store; every image it names is in Images.
type PagedDocument struct {
	Format      string
	Orientation string // "P" or "L"
	Width       float64
	Height      float64
	Margin      float64
	Pages       []Page
	Overlays    []Overlay
	Images      map[string]Image
	Meta        Metadata
}

// Subject is the document subject of every report.
const Subject = "Psychological Report"

// Spacing in points.
const (
	spaceAfterTitle   = 12
	spaceAfterHeading = 6
	spaceAfterBlock   = 18
	spaceAfterLogo    = 24
	spaceBeforeSign   = 24
	lineFactor        = 1.2
	headerBand        = 40
	footerBand        = 22
	signatureMaxW     = 150
	signatureMaxH     = 60
	qrSize            = 72
	pdf417Width       = 144
	pdf417Height      = 48
)

// row is a unit of vertical flow. Rows marked keep are moved to the next
// page together with the row that follows them.
type row struct {
	kind   ItemKind
	space  bool
	h      float64
	w      float64
	indent float64
	text   string
	style  compose.Style
	image  string
	code   string
	sym    psyreport.Symbology
	keep   bool
}

type measurer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newMeasurer() *measurer {
	pdf := gofpdf.New("P", "pt", "A4", "")
	return &measurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *measurer) width(s string, st compose.Style) float64 {
	m.pdf.SetFont(fontFamily(st), fontStyle(st), fontSize(st))
	return m.pdf.GetStringWidth(s)
}

// lines wraps text to width. The returned lines are cp1252 encoded.
func (m *measurer) lines(text string, st compose.Style, width float64) []string {
	m.pdf.SetFont(fontFamily(st), fontStyle(st), fontSize(st))
	var out []string
	for _, l := range m.pdf.SplitLines([]byte(m.tr(text)), width) {
		out = append(out, strings.TrimRight(string(l), " "))
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func fontFamily(st compose.Style) string {
	if st.Family == "" {
		return "Helvetica"
	}
	return st.Family
}

func fontStyle(st compose.Style) string {
	if st.Bold {
		return "B"
	}
	return ""
}

func fontSize(st compose.Style) float64 {
	if st.Size <= 0 {
		return 12
	}
	return st.Size
}

type layout struct {
	ctx      context.Context
	settings psyreport.Settings
	resolver AssetResolver
	m        *measurer
	doc      *PagedDocument

	contentW float64
	contentH float64
	top      float64
	bottom   float64

	y     float64
	empty bool

	failed   map[string]bool
	codeDone bool
}

// Layout resolves the images of blocks and distributes the blocks over
// pages. An image that cannot be resolved or decoded is logged and left
// out; the rest of the document is laid out as if it were never there.
//
// Layout fails only for an unknown page format or orientation.
func Layout(ctx context.Context, blocks []compose.Block, resolver AssetResolver, s psyreport.Settings) (*PagedDocument, error) {
	w, h, code, err := PageSize(s.Format, s.Orientation)
	if err != nil {
		return nil, psyreport.NewRenderError("Layout", err)
	}
	if s.AssetTimeout <= 0 {
		s.AssetTimeout = psyreport.NewSettings().AssetTimeout
	}

	l := &layout{
		ctx:      ctx,
		settings: s,
		resolver: resolver,
		m:        newMeasurer(),
		doc: &PagedDocument{
			Format:      s.Format,
			Orientation: code,
			Width:       w,
			Height:      h,
			Margin:      Margin,
			Images:      make(map[string]Image),
			Meta:        metadata(blocks),
		},
		contentW: w - 2*Margin,
		contentH: h - 2*Margin,
		top:      Margin,
		bottom:   h - Margin,
		failed:   make(map[string]bool),
	}
	l.newPage()

	var rows []row
	for _, b := range blocks {
		switch b := b.(type) {
		case compose.ImageBlock:
			if b.Overlay() {
				l.overlay(b)
				continue
			}
			rows = append(rows, l.imageRows(b)...)
		default:
			rows = append(rows, l.rows(b)...)
		}
	}
	if !l.codeDone {
		rows = append(rows, l.codeRows()...)
	}
	l.place(rows)

	if err := ctx.Err(); err != nil {
		return nil, psyreport.NewRenderError("Layout", err)
	}
	return l.doc, nil
}

func metadata(blocks []compose.Block) Metadata {
	var title, patient, author string
	for _, b := range blocks {
		switch b := b.(type) {
		case compose.Heading:
			if b.Level == 1 && title == "" {
				title = b.Text
			}
		case compose.KeyValueList:
			for _, e := range b.Entries {
				if e.Key == compose.LabelName && patient == "" {
					patient = e.Value
				}
			}
		case compose.SignatureBlock:
			author = b.Name
		}
	}
	if patient != "" {
		if title != "" {
			title += " - "
		}
		title += patient
	}
	return Metadata{Title: title, Author: author, Subject: Subject}
}

// image returns the registration key of ref, resolving it on first use.
func (l *layout) image(ref branding.ImageRef) (string, Image, bool) {
	key := ref.String()
	if img, ok := l.doc.Images[key]; ok {
		return key, img, true
	}
	if l.failed[key] {
		return "", Image{}, false
	}
	img, err := fetchImage(l.ctx, l.resolver, ref, l.settings.AssetTimeout)
	if err != nil {
		l.failed[key] = true
		log.WithFields(log.Fields{"asset": key}).WithError(err).Warn("render: skipping image")
		return "", Image{}, false
	}
	l.doc.Images[key] = img
	return key, img, true
}

func (l *layout) overlay(b compose.ImageBlock) {
	key, img, ok := l.image(b.Ref)
	if !ok {
		return
	}
	pw, ph := float64(img.Width), float64(img.Height)
	o := Overlay{Image: key, Placement: b.Placement, Rotation: b.Rotation, Opacity: b.Opacity}
	if o.Opacity <= 0 || o.Opacity > 1 {
		o.Opacity = 1
	}

	switch b.Placement {
	case compose.PlaceCenter:
		maxW, maxH := b.MaxWidth, b.MaxHeight
		if maxW <= 0 && maxH <= 0 {
			maxW, maxH = l.contentW/2, l.contentH/2
		}
		o.W, o.H = fit(pw, ph, maxW, maxH, true)
		o.X = (l.doc.Width - o.W) / 2
		o.Y = (l.doc.Height - o.H) / 2
	case compose.PlaceHeader, compose.PlaceFooter:
		band := float64(headerBand)
		if b.Placement == compose.PlaceFooter {
			band = footerBand
		}
		maxH := band
		if b.MaxHeight > 0 && b.MaxHeight < band {
			maxH = b.MaxHeight
		}
		maxW := l.contentW
		if b.MaxWidth > 0 && b.MaxWidth < maxW {
			maxW = b.MaxWidth
		}
		o.W, o.H = fit(pw, ph, maxW, maxH, false)
		o.X = Margin + alignOffset(b.Align, l.contentW, o.W)
		if b.Placement == compose.PlaceHeader {
			o.Y = (Margin - o.H) / 2
		} else {
			o.Y = l.doc.Height - 6 - o.H
		}
	}
	l.doc.Overlays = append(l.doc.Overlays, o)
}

func alignOffset(a compose.Align, box, w float64) float64 {
	switch a {
	case compose.AlignCenter:
		return (box - w) / 2
	case compose.AlignRight:
		return box - w
	}
	return 0
}

func (l *layout) imageRows(b compose.ImageBlock) []row {
	key, img, ok := l.image(b.Ref)
	if !ok {
		return nil
	}
	w, h := fit(float64(img.Width), float64(img.Height), b.MaxWidth, b.MaxHeight, false)
	w, h = fit(w, h, l.contentW, l.contentH, false)
	return []row{
		{kind: ItemImage, image: key, w: w, h: h, indent: alignOffset(b.Align, l.contentW, w)},
		{space: true, h: spaceAfterLogo},
	}
}

func (l *layout) textRows(text string, st compose.Style, indent float64, keep bool) []row {
	var rows []row
	for _, line := range l.m.lines(text, st, l.contentW-indent) {
		rows = append(rows, row{
			kind:   ItemText,
			text:   line,
			style:  st,
			h:      fontSize(st) * lineFactor,
			w:      l.contentW - indent,
			indent: indent,
			keep:   keep,
		})
	}
	return rows
}

func (l *layout) rows(b compose.Block) []row {
	var rows []row
	switch b := b.(type) {
	case compose.Heading:
		rows = l.textRows(b.Text, b.Style, 0, true)
		gap := float64(spaceAfterHeading)
		if b.Level <= 1 {
			gap = spaceAfterTitle
		}
		rows = append(rows, row{space: true, h: gap, keep: true})

	case compose.Paragraph:
		rows = l.textRows(b.Text, b.Style, 0, false)
		rows = append(rows, row{space: true, h: spaceAfterBlock})

	case compose.BulletList:
		bullet := l.m.tr("• ")
		indent := l.m.width(bullet, b.Style)
		for _, item := range b.Items {
			lines := l.textRows(item, b.Style, indent, false)
			lines[0].text = bullet + lines[0].text
			lines[0].indent = 0
			lines[0].w = l.contentW
			rows = append(rows, lines...)
		}
		rows = append(rows, row{space: true, h: spaceAfterBlock})

	case compose.KeyValueList:
		rows = l.textRows(b.Title, b.TitleStyle, 0, true)
		rows = append(rows, row{space: true, h: spaceAfterHeading, keep: true})
		for _, e := range b.Entries {
			rows = append(rows, l.textRows(e.String(), b.Style, 0, false)...)
		}
		rows = append(rows, row{space: true, h: spaceAfterBlock})

	case compose.SignatureBlock:
		var group []row
		if b.Image != nil {
			if key, img, ok := l.image(*b.Image); ok {
				w, h := fit(float64(img.Width), float64(img.Height), signatureMaxW, signatureMaxH, false)
				group = append(group, row{kind: ItemImage, image: key, w: w, h: h})
			}
		}
		if b.Name != "" {
			group = append(group, l.textRows(b.Name, b.NameStyle, 0, false)...)
		}
		for _, line := range b.Lines {
			group = append(group, l.textRows(line, b.Style, 0, false)...)
		}
		group = append(group, l.codeRows()...)
		for i := range group {
			group[i].keep = i < len(group)-1
		}
		if len(group) > 0 {
			rows = append(rows, row{space: true, h: spaceBeforeSign})
			rows = append(rows, group...)
		}
	}
	return rows
}

// codeRows returns the reference code row, at most once per document.
func (l *layout) codeRows() []row {
	code := l.settings.ReferenceCode
	if code == "" || l.codeDone {
		return nil
	}
	l.codeDone = true

	r := row{kind: ItemCode, code: code, sym: l.settings.Symbology}
	switch l.settings.Symbology {
	case psyreport.SymbologyPDF417:
		r.w, r.h = pdf417Width, pdf417Height
	default:
		if _, err := qr.Encode(code, qr.M, qr.Auto); err != nil {
			log.WithFields(log.Fields{"code": code}).WithError(err).Warn("render: skipping reference code")
			return nil
		}
		r.w, r.h = qrSize, qrSize
	}
	return []row{{space: true, h: spaceAfterHeading}, r}
}

func (l *layout) newPage() {
	l.doc.Pages = append(l.doc.Pages, Page{})
	l.y = l.top
	l.empty = true
}

func (l *layout) remaining() float64 {
	return l.bottom - l.y
}

// chain is the height of rows[i] plus every following row it is kept with.
func chain(rows []row, i int) float64 {
	h := 0.0
	for j := i; j < len(rows); j++ {
		h += rows[j].h
		if !rows[j].space && !rows[j].keep {
			break
		}
	}
	return h
}

func (l *layout) place(rows []row) {
	for i, r := range rows {
		if r.space {
			if l.empty {
				continue
			}
			l.y = min(l.y+r.h, l.bottom)
			continue
		}

		need := r.h
		if r.keep {
			need = chain(rows, i)
		}
		if need > l.remaining() && !l.empty {
			l.newPage()
		}

		page := &l.doc.Pages[len(l.doc.Pages)-1]
		page.Items = append(page.Items, Item{
			Kind:      r.kind,
			X:         Margin + r.indent,
			Y:         l.y,
			W:         r.w,
			H:         r.h,
			Text:      r.text,
			Style:     r.style,
			Image:     r.image,
			Code:      r.code,
			Symbology: r.sym,
		})
		l.y += r.h
		l.empty = false
	}
}
