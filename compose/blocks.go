// Package compose turns a filled report and a branding configuration into
// an ordered list of renderer-agnostic layout blocks.
package compose

import (
	"github.com/lvillar/psyreport/branding"
)

// Align is a horizontal alignment.
type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// Style carries the presentation hints of a block.
type Style struct {
	Family string // core font family: Helvetica, Times, Courier
	Size   float64
	Bold   bool
	Color  branding.Color
	Align  Align
}

// Block is one unit of document content. The set of implementations is
// closed: Heading, KeyValueList, Paragraph, BulletList, ImageBlock and
// SignatureBlock.
type Block interface {
	block()
}

// Heading is a title line.
type Heading struct {
	Text  string
	Level int // 1 = document title, 2 = section title
	Style Style
}

// Paragraph is wrapped body text.
type Paragraph struct {
	Text  string
	Style Style
}

// BulletList is a list of bulleted items.
type BulletList struct {
	Items []string
	Style Style
}

// KeyValue is one "Key: Value" line.
type KeyValue struct {
	Key   string
	Value string
}

func (kv KeyValue) String() string {
	return kv.Key + ": " + kv.Value
}

// KeyValueList is a titled list of labelled values.
type KeyValueList struct {
	Title      string
	TitleStyle Style
	Entries    []KeyValue
	Style      Style
}

// Placement says where an image is painted.
type Placement int

const (
	PlaceFlow   Placement = iota // in the body flow
	PlaceCenter                  // overlay centered on every page
	PlaceHeader                  // overlay in the top margin of every page
	PlaceFooter                  // overlay in the bottom margin of every page
)

// ImageBlock is an image bounded to MaxWidth x MaxHeight. Flow images are
// never scaled above their pixel size. Overlay images are painted on every
// page after the body, rotated by Rotation degrees clockwise.
type ImageBlock struct {
	Ref       branding.ImageRef
	MaxWidth  float64
	MaxHeight float64
	Placement Placement
	Rotation  float64
	Opacity   float64
	Align     Align
}

// Overlay reports whether the image is painted over every page rather than
// in the body flow.
func (b ImageBlock) Overlay() bool {
	return b.Placement != PlaceFlow
}

// SignatureBlock closes the report. Lines follow the bold name, each
// already labelled ("License: ...").
type SignatureBlock struct {
	Name      string
	Lines     []string
	Image     *branding.ImageRef
	NameStyle Style
	Style     Style
}

func (Heading) block()        {}
func (Paragraph) block()      {}
func (BulletList) block()     {}
func (KeyValueList) block()   {}
func (ImageBlock) block()     {}
func (SignatureBlock) block() {}
