// Package branding describes the per-user visual customisation applied to
// generated reports: images, colours, fonts and page options.
package branding

import (
	"fmt"
	"strings"
)

// ImageCategory identifies what a stored branding image is used for.
type ImageCategory string

const (
	CategoryLogo      ImageCategory = "logo"
	CategorySignature ImageCategory = "signature"
	CategoryWatermark ImageCategory = "watermark"
	CategoryHeader    ImageCategory = "header"
	CategoryFooter    ImageCategory = "footer"

	// CategoryTemp holds scratch files. It is never referenced by a Config.
	CategoryTemp ImageCategory = "temp"
)

// ImageCategories lists the categories a Config can reference.
var ImageCategories = []ImageCategory{
	CategoryLogo, CategorySignature, CategoryWatermark, CategoryHeader, CategoryFooter,
}

// ParseImageCategory accepts singular and plural names ("logo", "logos").
func ParseImageCategory(s string) (ImageCategory, bool) {
	c := ImageCategory(strings.TrimSuffix(strings.ToLower(s), "s"))
	switch c {
	case CategoryLogo, CategorySignature, CategoryWatermark, CategoryHeader, CategoryFooter, CategoryTemp:
		return c, true
	}
	return "", false
}

// Dir is the storage directory name of the category, e.g. "logos".
func (c ImageCategory) Dir() string {
	return string(c) + "s"
}

// ImageRef points at a stored image. Resolving it yields raw image bytes.
type ImageRef struct {
	Category ImageCategory `json:"category"`
	ID       string        `json:"id"`
}

func (r ImageRef) String() string {
	return fmt.Sprintf("%s/%s", r.Category, r.ID)
}

// PDFOptions are the page options stored with the branding.
type PDFOptions struct {
	Format      string `json:"format,omitempty"`      // A4, Letter, Legal, A3, A5
	Orientation string `json:"orientation,omitempty"` // portrait, landscape
}

// Config is a user's branding. The zero value is a plain black-on-white
// document with no images.
type Config struct {
	Logo      *ImageRef `json:"logo,omitempty"`
	Header    *ImageRef `json:"header,omitempty"`
	Footer    *ImageRef `json:"footer,omitempty"`
	Watermark *ImageRef `json:"watermark,omitempty"`
	Signature *ImageRef `json:"signature,omitempty"`

	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	HeaderFont     string `json:"headerFont,omitempty"`
	BodyFont       string `json:"bodyFont,omitempty"`

	EnableWatermark bool       `json:"enableWatermark,omitempty"`
	PDFOptions      PDFOptions `json:"pdfOptions,omitempty"`
}

// Primary returns the primary colour, black when unset or malformed.
func (c Config) Primary() Color {
	return ParseColorOr(c.PrimaryColor, Black)
}

// Secondary returns the secondary colour, a dark gray when unset or malformed.
func (c Config) Secondary() Color {
	return ParseColorOr(c.SecondaryColor, Text)
}

// HeaderFamily returns the core font family for headings.
func (c Config) HeaderFamily() string {
	return FontFamily(c.HeaderFont)
}

// BodyFamily returns the core font family for body text.
func (c Config) BodyFamily() string {
	return FontFamily(c.BodyFont)
}

// Ref returns the image reference stored for category, or nil.
func (c Config) Ref(category ImageCategory) *ImageRef {
	switch category {
	case CategoryLogo:
		return c.Logo
	case CategoryHeader:
		return c.Header
	case CategoryFooter:
		return c.Footer
	case CategoryWatermark:
		return c.Watermark
	case CategorySignature:
		return c.Signature
	}
	return nil
}

// SetRef stores ref for category; a nil ref clears it.
func (c *Config) SetRef(category ImageCategory, ref *ImageRef) {
	switch category {
	case CategoryLogo:
		c.Logo = ref
	case CategoryHeader:
		c.Header = ref
	case CategoryFooter:
		c.Footer = ref
	case CategoryWatermark:
		c.Watermark = ref
	case CategorySignature:
		c.Signature = ref
	}
}

// FontFamily maps a font identifier from the branding form to one of the
// PDF core families (Helvetica, Times, Courier). Unknown identifiers fall
// back to Helvetica.
func FontFamily(id string) string {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "times", "times new roman", "times-roman", "serif", "georgia", "garamond":
		return "Times"
	case "courier", "courier new", "monospace":
		return "Courier"
	}
	return "Helvetica"
}
