package branding

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB color.
type Color struct {
	R, G, B int
}

// Fixed colours used by the report layout.
var (
	Black   = Color{0, 0, 0}
	Text    = Color{0x33, 0x33, 0x33}
	Muted   = Color{0x66, 0x66, 0x66}
	Rule    = Color{0xcc, 0xcc, 0xcc}
	Stamp   = Color{0xff, 0x00, 0x00}
	Neutral = Color{0xc8, 0xc8, 0xc8}
)

// Hex formats c as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseColor parses "#rrggbb", "#rgb" or the same without the leading '#'.
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("branding: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("branding: invalid color %q", s)
	}
	return Color{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, nil
}

// ParseColorOr parses s and returns def if s is empty or malformed.
func ParseColorOr(s string, def Color) Color {
	if s == "" {
		return def
	}
	c, err := ParseColor(s)
	if err != nil {
		return def
	}
	return c
}
