package psyreport

import "time"

// Mode selects between a final document and a stamped preview.
type Mode int

const (
	ModeFinal Mode = iota
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "final"
}

// ParseMode maps "preview" to ModePreview and anything else to ModeFinal.
func ParseMode(s string) Mode {
	if s == "preview" {
		return ModePreview
	}
	return ModeFinal
}

// Symbology selects the 2D code used for the document reference.
type Symbology int

const (
	SymbologyQR Symbology = iota
	SymbologyPDF417
)

// Page formats understood by the renderer.
const (
	PageFormatA3     = "A3"
	PageFormatA4     = "A4"
	PageFormatA5     = "A5"
	PageFormatLetter = "Letter"
	PageFormatLegal  = "Legal"
)

// Page orientations.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Option is a functional option for configuring a render.
type Option func(*Settings)

// Settings holds the resolved render configuration. Use NewSettings to get
// one with defaults applied.
type Settings struct {
	Format          string
	Orientation     string
	Mode            Mode
	ReferenceCode   string
	Symbology       Symbology
	AssetTimeout    time.Duration
	Compress        bool
	RequireSections bool
	Now             func() time.Time
}

// NewSettings returns the settings for opts. If no options are specified,
// defaults to a final, compressed, portrait A4 document.
func NewSettings(opts ...Option) Settings {
	s := Settings{
		Format:       PageFormatA4,
		Orientation:  OrientationPortrait,
		Mode:         ModeFinal,
		AssetTimeout: 5 * time.Second,
		Compress:     true,
		Now:          time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithPageFormat sets the page format by name, e.g. PageFormatA4 or
// PageFormatLetter. An empty name keeps the default.
func WithPageFormat(format string) Option {
	return func(s *Settings) {
		if format != "" {
			s.Format = format
		}
	}
}

// WithOrientation sets the page orientation.
// Use OrientationPortrait ("portrait") or OrientationLandscape ("landscape").
func WithOrientation(orientation string) Option {
	return func(s *Settings) {
		if orientation != "" {
			s.Orientation = orientation
		}
	}
}

// WithMode selects final or preview output.
func WithMode(m Mode) Option {
	return func(s *Settings) {
		s.Mode = m
	}
}

// WithPreview is shorthand for WithMode(ModePreview).
func WithPreview() Option {
	return WithMode(ModePreview)
}

// WithReferenceCode paints code as a 2D barcode next to the signature block.
func WithReferenceCode(code string) Option {
	return func(s *Settings) {
		s.ReferenceCode = code
	}
}

// WithReferenceSymbology selects the barcode symbology for the reference code.
func WithReferenceSymbology(sym Symbology) Option {
	return func(s *Settings) {
		s.Symbology = sym
	}
}

// WithAssetTimeout bounds each branding image lookup. A lookup that times
// out is treated as an unavailable asset.
func WithAssetTimeout(d time.Duration) Option {
	return func(s *Settings) {
		if d > 0 {
			s.AssetTimeout = d
		}
	}
}

// WithCompression toggles content stream compression.
func WithCompression(on bool) Option {
	return func(s *Settings) {
		s.Compress = on
	}
}

// WithRequiredSections makes the pipeline reject reports that leave a
// required section unanswered.
func WithRequiredSections() Option {
	return func(s *Settings) {
		s.RequireSections = true
	}
}

// WithClock overrides the clock used for the default report date.
func WithClock(now func() time.Time) Option {
	return func(s *Settings) {
		if now != nil {
			s.Now = now
		}
	}
}
