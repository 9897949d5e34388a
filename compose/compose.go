package compose

import (
	"time"

	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/collect"
	"github.com/lvillar/psyreport/schema"
)

// Placeholders painted for sections without data.
const (
	NoData      = "(No data)"
	NoSelection = "(No selection)"
)

// Labels of the patient and signature blocks.
const (
	PatientTitle   = "Patient Information"
	LabelName      = "Name"
	LabelAge       = "Age"
	LabelID        = "ID"
	LabelPhone     = "Phone"
	LabelLicense   = "License"
	LabelSpecialty = "Specialty"
	LabelDate      = "Date"
	AgeUnit        = "years"
	DateLayout     = "January 2, 2006"
)

// Logo bounds in points.
const (
	LogoMaxWidth  = 200
	LogoMaxHeight = 100
)

// Watermark overlay parameters.
const (
	WatermarkRotation = -45
	WatermarkOpacity  = 0.15
)

// Compose builds the blocks of rec using today's date when rec has none.
func Compose(rec collect.Record, cfg branding.Config, tpl *schema.Template) []Block {
	return ComposeAt(rec, cfg, tpl, time.Now())
}

// ComposeAt builds the blocks of rec. today is used when rec.Date is zero.
//
// The order is fixed: logo, title, date, patient information, one heading
// and content block per template section, signature, then overlays
// (header, footer, watermark). Missing data is omitted or replaced by a
// placeholder; ComposeAt never fails.
func ComposeAt(rec collect.Record, cfg branding.Config, tpl *schema.Template, today time.Time) []Block {
	primary := cfg.Primary()
	headerFamily := cfg.HeaderFamily()
	bodyFamily := cfg.BodyFamily()

	body := Style{Family: bodyFamily, Size: 12, Color: branding.Text, Align: AlignLeft}
	sectionTitle := Style{Family: headerFamily, Size: 14, Bold: true, Color: primary, Align: AlignLeft}

	var blocks []Block

	if cfg.Logo != nil {
		blocks = append(blocks, ImageBlock{
			Ref:       *cfg.Logo,
			MaxWidth:  LogoMaxWidth,
			MaxHeight: LogoMaxHeight,
			Placement: PlaceFlow,
			Opacity:   1,
			Align:     AlignCenter,
		})
	}

	name := ""
	if tpl != nil {
		name = tpl.Name
	}
	blocks = append(blocks, Heading{
		Text:  name,
		Level: 1,
		Style: Style{Family: headerFamily, Size: 18, Bold: true, Color: primary, Align: AlignCenter},
	})

	date := rec.Date
	if date.IsZero() {
		date = today
	}
	blocks = append(blocks, Paragraph{
		Text:  LabelDate + ": " + date.Format(DateLayout),
		Style: Style{Family: bodyFamily, Size: 12, Color: branding.Muted, Align: AlignRight},
	})

	blocks = append(blocks, patientBlock(rec.Patient, sectionTitle, body))

	if tpl != nil {
		for i, sec := range tpl.Sections {
			var ans collect.Answer
			if i < len(rec.Sections) {
				ans = rec.Sections[i]
			}
			blocks = append(blocks,
				Heading{Text: sec.Name, Level: 2, Style: sectionTitle},
				sectionContent(sec, ans, body),
			)
		}
	}

	blocks = append(blocks, signatureBlock(rec.Professional, cfg, bodyFamily))

	if cfg.Header != nil {
		blocks = append(blocks, ImageBlock{Ref: *cfg.Header, Placement: PlaceHeader, Opacity: 1, Align: AlignCenter})
	}
	if cfg.Footer != nil {
		blocks = append(blocks, ImageBlock{Ref: *cfg.Footer, Placement: PlaceFooter, Opacity: 1, Align: AlignCenter})
	}
	if cfg.EnableWatermark && cfg.Watermark != nil {
		blocks = append(blocks, ImageBlock{
			Ref:       *cfg.Watermark,
			Placement: PlaceCenter,
			Rotation:  WatermarkRotation,
			Opacity:   WatermarkOpacity,
			Align:     AlignCenter,
		})
	}

	return blocks
}

func patientBlock(p collect.Patient, title, body Style) KeyValueList {
	var entries []KeyValue
	if p.Name != "" {
		entries = append(entries, KeyValue{LabelName, p.Name})
	}
	if p.Age != "" {
		entries = append(entries, KeyValue{LabelAge, p.Age + " " + AgeUnit})
	}
	if p.ExternalID != "" {
		entries = append(entries, KeyValue{LabelID, p.ExternalID})
	}
	if p.Phone != "" {
		entries = append(entries, KeyValue{LabelPhone, p.Phone})
	}
	return KeyValueList{Title: PatientTitle, TitleStyle: title, Entries: entries, Style: body}
}

func sectionContent(sec schema.Section, ans collect.Answer, body Style) Block {
	switch sec.Kind {
	case schema.KindCheckbox:
		if len(ans.Values) == 0 {
			return BulletList{Items: []string{NoSelection}, Style: body}
		}
		items := make([]string, len(ans.Values))
		copy(items, ans.Values)
		return BulletList{Items: items, Style: body}
	case schema.KindRadio, schema.KindSelect:
		if ans.Value == "" {
			return Paragraph{Text: NoSelection, Style: body}
		}
		return Paragraph{Text: ans.Value, Style: body}
	default:
		if ans.Value == "" {
			return Paragraph{Text: NoData, Style: body}
		}
		return Paragraph{Text: ans.Value, Style: body}
	}
}

func signatureBlock(p collect.Professional, cfg branding.Config, family string) SignatureBlock {
	sig := SignatureBlock{
		Name:      p.Name,
		NameStyle: Style{Family: family, Size: 12, Bold: true, Color: branding.Text, Align: AlignLeft},
		Style:     Style{Family: family, Size: 10, Color: branding.Muted, Align: AlignLeft},
	}
	if p.License != "" {
		sig.Lines = append(sig.Lines, LabelLicense+": "+p.License)
	}
	if p.Specialty != "" {
		sig.Lines = append(sig.Lines, LabelSpecialty+": "+p.Specialty)
	}
	if cfg.Signature != nil {
		ref := *cfg.Signature
		sig.Image = &ref
	}
	return sig
}
