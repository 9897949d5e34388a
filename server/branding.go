package server

import (
	"net/http"

	"github.com/go-chi/render"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/filestore"
	"github.com/lvillar/psyreport/httpx"
	"github.com/lvillar/psyreport/log"
	pdfrender "github.com/lvillar/psyreport/render"
)

type configBody struct {
	Config branding.Config `json:"config"`
}

func LoadConfig(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := app.LoadBranding(r.Context(), userID(r))
		if err != nil {
			httpx.LogInternalError(w, "db.load_branding", err)
			return
		}
		render.JSON(w, r, configBody{cfg})
	}
}

func SaveConfig(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body configBody
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		cfg := body.Config
		if field, msg := checkBranding(cfg, userID(r)); field != "" {
			fieldError(w, r, field, msg)
			return
		}

		if err := app.SaveBranding(r.Context(), userID(r), cfg); err != nil {
			httpx.LogInternalError(w, "db.save_branding", err)
			return
		}
		render.JSON(w, r, map[string]any{"message": "Configuration saved", "config": cfg})
	}
}

// checkBranding returns the first invalid field of cfg and why. Images must
// be the caller's own uploads of the matching category.
func checkBranding(cfg branding.Config, owner string) (field, msg string) {
	for _, c := range branding.ImageCategories {
		ref := cfg.Ref(c)
		if ref == nil {
			continue
		}
		if ref.Category != c || !filestore.OwnedBy(ref.ID, owner) {
			return string(c), "image is not one of your " + c.Dir()
		}
	}
	colors := []struct{ field, value string }{
		{"primaryColor", cfg.PrimaryColor},
		{"secondaryColor", cfg.SecondaryColor},
	}
	for _, c := range colors {
		if c.value == "" {
			continue
		}
		if _, err := branding.ParseColor(c.value); err != nil {
			return c.field, "invalid color " + c.value
		}
	}
	format := cfg.PDFOptions.Format
	if format == "" {
		format = psyreport.PageFormatA4
	}
	if _, _, _, err := pdfrender.PageSize(format, cfg.PDFOptions.Orientation); err != nil {
		return "pdfOptions", "unknown page format or orientation"
	}
	return "", ""
}
