package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/lvillar/psyreport/assist"
	"github.com/lvillar/psyreport/collect"
	"github.com/lvillar/psyreport/httpx"
	"github.com/lvillar/psyreport/log"
	"github.com/lvillar/psyreport/schema"
)

func Chat(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message    string         `json:"message"`
			TemplateID string         `json:"templateId"`
			Options    assist.Options `json:"options"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if strings.TrimSpace(body.Message) == "" {
			fieldError(w, r, "message", "message is required")
			return
		}
		var tpl *schema.Template
		if body.TemplateID != "" {
			t, ok := ownedTemplate(app, w, r, body.TemplateID)
			if !ok {
				return
			}
			tpl = &t
		}

		out, err := app.AI.GenerateText(r.Context(), assist.ChatPrompt(body.Message, tpl), body.Options)
		if err != nil {
			httpx.LogError(w, r, "ai.chat", err)
			return
		}
		render.JSON(w, r, map[string]any{"success": true, "response": out})
	}
}

// GenerateContent drafts a conclusions, recommendations or summary section
// from a filled report. Without a templateId the report's own section names
// stand in for the template.
func GenerateContent(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SectionType assist.ContentKind `json:"sectionType"`
			reportBody
			Options assist.Options `json:"options"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if body.SectionType == "" || (body.Report == nil && body.ReportData == nil) {
			fieldError(w, r, "sectionType", "section type and report data are required")
			return
		}

		raw := body.raw()
		var tpl schema.Template
		if raw.TemplateID != "" {
			t, ok := ownedTemplate(app, w, r, raw.TemplateID)
			if !ok {
				return
			}
			tpl = t
		} else {
			tpl = adHocTemplate(raw)
		}
		rec := collect.Collect(&tpl, raw)

		prompt := assist.ContentPrompt(body.SectionType, &tpl, rec, body.Options.Style)
		out, err := app.AI.GenerateText(r.Context(), prompt, body.Options)
		if err != nil {
			httpx.LogError(w, r, "ai.generate_content", err)
			return
		}
		render.JSON(w, r, map[string]any{"success": true, "content": out})
	}
}

// adHocTemplate derives a template from the answers themselves: checkbox
// sections where several values were given, text sections otherwise.
func adHocTemplate(raw collect.RawReport) schema.Template {
	tpl := schema.Template{Name: "Report", Category: schema.CategoryAdult}
	for _, a := range raw.Sections {
		sec := schema.Section{Name: a.Name, Kind: schema.KindText}
		if len(a.Values) > 0 {
			sec.Kind = schema.KindCheckbox
			sec.Options = a.Values
		}
		tpl.Sections = append(tpl.Sections, sec)
	}
	return tpl
}

func EnhanceText(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text            string             `json:"text"`
			EnhancementType assist.Enhancement `json:"enhancementType"`
			Options         assist.Options     `json:"options"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if strings.TrimSpace(body.Text) == "" {
			fieldError(w, r, "text", "text is required")
			return
		}

		out, err := app.AI.GenerateText(r.Context(), assist.EnhancePrompt(body.Text, body.EnhancementType), body.Options)
		if err != nil {
			httpx.LogError(w, r, "ai.enhance_text", err)
			return
		}
		render.JSON(w, r, map[string]any{"success": true, "enhancedText": out})
	}
}

// CheckAI sends a short test prompt to the configured generator.
func CheckAI(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := app.AI.GenerateText(r.Context(), "Test connection", assist.Options{MaxTokens: 50, Temperature: 0.3})
		if err != nil {
			httpx.LogError(w, r, "ai.test", err)
			return
		}
		render.JSON(w, r, map[string]any{"success": true, "status": "AI service is working", "testResponse": out})
	}
}
