package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/render"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/collect"
	"github.com/lvillar/psyreport/httpx"
	"github.com/lvillar/psyreport/log"
	"github.com/lvillar/psyreport/report"
	"github.com/lvillar/psyreport/store"
)

// MaxBundleSize bounds the reports merged by one bundle request.
const MaxBundleSize = 50

type reportBody struct {
	TemplateID      string               `json:"templateId"`
	TemplateVersion int                  `json:"templateVersion"`
	Report          *collect.RawReport   `json:"report"`
	ReportData      *collect.RawReport   `json:"reportData"`
	PDFOptions      *branding.PDFOptions `json:"pdfOptions"`
	ReferenceCode   string               `json:"referenceCode"`
}

func (b reportBody) raw() collect.RawReport {
	var raw collect.RawReport
	switch {
	case b.Report != nil:
		raw = *b.Report
	case b.ReportData != nil:
		raw = *b.ReportData
	}
	if b.TemplateID != "" {
		raw.TemplateID = b.TemplateID
	}
	if b.TemplateVersion != 0 {
		raw.TemplateVersion = b.TemplateVersion
	}
	return raw
}

// GeneratePDF renders the final report as a download. Required sections are
// enforced.
func GeneratePDF(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body reportBody
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		req, ok := reportRequest(app, w, r, body, "")
		if !ok {
			return
		}

		out, err := app.Reports.Render(r.Context(), req)
		if err != nil {
			httpx.LogError(w, r, "reports.generate", err)
			return
		}
		writePDF(w, out, "attachment", pdfName(req.Report))
	}
}

// PreviewPDF renders the report with the preview stamp, inline.
func PreviewPDF(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body reportBody
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		req, ok := reportRequest(app, w, r, body, "")
		if !ok {
			return
		}
		req.Options = append(req.Options, psyreport.WithPreview())

		out, err := app.Reports.Render(r.Context(), req)
		if err != nil {
			httpx.LogError(w, r, "reports.preview", err)
			return
		}
		writePDF(w, out, "inline", "preview_"+strconv.FormatInt(time.Now().UnixMilli(), 10)+".pdf")
	}
}

// BundlePDF renders several final reports into one document, in order.
func BundlePDF(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Reports    []reportBody         `json:"reports"`
			PDFOptions *branding.PDFOptions `json:"pdfOptions"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if len(body.Reports) == 0 || len(body.Reports) > MaxBundleSize {
			fieldError(w, r, "reports", fmt.Sprintf("between 1 and %d reports are required", MaxBundleSize))
			return
		}

		reqs := make([]report.Request, len(body.Reports))
		for i, rb := range body.Reports {
			if rb.PDFOptions == nil {
				rb.PDFOptions = body.PDFOptions
			}
			req, ok := reportRequest(app, w, r, rb, fmt.Sprintf("reports[%d].", i))
			if !ok {
				return
			}
			reqs[i] = req
		}

		out, err := app.Reports.RenderBatch(r.Context(), reqs)
		if err != nil {
			httpx.LogError(w, r, "reports.bundle", err)
			return
		}
		writePDF(w, out, "attachment", "reports_"+time.Now().Format("2006-01-02")+".pdf")
	}
}

// reportRequest resolves the caller's template and branding for body. On
// failure it answers the request and returns false. prefix qualifies the
// field names of error responses.
func reportRequest(app App, w http.ResponseWriter, r *http.Request, body reportBody, prefix string) (report.Request, bool) {
	raw := body.raw()
	if raw.TemplateID == "" {
		fieldError(w, r, prefix+"templateId", "templateId is required")
		return report.Request{}, false
	}
	tpl, ok := ownedTemplate(app, w, r, raw.TemplateID)
	if !ok {
		return report.Request{}, false
	}
	if raw.TemplateVersion != 0 && raw.TemplateVersion != tpl.Version {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, httpx.ErrorBody{
			Error: fmt.Sprintf("template changed (version %d, report filled against %d)", tpl.Version, raw.TemplateVersion),
			Field: prefix + "templateVersion",
		})
		return report.Request{}, false
	}

	owner := userID(r)
	cfg, err := app.LoadBranding(r.Context(), owner)
	if err != nil {
		httpx.LogInternalError(w, "db.load_branding", err)
		return report.Request{}, false
	}
	if body.PDFOptions != nil {
		if body.PDFOptions.Format != "" {
			cfg.PDFOptions.Format = body.PDFOptions.Format
		}
		if body.PDFOptions.Orientation != "" {
			cfg.PDFOptions.Orientation = body.PDFOptions.Orientation
		}
	}

	if raw.Professional.Name == "" {
		u, err := app.UserByID(r.Context(), owner)
		if err != nil {
			httpx.LogInternalError(w, "db.get_user", err)
			return report.Request{}, false
		}
		raw.Professional = professional(u.Profile, raw.Professional)
	}

	var opts []psyreport.Option
	if body.ReferenceCode != "" {
		opts = append(opts, psyreport.WithReferenceCode(body.ReferenceCode))
	}
	return report.Request{Template: &tpl, Report: raw, Branding: cfg, Options: opts}, true
}

// professional fills the signature block from the user's profile.
func professional(p store.Profile, given collect.Professional) collect.Professional {
	given.Name = p.FullName
	if given.License == "" {
		given.License = p.LicenseNumber
	}
	if given.Specialty == "" {
		given.Specialty = p.Specialty
	}
	return given
}

func pdfName(raw collect.RawReport) string {
	name := raw.Patient.Name
	if name == "" {
		name = "report"
	}
	date := collect.ParseDate(raw.Date)
	if date.IsZero() {
		date = time.Now()
	}
	return url.PathEscape(name) + "_" + date.Format("2006-01-02") + ".pdf"
}

func writePDF(w http.ResponseWriter, out []byte, disposition, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
