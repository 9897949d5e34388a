package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/assist"
	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/filestore"
	"github.com/lvillar/psyreport/httpx"
	"github.com/lvillar/psyreport/pageops"
	"github.com/lvillar/psyreport/report"
	"github.com/lvillar/psyreport/schema"
	"github.com/lvillar/psyreport/store"
)

const testSecret = "test-secret"

type testEnv struct {
	t       *testing.T
	handler http.Handler
	store   *store.Store
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	files, err := filestore.NewDisk(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	app := App{
		Store:        st,
		BearerServer: httpx.NewBearerServer(testSecret, time.Hour, st),
		Files:        files,
		Reports:      report.NewService(files, 2, psyreport.WithRequiredSections(), psyreport.WithCompression(false)),
		AI:           assist.Offline{Mock: true},
		TokenSecret:  testSecret,
		MaxBodyBytes: 5 << 20,
	}
	return &testEnv{t: t, handler: Wire(app), store: st}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// signup registers email and returns its access token.
func (e *testEnv) signup(email string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    email,
		"password": "correct horse",
		"profile":  map[string]string{"fullName": "Dr. Ana Ruiz", "licenseNumber": "PS-12"},
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return e.login(email, "correct horse").AccessToken
}

func (e *testEnv) login(email, password string) tokenResponse {
	e.t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	r.SetBasicAuth(email, password)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	tok := decode[tokenResponse](e.t, w)
	require.NotEmpty(e.t, tok.AccessToken)
	return tok
}

func intakeJSON() map[string]any {
	return map[string]any{
		"name":     "Adult Intake",
		"category": "adultos",
		"sections": []map[string]any{
			{"name": "Reason", "type": "text", "required": true},
			{"name": "Symptoms", "type": "checkbox", "options": []string{"Anxiety", "Insomnia"}},
		},
	}
}

func (e *testEnv) createTemplate(token string) schema.Template {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/templates", token, intakeJSON())
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[schema.Template](e.t, w)
}

func filledReport(tpl schema.Template) map[string]any {
	return map[string]any{
		"templateId":      tpl.ID,
		"templateVersion": tpl.Version,
		"report": map[string]any{
			"patient":  map[string]any{"name": "Jane Doe", "age": 34},
			"date":     "2024-05-17",
			"sections": []map[string]any{{"value": "Referred by GP"}, {"values": []string{"Insomnia"}}},
		},
	}
}

func TestAuth(t *testing.T) {
	e := newEnv(t)
	token := e.signup("ana@example.com")

	w := e.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[store.User](t, w)
	assert.Equal(t, "ana@example.com", me.Email)
	assert.Equal(t, "PS-12", me.Profile.LicenseNumber)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/auth/me", "garbage", nil).Code)

	w = e.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "ANA@example.com", "password": "whatever123", "profile": map[string]string{"fullName": "X"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "bob@example.com", "password": "short", "profile": map[string]string{"fullName": "Bob"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password", decode[httpx.ErrorBody](t, w).Field)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	r.SetBasicAuth("ana@example.com", "wrong password")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	w = e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code, "JSON credentials")

	tok := e.login("ana@example.com", "correct horse")
	r = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	r.Header.Set("Authorization", "Refresh "+tok.RefreshToken)
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := decode[tokenResponse](t, rec)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/auth/me", refreshed.AccessToken, nil).Code)
}

func TestTemplatesCRUD(t *testing.T) {
	e := newEnv(t)
	token := e.signup("ana@example.com")
	other := e.signup("bob@example.com")

	tpl := e.createTemplate(token)
	assert.Equal(t, schema.CategoryAdult, tpl.Category, "legacy category names are normalized")
	assert.Equal(t, 1, tpl.Version)

	w := e.do(http.MethodPost, "/api/templates", token, map[string]any{
		"name": "Broken", "category": "Adult",
		"sections": []map[string]any{{"name": "Mood", "type": "radio"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "sections[0].options", decode[httpx.ErrorBody](t, w).Field)

	w = e.do(http.MethodGet, "/api/templates", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]schema.Template](t, w), 1)

	w = e.do(http.MethodGet, "/api/templates", other, nil)
	assert.Empty(t, decode[[]schema.Template](t, w))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/templates/"+tpl.ID, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/templates/"+tpl.ID, other, nil).Code)

	w = e.do(http.MethodPut, "/api/templates/"+tpl.ID, token, map[string]any{"name": "Adult Intake v2", "isStarred": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[schema.Template](t, w)
	assert.Equal(t, "Adult Intake v2", updated.Name)
	assert.True(t, updated.Starred)
	assert.Equal(t, 2, updated.Version)
	assert.Len(t, updated.Sections, 2)

	w = e.do(http.MethodPut, "/api/templates/"+tpl.ID, token, map[string]any{"category": "Astrology"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodDelete, "/api/templates/"+tpl.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Template removed", decode[map[string]string](t, w)["message"])
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/templates/"+tpl.ID, token, nil).Code)
}

func TestReports(t *testing.T) {
	e := newEnv(t)
	token := e.signup("ana@example.com")
	tpl := e.createTemplate(token)

	w := e.do(http.MethodPost, "/api/reports/generate-pdf", token, filledReport(tpl))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Jane%20Doe_2024-05-17.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, w.Body.String(), "Dr. Ana Ruiz", "signature falls back to the profile")
	assert.NotContains(t, w.Body.String(), "(PREVIEW)")

	w = e.do(http.MethodPost, "/api/reports/preview-pdf", token, filledReport(tpl))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "inline"))
	assert.Contains(t, w.Body.String(), "(PREVIEW)")

	missing := filledReport(tpl)
	missing["report"].(map[string]any)["sections"] = []map[string]any{{"value": ""}}
	w = e.do(http.MethodPost, "/api/reports/generate-pdf", token, missing)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "sections[0]", decode[httpx.ErrorBody](t, w).Field)
	w = e.do(http.MethodPost, "/api/reports/preview-pdf", token, missing)
	assert.Equal(t, http.StatusOK, w.Code, "previews skip required sections")

	stale := filledReport(tpl)
	stale["templateVersion"] = 7
	w = e.do(http.MethodPost, "/api/reports/generate-pdf", token, stale)
	assert.Equal(t, http.StatusConflict, w.Code)

	badFormat := filledReport(tpl)
	badFormat["pdfOptions"] = map[string]string{"format": "Tabloid"}
	w = e.do(http.MethodPost, "/api/reports/generate-pdf", token, badFormat)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "pdfOptions", decode[httpx.ErrorBody](t, w).Field)

	w = e.do(http.MethodPost, "/api/reports/generate-pdf", e.signup("bob@example.com"), filledReport(tpl))
	assert.Equal(t, http.StatusNotFound, w.Code, "templates of other users are invisible")
}

func TestBundle(t *testing.T) {
	e := newEnv(t)
	token := e.signup("ana@example.com")
	tpl := e.createTemplate(token)

	w := e.do(http.MethodPost, "/api/reports/bundle", token, map[string]any{
		"reports": []any{filledReport(tpl), filledReport(tpl)},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	n, err := pageops.PageCount(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	w = e.do(http.MethodPost, "/api/reports/bundle", token, map[string]any{"reports": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func pngDataURL(t *testing.T) string {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.Set(x, 1, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestFilesAndConfig(t *testing.T) {
	e := newEnv(t)
	token := e.signup("ana@example.com")

	w := e.do(http.MethodPost, "/api/files/upload-logo", token, map[string]string{"imageData": pngDataURL(t)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[struct {
		File filestore.Info `json:"file"`
	}](t, w).File
	assert.Equal(t, branding.CategoryLogo, first.Category)

	w = e.do(http.MethodGet, first.URL, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = e.do(http.MethodPost, "/api/files/upload-logo", token, map[string]string{"imageData": "data:image/png;base64,aGVsbG8="})
	assert.Equal(t, http.StatusBadRequest, w.Code, "not an image")

	w = e.do(http.MethodPost, "/api/files/upload-logo", token, map[string]string{"imageData": pngDataURL(t)})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[struct {
		File filestore.Info `json:"file"`
	}](t, w).File
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, first.URL, "", nil).Code, "replaced logo is removed")

	w = e.do(http.MethodGet, "/api/config/load", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode[configBody](t, w).Config
	require.NotNil(t, cfg.Logo)
	assert.Equal(t, second.ID, cfg.Logo.ID)

	cfg.PrimaryColor = "#336699"
	cfg.PDFOptions = branding.PDFOptions{Format: "Letter", Orientation: "landscape"}
	w = e.do(http.MethodPost, "/api/config/save", token, configBody{cfg})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	bad := cfg
	bad.PrimaryColor = "blue-ish"
	w = e.do(http.MethodPost, "/api/config/save", token, configBody{bad})
	assert.Equal(t, "primaryColor", decode[httpx.ErrorBody](t, w).Field)

	bad = cfg
	bad.Signature = &branding.ImageRef{Category: branding.CategorySignature, ID: "someone_else.png"}
	w = e.do(http.MethodPost, "/api/config/save", token, configBody{bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	tpl := e.createTemplate(token)
	w = e.do(http.MethodPost, "/api/reports/generate-pdf", token, filledReport(tpl))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "/MediaBox [0 0 792.00 612.00]", "landscape Letter from the branding")
	assert.Contains(t, w.Body.String(), "/Subtype /Image", "logo is painted")

	other := e.signup("bob@example.com")
	w = e.do(http.MethodDelete, "/api/files/logos/"+second.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodDelete, "/api/files/logos/"+second.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = e.do(http.MethodGet, "/api/config/load", token, nil)
	assert.Nil(t, decode[configBody](t, w).Config.Logo)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/files/logos/"+second.ID, token, nil).Code)
}

func TestCheckBrandingFieldOrder(t *testing.T) {
	cfg := branding.Config{PrimaryColor: "blue-ish", SecondaryColor: "green-ish"}
	for i := 0; i < 20; i++ {
		field, msg := checkBranding(cfg, "ana")
		require.Equal(t, "primaryColor", field)
		assert.Equal(t, "invalid color blue-ish", msg)
	}

	cfg.PrimaryColor = "#336699"
	field, msg := checkBranding(cfg, "ana")
	assert.Equal(t, "secondaryColor", field)
	assert.Equal(t, "invalid color green-ish", msg)

	cfg.SecondaryColor = ""
	field, _ = checkBranding(cfg, "ana")
	assert.Empty(t, field)
}

func TestAI(t *testing.T) {
	e := newEnv(t)
	token := e.signup("ana@example.com")
	tpl := e.createTemplate(token)

	w := e.do(http.MethodPost, "/api/ai/chat", token, map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[map[string]any](t, w)["response"])

	w = e.do(http.MethodPost, "/api/ai/chat", token, map[string]string{"message": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := filledReport(tpl)
	body["sectionType"] = "recommendations"
	w = e.do(http.MethodPost, "/api/ai/generate-content", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string]any](t, w)["content"], "## Recommendations")

	w = e.do(http.MethodPost, "/api/ai/generate-content", token, map[string]any{
		"sectionType": "summary",
		"reportData": map[string]any{
			"patient":  map[string]any{"name": "Jane"},
			"sections": []map[string]any{{"name": "Mood", "value": "Low"}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string]any](t, w)["content"], "## Executive Summary")

	w = e.do(http.MethodPost, "/api/ai/enhance-text", token, map[string]string{"text": "pt sad", "enhancementType": "formal_tone"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[map[string]any](t, w)["enhancedText"])

	w = e.do(http.MethodGet, "/api/ai/test", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AI service is working", decode[map[string]any](t, w)["status"])

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/ai/test", "", nil).Code)
}

func TestBodyLimit(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "limit.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	e := &testEnv{t: t, store: st, handler: Wire(App{
		Store:        st,
		BearerServer: httpx.NewBearerServer(testSecret, time.Hour, st),
		TokenSecret:  testSecret,
		MaxBodyBytes: 256,
	})}

	profile := map[string]string{"fullName": "Dr. Ana Ruiz"}
	w := e.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "ana@example.com", "password": strings.Repeat("x", 512), "profile": profile,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "ana@example.com", "password": "correct horse", "profile": profile,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodGet, "/health", "", nil).Code)
}
