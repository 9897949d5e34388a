// Package server wires the psyreport HTTP API.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/oauth"
	"github.com/go-chi/render"

	"github.com/lvillar/psyreport/assist"
	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/filestore"
	"github.com/lvillar/psyreport/httpx"
	"github.com/lvillar/psyreport/log"
	"github.com/lvillar/psyreport/report"
	"github.com/lvillar/psyreport/store"
)

// App carries the dependencies of the handlers.
type App struct {
	*store.Store
	*oauth.BearerServer
	Files   filestore.Store
	Reports *report.Service
	AI      assist.Generator

	TokenSecret  string
	MaxBodyBytes int64
}

func Wire(app App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	if app.MaxBodyBytes > 0 {
		root.Use(limitBody(app.MaxBodyBytes))
	}

	root.Mount("/api", apiRouter(app))
	root.Get("/uploads/{dir}/{id}", ServeUpload(app))
	root.Get("/health", Health(app))

	return root
}

// limitBody caps request bodies at n bytes. Reads past the limit fail, so
// JSON decoding answers 400.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, n)
	}
}

func apiRouter(app App) http.Handler {
	api := chi.NewRouter()
	api.Use(render.SetContentType(render.ContentTypeJSON))

	api.Route("/auth", func(r chi.Router) {
		r.Post("/register", Register(app))
		r.Post("/login", Login(app))
		r.Post("/refresh", Refresh(app))
		r.With(authenticated(app.TokenSecret)).Get("/me", Me(app))
	})

	api.Group(func(r chi.Router) {
		r.Use(authenticated(app.TokenSecret))

		r.Get("/templates", ListTemplates(app))
		r.Post("/templates", CreateTemplate(app))
		r.Get("/templates/{id}", GetTemplate(app))
		r.Put("/templates/{id}", UpdateTemplate(app))
		r.Delete("/templates/{id}", DeleteTemplate(app))

		r.Get("/config/load", LoadConfig(app))
		r.Post("/config/save", SaveConfig(app))

		for _, c := range branding.ImageCategories {
			r.Post("/files/upload-"+string(c), UploadFile(app, c))
		}
		r.Delete("/files/{category}/{id}", DeleteFile(app))

		r.Post("/reports/generate-pdf", GeneratePDF(app))
		r.Post("/reports/preview-pdf", PreviewPDF(app))
		r.Post("/reports/bundle", BundlePDF(app))

		r.Post("/ai/chat", Chat(app))
		r.Post("/ai/generate-content", GenerateContent(app))
		r.Post("/ai/enhance-text", EnhanceText(app))
		r.Get("/ai/test", CheckAI(app))
	})

	return api
}

// Health reports whether the database is reachable.
func Health(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.Ping(r.Context()); err != nil {
			httpx.LogStatusMsg(w, http.StatusServiceUnavailable, log.WarnLevel, "health.db", "database unavailable")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type userKey struct{}

// authenticated requires a valid bearer token and stores the caller's user
// id in the request context.
func authenticated(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), withUser).Handler(next)
	}
}

func withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
		id := claims[httpx.ClaimUserID]
		if id == "" {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.claims")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}
