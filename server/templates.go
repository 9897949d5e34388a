package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/lvillar/psyreport/httpx"
	"github.com/lvillar/psyreport/log"
	"github.com/lvillar/psyreport/schema"
	"github.com/lvillar/psyreport/store"
)

func ListTemplates(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := app.Store.ListTemplates(r.Context(), userID(r))
		if err != nil {
			httpx.LogInternalError(w, "db.list_templates", err)
			return
		}
		render.JSON(w, r, templates)
	}
}

func CreateTemplate(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tpl schema.Template
		if err := render.DecodeJSON(r.Body, &tpl); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		tpl.Normalize()
		if err := schema.Validate(&tpl); err != nil {
			httpx.LogError(w, r, "create_template.validate", err)
			return
		}

		created, err := app.Store.CreateTemplate(r.Context(), userID(r), tpl)
		if err != nil {
			httpx.LogInternalError(w, "db.create_template", err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}

func GetTemplate(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tpl, ok := ownedTemplate(app, w, r, chi.URLParam(r, "id"))
		if !ok {
			return
		}
		render.JSON(w, r, tpl)
	}
}

func UpdateTemplate(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var patch store.TemplatePatch
		if err := render.DecodeJSON(r.Body, &patch); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if _, ok := ownedTemplate(app, w, r, id); !ok {
			return
		}

		updated, err := app.Store.UpdateTemplate(r.Context(), id, patch, func(t *schema.Template) error {
			t.Normalize()
			return schema.Validate(t)
		})
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "update_template", id)
			return
		}
		if err != nil {
			httpx.LogError(w, r, "update_template", err)
			return
		}
		render.JSON(w, r, updated)
	}
}

func DeleteTemplate(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := ownedTemplate(app, w, r, id); !ok {
			return
		}
		err := app.Store.DeleteTemplate(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "delete_template", id)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_template", err)
			return
		}
		render.JSON(w, r, map[string]any{"message": "Template removed"})
	}
}

// ownedTemplate loads template id and checks that the caller owns it. It
// answers 404 for missing and foreign templates alike.
func ownedTemplate(app App, w http.ResponseWriter, r *http.Request, id string) (schema.Template, bool) {
	tpl, err := app.Store.Template(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && tpl.OwnerID != userID(r)) {
		httpx.LogNotFound(w, "get_template", id)
		return schema.Template{}, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_template", err)
		return schema.Template{}, false
	}
	return tpl, true
}
