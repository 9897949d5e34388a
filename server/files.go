package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/filestore"
	"github.com/lvillar/psyreport/httpx"
	"github.com/lvillar/psyreport/log"
	pdfrender "github.com/lvillar/psyreport/render"
)

// UploadFile stores a base64 image as the caller's category image and
// points the branding configuration at it. The replaced image is deleted.
func UploadFile(app App, category branding.ImageCategory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ImageData string `json:"imageData"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		data, ext, err := filestore.DecodeDataURL(body.ImageData)
		if err != nil {
			fieldError(w, r, "imageData", err.Error())
			return
		}
		if _, err := pdfrender.NormalizeImage(data); err != nil {
			fieldError(w, r, "imageData", "not a supported image")
			return
		}

		owner := userID(r)
		info, err := app.Files.Save(r.Context(), data, ext, category, owner)
		if err != nil {
			httpx.LogInternalError(w, "files.save", err)
			return
		}

		var previous *branding.ImageRef
		_, err = app.UpdateBranding(r.Context(), owner, func(cfg *branding.Config) {
			previous = cfg.Ref(category)
			cfg.SetRef(category, &branding.ImageRef{Category: category, ID: info.ID})
		})
		if err != nil {
			app.Files.Delete(r.Context(), info.ID, category)
			httpx.LogInternalError(w, "db.update_branding", err)
			return
		}
		if previous != nil && previous.ID != info.ID && filestore.OwnedBy(previous.ID, owner) {
			if _, err := app.Files.Delete(r.Context(), previous.ID, category); err != nil {
				log.WithError(err).WithField("file", previous.ID).Warn("files: removing replaced image")
			}
		}

		render.JSON(w, r, map[string]any{"success": true, "file": info})
	}
}

// DeleteFile removes one of the caller's images and clears it from the
// branding configuration.
func DeleteFile(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, ok := branding.ParseImageCategory(chi.URLParam(r, "category"))
		if !ok || category == branding.CategoryTemp {
			fieldError(w, r, "category", "invalid file type")
			return
		}
		id := chi.URLParam(r, "id")
		owner := userID(r)
		if !filestore.OwnedBy(id, owner) {
			httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, "files.delete", "you do not have permission to delete this file")
			return
		}

		deleted, err := app.Files.Delete(r.Context(), id, category)
		if errors.Is(err, filestore.ErrInvalidID) || (err == nil && !deleted) {
			httpx.LogNotFound(w, "files.delete", id)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "files.delete", err)
			return
		}

		_, err = app.UpdateBranding(r.Context(), owner, func(cfg *branding.Config) {
			if ref := cfg.Ref(category); ref != nil && ref.ID == id {
				cfg.SetRef(category, nil)
			}
		})
		if err != nil {
			httpx.LogInternalError(w, "db.update_branding", err)
			return
		}
		render.JSON(w, r, map[string]any{"success": true, "message": "File deleted successfully"})
	}
}

// ServeUpload serves a stored image. Ids are unguessable, so images are
// public; report viewers embed them directly.
func ServeUpload(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, ok := branding.ParseImageCategory(chi.URLParam(r, "dir"))
		if !ok {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "uploads.category", "invalid file type")
			return
		}
		id := chi.URLParam(r, "id")
		data, err := app.Files.Resolve(r.Context(), branding.ImageRef{Category: category, ID: id})
		if errors.Is(err, filestore.ErrNotFound) || errors.Is(err, filestore.ErrInvalidID) {
			httpx.LogNotFound(w, "uploads.get", id)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "uploads.get", err)
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(data))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "private, max-age=86400")
		w.Write(data)
	}
}
