package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/lvillar/psyreport/httpx"
	"github.com/lvillar/psyreport/log"
	"github.com/lvillar/psyreport/store"
)

type registerRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Profile  store.Profile `json:"profile"`
}

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

func Register(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if !strings.Contains(req.Email, "@") {
			fieldError(w, r, "email", "a valid email is required")
			return
		}
		if len(req.Password) < MinPasswordLength {
			fieldError(w, r, "password", "password must have at least "+strconv.Itoa(MinPasswordLength)+" characters")
			return
		}
		if strings.TrimSpace(req.Profile.FullName) == "" {
			fieldError(w, r, "profile.fullName", "full name is required")
			return
		}

		u, err := app.CreateUser(r.Context(), req.Email, req.Password, req.Profile)
		if errors.Is(err, store.ErrDuplicate) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, httpx.ErrorBody{Error: "user already exists", Field: "email"})
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.create_user", err)
			return
		}

		log.WithFields(log.Fields{"user": u.ID}).Info("auth: registered")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, u)
	}
}

// Login exchanges credentials for a bearer token. Credentials come as basic
// auth or as a JSON body {email, password}.
func Login(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			var creds struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := render.DecodeJSON(r.Body, &creds); err != nil || creds.Email == "" {
				httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.credentials")
				return
			}
			user, pass = creds.Email, creds.Password
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {store.NormalizeEmail(user)},
			"password":   {pass},
		}
		r.Body = io.NopCloser(strings.NewReader(body.Encode()))
		r.ContentLength = int64(len(body.Encode()))
		r.Header.Set("content-type", "application/x-www-form-urlencoded")
		r.Header.Set("content-length", strconv.Itoa(len(body.Encode())))
		app.UserCredentials(w, r)
	}
}

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

// Refresh exchanges the refresh token sent as "Authorization: Refresh <token>"
// for a new token pair.
func Refresh(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		body := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		}
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "/", strings.NewReader(body.Encode()))
		if err != nil {
			httpx.LogInternalError(w, "refresh.new_request", err)
			return
		}
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
		req.Header.Set("content-length", strconv.Itoa(len(body.Encode())))

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		if resp.Status() != http.StatusOK {
			log.Debugf("refresh.grant: status %d", resp.Status())
		}
		resp.Flush(w)
	}
}

func Me(app App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := app.UserByID(r.Context(), userID(r))
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "me", userID(r))
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_user", err)
			return
		}
		render.JSON(w, r, u)
	}
}

func fieldError(w http.ResponseWriter, r *http.Request, field, msg string) {
	log.Debugf("request.validate: %s: %s", field, msg)
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, httpx.ErrorBody{Error: msg, Field: field})
}
