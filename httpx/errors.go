package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/log"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// ErrorBody is the JSON body of API errors.
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// JSONError sends status with a JSON error body.
func JSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{Error: msg})
}

// LogError maps err onto a JSON error response. Validation errors and
// unknown page options become 400 naming the offending field; anything else
// is logged and becomes 500.
func LogError(w http.ResponseWriter, r *http.Request, code string, err error) {
	var ve *psyreport.ValidationError
	if errors.As(err, &ve) {
		log.Debugf("%s: %s", code, err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorBody{Error: ve.Reason, Field: ve.Field})
		return
	}
	if errors.Is(err, psyreport.ErrUnknownPageFormat) {
		log.Debugf("%s: %s", code, err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorBody{Error: "unknown page format or orientation", Field: "pdfOptions"})
		return
	}

	log.WithError(err).Error(code)
	msg := http.StatusText(http.StatusInternalServerError)
	var re *psyreport.RenderError
	if errors.As(err, &re) {
		msg = "could not render the report"
	}
	JSONError(w, r, http.StatusInternalServerError, msg)
}
