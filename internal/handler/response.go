package handler

// RESPONSE HELPERS:
// writeJSON / writeError serve the JSON endpoints (chooser lookups, health).
// renderError is the HTML counterpart used by the admin pages. Both map the
// same domain errors to the same status codes through statusFor.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/snippets-admin/internal/apperror"
)

// ErrorResponse is the standard JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable, e.g. "not_found"
	Message string `json:"message"` // human-readable
}

// writeJSON sends a JSON response. Headers and status must be written
// before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to an HTTP status and a machine-readable
// kind. Errors that aren't *apperror.AppError are internal.
func statusFor(err error) (int, string, string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Never expose internal error details to the client.
		return http.StatusInternalServerError, "internal_error", "An internal error occurred"
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr.Message
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", appErr.Message
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden", appErr.Message
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", appErr.Message
	}
	return http.StatusInternalServerError, "internal_error", "An internal error occurred"
}

// writeError sends err as a JSON ErrorResponse.
func writeError(w http.ResponseWriter, err error) {
	status, kind, msg := statusFor(err)
	writeJSON(w, status, ErrorResponse{Error: kind, Message: msg})
}

type errorPage struct {
	basePage
	Message string
}

// renderError sends err as an HTML error page.
func (rr *Renderer) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		rr.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	rr.Render(w, status, "error", errorPage{
		basePage: basePage{Title: http.StatusText(status), LoggedIn: loggedIn(r)},
		Message:  msg,
	})
}

// FLASH MESSAGES:
// A one-shot message ("Advert 'x' created.") survives the redirect in a
// cookie and is cleared by the page that shows it.

const flashCookie = "flash"

func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/admin/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending message, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/admin/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}
