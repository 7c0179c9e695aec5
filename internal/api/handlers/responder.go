package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zatekoja/serviceportal/internal/api/session"
	"github.com/zatekoja/serviceportal/internal/api/views"
	"github.com/zatekoja/serviceportal/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
)

const msgUnexpected = "An unexpected error occurred. Please try again later."

// Responder writes the portal's HTML responses. Every response that carries a
// flash or a login change goes through it so the session is saved before the
// headers are sent.
type Responder struct {
	views    *views.Renderer
	sessions *session.Manager
}

// NewResponder creates a new responder
func NewResponder(renderer *views.Renderer, sessions *session.Manager) *Responder {
	return &Responder{views: renderer, sessions: sessions}
}

// Session returns the request's session, never nil
func Session(r *http.Request) *session.Session {
	if s := session.FromContext(r.Context()); s != nil {
		return s
	}
	return &session.Session{}
}

// Render pops pending flashes into the page and writes it
func (h *Responder) Render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	sess := Session(r)
	flashes := sess.PopFlashes()
	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		logger(r).Error().Err(err).Msg("Failed to save session")
	}

	err := h.views.Render(w, status, page, views.Page{
		Title:   title,
		Session: sess,
		Flashes: flashes,
		Data:    data,
	})
	if err != nil {
		logger(r).Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, msgUnexpected, http.StatusInternalServerError)
	}
}

// Redirect saves the session and sends a 302 to target
func (h *Responder) Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if err := h.sessions.Save(r.Context(), w, Session(r)); err != nil {
		logger(r).Error().Err(err).Msg("Failed to save session")
		h.ServerError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// FlashRedirect queues a flash message and redirects
func (h *Responder) FlashRedirect(w http.ResponseWriter, r *http.Request, category, message, target string) {
	Session(r).AddFlash(category, message)
	h.Redirect(w, r, target)
}

// NotFound renders the 404 page
func (h *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, http.StatusNotFound, views.PageError, "Not Found", errorPage{
		Status:  http.StatusNotFound,
		Message: "The requested page could not be found.",
	})
}

// ServerError logs err and renders the generic 500 page
func (h *Responder) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		logger(r).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	h.Render(w, r, http.StatusInternalServerError, views.PageError, "Error", errorPage{
		Status:  http.StatusInternalServerError,
		Message: msgUnexpected,
	})
}

// Panic is the recovery middleware's response
func (h *Responder) Panic(w http.ResponseWriter, r *http.Request) {
	h.ServerError(w, r, nil)
}

// Fail maps a service error to a response: not found renders 404, user errors
// flash their message and redirect to target, anything else is a 500.
func (h *Responder) Fail(w http.ResponseWriter, r *http.Request, err error, target string) {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		h.NotFound(w, r)
	case apperrors.ErrorTypeValidation:
		h.FlashRedirect(w, r, session.FlashWarning, apperrors.MessageOf(err, msgUnexpected), target)
	case apperrors.ErrorTypeConflict, apperrors.ErrorTypeUnauthorized, apperrors.ErrorTypeForbidden:
		h.FlashRedirect(w, r, session.FlashDanger, apperrors.MessageOf(err, msgUnexpected), target)
	default:
		h.ServerError(w, r, err)
	}
}

type errorPage struct {
	Status  int
	Message string
}

// LoginURL returns the login page URL that returns to next afterwards.
// Slashes are left unescaped so the query reads /login?next=/service/3.
func LoginURL(next string) string {
	if next == "" {
		return "/login"
	}
	return "/login?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// SafeNext returns next when it is a same-origin path, otherwise "/"
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return next
}

func logger(r *http.Request) *zerolog.Logger {
	return observability.LoggerFromContext(r.Context())
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
