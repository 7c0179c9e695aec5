package handlers

import (
	"net/http"

	"github.com/zatekoja/serviceportal/internal/api/session"
	"github.com/zatekoja/serviceportal/internal/api/views"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/domain/entities"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
)

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	*Responder
	auth    *services.AuthService
	catalog *services.CatalogService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(responder *Responder, auth *services.AuthService, catalog *services.CatalogService) *AuthHandler {
	return &AuthHandler{Responder: responder, auth: auth, catalog: catalog}
}

type authForm struct {
	Next     string
	Services []*entities.Service
}

// RegisterForm handles GET /register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.List(r.Context())
	if err != nil {
		h.ServerError(w, r, err)
		return
	}

	h.Render(w, r, http.StatusOK, views.PageRegister, "Register", authForm{
		Next:     r.URL.Query().Get("next"),
		Services: list,
	})
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ServerError(w, r, err)
		return
	}

	next := SafeNext(r.PostFormValue("next"))
	_, err := h.auth.Register(r.Context(), services.RegisterInput{
		Username:    r.PostFormValue("username"),
		Email:       r.PostFormValue("email"),
		Password:    r.PostFormValue("password"),
		Role:        r.PostFormValue("role"),
		ServiceType: r.PostFormValue("service_type"),
	})
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrorTypeInternal {
			logger(r).Error().Err(err).Msg("Registration error")
			h.FlashRedirect(w, r, session.FlashDanger, "An unexpected error occurred while registering. Please try again.", "/register")
			return
		}
		h.Fail(w, r, err, "/register")
		return
	}

	h.FlashRedirect(w, r, session.FlashSuccess, "Registration successful. Please log in.", LoginURL(next))
}

// LoginForm handles GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, http.StatusOK, views.PageLogin, "Login", authForm{
		Next: r.URL.Query().Get("next"),
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ServerError(w, r, err)
		return
	}

	next := SafeNext(r.PostFormValue("next"))
	retry := "/login"
	if next != "/" {
		retry = LoginURL(next)
	}

	user, err := h.auth.Authenticate(r.Context(), r.PostFormValue("username_or_email"), r.PostFormValue("password"))
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrorTypeInternal {
			logger(r).Error().Err(err).Msg("Login error")
			h.FlashRedirect(w, r, session.FlashDanger, "An unexpected error occurred while logging in. Please try again.", retry)
			return
		}
		h.Fail(w, r, err, retry)
		return
	}

	sess := Session(r)
	sess.Login(user)
	h.FlashRedirect(w, r, session.FlashSuccess, "Logged in successfully", next)
}

// Logout handles GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := Session(r)
	sess.Clear()
	h.FlashRedirect(w, r, session.FlashInfo, "You have been logged out", "/")
}
