// Package session keeps per-browser login state on the server. The cookie only
// carries a signed (and optionally encrypted) session id; the record itself lives
// in a CacheProvider under "session:<id>" and expires with the configured TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
	"github.com/zatekoja/serviceportal/pkg/config"
)

const keyPrefix = "session:"

// Flash categories
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Data is the persisted part of a session
type Data struct {
	UserID      int64   `json:"user_id,omitempty"`
	Username    string  `json:"username,omitempty"`
	Role        string  `json:"role,omitempty"`
	ServiceType string  `json:"service_type,omitempty"`
	Flashes     []Flash `json:"flashes,omitempty"`
}

// Session is the state attached to one browser
type Session struct {
	ID string
	Data

	modified bool
	previous string
}

// Authenticated reports whether a user is logged in
func (s *Session) Authenticated() bool {
	return s.UserID != 0
}

// IsClient reports whether the logged in user has the client role
func (s *Session) IsClient() bool {
	return s.Authenticated() && s.Role == entities.RoleClient
}

// Login stores the user's identity and rotates the session id
func (s *Session) Login(user *entities.User) {
	s.UserID = user.ID
	s.Username = user.Username
	s.Role = user.Role
	s.ServiceType = user.ServiceType
	s.rotate()
}

// Clear removes the user's identity and any pending flashes
func (s *Session) Clear() {
	s.Data = Data{}
	s.rotate()
}

// AddFlash queues a message for the next rendered page
func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
	s.modified = true
}

// PopFlashes returns and removes all queued messages
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	if len(flashes) > 0 {
		s.Flashes = nil
		s.modified = true
	}
	return flashes
}

// Modified reports whether the session must be written back
func (s *Session) Modified() bool {
	return s.modified
}

func (s *Session) rotate() {
	if s.previous == "" {
		s.previous = s.ID
	}
	s.ID = uuid.NewString()
	s.modified = true
}

// Manager loads and stores sessions
type Manager struct {
	store      providers.CacheProvider
	codec      *securecookie.SecureCookie
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewManager creates a session manager. cfg.HashKey signs the cookie; a non-empty
// cfg.EncryptionKey also encrypts it.
func NewManager(store providers.CacheProvider, cfg config.SessionConfig) (*Manager, error) {
	if cfg.HashKey == "" {
		return nil, errors.New("session hash key is required")
	}

	var blockKey []byte
	if cfg.EncryptionKey != "" {
		blockKey = []byte(cfg.EncryptionKey)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	codec := securecookie.New([]byte(cfg.HashKey), blockKey)
	codec.MaxAge(int(ttl.Seconds()))

	name := cfg.CookieName
	if name == "" {
		name = "portal_session"
	}

	return &Manager{
		store:      store,
		codec:      codec,
		cookieName: name,
		ttl:        ttl,
		secure:     cfg.Secure,
	}, nil
}

// Load returns the session referenced by the request cookie, or a fresh empty one.
// A tampered cookie or an expired record yields a fresh session.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return m.fresh(), nil
	}

	var id string
	if err := m.codec.Decode(m.cookieName, cookie.Value, &id); err != nil {
		log.Debug().Err(err).Msg("Discarding undecodable session cookie")
		return m.fresh(), nil
	}

	raw, err := m.store.Get(r.Context(), keyPrefix+id)
	if errors.Is(err, providers.ErrCacheMiss) {
		return m.fresh(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	s := &Session{ID: id}
	if err := json.Unmarshal(raw, &s.Data); err != nil {
		log.Warn().Err(err).Msg("Discarding corrupt session record")
		return m.fresh(), nil
	}
	return s, nil
}

// Save writes a modified session to the store and refreshes the cookie. Unmodified
// sessions are left alone.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if !s.modified {
		return nil
	}

	if s.previous != "" && s.previous != s.ID {
		if err := m.store.Delete(ctx, keyPrefix+s.previous); err != nil {
			log.Warn().Err(err).Msg("Failed to delete rotated session")
		}
	}

	raw, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Set(ctx, keyPrefix+s.ID, raw, int(m.ttl.Seconds())); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	encoded, err := m.codec.Encode(m.cookieName, s.ID)
	if err != nil {
		return fmt.Errorf("encoding session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	s.modified = false
	s.previous = ""
	return nil
}

func (m *Manager) fresh() *Session {
	return &Session{ID: uuid.NewString()}
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by Middleware, or nil
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Middleware loads the request's session into its context
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r)
		if err != nil {
			log.Error().Err(err).Msg("Session store unavailable")
			s = m.fresh()
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}
