package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by the database and Redis clients
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the portal can reach its backing stores
type HealthHandler struct {
	db    Pinger
	redis Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// WithRedis adds Redis to the checked dependencies
func (h *HealthHandler) WithRedis(redis Pinger) *HealthHandler {
	h.redis = redis
	return h
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "healthy", "database": "ok"}

	if err := h.db.Ping(ctx); err != nil {
		logger(r).Error().Err(err).Msg("Database health check failed")
		status = http.StatusServiceUnavailable
		body["database"] = "unreachable"
	}
	if h.redis != nil {
		body["redis"] = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			logger(r).Error().Err(err).Msg("Redis health check failed")
			status = http.StatusServiceUnavailable
			body["redis"] = "unreachable"
		}
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}

	respondWithJSON(w, status, body)
}
