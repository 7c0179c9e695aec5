package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
)

// DefaultHeartbeat is how often an idle stream sends a heartbeat event
const DefaultHeartbeat = 30 * time.Second

// StreamHandler pushes request events for a client's service over Server-Sent Events
type StreamHandler struct {
	clients   *services.ClientService
	eventBus  providers.EventBus
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler. A non-positive heartbeat uses DefaultHeartbeat.
func NewStreamHandler(clients *services.ClientService, eventBus providers.EventBus, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &StreamHandler{clients: clients, eventBus: eventBus, heartbeat: heartbeat}
}

// StreamRequests handles GET /client/requests/stream
func (h *StreamHandler) StreamRequests(w http.ResponseWriter, r *http.Request) {
	sess := Session(r)
	if !sess.IsClient() {
		http.Error(w, msgClientOnly, http.StatusUnauthorized)
		return
	}

	service, err := h.clients.ResolveService(r.Context(), sess.ServiceType)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrorTypeValidation) {
			http.Error(w, apperrors.MessageOf(err, msgUnexpected), http.StatusBadRequest)
			return
		}
		logger(r).Error().Err(err).Msg("Failed to resolve client service")
		http.Error(w, msgUnexpected, http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	channel := providers.GetServiceChannel(service.Name)
	events, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		logger(r).Error().Err(err).Str("channel", channel).Msg("Failed to subscribe")
		http.Error(w, msgUnexpected, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	h.send(w, r, "connected", map[string]any{
		"service_id":   service.ID,
		"service_name": service.Name,
		"timestamp":    time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger(r).Debug().Str("channel", channel).Msg("Client disconnected from request stream")
			return
		case <-ticker.C:
			h.send(w, r, "heartbeat", map[string]any{"timestamp": time.Now().UTC()})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			h.send(w, r, "request", event)
			flusher.Flush()
		}
	}
}

func (h *StreamHandler) send(w http.ResponseWriter, r *http.Request, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger(r).Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
