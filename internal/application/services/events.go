package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
	"github.com/zatekoja/serviceportal/internal/infrastructure/observability"
)

// eventPublisher announces request lifecycle changes on the service's channel.
// Publishing is best effort: the database write has already committed.
type eventPublisher struct {
	bus     providers.EventBus
	metrics *observability.Metrics
}

func (p eventPublisher) publish(ctx context.Context, eventType entities.RequestEventType, req *entities.ServiceRequest, service *entities.Service, clientID int64, at time.Time) {
	observability.RecordPortalEvent(ctx, p.metrics, string(eventType), service.Name)

	if p.bus == nil {
		return
	}

	event := &entities.RequestEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		RequestID:   req.ID,
		ServiceID:   service.ID,
		ServiceName: service.Name,
		ClientID:    clientID,
		Timestamp:   at,
	}
	if err := p.bus.Publish(ctx, providers.GetServiceChannel(service.Name), event); err != nil {
		log.Warn().Err(err).Str("type", string(eventType)).Int64("request_id", req.ID).Msg("Failed to publish request event")
	}
}
