package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
)

// NotificationService forwards newly submitted requests to an external notifier
type NotificationService struct {
	services repositories.ServiceRepository
	requests repositories.ServiceRequestRepository
	bus      providers.EventBus
	notifier providers.Notifier
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	services repositories.ServiceRepository,
	requests repositories.ServiceRequestRepository,
	bus providers.EventBus,
	notifier providers.Notifier,
) *NotificationService {
	return &NotificationService{
		services: services,
		requests: requests,
		bus:      bus,
		notifier: notifier,
	}
}

// Start subscribes to every catalog service's channel and forwards
// request.created events until ctx is done. Services added to the catalog
// after Start are not watched.
func (s *NotificationService) Start(ctx context.Context) error {
	list, err := s.services.List(ctx)
	if err != nil {
		return fmt.Errorf("listing services: %w", err)
	}

	for _, service := range list {
		events, err := s.bus.Subscribe(ctx, providers.GetServiceChannel(service.Name))
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", service.Name, err)
		}
		go s.forward(ctx, events)
	}

	log.Info().Int("services", len(list)).Msg("Request notifications enabled")
	return nil
}

func (s *NotificationService) forward(ctx context.Context, events <-chan *entities.RequestEvent) {
	for event := range events {
		if event.Type != entities.RequestEventCreated {
			continue
		}

		req, err := s.requests.GetByID(ctx, event.RequestID)
		if err != nil {
			log.Warn().Err(err).Int64("request_id", event.RequestID).Msg("Failed to load request for notification")
			continue
		}

		if err := s.notifier.Notify(ctx, formatNewRequest(event.ServiceName, req)); err != nil {
			log.Warn().Err(err).Int64("request_id", req.ID).Msg("Failed to send request notification")
		}
	}
}

func formatNewRequest(serviceName string, req *entities.ServiceRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New %s request #%d\n", serviceName, req.ID)
	fmt.Fprintf(&b, "%s, %s, %s\n", req.CustomerName, req.CustomerEmail, req.CustomerPhone)
	b.WriteString(req.Address)
	if req.Urgency != "" {
		fmt.Fprintf(&b, "\nUrgency: %s", req.Urgency)
	}
	if req.Description != "" {
		b.WriteString("\n" + req.Description)
	}
	return b.String()
}
