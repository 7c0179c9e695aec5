package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
	"github.com/zatekoja/serviceportal/internal/infrastructure/observability"
)

// SubmitInput is the service request form. Absent fields arrive as empty strings.
type SubmitInput struct {
	ServiceID     string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Address       string
	Description   string
	Urgency       string
}

// RequestService records customer service requests.
type RequestService struct {
	catalog  *CatalogService
	requests repositories.ServiceRequestRepository
	events   eventPublisher
	now      func() time.Time
}

// NewRequestService creates a new request service. bus and metrics may be nil.
func NewRequestService(catalog *CatalogService, requests repositories.ServiceRequestRepository, bus providers.EventBus, metrics *observability.Metrics) *RequestService {
	return &RequestService{
		catalog:  catalog,
		requests: requests,
		events:   eventPublisher{bus: bus, metrics: metrics},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a request against an existing service and announces it to the
// service's clients. Contact fields are stored as given.
func (s *RequestService) Submit(ctx context.Context, in SubmitInput) (*entities.ServiceRequest, *entities.Service, error) {
	ctx, span := observability.StartSpan(ctx, "RequestService.Submit")
	defer span.End()

	service, err := s.catalog.Get(ctx, in.ServiceID)
	if err != nil {
		return nil, nil, err
	}

	req := &entities.ServiceRequest{
		ServiceID:     service.ID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		Address:       in.Address,
		Description:   in.Description,
		Urgency:       in.Urgency,
		CreatedAt:     s.now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		observability.RecordError(span, err)
		return nil, nil, err
	}

	log.Info().Int64("request_id", req.ID).Str("service", service.Name).Msg("Service request submitted")
	s.events.publish(ctx, entities.RequestEventCreated, req, service, 0, req.CreatedAt)
	return req, service, nil
}
