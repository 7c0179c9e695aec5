package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
	"github.com/zatekoja/serviceportal/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
)

// Client queue messages
const (
	MsgNoServiceType        = "Your account is not associated with any service type. Please contact support."
	MsgNotAuthorizedAccept  = "You are not authorized to accept this request."
	MsgNotAuthorizedRespond = "You are not authorized to respond to this request."
)

// Queue is a client's view of its service's requests. Pending always equals
// Total: requests carry no status to tell them apart.
type Queue struct {
	Service  *entities.Service
	Requests []*entities.ServiceRequest
	Total    int
	Pending  int
	Accepted map[int64]bool
}

// ClientService serves the request queue of client (provider) accounts.
type ClientService struct {
	services  repositories.ServiceRepository
	requests  repositories.ServiceRequestRepository
	responses repositories.ClientResponseRepository
	events    eventPublisher
	now       func() time.Time
}

// NewClientService creates a new client service. bus and metrics may be nil.
func NewClientService(
	services repositories.ServiceRepository,
	requests repositories.ServiceRequestRepository,
	responses repositories.ClientResponseRepository,
	bus providers.EventBus,
	metrics *observability.Metrics,
) *ClientService {
	return &ClientService{
		services:  services,
		requests:  requests,
		responses: responses,
		events:    eventPublisher{bus: bus, metrics: metrics},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ResolveService maps a client's service type to its Service by exact name.
// Both failure modes are validation errors: the account is misconfigured.
func (s *ClientService) ResolveService(ctx context.Context, serviceType string) (*entities.Service, error) {
	if serviceType == "" {
		return nil, apperrors.NewValidationError(MsgNoServiceType)
	}

	service, err := s.services.GetByName(ctx, serviceType)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("No service found for your service type: %s", serviceType))
	}
	if err != nil {
		return nil, err
	}
	return service, nil
}

// Dashboard returns the counts and requests for the client's service
func (s *ClientService) Dashboard(ctx context.Context, serviceType string) (*Queue, error) {
	service, err := s.ResolveService(ctx, serviceType)
	if err != nil {
		return nil, err
	}

	total, err := s.requests.CountByService(ctx, service.ID)
	if err != nil {
		return nil, err
	}

	requests, err := s.requests.ListByService(ctx, service.ID)
	if err != nil {
		return nil, err
	}

	return &Queue{
		Service:  service,
		Requests: requests,
		Total:    total,
		Pending:  total,
		Accepted: map[int64]bool{},
	}, nil
}

// Requests returns the client's queue, marking requests it has already accepted
func (s *ClientService) Requests(ctx context.Context, clientID int64, serviceType string) (*Queue, error) {
	service, err := s.ResolveService(ctx, serviceType)
	if err != nil {
		return nil, err
	}

	requests, err := s.requests.ListByService(ctx, service.ID)
	if err != nil {
		return nil, err
	}

	responses, err := s.responses.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	accepted := make(map[int64]bool)
	for _, r := range responses {
		if r.Accepted {
			accepted[r.RequestID] = true
		}
	}

	return &Queue{
		Service:  service,
		Requests: requests,
		Total:    len(requests),
		Pending:  len(requests),
		Accepted: accepted,
	}, nil
}

// Request returns a request the client is allowed to act on
func (s *ClientService) Request(ctx context.Context, serviceType string, requestID int64) (*entities.ServiceRequest, error) {
	req, _, err := s.authorize(ctx, serviceType, requestID, MsgNotAuthorizedRespond)
	return req, err
}

// Accept marks the request accepted by the client, updating its earlier response
// in place when there is one
func (s *ClientService) Accept(ctx context.Context, clientID int64, serviceType string, requestID int64) (*entities.ClientResponse, error) {
	req, service, err := s.authorize(ctx, serviceType, requestID, MsgNotAuthorizedAccept)
	if err != nil {
		return nil, err
	}

	response, err := s.responses.Accept(ctx, req.ID, clientID, s.now())
	if err != nil {
		return nil, err
	}

	log.Info().Int64("request_id", req.ID).Int64("client_id", clientID).Msg("Request accepted")
	s.events.publish(ctx, entities.RequestEventAccepted, req, service, clientID, response.RespondedAt)
	return response, nil
}

// Respond stores a new message response; repeated calls add rows
func (s *ClientService) Respond(ctx context.Context, clientID int64, serviceType string, requestID int64, message string) (*entities.ClientResponse, error) {
	req, service, err := s.authorize(ctx, serviceType, requestID, MsgNotAuthorizedRespond)
	if err != nil {
		return nil, err
	}

	response := &entities.ClientResponse{
		RequestID:   req.ID,
		ClientID:    clientID,
		Message:     message,
		Accepted:    false,
		RespondedAt: s.now(),
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, err
	}

	log.Info().Int64("request_id", req.ID).Int64("client_id", clientID).Msg("Request responded")
	s.events.publish(ctx, entities.RequestEventResponded, req, service, clientID, response.RespondedAt)
	return response, nil
}

// authorize loads the request (not found is reported first) and checks that it
// belongs to the service named by the client's service type
func (s *ClientService) authorize(ctx context.Context, serviceType string, requestID int64, deniedMsg string) (*entities.ServiceRequest, *entities.Service, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	if serviceType == "" {
		return nil, nil, apperrors.NewForbiddenError(deniedMsg)
	}
	service, err := s.services.GetByName(ctx, serviceType)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return nil, nil, apperrors.NewForbiddenError(deniedMsg)
	}
	if err != nil {
		return nil, nil, err
	}
	if req.ServiceID != service.ID {
		return nil, nil, apperrors.NewForbiddenError(deniedMsg)
	}

	return req, service, nil
}
