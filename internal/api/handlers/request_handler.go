package handlers

import (
	"net/http"

	"github.com/zatekoja/serviceportal/internal/api/views"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/domain/entities"
)

// RequestHandler accepts customer service requests
type RequestHandler struct {
	*Responder
	requests *services.RequestService
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(responder *Responder, requests *services.RequestService) *RequestHandler {
	return &RequestHandler{Responder: responder, requests: requests}
}

// SubmitRequest handles POST /submit_request
func (h *RequestHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ServerError(w, r, err)
		return
	}

	serviceID := r.PostFormValue("service_id")
	if !Session(r).Authenticated() {
		next := "/"
		if serviceID != "" {
			next = "/service/" + serviceID
		}
		h.Redirect(w, r, LoginURL(next))
		return
	}

	req, service, err := h.requests.Submit(r.Context(), services.SubmitInput{
		ServiceID:     serviceID,
		CustomerName:  r.PostFormValue("customer_name"),
		CustomerEmail: r.PostFormValue("customer_email"),
		CustomerPhone: r.PostFormValue("customer_phone"),
		Address:       r.PostFormValue("address"),
		Description:   r.PostFormValue("description"),
		Urgency:       r.PostFormValue("urgency"),
	})
	if err != nil {
		h.Fail(w, r, err, "/")
		return
	}

	h.Render(w, r, http.StatusOK, views.PageConfirmation, "Request Received", struct {
		Request *entities.ServiceRequest
		Service *entities.Service
	}{Request: req, Service: service})
}
