package handlers

import (
	"net/http"
	"strconv"

	"github.com/zatekoja/serviceportal/internal/api/session"
	"github.com/zatekoja/serviceportal/internal/api/views"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/domain/entities"
)

const (
	clientRequestsPath = "/client/requests"
	msgClientOnly      = "You must be logged in as a client to access this page."
)

// ClientHandler serves the client (service provider) pages
type ClientHandler struct {
	*Responder
	clients *services.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(responder *Responder, clients *services.ClientService) *ClientHandler {
	return &ClientHandler{Responder: responder, clients: clients}
}

type queuePage struct {
	ServiceType string
	Queue       *services.Queue
}

// requireClient redirects non-client sessions to the login page and reports
// whether the handler may continue
func (h *ClientHandler) requireClient(w http.ResponseWriter, r *http.Request, next string) (*session.Session, bool) {
	sess := Session(r)
	if !sess.IsClient() {
		h.FlashRedirect(w, r, session.FlashWarning, msgClientOnly, LoginURL(next))
		return nil, false
	}
	return sess, true
}

// Dashboard handles GET /client/dashboard
func (h *ClientHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireClient(w, r, r.URL.Path)
	if !ok {
		return
	}

	queue, err := h.clients.Dashboard(r.Context(), sess.ServiceType)
	if err != nil {
		h.Fail(w, r, err, "/")
		return
	}

	h.Render(w, r, http.StatusOK, views.PageClientDashboard, "Dashboard", queuePage{
		ServiceType: sess.ServiceType,
		Queue:       queue,
	})
}

// Requests handles GET /client/requests
func (h *ClientHandler) Requests(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireClient(w, r, r.URL.Path)
	if !ok {
		return
	}

	queue, err := h.clients.Requests(r.Context(), sess.UserID, sess.ServiceType)
	if err != nil {
		h.Fail(w, r, err, "/")
		return
	}

	h.Render(w, r, http.StatusOK, views.PageClientRequests, "Requests", queuePage{
		ServiceType: sess.ServiceType,
		Queue:       queue,
	})
}

// AcceptRequest handles POST /client/request/{id}/accept
func (h *ClientHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireClient(w, r, clientRequestsPath)
	if !ok {
		return
	}

	id, ok := requestID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	if _, err := h.clients.Accept(r.Context(), sess.UserID, sess.ServiceType, id); err != nil {
		h.Fail(w, r, err, clientRequestsPath)
		return
	}

	h.FlashRedirect(w, r, session.FlashSuccess, "Request accepted successfully!", clientRequestsPath)
}

// RespondForm handles GET /client/request/{id}/respond
func (h *ClientHandler) RespondForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireClient(w, r, clientRequestsPath)
	if !ok {
		return
	}

	id, ok := requestID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	req, err := h.clients.Request(r.Context(), sess.ServiceType, id)
	if err != nil {
		h.Fail(w, r, err, clientRequestsPath)
		return
	}

	h.Render(w, r, http.StatusOK, views.PageClientRespond, "Respond", struct {
		Request *entities.ServiceRequest
	}{Request: req})
}

// Respond handles POST /client/request/{id}/respond
func (h *ClientHandler) Respond(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireClient(w, r, clientRequestsPath)
	if !ok {
		return
	}

	id, ok := requestID(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	if _, err := h.clients.Respond(r.Context(), sess.UserID, sess.ServiceType, id, r.PostFormValue("message")); err != nil {
		h.Fail(w, r, err, clientRequestsPath)
		return
	}

	h.FlashRedirect(w, r, session.FlashSuccess, "Response sent successfully!", clientRequestsPath)
}

func requestID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}
