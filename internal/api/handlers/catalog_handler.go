package handlers

import (
	"net/http"

	"github.com/zatekoja/serviceportal/internal/api/views"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/domain/entities"
)

// CatalogHandler serves the service catalog pages
type CatalogHandler struct {
	*Responder
	catalog *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(responder *Responder, catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{Responder: responder, catalog: catalog}
}

// Index handles GET /
func (h *CatalogHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess := Session(r)

	list, err := h.catalog.VisibleTo(r.Context(), sess.Role, sess.ServiceType)
	if err != nil {
		h.ServerError(w, r, err)
		return
	}

	h.Render(w, r, http.StatusOK, views.PageIndex, "Services", struct {
		Services []*entities.Service
	}{Services: list})
}

// ServiceForm handles GET /service/{id}
func (h *CatalogHandler) ServiceForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !Session(r).Authenticated() {
		h.Redirect(w, r, LoginURL("/service/"+id))
		return
	}

	service, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.Fail(w, r, err, "/")
		return
	}

	h.Render(w, r, http.StatusOK, views.PageServiceForm, service.Name, struct {
		Service *entities.Service
	}{Service: service})
}

// GetServices handles GET /get_services
func (h *CatalogHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.catalog.Summaries(r.Context())
	if err != nil {
		logger(r).Error().Err(err).Msg("Failed to list services")
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list services"})
		return
	}

	respondWithJSON(w, http.StatusOK, summaries)
}
