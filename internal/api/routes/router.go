package routes

import (
	"net/http"

	"github.com/zatekoja/serviceportal/internal/api/handlers"
	"github.com/zatekoja/serviceportal/internal/api/middleware"
	"github.com/zatekoja/serviceportal/internal/api/session"
	"github.com/zatekoja/serviceportal/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	responder *handlers.Responder
	sessions  *session.Manager

	catalogHandler *handlers.CatalogHandler
	requestHandler *handlers.RequestHandler
	authHandler    *handlers.AuthHandler
	clientHandler  *handlers.ClientHandler
	streamHandler  *handlers.StreamHandler
	healthHandler  *handlers.HealthHandler

	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router
func NewRouter(
	responder *handlers.Responder,
	sessions *session.Manager,
	catalogHandler *handlers.CatalogHandler,
	requestHandler *handlers.RequestHandler,
	authHandler *handlers.AuthHandler,
	clientHandler *handlers.ClientHandler,
	streamHandler *handlers.StreamHandler,
	healthHandler *handlers.HealthHandler,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		responder:      responder,
		sessions:       sessions,
		catalogHandler: catalogHandler,
		requestHandler: requestHandler,
		authHandler:    authHandler,
		clientHandler:  clientHandler,
		streamHandler:  streamHandler,
		healthHandler:  healthHandler,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
	}
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, middleware.TagRoute(h))
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.handle("GET /health", r.healthHandler.Health)

	// Catalog and customer requests
	r.handle("GET /{$}", r.catalogHandler.Index)
	r.handle("GET /get_services", r.catalogHandler.GetServices)
	r.handle("GET /service/{id}", r.catalogHandler.ServiceForm)
	r.handle("POST /submit_request", r.requestHandler.SubmitRequest)

	// Accounts
	r.handle("GET /register", r.authHandler.RegisterForm)
	r.handle("POST /register", r.authHandler.Register)
	r.handle("GET /login", r.authHandler.LoginForm)
	r.handle("POST /login", r.authHandler.Login)
	r.handle("GET /logout", r.authHandler.Logout)

	// Client queue
	r.handle("GET /client/dashboard", r.clientHandler.Dashboard)
	r.handle("GET /client/requests", r.clientHandler.Requests)
	r.handle("POST /client/request/{id}/accept", r.clientHandler.AcceptRequest)
	r.handle("GET /client/request/{id}/respond", r.clientHandler.RespondForm)
	r.handle("POST /client/request/{id}/respond", r.clientHandler.Respond)
	if r.streamHandler != nil {
		r.handle("GET /client/requests/stream", r.streamHandler.StreamRequests)
	}

	// Everything else gets the HTML 404 page; left untagged so metrics label it "unmatched".
	r.mux.HandleFunc("/", r.responder.NotFound)

	// Apply middleware in reverse order (last middleware wraps first).
	// Recovery sits inside the session middleware so the error page still sees the session.
	var handler http.Handler = r.mux
	handler = middleware.RecoveryMiddleware(r.responder.Panic)(handler)
	handler = r.sessions.Middleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
