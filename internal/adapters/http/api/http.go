// Package api terminates inbound webhook requests: auth resolution,
// payload dispatch and the strict OK/error response contract.
package api

import (
	"context"
	"net/http"

	"github.com/basti85goe/geobridge/internal/credentials"
	"github.com/basti85goe/geobridge/internal/domain/event"
)

// Projector consumes normalized events. Implemented by the state projector.
type Projector interface {
	Project(ctx context.Context, e *event.LocationEvent)
}

// Relay replays the raw request against a secondary server, fire-and-forget.
type Relay interface {
	Forward(ctx context.Context, path string, header http.Header, body []byte)
}

// Dependencies bundles what the webhook handler needs from the rest of the
// service. A nil Relay disables forwarding.
type Dependencies struct {
	Checker   credentials.Checker
	Projector Projector
	Relay     Relay
	UserGroup string
}

// Server wires HTTP routes for the webhook bridge.
type Server struct {
	webhookHandler *WebhookHandler
	healthHandler  *HealthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		webhookHandler: NewWebhookHandler(deps),
		healthHandler:  NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux. The webhook handler is the
// catch-all: every path shape carries webhook path parameters.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/metrics", s.healthHandler.HandleHealth)
	mux.HandleFunc("/", CorrelationMiddleware(MetricsMiddleware(s.webhookHandler.HandleWebhook)))
}
