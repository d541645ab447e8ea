// Package api terminates inbound webhook requests.
package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/basti85goe/geobridge/internal/domain/event"
	"github.com/basti85goe/geobridge/pkg/logger"
	"github.com/basti85goe/geobridge/pkg/metrics"
)

// Response bodies of the webhook contract. Exact bytes, nothing appended.
const (
	responseOK    = "OK"
	responseError = "Request error"
)

// WebhookHandler handles geofence webhook requests on the catch-all route.
type WebhookHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(deps Dependencies) *WebhookHandler {
	return &WebhookHandler{
		deps:   deps,
		logger: logger.Get().Named("webhook"),
	}
}

// HandleWebhook runs the request state machine: method check, header auth,
// URL-credential fallback, path parameter extraction, payload dispatch.
// Every branch terminates the response exactly once.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		h.logger.Debug(ctx, "rejecting non-POST request", logger.String("method", r.Method))
		h.respondError(w)
		return
	}

	params := splitParams(r.URL.Path)

	// Header auth first; URL-embedded credentials only when the header is
	// absent and the path carries room for them. One of the two must
	// succeed before anything is dispatched.
	user, pass, headerAuth := r.BasicAuth()
	switch {
	case headerAuth:
		if !h.authorize(ctx, user, pass) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
	case len(params) >= 4:
		if !h.authorize(ctx, params[0], params[1]) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		params = params[2:]
	default:
		metrics.RecordAuthFailure()
		h.logger.Warn(ctx, "request carried no credentials",
			logger.String("correlation_id", CorrelationID(ctx)))
		h.respondError(w)
		return
	}

	if len(params) < 3 {
		h.logger.Debug(ctx, "too few path parameters", logger.Int("count", len(params)))
		h.respondError(w)
		return
	}
	pathParams := event.PathParams{
		UserID:    params[0],
		DeviceID:  params[1],
		PlaceType: params[2],
	}

	src, err := event.DetectSource(r.UserAgent(), r.Header.Get("Content-Type"))
	if err != nil {
		metrics.RecordUnrecognizedPayload()
		h.logger.Warn(ctx, "unrecognized webhook source",
			logger.String("user_agent", r.UserAgent()),
			logger.String("content_type", r.Header.Get("Content-Type")),
			logger.String("correlation_id", CorrelationID(ctx)),
		)
		h.respondError(w)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error(ctx, "reading request body failed", logger.Error(err))
		h.respondError(w)
		return
	}

	// Best effort, never blocks the response path. The relay outlives the
	// request, so its context must not die with it.
	if h.deps.Relay != nil {
		h.deps.Relay.Forward(context.WithoutCancel(ctx), r.URL.Path, r.Header, body)
	}

	e, err := event.Normalize(src, body, pathParams)
	if err != nil {
		metrics.RecordUnrecognizedPayload()
		h.logger.Warn(ctx, "normalizing payload failed",
			logger.String("source", string(src)),
			logger.Error(err),
			logger.String("correlation_id", CorrelationID(ctx)),
		)
		h.respondError(w)
		return
	}

	h.deps.Projector.Project(ctx, e)

	h.logger.Info(ctx, "webhook projected",
		logger.String("app", src.App()),
		logger.String("user", e.UserID),
		logger.String("device", e.DeviceID),
		logger.String("place", e.PlaceName),
		logger.Bool("presence", e.Presence),
		logger.String("correlation_id", CorrelationID(ctx)),
	)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(responseOK))
}

// authorize checks credentials and group membership, logging failures.
func (h *WebhookHandler) authorize(ctx context.Context, user, pass string) bool {
	if h.deps.Checker == nil {
		metrics.RecordAuthFailure()
		h.logger.Warn(ctx, "no credential checker configured", logger.String("user", user))
		return false
	}
	ok, err := h.deps.Checker.CheckCredentials(ctx, user, pass)
	if err != nil {
		h.logger.Error(ctx, "credential check failed", logger.Error(err))
		ok = false
	}
	if ok && h.deps.UserGroup != "" {
		ok, err = h.deps.Checker.CheckGroupMembership(ctx, user, h.deps.UserGroup)
		if err != nil {
			h.logger.Error(ctx, "group membership check failed", logger.Error(err))
			ok = false
		}
	}
	if !ok {
		metrics.RecordAuthFailure()
		h.logger.Warn(ctx, "authentication rejected", logger.String("user", user))
	}
	return ok
}

func (h *WebhookHandler) respondError(w http.ResponseWriter) {
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(responseError))
}

// splitParams breaks the request path into its slash-delimited parameters.
func splitParams(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
