// Package api terminates inbound webhook requests.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/basti85goe/geobridge/internal/domain/event"
	"github.com/basti85goe/geobridge/pkg/metrics"
	"github.com/google/uuid"
)

type contextKey string

const correlationKey contextKey = "correlation_id"

// CorrelationID returns the request correlation id from ctx, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// CorrelationMiddleware assigns each request a correlation id, exposed on
// the context and echoed in the X-Correlation-Id response header.
func CorrelationMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Correlation-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationKey, id)))
	}
}

// MetricsMiddleware records request counts and latency per app and status.
func MetricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		app := "unknown"
		if src, err := event.DetectSource(r.UserAgent(), r.Header.Get("Content-Type")); err == nil {
			app = src.App()
		}
		statusCode := strconv.Itoa(wrapped.statusCode)
		metrics.RecordWebhookRequest(app, statusCode)
		metrics.RecordWebhookDuration(app, statusCode, float64(time.Since(start).Milliseconds()))
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
