// Package relay forwards raw webhook requests to a secondary server.
//
// Forwarding is best-effort and fire-and-forget: failures are logged and
// counted but never reach the webhook response path.
package relay

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/basti85goe/geobridge/pkg/logger"
	"github.com/basti85goe/geobridge/pkg/metrics"
)

const defaultTimeout = 10 * time.Second

// Forwarder replays webhook requests against a relay server.
type Forwarder struct {
	server string // base URL without trailing slash
	client *http.Client
	logger logger.Logger
}

// New creates a forwarder targeting server (scheme://host[:port]).
func New(server string, opts ...Option) *Forwarder {
	f := &Forwarder{
		server: strings.TrimRight(server, "/"),
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger.Get().Named("relay"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forward posts body to the relay server under the original request path,
// carrying over the original headers. Runs in a goroutine; the caller never
// waits and never sees an error.
func (f *Forwarder) Forward(ctx context.Context, path string, header http.Header, body []byte) {
	go f.forward(ctx, path, header, body)
}

func (f *Forwarder) forward(ctx context.Context, path string, header http.Header, body []byte) {
	metrics.RecordRelayAttempt()

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := f.server + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		metrics.RecordRelayFailure()
		f.logger.Error(ctx, "building relay request failed",
			logger.String("target", target),
			logger.Error(err),
		)
		return
	}

	// Host and Content-Length must come from the new request, not the
	// original one.
	for name, values := range header {
		if http.CanonicalHeaderKey(name) == "Host" || http.CanonicalHeaderKey(name) == "Content-Length" {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordRelayFailure()
		f.logger.Error(ctx, "relay request failed",
			logger.String("target", target),
			logger.Error(err),
		)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	f.logger.Debug(ctx, "request relayed",
		logger.String("target", target),
		logger.Int("status", resp.StatusCode),
	)
}
