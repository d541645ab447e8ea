package testhooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/basti85goe/geobridge/pkg/logger"
)

// Run sends cfg.NumRequests random webhooks with cfg.Workers concurrent
// senders and reports the outcome.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if cfg.NumRequests <= 0 {
		return nil, ErrNoRequests
	}
	log := logger.Get().Named("testhooks")

	client := &http.Client{Timeout: cfg.Timeout}
	stats := &Stats{}
	jobs := make(chan Webhook, cfg.Workers)

	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for hook := range jobs {
				send(ctx, client, cfg, hook, stats, log)
			}
		}()
	}

	for i := 0; i < cfg.NumRequests; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return stats, ctx.Err()
		case jobs <- generate(cfg):
		}
	}
	close(jobs)
	wg.Wait()

	stats.Duration = time.Since(start)
	log.Info(ctx, "run finished",
		logger.Int("sent", int(stats.Sent)),
		logger.Int("ok", int(stats.OK)),
		logger.Int("failed", int(stats.Failed)),
		logger.String("duration", stats.Duration.String()),
	)
	return stats, nil
}

func send(ctx context.Context, client *http.Client, cfg *Config, hook Webhook, stats *Stats, log logger.Logger) {
	atomic.AddInt64(&stats.Sent, 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+hook.Path, bytes.NewReader(hook.Body))
	if err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		log.Error(ctx, "building request failed", logger.Error(err))
		return
	}
	req.Header.Set("User-Agent", hook.UserAgent)
	req.Header.Set("Content-Type", hook.ContentType)

	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		log.Error(ctx, "request failed", logger.String("path", hook.Path), logger.Error(err))
		return
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		atomic.AddInt64(&stats.OK, 1)
	} else {
		atomic.AddInt64(&stats.Failed, 1)
	}

	if cfg.Verbose {
		log.Info(ctx, "webhook sent",
			logger.String("path", hook.Path),
			logger.String("agent", hook.UserAgent),
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)),
		)
	}
}

// Summary renders a human-readable outcome line.
func (s *Stats) Summary() string {
	return fmt.Sprintf("sent=%d ok=%d failed=%d duration=%s", s.Sent, s.OK, s.Failed, s.Duration)
}
