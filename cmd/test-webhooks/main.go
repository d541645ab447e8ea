package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/basti85goe/geobridge/internal/testhooks"
	"github.com/basti85goe/geobridge/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumRequests = 1000
	defaultUsers       = 5
	defaultDevices     = 3
	defaultPlaces      = 6
	defaultTimeout     = 10 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:51988", "Base URL of the bridge")
		user     = flag.String("user", "", "Webhook credential user, embedded in the URL")
		password = flag.String("password", "", "Webhook credential password, embedded in the URL")
		requests = flag.Int("requests", defaultNumRequests, "Number of webhooks to send")
		workers  = flag.Int("workers", runtime.NumCPU()*2, "Number of concurrent senders")
		users    = flag.Int("users", defaultUsers, "Number of distinct users")
		devices  = flag.Int("devices", defaultDevices, "Number of distinct devices per user")
		places   = flag.Int("places", defaultPlaces, "Number of distinct places")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose  = flag.Bool("verbose", false, "Log every request")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &testhooks.Config{
		BaseURL:     *baseURL,
		User:        *user,
		Password:    *password,
		NumRequests: *requests,
		Workers:     *workers,
		Users:       *users,
		Devices:     *devices,
		Places:      *places,
		Timeout:     *timeout,
		Verbose:     *verbose,
	}

	stats, err := testhooks.Run(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("run failed: " + err.Error() + "\n")
		return
	}
	os.Stdout.WriteString(stats.Summary() + "\n")
}
