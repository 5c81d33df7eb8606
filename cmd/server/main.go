// Trustboard - read-only dashboard for the agent trust oracle
package main

import (
	"context"
	"os"
	"time"

	"github.com/mbd888/trustboard/internal/config"
	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/server"
	"github.com/mbd888/trustboard/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Bootstrap logger until the configured one exists
	logger := logging.New("info", "text")

	logger.Info("starting trustboard",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("configuration loaded",
		"env", cfg.Env,
		"trust_api_url", cfg.TrustAPIURL,
		"trust_api_timeout", cfg.TrustAPITimeout,
	)

	ctx := context.Background()

	shutdownTracing, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	flushTracing := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		flushTracing()
		os.Exit(1)
	}

	runErr := srv.Run(ctx)
	flushTracing()
	if runErr != nil {
		logger.Error("server error", "error", runErr)
		os.Exit(1)
	}
}
