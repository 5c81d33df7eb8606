// Trustboard MCP Server - exposes the trust dashboard views as MCP tools for LLMs
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/trustboard/internal/circuitbreaker"
	"github.com/mbd888/trustboard/internal/config"
	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/mcpserver"
	"github.com/mbd888/trustboard/internal/oracle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol. Logs go to stderr, and only when
	// debugging.
	logger := logging.Discard()
	if cfg.LogLevel == "debug" {
		logger = logging.NewWithWriter(os.Stderr, cfg.LogLevel, "text")
	}

	client := oracle.NewClient(cfg.TrustAPIURL,
		oracle.WithTimeout(cfg.TrustAPITimeout),
		oracle.WithBreaker(circuitbreaker.New(cfg.BreakerThreshold, cfg.BreakerCooldown)),
		oracle.WithLogger(logger),
	)

	s := mcpserver.NewMCPServer(client, logger)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
