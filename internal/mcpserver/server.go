// Package mcpserver exposes the dashboard views as MCP tools so assistants
// can read the trust network the same way the browser does.
package mcpserver

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/trustboard/internal/view"
)

// NewMCPServer creates a configured MCP server with all trustboard tools registered.
func NewMCPServer(src view.Source, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("trustboard", "1.0.0")
	h := NewHandlers(src, logger)

	s.AddTool(ToolGetNetworkOverview, h.HandleGetNetworkOverview)
	s.AddTool(ToolListTopAgents, h.HandleListTopAgents)
	s.AddTool(ToolGetTierRules, h.HandleGetTierRules)

	return s
}
