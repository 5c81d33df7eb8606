package mcpserver

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/trustboard/internal/derive"
)

// Tool definitions for the trustboard MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolGetNetworkOverview = mcp.NewTool("get_network_overview",
	mcp.WithDescription(
		"Get the agent trust network overview from the trust oracle: number of agents scored, "+
			"average composite score, total feedback, payment totals, and the distribution of agents "+
			"across trust tiers, chains, categories and protocols."),
)

var ToolListTopAgents = mcp.NewTool("list_top_agents",
	mcp.WithDescription(
		"List the top 50 AI agents ranked by composite trust score. "+
			"Optionally filter by category and chain. "+
			"Some oracles charge an x402 micropayment for this listing; the result says so when that happens."),
	mcp.WithString("category",
		mcp.Description("Filter by agent category ("+strings.Join(derive.KnownCategories, ", ")+"). Omit or use 'all' for every category.")),
	mcp.WithString("chain",
		mcp.Description("Filter by chain ("+strings.Join(derive.KnownChains, ", ")+"). Omit or use 'all' for every chain.")),
)

var ToolGetTierRules = mcp.NewTool("get_tier_rules",
	mcp.WithDescription(
		"Explain how trust tiers are assigned: the minimum composite score and feedback count for each tier."),
)
