package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/trustboard/internal/derive"
	"github.com/mbd888/trustboard/internal/fetch"
	"github.com/mbd888/trustboard/internal/view"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	src    view.Source
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(src view.Source, logger *slog.Logger) *Handlers {
	return &Handlers{src: src, logger: logger}
}

// HandleGetNetworkOverview summarises the network stats.
func (h *Handlers) HandleGetNetworkOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m := view.LoadOverview(ctx, h.src, h.logger)
	if m.Outcome == fetch.OutcomeNoData {
		return mcp.NewToolResultError("Trust oracle unavailable: network stats could not be loaded"), nil
	}
	return mcp.NewToolResultText(formatOverview(m)), nil
}

// HandleListTopAgents returns the ranked listing for a filter.
func (h *Handlers) HandleListTopAgents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := fetch.Filter{
		Category: req.GetString("category", ""),
		Chain:    req.GetString("chain", ""),
	}.Normalize()

	m := view.LoadLeaderboard(ctx, h.src, h.logger, f)
	switch m.Phase {
	case fetch.PhasePaymentRequired:
		return mcp.NewToolResultText(formatPaymentRequired(m)), nil
	case fetch.PhaseFailed:
		return mcp.NewToolResultError(m.Message), nil
	}
	if m.Empty {
		return mcp.NewToolResultText(fmt.Sprintf("No agents match %s.", describeFilter(f))), nil
	}
	return mcp.NewToolResultText(formatLeaderboard(f, m)), nil
}

// HandleGetTierRules lists the tier thresholds. It never calls the oracle.
func (h *Handlers) HandleGetTierRules(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	sb.WriteString("Trust tiers (highest first):\n")
	for _, r := range derive.TierRules {
		style := derive.TierStyleFor(string(r.Tier))
		fmt.Fprintf(&sb, "  %-9s score >= %.0f, feedback >= %d\n", style.Label, r.MinScore, r.MinFeedback)
	}
	sb.WriteString("Agents meeting none of these are unranked.")
	return mcp.NewToolResultText(sb.String()), nil
}

// --- Formatting helpers ---

func formatOverview(m view.OverviewModel) string {
	var sb strings.Builder
	sb.WriteString("Agent trust network\n\n")
	for _, c := range m.Cards {
		fmt.Fprintf(&sb, "%-16s %s\n", c.Label+":", c.Value)
	}

	if len(m.Tiers) > 0 {
		sb.WriteString("\nTiers:\n")
		for _, s := range m.Tiers {
			fmt.Fprintf(&sb, "  %-14s %6d  (%s)\n", s.Label, s.Count, derive.FormatPct(s.Pct))
		}
	}
	writeBars(&sb, "Chains", m.Chains)
	writeBars(&sb, "Categories", m.Categories)
	writeBars(&sb, "Protocols", m.Protocols)

	return strings.TrimRight(sb.String(), "\n")
}

func writeBars(sb *strings.Builder, title string, bars []derive.Bar) {
	if len(bars) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", title)
	for _, b := range bars {
		fmt.Fprintf(sb, "  %-14s %6d  (%s)\n", b.Label, b.Count, derive.FormatPct(b.Pct))
	}
}

func formatLeaderboard(f fetch.Filter, m view.LeaderboardModel) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Top %d agents for %s (%s agents scored):\n\n", len(m.Rows), describeFilter(f), m.TotalAgents)
	for _, r := range m.Rows {
		fmt.Fprintf(&sb, "%3d. %s\n", r.Rank, r.Name)
		fmt.Fprintf(&sb, "     Score: %s | Tier: %s | Chain: %s | Category: %s | Feedback: %s\n",
			r.ScoreText, r.TierStyle.Label, r.ChainStyle.Label, r.Category, r.Feedback)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatPaymentRequired(m view.LeaderboardModel) string {
	var sb strings.Builder
	sb.WriteString(m.Message)
	if a := m.Advisory; a != nil {
		sb.WriteString("\n")
		if a.PriceUSD != "" {
			fmt.Fprintf(&sb, "\nPrice: $%s", a.PriceUSD)
		}
		if a.NetworkName != "" {
			fmt.Fprintf(&sb, "\nNetwork: %s", a.NetworkName)
		}
		if a.PayTo != "" {
			fmt.Fprintf(&sb, "\nPay to: %s", a.PayTo)
		}
	}
	return sb.String()
}

func describeFilter(f fetch.Filter) string {
	var parts []string
	if f.Category != "" {
		parts = append(parts, "category "+derive.CategoryLabel(f.Category))
	}
	if f.Chain != "" {
		parts = append(parts, "chain "+derive.ChainStyleFor(f.Chain).Label)
	}
	if len(parts) == 0 {
		return "all agents"
	}
	return strings.Join(parts, " and ")
}
