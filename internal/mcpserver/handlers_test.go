package mcpserver

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/oracle"
)

// --- Test helpers ---

const statsBody = `{"total_agents":200,"avg_score":64.26,"total_feedback":12000,
	"tier_distribution":{"gold":50,"bronze":150},
	"chain_distribution":{"base":120,"ethereum":80},
	"category_counts":{"defi":90},
	"protocol_counts":{"x402":40}}`

func newTestSetup(t *testing.T, handler http.HandlerFunc) *Handlers {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewHandlers(oracle.NewClient(ts.URL), logging.Discard())
}

// oracleHandler serves stats and hands listing requests to listing.
func oracleHandler(listing http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case oracle.PathNetworkStats:
			_, _ = w.Write([]byte(statsBody))
		case oracle.PathPaymentStats:
			_, _ = w.Write([]byte(`{"total_payments":42,"total_revenue_usd":0.42}`))
		case oracle.PathTopAgents:
			listing(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

// ============================================================
// get_network_overview
// ============================================================

func TestHandleGetNetworkOverview(t *testing.T) {
	h := newTestSetup(t, oracleHandler(http.NotFound))

	result, err := h.HandleGetNetworkOverview(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Agents Scored:")
	assert.Contains(t, text, "200")
	assert.Contains(t, text, "64.3")
	assert.Contains(t, text, "$0.42")
	assert.Contains(t, text, "Gold")
	assert.Contains(t, text, "(25%)")
	assert.Contains(t, text, "Ethereum")
	assert.Contains(t, text, "(40%)")
}

func TestHandleGetNetworkOverview_OracleDown(t *testing.T) {
	h := newTestSetup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	result, err := h.HandleGetNetworkOverview(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unavailable")
}

// ============================================================
// list_top_agents
// ============================================================

func TestHandleListTopAgents(t *testing.T) {
	var gotQuery string
	h := newTestSetup(t, oracleHandler(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"agent_id":1,"name":"Alpha","chain":"base","category":"defi","tier":"gold","composite_score":88.04,"feedback_count":1500},
			{"agent_id":2,"chain":"base","tier":"bronze","composite_score":51,"feedback_count":6}
		]`))
	}))

	result, err := h.HandleListTopAgents(context.Background(), makeRequest(map[string]any{
		"category": "DeFi",
		"chain":    "base",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "category=defi&chain=base&limit=50", gotQuery)

	text := resultText(t, result)
	assert.Contains(t, text, "Top 2 agents for category DeFi and chain Base (200 agents scored)")
	assert.Contains(t, text, "  1. Alpha")
	assert.Contains(t, text, "Score: 88.0 | Tier: Gold | Chain: Base | Category: DeFi | Feedback: 1,500")
	assert.Contains(t, text, "  2. Agent #2")
}

func TestHandleListTopAgents_AllFilter(t *testing.T) {
	var gotQuery string
	h := newTestSetup(t, oracleHandler(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))

	result, err := h.HandleListTopAgents(context.Background(), makeRequest(map[string]any{"category": "all"}))
	require.NoError(t, err)
	assert.Equal(t, "limit=50", gotQuery)
	assert.Equal(t, "No agents match all agents.", resultText(t, result))
}

func TestHandleListTopAgents_PaymentRequired(t *testing.T) {
	doc := `{"x402Version":2,"accepts":[{"scheme":"exact","network":"eip155:8453","amount":"10000","payTo":"0x209693bc6afc0c5328ba36faf03c514ef312287c"}]}`
	h := newTestSetup(t, oracleHandler(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Payment-Required", base64.StdEncoding.EncodeToString([]byte(doc)))
		w.WriteHeader(http.StatusPaymentRequired)
	}))

	result, err := h.HandleListTopAgents(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.False(t, result.IsError, "payment required is an expected state, not a tool error")

	text := resultText(t, result)
	assert.Contains(t, text, "x402 micropayment")
	assert.Contains(t, text, "Price: $0.01")
	assert.Contains(t, text, "Network: Base")
	assert.Contains(t, strings.ToLower(text), "pay to: 0x209693bc6afc0c5328ba36faf03c514ef312287c")
}

func TestHandleListTopAgents_Failed(t *testing.T) {
	h := newTestSetup(t, oracleHandler(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	result, err := h.HandleListTopAgents(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Failed to load agents. Please try again.", resultText(t, result))
}

// ============================================================
// get_tier_rules
// ============================================================

func TestHandleGetTierRules(t *testing.T) {
	h := NewHandlers(oracle.NewClient("http://127.0.0.1:1"), logging.Discard())

	result, err := h.HandleGetTierRules(context.Background(), makeRequest(nil))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Diamond   score >= 90, feedback >= 50")
	assert.Contains(t, text, "Bronze    score >= 50, feedback >= 5")
}

func TestNewMCPServer_RegistersTools(t *testing.T) {
	s := NewMCPServer(oracle.NewClient("http://127.0.0.1:1"), logging.Discard())
	require.NotNil(t, s)
}

func TestToolDefinitions(t *testing.T) {
	assert.Equal(t, "get_network_overview", ToolGetNetworkOverview.Name)
	assert.Equal(t, "list_top_agents", ToolListTopAgents.Name)
	assert.Contains(t, ToolListTopAgents.Description, "x402")
	assert.Equal(t, "get_tier_rules", ToolGetTierRules.Name)
}
