package view

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/trustboard/internal/derive"
	"github.com/mbd888/trustboard/internal/fetch"
	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/oracle"
)

const statsBody = `{"total_agents":100,"avg_score":72.4,"total_feedback":4321,
	"tier_distribution":{"silver":60,"gold":40,"diamond":0},
	"chain_distribution":{"base":80,"polygon":20,"ethereum":0},
	"category_counts":{"defi":30,"gaming":0,"data":5},
	"protocol_counts":{"mcp":12,"x402":3,"web":0}}`

type testOracle struct {
	listingStatus int
	listingBody   string
	statsStatus   int
	listingCalls  atomic.Int32
	holdListing   atomic.Bool
	listingGate   chan struct{}
}

func (o *testOracle) handler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case oracle.PathNetworkStats:
		if o.statsStatus != 0 {
			w.WriteHeader(o.statsStatus)
			return
		}
		_, _ = w.Write([]byte(statsBody))
	case oracle.PathPaymentStats:
		_, _ = w.Write([]byte(`{"total_payments":1500,"total_revenue_usd":15.5}`))
	case oracle.PathTopAgents:
		o.listingCalls.Add(1)
		if o.holdListing.Load() {
			<-o.listingGate
		}
		if o.listingStatus != 0 {
			w.WriteHeader(o.listingStatus)
		}
		_, _ = w.Write([]byte(o.listingBody))
	default:
		http.NotFound(w, r)
	}
}

func newClient(t *testing.T, o *testOracle) *oracle.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(o.handler))
	t.Cleanup(srv.Close)
	return oracle.NewClient(srv.URL)
}

func TestBuildOverview_TierScenario(t *testing.T) {
	network := fetch.State[*oracle.NetworkStats]{
		Phase: fetch.PhaseSuccess,
		Data:  &oracle.NetworkStats{TotalAgents: 100, TierDistribution: map[string]int{"gold": 40, "silver": 60}},
	}
	m := BuildOverview(network, fetch.State[*oracle.PaymentStats]{Phase: fetch.PhaseIdle})

	require.Len(t, m.Tiers, 2)
	assert.Equal(t, "gold", m.Tiers[0].Key)
	assert.Equal(t, 40.0, m.Tiers[0].Width)
	assert.Equal(t, "silver", m.Tiers[1].Key)
	assert.Equal(t, 60.0, m.Tiers[1].Width)
}

func TestBuildOverview_NoDataPlaceholders(t *testing.T) {
	m := BuildOverview(
		fetch.State[*oracle.NetworkStats]{Phase: fetch.PhaseFailed, Outcome: fetch.OutcomeNoData},
		fetch.State[*oracle.PaymentStats]{Phase: fetch.PhaseFailed, Outcome: fetch.OutcomeNoData},
	)

	assert.False(t, m.Loading)
	assert.Equal(t, fetch.OutcomeNoData, m.Outcome)
	for _, c := range m.Cards {
		assert.Equal(t, derive.Placeholder, c.Value, c.Key)
	}
	assert.Empty(t, m.Tiers)
	assert.NotNil(t, m.Chains)
}

func TestLoadOverview_EndToEnd(t *testing.T) {
	c := newClient(t, &testOracle{})
	m := LoadOverview(context.Background(), c, logging.Discard())

	cards := lo.Associate(m.Cards, func(c Card) (string, string) { return c.Key, c.Value })
	assert.Equal(t, "100", cards["total_agents"])
	assert.Equal(t, "72.4", cards["avg_score"])
	assert.Equal(t, "4,321", cards["total_feedback"])
	assert.Equal(t, "1,500", cards["total_payments"])
	assert.Equal(t, "$15.50", cards["total_revenue"])

	assert.Equal(t, []string{"gold", "silver"}, lo.Map(m.Tiers, func(s derive.Segment, _ int) string { return s.Key }))
	assert.Equal(t, []string{"base", "polygon"}, lo.Map(m.Chains, func(b derive.Bar, _ int) string { return b.Key }))
	assert.Equal(t, []string{"defi", "data"}, lo.Map(m.Categories, func(b derive.Bar, _ int) string { return b.Key }))
	assert.Equal(t, []string{"mcp", "x402"}, lo.Map(m.Protocols, func(b derive.Bar, _ int) string { return b.Key }))
	assert.Len(t, m.TierRules, 5)
}

func TestLoadLeaderboard_Rows(t *testing.T) {
	o := &testOracle{listingBody: `[
		{"agent_id":42,"name":"Oracle Prime","chain":"base","category":"defi","tier":"diamond","composite_score":93.26,"feedback_count":1200},
		{"agent_id":7,"chain":"polygon","tier":"bronze","composite_score":51,"feedback_count":6}
	]`}
	m := LoadLeaderboard(context.Background(), newClient(t, o), logging.Discard(), fetch.Filter{Chain: "base"})

	require.Len(t, m.Rows, 2)
	assert.False(t, m.Empty)
	assert.Equal(t, 1, m.Rows[0].Rank)
	assert.Equal(t, "Oracle Prime", m.Rows[0].Name)
	assert.Equal(t, "DeFi", m.Rows[0].Category)
	assert.Equal(t, "93.3", m.Rows[0].ScoreText)
	assert.Equal(t, derive.ScoreColor(93.26), m.Rows[0].ScoreColor)
	assert.Equal(t, "1,200", m.Rows[0].Feedback)
	assert.Equal(t, "Agent #7", m.Rows[1].Name)
	assert.Equal(t, derive.Placeholder, m.Rows[1].Category)
	assert.Equal(t, "Polygon", m.Rows[1].Chain)

	assert.Equal(t, "100", m.TotalAgents)
	assert.Equal(t, []string{"", "base", "polygon"}, lo.Map(m.ChainBadges, func(b derive.Badge, _ int) string { return b.Slug }))
	assert.True(t, m.ChainBadges[1].Active)
	assert.Equal(t, []string{"", "defi", "data"}, lo.Map(m.CategoryBadges, func(b derive.Badge, _ int) string { return b.Slug }))
}

func TestLoadLeaderboard_EmptyResult(t *testing.T) {
	o := &testOracle{listingBody: `[]`}
	m := LoadLeaderboard(context.Background(), newClient(t, o), logging.Discard(), fetch.Filter{Category: "rwa"})

	assert.True(t, m.Empty)
	assert.Empty(t, m.Rows)
	assert.Empty(t, m.Message, "an empty result is not an error")
	assert.Equal(t, fetch.PhaseSuccess, m.Phase)
}

func TestLoadLeaderboard_PaymentRequired(t *testing.T) {
	o := &testOracle{listingStatus: http.StatusPaymentRequired}
	m := LoadLeaderboard(context.Background(), newClient(t, o), logging.Discard(), fetch.Filter{})

	assert.Equal(t, fetch.PhasePaymentRequired, m.Phase)
	assert.Equal(t, fetch.PaymentRequiredMessage, m.Message)
	assert.Empty(t, m.Rows)
	assert.False(t, m.Loading)
	assert.False(t, m.Empty)
	assert.Equal(t, int32(1), o.listingCalls.Load())
}

func TestLoadLeaderboard_FailureWithoutStats(t *testing.T) {
	o := &testOracle{listingStatus: http.StatusBadGateway, statsStatus: http.StatusInternalServerError}
	m := LoadLeaderboard(context.Background(), newClient(t, o), logging.Discard(), fetch.Filter{})

	assert.Equal(t, fetch.OutcomeFetchFailed, m.Outcome)
	assert.Equal(t, fetch.FailedMessage, m.Message)
	assert.Equal(t, derive.Placeholder, m.TotalAgents)
	assert.Len(t, m.ChainBadges, 1+len(derive.KnownChains), "known chains shown bare without stats")
}

func TestLeaderboard_SelectSkipsRedundantFetch(t *testing.T) {
	o := &testOracle{listingBody: `[{"agent_id":1,"chain":"base","tier":"gold","composite_score":70}]`}
	lb := NewLeaderboard(newClient(t, o), logging.Discard(), fetch.Filter{})
	lb.Activate(context.Background())
	lb.Wait()

	assert.True(t, lb.Select(fetch.DimCategory, "defi"))
	lb.Wait()
	first := lb.Model()

	assert.False(t, lb.Select(fetch.DimCategory, "defi"))
	assert.False(t, lb.SetFilter(fetch.Filter{Category: "defi"}))
	lb.Wait()

	assert.Equal(t, int32(2), o.listingCalls.Load())
	assert.Equal(t, first.Rows, lb.Model().Rows)
	assert.Equal(t, fetch.Filter{Category: "defi"}, lb.Model().Filter)
}

func TestLeaderboard_ModelPairsRowsWithTheirFilter(t *testing.T) {
	o := &testOracle{
		listingBody: `[{"agent_id":1,"chain":"base","tier":"gold","composite_score":70}]`,
		listingGate: make(chan struct{}),
	}
	lb := NewLeaderboard(newClient(t, o), logging.Discard(), fetch.Filter{Chain: "base"})
	assert.Equal(t, fetch.Filter{Chain: "base"}, lb.Model().Filter, "initial selection shown before activation")

	lb.Activate(context.Background())
	lb.Wait()
	require.Len(t, lb.Model().Rows, 1)

	o.holdListing.Store(true)
	require.True(t, lb.Select(fetch.DimCategory, "defi"))
	m := lb.Model()
	assert.Equal(t, fetch.Filter{Chain: "base", Category: "defi"}, m.Filter)
	assert.True(t, m.Loading)
	assert.Empty(t, m.Rows, "rows for the previous filter are not shown under the new one")

	close(o.listingGate)
	lb.Wait()
	m = lb.Model()
	assert.Equal(t, fetch.Filter{Chain: "base", Category: "defi"}, m.Filter)
	assert.Len(t, m.Rows, 1)
}
