package view

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/mbd888/trustboard/internal/derive"
	"github.com/mbd888/trustboard/internal/fetch"
	"github.com/mbd888/trustboard/internal/oracle"
	"github.com/mbd888/trustboard/pkg/x402"
)

// Card is a summary figure. Value is the placeholder when unavailable.
type Card struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// OverviewModel is everything the home page renders.
type OverviewModel struct {
	Loading    bool              `json:"loading"`
	Outcome    fetch.Outcome     `json:"outcome,omitempty"`
	Cards      []Card            `json:"cards"`
	Tiers      []derive.Segment  `json:"tiers"`
	Chains     []derive.Bar      `json:"chains"`
	Categories []derive.Bar      `json:"categories"`
	Protocols  []derive.Bar      `json:"protocols"`
	TierRules  []derive.TierRule `json:"tier_rules"`
}

// Row is one rendered listing row.
type Row struct {
	Rank       int               `json:"rank"`
	AgentID    int64             `json:"agent_id"`
	Name       string            `json:"name"`
	Chain      string            `json:"chain"`
	ChainStyle derive.ChainStyle `json:"chain_style"`
	Category   string            `json:"category"`
	Tier       oracle.Tier       `json:"tier"`
	TierStyle  derive.TierStyle  `json:"tier_style"`
	Score      float64           `json:"score"`
	ScoreText  string            `json:"score_text"`
	ScoreColor string            `json:"score_color"`
	BarColor   string            `json:"bar_color"`
	BarWidth   float64           `json:"bar_width"`
	Feedback   string            `json:"feedback"`
}

// LeaderboardModel is everything the leaderboard page renders.
type LeaderboardModel struct {
	Filter         fetch.Filter   `json:"filter"`
	Loading        bool           `json:"loading"`
	Phase          fetch.Phase    `json:"phase"`
	Outcome        fetch.Outcome  `json:"outcome,omitempty"`
	Message        string         `json:"message,omitempty"`
	Advisory       *x402.Terms    `json:"advisory,omitempty"`
	Rows           []Row          `json:"rows"`
	Empty          bool           `json:"empty"`
	TotalAgents    string         `json:"total_agents"`
	CategoryBadges []derive.Badge `json:"category_badges"`
	ChainBadges    []derive.Badge `json:"chain_badges"`
}

// BuildOverview derives the overview from the stats slots.
func BuildOverview(network fetch.State[*oracle.NetworkStats], payments fetch.State[*oracle.PaymentStats]) OverviewModel {
	m := OverviewModel{
		Loading:    network.Loading() || payments.Loading(),
		Outcome:    network.Outcome,
		Tiers:      []derive.Segment{},
		Chains:     []derive.Bar{},
		Categories: []derive.Bar{},
		Protocols:  []derive.Bar{},
		TierRules:  derive.TierRules,
	}

	var (
		totalAgents, totalFeedback, totalPayments *int
		avgScore, revenue                         *float64
	)
	if ns := network.Data; ns != nil {
		totalAgents, totalFeedback, avgScore = &ns.TotalAgents, &ns.TotalFeedback, &ns.AvgScore
		m.Tiers = derive.TierSegments(ns.TierDistribution, ns.TotalAgents)
		m.Chains = derive.Distribution(ns.ChainDistribution, ns.TotalAgents, derive.KindChain)
		m.Categories = derive.Distribution(ns.CategoryCounts, ns.TotalAgents, derive.KindCategory)
		m.Protocols = derive.Distribution(ns.ProtocolCounts, ns.TotalAgents, derive.KindProtocol)
	}
	if ps := payments.Data; ps != nil {
		totalPayments, revenue = &ps.TotalPayments, &ps.TotalRevenueUSD
	}

	scoreColor := ""
	if avgScore != nil {
		scoreColor = derive.ScoreColor(*avgScore)
	}
	m.Cards = []Card{
		{Key: "total_agents", Label: "Agents Scored", Value: derive.FormatCount(totalAgents)},
		{Key: "avg_score", Label: "Average Score", Value: derive.FormatScore(avgScore), Color: scoreColor},
		{Key: "total_feedback", Label: "Feedback Signals", Value: derive.FormatCount(totalFeedback)},
		{Key: "total_payments", Label: "x402 Payments", Value: derive.FormatCount(totalPayments)},
		{Key: "total_revenue", Label: "Revenue", Value: derive.FormatUSD(revenue)},
	}
	return m
}

// BuildLeaderboard derives the leaderboard from the stats and listing slots.
func BuildLeaderboard(filter fetch.Filter, network fetch.State[*oracle.NetworkStats], listing fetch.State[[]oracle.TrustedAgent]) LeaderboardModel {
	m := LeaderboardModel{
		Filter:   filter,
		Loading:  listing.Loading(),
		Phase:    listing.Phase,
		Outcome:  listing.Outcome,
		Message:  listing.Message,
		Advisory: listing.Advisory,
		Rows:     lo.Map(listing.Data, func(a oracle.TrustedAgent, i int) Row { return newRow(i+1, a) }),
		Empty:    listing.Outcome == fetch.OutcomeEmptyResult,
	}

	var categoryCounts, chainCounts map[string]int
	var totalAgents *int
	if ns := network.Data; ns != nil {
		categoryCounts, chainCounts = nonNil(ns.CategoryCounts), nonNil(ns.ChainDistribution)
		totalAgents = &ns.TotalAgents
	}
	m.TotalAgents = derive.FormatCount(totalAgents)
	m.CategoryBadges = derive.Badges(categoryCounts, derive.KnownCategories, filter.Category, derive.CategoryLabel)
	m.ChainBadges = derive.Badges(chainCounts, derive.KnownChains, filter.Chain, func(s string) string {
		return derive.ChainStyleFor(s).Label
	})
	return m
}

func newRow(rank int, a oracle.TrustedAgent) Row {
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("Agent #%d", a.AgentID)
	}
	category := derive.Placeholder
	if a.Category != "" {
		category = derive.CategoryLabel(a.Category)
	}
	chain := derive.ChainStyleFor(a.Chain)
	return Row{
		Rank:       rank,
		AgentID:    a.AgentID,
		Name:       name,
		Chain:      chain.Label,
		ChainStyle: chain,
		Category:   category,
		Tier:       a.Tier,
		TierStyle:  derive.TierStyleFor(string(a.Tier)),
		Score:      a.CompositeScore,
		ScoreText:  derive.FormatScore(&a.CompositeScore),
		ScoreColor: derive.ScoreColor(a.CompositeScore),
		BarColor:   derive.BarColor(a.CompositeScore),
		BarWidth:   derive.ScoreWidth(a.CompositeScore),
		Feedback:   derive.FormatCount(&a.FeedbackCount),
	}
}

// nonNil distinguishes "stats loaded, nothing counted" from "no stats".
func nonNil(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
