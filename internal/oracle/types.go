package oracle

import (
	"encoding/json"
	"strings"
)

// Tier is an agent's ordinal reputation bucket.
type Tier string

const (
	TierDiamond  Tier = "diamond"
	TierPlatinum Tier = "platinum"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierBronze   Tier = "bronze"
	TierUnranked Tier = "unranked"
)

// ParseTier maps any string onto the closed tier set. Unknown values are unranked.
func ParseTier(s string) Tier {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierDiamond, TierPlatinum, TierGold, TierSilver, TierBronze:
		return t
	default:
		return TierUnranked
	}
}

// UnmarshalJSON accepts any string and normalises it with ParseTier.
func (t *Tier) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = TierUnranked
		return nil
	}
	*t = ParseTier(s)
	return nil
}

// NetworkStats is the aggregate snapshot from /api/v1/network/stats.
// Distribution sums are not required to equal TotalAgents.
type NetworkStats struct {
	TotalAgents       int            `json:"total_agents"`
	AvgScore          float64        `json:"avg_score"`
	TotalFeedback     int            `json:"total_feedback"`
	TierDistribution  map[string]int `json:"tier_distribution"`
	ChainDistribution map[string]int `json:"chain_distribution"`
	CategoryCounts    map[string]int `json:"category_counts"`
	ProtocolCounts    map[string]int `json:"protocol_counts"`
}

// PaymentStats is the payment summary from /api/v1/payments/stats.
type PaymentStats struct {
	TotalPayments   int     `json:"total_payments"`
	TotalRevenueUSD float64 `json:"total_revenue_usd"`
	Payments24h     int     `json:"payments_24h"`
	Revenue24hUSD   float64 `json:"revenue_24h_usd"`
}

// TrustedAgent is one listing row. Its rank is its position in the listing.
type TrustedAgent struct {
	AgentID        int64   `json:"agent_id"`
	Name           string  `json:"name,omitempty"`
	Chain          string  `json:"chain"`
	Category       string  `json:"category,omitempty"`
	Tier           Tier    `json:"tier"`
	CompositeScore float64 `json:"composite_score"`
	FeedbackCount  int     `json:"feedback_count"`
}

// TopQuery selects a listing page. Empty filters are omitted from the request.
type TopQuery struct {
	Limit    int
	Category string
	Chain    string
}
