package derive

import (
	"strings"

	"github.com/mbd888/trustboard/internal/oracle"
)

const defaultBarColor = "#64748b"

// TierStyle is the visual treatment of a tier.
type TierStyle struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var tierStyles = map[oracle.Tier]TierStyle{
	oracle.TierDiamond:  {Label: "Diamond", Color: "#22d3ee", Icon: "gem"},
	oracle.TierPlatinum: {Label: "Platinum", Color: "#a5b4fc", Icon: "crown"},
	oracle.TierGold:     {Label: "Gold", Color: "#facc15", Icon: "medal"},
	oracle.TierSilver:   {Label: "Silver", Color: "#cbd5e1", Icon: "award"},
	oracle.TierBronze:   {Label: "Bronze", Color: "#d97706", Icon: "shield"},
	oracle.TierUnranked: {Label: "Unranked", Color: defaultBarColor, Icon: "circle"},
}

// TierStyleFor returns the style of a tier. Unknown keys get the unranked
// colours with their own key as label.
func TierStyleFor(key string) TierStyle {
	if style, ok := tierStyles[oracle.Tier(strings.ToLower(key))]; ok {
		return style
	}
	style := tierStyles[oracle.TierUnranked]
	style.Label = titleCase(key)
	return style
}

// ChainStyle is the visual treatment of a chain.
type ChainStyle struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var chainStyles = map[string]ChainStyle{
	"base":     {Label: "Base", Color: "#3b82f6"},
	"ethereum": {Label: "Ethereum", Color: "#8b5cf6"},
	"polygon":  {Label: "Polygon", Color: "#a855f7"},
}

// ChainStyleFor returns the style of a chain slug, with a neutral default.
func ChainStyleFor(slug string) ChainStyle {
	if style, ok := chainStyles[strings.ToLower(slug)]; ok {
		return style
	}
	return ChainStyle{Label: titleCase(slug), Color: defaultBarColor}
}

var categoryLabels = map[string]string{
	"defi":     "DeFi",
	"gaming":   "Gaming",
	"rwa":      "RWA",
	"payments": "Payments",
	"data":     "Data",
	"general":  "General",
}

// CategoryLabel returns the display name of a category slug.
func CategoryLabel(slug string) string {
	if label, ok := categoryLabels[strings.ToLower(slug)]; ok {
		return label
	}
	return titleCase(slug)
}

var protocolLabels = map[string]string{
	"mcp":  "MCP",
	"a2a":  "A2A",
	"x402": "x402",
	"oasf": "OASF",
	"web":  "Web",
}

// ProtocolLabel returns the display name of a protocol key.
func ProtocolLabel(key string) string {
	if label, ok := protocolLabels[strings.ToLower(key)]; ok {
		return label
	}
	return strings.ToUpper(key)
}

// Known slugs in display order.
var (
	KnownCategories = []string{"defi", "gaming", "rwa", "payments", "data", "general"}
	KnownChains     = []string{"base", "ethereum", "polygon"}
	KnownProtocols  = []string{"mcp", "a2a", "x402", "oasf", "web"}
)

// ScoreBucket groups composite scores for colouring.
type ScoreBucket string

const (
	BucketExcellent ScoreBucket = "excellent"
	BucketGood      ScoreBucket = "good"
	BucketFair      ScoreBucket = "fair"
	BucketPoor      ScoreBucket = "poor"
)

// ScoreBucketFor applies the score thresholds used everywhere a score is shown.
func ScoreBucketFor(score float64) ScoreBucket {
	switch {
	case score >= 80:
		return BucketExcellent
	case score >= 60:
		return BucketGood
	case score >= 40:
		return BucketFair
	default:
		return BucketPoor
	}
}

var bucketColors = map[ScoreBucket]struct{ text, bar string }{
	BucketExcellent: {"#34d399", "#10b981"},
	BucketGood:      {"#60a5fa", "#3b82f6"},
	BucketFair:      {"#fbbf24", "#f59e0b"},
	BucketPoor:      {"#f87171", "#ef4444"},
}

// ScoreColor is the text colour for a score.
func ScoreColor(score float64) string {
	return bucketColors[ScoreBucketFor(score)].text
}

// BarColor is the fill colour of a score bar.
func BarColor(score float64) string {
	return bucketColors[ScoreBucketFor(score)].bar
}

// TierRule is the oracle's promotion threshold for a tier.
type TierRule struct {
	Tier        oracle.Tier `json:"tier"`
	MinScore    float64     `json:"min_score"`
	MinFeedback int         `json:"min_feedback"`
}

// TierRules lists the thresholds from highest tier to lowest. Agents
// matching none are unranked.
var TierRules = []TierRule{
	{Tier: oracle.TierDiamond, MinScore: 90, MinFeedback: 50},
	{Tier: oracle.TierPlatinum, MinScore: 80, MinFeedback: 30},
	{Tier: oracle.TierGold, MinScore: 70, MinFeedback: 20},
	{Tier: oracle.TierSilver, MinScore: 60, MinFeedback: 10},
	{Tier: oracle.TierBronze, MinScore: 50, MinFeedback: 5},
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
