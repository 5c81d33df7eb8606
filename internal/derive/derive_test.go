package derive

import (
	"math/rand"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/trustboard/internal/oracle"
)

func TestPct_ZeroTotal(t *testing.T) {
	for _, count := range []int{0, 1, 40, 1 << 30} {
		assert.Equal(t, 0.0, Pct(count, 0))
		assert.Equal(t, 0.0, Width(count, 0))
		assert.Equal(t, 0.0, Pct(count, -5))
	}
}

func TestWidth_Clamps(t *testing.T) {
	assert.Equal(t, 100.0, Width(150, 100), "inconsistent totals must not overflow")
	assert.Equal(t, 0.0, Width(-3, 100))
	assert.InDelta(t, 33.333, Width(1, 3), 0.001)
	assert.InDelta(t, 150.0, Pct(150, 100), 1e-9, "Pct itself is not clamped")
}

func TestTierSegments_GoldSilverScenario(t *testing.T) {
	segs := TierSegments(map[string]int{"gold": 40, "silver": 60}, 100)

	require.Len(t, segs, 2)
	assert.Equal(t, "gold", segs[0].Key)
	assert.Equal(t, 40.0, segs[0].Width)
	assert.Equal(t, "silver", segs[1].Key)
	assert.Equal(t, 60.0, segs[1].Width)
	for _, absent := range []string{"diamond", "platinum", "bronze", "unranked"} {
		assert.False(t, lo.ContainsBy(segs, func(s Segment) bool { return s.Key == absent }), absent)
	}
}

func TestTierSegments_CanonicalOrderRegardlessOfInput(t *testing.T) {
	want := []string{"diamond", "platinum", "gold", "silver", "bronze", "unranked"}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		keys := append([]string(nil), want...)
		rng.Shuffle(len(keys), func(a, b int) { keys[a], keys[b] = keys[b], keys[a] })
		dist := make(map[string]int, len(keys))
		for j, k := range keys {
			dist[k] = j + 1
		}

		got := lo.Map(TierSegments(dist, 21), func(s Segment, _ int) string { return s.Key })
		assert.Equal(t, want, got)
	}
}

func TestTierSegments_ZeroSuppressedAndUnknownAppended(t *testing.T) {
	segs := TierSegments(map[string]int{"mythic": 2, "diamond": 0, "bronze": 5, "alpha": 1}, 8)

	keys := lo.Map(segs, func(s Segment, _ int) string { return s.Key })
	assert.Equal(t, []string{"bronze", "alpha", "mythic"}, keys)
	assert.Equal(t, "Mythic", segs[2].Label)
	assert.Equal(t, TierStyleFor("unranked").Color, segs[2].Style.Color)
}

func TestTierSegments_ZeroTotalKeepsLegend(t *testing.T) {
	segs := TierSegments(map[string]int{"gold": 3}, 0)
	require.Len(t, segs, 1)
	assert.Equal(t, 3, segs[0].Count)
	assert.Equal(t, 0.0, segs[0].Width)
}

func TestDistribution_SortsAndSuppresses(t *testing.T) {
	bars := Distribution(map[string]int{"polygon": 30, "base": 70, "ethereum": 0, "solana": 30}, 100, KindChain)

	keys := lo.Map(bars, func(b Bar, _ int) string { return b.Key })
	assert.Equal(t, []string{"base", "polygon", "solana"}, keys)
	assert.Equal(t, "Base", bars[0].Label)
	assert.Equal(t, "#3b82f6", bars[0].Color)
	assert.Equal(t, "Solana", bars[2].Label)
	assert.Equal(t, defaultBarColor, bars[2].Color)
}

func TestDistribution_Labels(t *testing.T) {
	cats := Distribution(map[string]int{"defi": 2, "rwa": 1}, 3, KindCategory)
	assert.Equal(t, "DeFi", cats[0].Label)
	assert.Equal(t, "RWA", cats[1].Label)

	protos := Distribution(map[string]int{"x402": 4, "mcp": 9, "grpc": 1}, 10, KindProtocol)
	assert.Equal(t, []string{"MCP", "x402", "GRPC"}, lo.Map(protos, func(b Bar, _ int) string { return b.Label }))
}

func TestDistribution_NilMap(t *testing.T) {
	assert.Empty(t, Distribution(nil, 10, KindChain))
	assert.Empty(t, TierSegments(nil, 10))
}

func TestScoreBuckets(t *testing.T) {
	tests := []struct {
		score float64
		want  ScoreBucket
	}{
		{100, BucketExcellent},
		{80, BucketExcellent},
		{79.99, BucketGood},
		{60, BucketGood},
		{59.9, BucketFair},
		{40, BucketFair},
		{39.9, BucketPoor},
		{0, BucketPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreBucketFor(tt.score), "score %v", tt.score)
	}
}

func TestScoreAndBarColorsShareThresholds(t *testing.T) {
	for score := 0.0; score <= 100; score += 0.5 {
		b := ScoreBucketFor(score)
		assert.Equal(t, bucketColors[b].text, ScoreColor(score))
		assert.Equal(t, bucketColors[b].bar, BarColor(score))
	}
}

func TestStyleLookupsAreTotal(t *testing.T) {
	assert.Equal(t, "Diamond", TierStyleFor("DIAMOND").Label)
	assert.Equal(t, "Unknown", TierStyleFor("").Label)
	assert.Equal(t, defaultBarColor, ChainStyleFor("").Color)
	assert.Equal(t, "Unknown", CategoryLabel(""))
	assert.Equal(t, "Robotics", CategoryLabel("robotics"))
	assert.Equal(t, "OASF", ProtocolLabel("oasf"))
}

func TestTierRules_MatchOrder(t *testing.T) {
	require.Len(t, TierRules, len(TierOrder)-1)
	for i, rule := range TierRules {
		assert.Equal(t, TierOrder[i], rule.Tier)
		if i > 0 {
			assert.Less(t, rule.MinScore, TierRules[i-1].MinScore)
		}
	}
	assert.Equal(t, oracle.TierUnranked, TierOrder[len(TierOrder)-1])
}

func TestScoreWidth(t *testing.T) {
	assert.Equal(t, 72.5, ScoreWidth(72.5))
	assert.Equal(t, 100.0, ScoreWidth(101))
	assert.Equal(t, 0.0, ScoreWidth(-1))
}
