// Package derive turns raw oracle counts into render-ready quantities:
// percentages, clamped bar widths, canonical tier ordering and colour
// buckets. Everything here is pure.
package derive

import (
	"sort"

	"github.com/samber/lo"

	"github.com/mbd888/trustboard/internal/oracle"
)

// Placeholder is rendered wherever a value is unavailable.
const Placeholder = "—"

// Pct returns count as a percentage of total, or 0 when total is not positive.
func Pct(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(count) / float64(total)
}

// Width is Pct clamped to [0, 100] so inconsistent upstream totals never
// overflow a bar.
func Width(count, total int) float64 {
	return clamp(Pct(count, total), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// TierOrder is the left-to-right order of every tier bar and legend.
var TierOrder = []oracle.Tier{
	oracle.TierDiamond,
	oracle.TierPlatinum,
	oracle.TierGold,
	oracle.TierSilver,
	oracle.TierBronze,
	oracle.TierUnranked,
}

// Segment is one piece of the stacked tier bar and its legend entry.
type Segment struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Count int       `json:"count"`
	Pct   float64   `json:"pct"`
	Width float64   `json:"width"`
	Style TierStyle `json:"style"`
}

// TierSegments lays out dist in TierOrder, skipping zero counts. Keys that
// are not known tiers follow the canonical ones in lexical order.
func TierSegments(dist map[string]int, total int) []Segment {
	present := nonZero(dist)
	segments := make([]Segment, 0, len(present))

	for _, tier := range TierOrder {
		count, ok := present[string(tier)]
		if !ok {
			continue
		}
		segments = append(segments, newSegment(string(tier), count, total))
		delete(present, string(tier))
	}

	extra := lo.Keys(present)
	sort.Strings(extra)
	for _, key := range extra {
		segments = append(segments, newSegment(key, present[key], total))
	}
	return segments
}

func newSegment(key string, count, total int) Segment {
	style := TierStyleFor(key)
	return Segment{
		Key:   key,
		Label: style.Label,
		Count: count,
		Pct:   Pct(count, total),
		Width: Width(count, total),
		Style: style,
	}
}

// Bar is one row of a chain, category or protocol distribution.
type Bar struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

// Kind selects the label and colour tables for a distribution.
type Kind int

const (
	KindChain Kind = iota
	KindCategory
	KindProtocol
)

// Distribution returns non-zero entries of counts sorted by count
// descending, ties broken by key.
func Distribution(counts map[string]int, total int, kind Kind) []Bar {
	present := nonZero(counts)
	bars := lo.MapToSlice(present, func(key string, count int) Bar {
		label, color := kind.lookup(key)
		return Bar{
			Key:   key,
			Label: label,
			Count: count,
			Pct:   Pct(count, total),
			Width: Width(count, total),
			Color: color,
		}
	})
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Count != bars[j].Count {
			return bars[i].Count > bars[j].Count
		}
		return bars[i].Key < bars[j].Key
	})
	return bars
}

func (k Kind) lookup(key string) (label, color string) {
	switch k {
	case KindChain:
		s := ChainStyleFor(key)
		return s.Label, s.Color
	case KindCategory:
		return CategoryLabel(key), defaultBarColor
	default:
		return ProtocolLabel(key), defaultBarColor
	}
}

// nonZero copies the positive entries of m. Negative counts are treated
// as absent.
func nonZero(m map[string]int) map[string]int {
	return lo.PickBy(m, func(_ string, v int) bool { return v > 0 })
}

// ScoreWidth is the bar width of a score on the 0-100 scale.
func ScoreWidth(score float64) float64 {
	return clamp(score, 0, 100)
}
