package derive

import (
	"sort"

	"github.com/samber/lo"
)

// AllSlug is the badge that clears a filter dimension.
const AllSlug = ""

// Badge is one filter chip.
type Badge struct {
	Slug   string `json:"slug"`
	Label  string `json:"label"`
	Count  *int   `json:"count,omitempty"`
	Active bool   `json:"active"`
}

// Badges builds the chips for one filter dimension. The "All" chip always
// leads. With counts, only slugs with a positive count appear: known slugs
// in their listed order, then others lexically. Without counts (stats
// unavailable) the known slugs are shown bare. An active slug that would
// otherwise be hidden is still shown so the selection stays visible.
func Badges(counts map[string]int, known []string, active string, label func(string) string) []Badge {
	badges := []Badge{{Slug: AllSlug, Label: "All", Active: active == AllSlug}}

	var slugs []string
	if counts == nil {
		slugs = append(slugs, known...)
	} else {
		present := nonZero(counts)
		slugs = lo.Filter(known, func(s string, _ int) bool { _, ok := present[s]; return ok })
		extra := lo.Filter(lo.Keys(present), func(s string, _ int) bool { return !lo.Contains(known, s) })
		sort.Strings(extra)
		slugs = append(slugs, extra...)
	}
	if active != AllSlug && !lo.Contains(slugs, active) {
		slugs = append(slugs, active)
	}

	for _, slug := range slugs {
		b := Badge{Slug: slug, Label: label(slug), Active: slug == active}
		if n, ok := counts[slug]; ok && n > 0 {
			b.Count = lo.ToPtr(n)
		}
		badges = append(badges, b)
	}
	return badges
}
