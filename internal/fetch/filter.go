package fetch

import (
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/mbd888/trustboard/internal/derive"
	"github.com/mbd888/trustboard/internal/oracle"
)

// PageSize is the fixed listing size.
const PageSize = 50

// Filter is the listing selection. Empty means no filter.
type Filter struct {
	Category string `json:"category"`
	Chain    string `json:"chain"`
}

// Normalize trims, lower-cases and maps "all" to the empty selection.
func (f Filter) Normalize() Filter {
	return Filter{Category: NormalizeSlug(f.Category), Chain: NormalizeSlug(f.Chain)}
}

// Query builds the oracle query for one page.
func (f Filter) Query() oracle.TopQuery {
	return oracle.TopQuery{Limit: PageSize, Category: f.Category, Chain: f.Chain}
}

// NormalizeSlug canonicalises a user-supplied slug. Unknown slugs pass
// through unchanged apart from case and whitespace.
func NormalizeSlug(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "all" {
		return ""
	}
	return v
}

// Dimension names a filter axis.
type Dimension string

const (
	DimCategory Dimension = "category"
	DimChain    Dimension = "chain"
)

// IsKnown reports whether slug is in the known set for dim. The empty
// selection is always known.
func IsKnown(dim Dimension, slug string) bool {
	if slug == "" {
		return true
	}
	switch dim {
	case DimCategory:
		return lo.Contains(derive.KnownCategories, slug)
	case DimChain:
		return lo.Contains(derive.KnownChains, slug)
	default:
		return false
	}
}

// FilterState holds the current selection. Selecting the active value is
// reported as unchanged so callers can skip the refetch.
type FilterState struct {
	mu     sync.Mutex
	filter Filter
}

// NewFilterState starts from initial, normalised.
func NewFilterState(initial Filter) *FilterState {
	return &FilterState{filter: initial.Normalize()}
}

// Current returns the selection.
func (s *FilterState) Current() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Select sets one dimension. Unknown dimensions are ignored.
func (s *FilterState) Select(dim Dimension, value string) (Filter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.filter
	switch dim {
	case DimCategory:
		next.Category = NormalizeSlug(value)
	case DimChain:
		next.Chain = NormalizeSlug(value)
	default:
		return s.filter, false
	}
	return s.swap(next)
}

// Set replaces both dimensions at once.
func (s *FilterState) Set(f Filter) (Filter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swap(f.Normalize())
}

// caller must hold s.mu
func (s *FilterState) swap(next Filter) (Filter, bool) {
	if next == s.filter {
		return s.filter, false
	}
	s.filter = next
	return next, true
}
