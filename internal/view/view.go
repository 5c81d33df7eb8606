// Package view composes the fetchers into the two dashboard views and
// derives their render models.
package view

import (
	"context"
	"log/slog"

	"github.com/mbd888/trustboard/internal/fetch"
)

// Source is everything the views read from the oracle.
type Source interface {
	fetch.StatsSource
	fetch.ListingSource
}

// Overview is the home view: network and payment aggregates.
type Overview struct {
	stats *fetch.Stats
}

// NewOverview creates an idle overview.
func NewOverview(src fetch.StatsSource, logger *slog.Logger) *Overview {
	return &Overview{stats: fetch.NewStats(src, logger)}
}

// Activate starts the stats and payment requests.
func (o *Overview) Activate(ctx context.Context) { o.stats.Activate(ctx, true) }

// OnChange registers a callback for every state change.
func (o *Overview) OnChange(fn func()) { o.stats.OnChange(fn) }

// Model derives the current render model.
func (o *Overview) Model() OverviewModel {
	return BuildOverview(o.stats.Network(), o.stats.Payments())
}

// Wait blocks until outstanding requests settle.
func (o *Overview) Wait() { o.stats.Wait() }

// Close abandons outstanding requests.
func (o *Overview) Close() { o.stats.Close() }

// Leaderboard is the ranked table view. Stats are fetched once per
// activation; only filter changes refetch the listing.
type Leaderboard struct {
	stats   *fetch.Stats
	listing *fetch.Listing
	filters *fetch.FilterState
}

// NewLeaderboard creates an idle leaderboard starting at initial.
func NewLeaderboard(src Source, logger *slog.Logger, initial fetch.Filter) *Leaderboard {
	return &Leaderboard{
		stats:   fetch.NewStats(src, logger),
		listing: fetch.NewListing(src, logger),
		filters: fetch.NewFilterState(initial),
	}
}

// Activate starts the stats and listing requests concurrently.
func (lb *Leaderboard) Activate(ctx context.Context) {
	lb.stats.Activate(ctx, false)
	lb.listing.Fetch(ctx, lb.filters.Current())
}

// Select changes one filter dimension and refetches the listing when the
// selection actually changed.
func (lb *Leaderboard) Select(dim fetch.Dimension, value string) bool {
	f, changed := lb.filters.Select(dim, value)
	if !changed {
		return false
	}
	return lb.listing.Apply(f)
}

// SetFilter replaces the whole selection.
func (lb *Leaderboard) SetFilter(f fetch.Filter) bool {
	next, changed := lb.filters.Set(f)
	if !changed {
		return false
	}
	return lb.listing.Apply(next)
}

// Filter returns the current selection.
func (lb *Leaderboard) Filter() fetch.Filter { return lb.filters.Current() }

// OnChange registers a callback for every state change of either fetcher.
func (lb *Leaderboard) OnChange(fn func()) {
	lb.stats.OnChange(fn)
	lb.listing.OnChange(fn)
}

// Model derives the current render model. Once the listing has started,
// the filter shown is the one its rows were requested for; a selection
// that has not reached the listing yet is not shown early.
func (lb *Leaderboard) Model() LeaderboardModel {
	f, listing, started := lb.listing.Snapshot()
	if !started {
		f = lb.filters.Current()
	}
	return BuildLeaderboard(f, lb.stats.Network(), listing)
}

// Wait blocks until outstanding requests settle.
func (lb *Leaderboard) Wait() {
	lb.stats.Wait()
	lb.listing.Wait()
}

// Close abandons outstanding requests.
func (lb *Leaderboard) Close() {
	lb.stats.Close()
	lb.listing.Close()
}

// LoadOverview activates an overview and returns its settled model.
func LoadOverview(ctx context.Context, src fetch.StatsSource, logger *slog.Logger) OverviewModel {
	o := NewOverview(src, logger)
	o.Activate(ctx)
	o.Wait()
	return o.Model()
}

// LoadLeaderboard activates a leaderboard for f and returns its settled model.
func LoadLeaderboard(ctx context.Context, src Source, logger *slog.Logger, f fetch.Filter) LeaderboardModel {
	lb := NewLeaderboard(src, logger, f)
	lb.Activate(ctx)
	lb.Wait()
	return lb.Model()
}
