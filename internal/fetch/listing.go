package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/metrics"
	"github.com/mbd888/trustboard/internal/oracle"
)

// ListingSource provides the ranked listing endpoint.
type ListingSource interface {
	TopAgents(ctx context.Context, q oracle.TopQuery) ([]oracle.TrustedAgent, error)
}

// Listing fetches the ranked agent listing for a filter. Each request gets
// a generation number; only the newest generation may write the slot, and
// starting a request cancels the one before it.
type Listing struct {
	src    ListingSource
	logger *slog.Logger

	mu       sync.Mutex
	base     context.Context
	gen      uint64
	started  bool
	filter   Filter
	cancel   context.CancelFunc
	state    State[[]oracle.TrustedAgent]
	onChange func()

	wg sync.WaitGroup
}

// NewListing creates an idle listing fetcher.
func NewListing(src ListingSource, logger *slog.Logger) *Listing {
	return &Listing{
		src:    src,
		logger: logging.Component(logger, "fetch.listing"),
		base:   context.Background(),
		state:  State[[]oracle.TrustedAgent]{Phase: PhaseIdle},
	}
}

// OnChange registers fn to run after every slot update. fn runs on the
// fetch goroutine and must not block.
func (l *Listing) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Fetch starts a request for f unconditionally. ctx bounds this and every
// later request issued through Apply.
func (l *Listing) Fetch(ctx context.Context, f Filter) {
	l.mu.Lock()
	l.base = ctx
	l.start(f.Normalize())
}

// Apply starts a request for f unless f is already the active filter.
// It reports whether a request was issued.
func (l *Listing) Apply(f Filter) bool {
	f = f.Normalize()
	l.mu.Lock()
	if l.started && f == l.filter {
		l.mu.Unlock()
		return false
	}
	l.start(f)
	return true
}

// start must be called with l.mu held; it releases it.
func (l *Listing) start(f Filter) {
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(l.base)
	l.cancel = cancel
	l.started = true
	l.filter = f
	l.state = State[[]oracle.TrustedAgent]{Phase: PhaseLoading}
	notify := l.onChange
	l.wg.Add(1)
	l.mu.Unlock()

	for dim, slug := range map[Dimension]string{DimCategory: f.Category, DimChain: f.Chain} {
		if !IsKnown(dim, slug) {
			l.logger.Debug("passing unknown slug through", "dimension", dim, "slug", slug)
		}
	}
	if notify != nil {
		notify()
	}

	go func() {
		defer l.wg.Done()
		defer cancel()
		agents, err := l.src.TopAgents(ctx, f.Query())
		l.settle(gen, f, agents, err)
	}()
}

func (l *Listing) settle(gen uint64, f Filter, agents []oracle.TrustedAgent, err error) {
	next := settleListing(agents, err)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		metrics.FetchStaleDiscardsTotal.WithLabelValues("listing").Inc()
		l.logger.Debug("discarding stale listing response", "filter", f, "generation", gen)
		return
	}
	l.state = next
	notify := l.onChange
	l.mu.Unlock()

	switch next.Outcome {
	case OutcomeFetchFailed:
		l.logger.Warn("listing fetch failed", "filter", f, "error", err)
	default:
		l.logger.Debug("listing settled", "filter", f, "outcome", next.Outcome, "rows", len(next.Data))
	}
	if notify != nil {
		notify()
	}
}

func settleListing(agents []oracle.TrustedAgent, err error) State[[]oracle.TrustedAgent] {
	var perr *oracle.PaymentRequiredError
	switch {
	case err == nil:
		if agents == nil {
			agents = []oracle.TrustedAgent{}
		}
		outcome := OutcomeOK
		if len(agents) == 0 {
			outcome = OutcomeEmptyResult
		}
		return State[[]oracle.TrustedAgent]{Phase: PhaseSuccess, Outcome: outcome, Data: agents}
	case errors.As(err, &perr):
		return State[[]oracle.TrustedAgent]{
			Phase:    PhasePaymentRequired,
			Outcome:  OutcomePaymentRequired,
			Data:     []oracle.TrustedAgent{},
			Message:  PaymentRequiredMessage,
			Advisory: perr.Terms,
		}
	case errors.Is(err, oracle.ErrPaymentRequired):
		return State[[]oracle.TrustedAgent]{
			Phase:   PhasePaymentRequired,
			Outcome: OutcomePaymentRequired,
			Data:    []oracle.TrustedAgent{},
			Message: PaymentRequiredMessage,
		}
	default:
		return State[[]oracle.TrustedAgent]{Phase: PhaseFailed, Outcome: OutcomeFetchFailed, Message: FailedMessage}
	}
}

// State returns the listing slot.
func (l *Listing) State() State[[]oracle.TrustedAgent] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Filter returns the filter of the current or last request.
func (l *Listing) Filter() Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Snapshot returns the filter of the current or last request together with
// its slot, read under one lock so rows are never paired with another
// filter. started is false before the first Fetch.
func (l *Listing) Snapshot() (f Filter, state State[[]oracle.TrustedAgent], started bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter, l.state, l.started
}

// Wait blocks until every request started so far has settled or been discarded.
func (l *Listing) Wait() { l.wg.Wait() }

// Close cancels any in-flight request and discards its result.
func (l *Listing) Close() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.mu.Unlock()
}
