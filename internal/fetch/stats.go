package fetch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/metrics"
	"github.com/mbd888/trustboard/internal/oracle"
)

// StatsSource provides the aggregate endpoints.
type StatsSource interface {
	NetworkStats(ctx context.Context) (*oracle.NetworkStats, error)
	PaymentStats(ctx context.Context) (*oracle.PaymentStats, error)
}

// Stats fetches network and payment aggregates once per activation.
// Failures degrade silently: the previous value is kept and the slot is
// marked NoData.
type Stats struct {
	src    StatsSource
	logger *slog.Logger

	mu       sync.Mutex
	network  State[*oracle.NetworkStats]
	payments State[*oracle.PaymentStats]
	netReq   request
	payReq   request
	onChange func()

	wg sync.WaitGroup
}

// request tracks the in-flight call for one slot. Each slot keeps its own
// generation so an activation that skips payments leaves a pending
// payments call alone.
type request struct {
	gen    uint64
	cancel context.CancelFunc
}

func (r *request) restart(parent context.Context) (context.Context, uint64) {
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	return ctx, r.gen
}

func (r *request) stop() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
}

// NewStats creates an idle stats fetcher.
func NewStats(src StatsSource, logger *slog.Logger) *Stats {
	return &Stats{
		src:      src,
		logger:   logging.Component(logger, "fetch.stats"),
		network:  State[*oracle.NetworkStats]{Phase: PhaseIdle},
		payments: State[*oracle.PaymentStats]{Phase: PhaseIdle},
	}
}

// OnChange registers fn to run after every slot update. fn runs on the
// fetch goroutine and must not block.
func (s *Stats) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Activate issues the network stats request and, when withPayments is set,
// the payment stats request. Both run concurrently and return immediately.
// A previous request still in flight for the same slot is superseded; a
// payments request is only superseded by an activation that asks for
// payments again.
func (s *Stats) Activate(ctx context.Context, withPayments bool) {
	s.mu.Lock()
	netCtx, netGen := s.netReq.restart(ctx)
	s.network.Phase, s.network.Outcome = PhaseLoading, OutcomeNone
	s.wg.Add(1)

	var payCtx context.Context
	var payGen uint64
	if withPayments {
		payCtx, payGen = s.payReq.restart(ctx)
		s.payments.Phase, s.payments.Outcome = PhaseLoading, OutcomeNone
		s.wg.Add(1)
	}
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}

	go func() {
		defer s.wg.Done()
		stats, err := s.src.NetworkStats(netCtx)
		s.settle(&s.netReq, netGen, "network", err, func() {
			s.network = settleStats(s.network, stats, err)
		})
	}()
	if withPayments {
		go func() {
			defer s.wg.Done()
			stats, err := s.src.PaymentStats(payCtx)
			s.settle(&s.payReq, payGen, "payments", err, func() {
				s.payments = settleStats(s.payments, stats, err)
			})
		}()
	}
}

func (s *Stats) settle(req *request, gen uint64, slot string, err error, apply func()) {
	s.mu.Lock()
	if gen != req.gen {
		s.mu.Unlock()
		metrics.FetchStaleDiscardsTotal.WithLabelValues("stats").Inc()
		s.logger.Debug("discarding stale stats response", "slot", slot, "generation", gen)
		return
	}
	apply()
	notify := s.onChange
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("stats unavailable", "slot", slot, "error", err)
	}
	if notify != nil {
		notify()
	}
}

func settleStats[T any](prev State[*T], data *T, err error) State[*T] {
	if err != nil || data == nil {
		return State[*T]{Phase: PhaseFailed, Outcome: OutcomeNoData, Data: prev.Data}
	}
	return State[*T]{Phase: PhaseSuccess, Outcome: OutcomeOK, Data: data}
}

// Network returns the network stats slot.
func (s *Stats) Network() State[*oracle.NetworkStats] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

// Payments returns the payment stats slot.
func (s *Stats) Payments() State[*oracle.PaymentStats] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments
}

// Wait blocks until every request started so far has settled or been discarded.
func (s *Stats) Wait() { s.wg.Wait() }

// Close cancels any in-flight request and discards its result.
func (s *Stats) Close() {
	s.mu.Lock()
	s.netReq.stop()
	s.payReq.stop()
	s.mu.Unlock()
}
