// Package circuitbreaker guards calls to the trust oracle, one circuit per
// upstream endpoint, with closed → open → half-open transitions.
package circuitbreaker

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal: requests flow through
	StateOpen                  // Tripped: requests are rejected
	StateHalfOpen              // Probing: one request allowed to test recovery
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trustboard",
	Subsystem: "upstream_breaker",
	Name:      "transitions_total",
	Help:      "Upstream circuit breaker state transitions by endpoint, from-state, and to-state.",
}, []string{"endpoint", "from_state", "to_state"})

func init() {
	prometheus.MustRegister(transitionsTotal)
}

type circuit struct {
	state       State
	failures    int
	lastFailure time.Time
}

// Breaker tracks consecutive failures per endpoint. After threshold
// failures the endpoint's circuit opens for cooldown, then lets a single
// trial call through.
type Breaker struct {
	mu        sync.Mutex
	circuits  map[string]*circuit
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// New creates a breaker. Non-positive arguments fall back to 5 failures
// and a 30s cooldown.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		circuits:  make(map[string]*circuit),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call to endpoint may proceed. An open circuit
// whose cooldown has elapsed moves to half-open and admits one trial call.
func (b *Breaker) Allow(endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[endpoint]
	if !ok {
		return true
	}

	switch c.state {
	case StateOpen:
		if b.now().Sub(c.lastFailure) >= b.cooldown {
			b.transition(c, endpoint, StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return false
	default:
		return true
	}
}

// RecordSuccess resets the failure count and closes a half-open circuit.
func (b *Breaker) RecordSuccess(endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[endpoint]
	if !ok {
		return
	}
	if c.state == StateHalfOpen {
		b.transition(c, endpoint, StateClosed)
	}
	c.failures = 0
}

// RecordFailure counts a failure and trips the circuit at the threshold.
// A failed half-open trial call reopens immediately.
func (b *Breaker) RecordFailure(endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[endpoint]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[endpoint] = c
	}

	c.failures++
	c.lastFailure = b.now()

	switch {
	case c.state == StateHalfOpen:
		b.transition(c, endpoint, StateOpen)
	case c.state == StateClosed && c.failures >= b.threshold:
		b.transition(c, endpoint, StateOpen)
	}
}

// Release hands back a half-open trial call that ended without a verdict, such
// as a canceled request. The circuit returns to open with its last failure
// time kept, so the next Allow admits a fresh trial call once the cooldown has
// elapsed. Other states are left alone.
func (b *Breaker) Release(endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.circuits[endpoint]; ok && c.state == StateHalfOpen {
		b.transition(c, endpoint, StateOpen)
	}
}

// State returns the state for an endpoint. Unknown endpoints are closed.
func (b *Breaker) State(endpoint string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.circuits[endpoint]; ok {
		return c.state
	}
	return StateClosed
}

// EndpointState is one row of Snapshot.
type EndpointState struct {
	Endpoint string `json:"endpoint"`
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// Snapshot lists every endpoint that has seen a failure, sorted by name.
func (b *Breaker) Snapshot() []EndpointState {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]EndpointState, 0, len(b.circuits))
	for endpoint, c := range b.circuits {
		out = append(out, EndpointState{Endpoint: endpoint, State: c.state.String(), Failures: c.failures})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

// caller must hold b.mu
func (b *Breaker) transition(c *circuit, endpoint string, to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	transitionsTotal.WithLabelValues(endpoint, from.String(), to.String()).Inc()
}
