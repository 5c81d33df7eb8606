// Package health provides a registry of named dependency checks for the
// readiness endpoint.
package health

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mbd888/trustboard/internal/circuitbreaker"
)

// Status represents the health of a single subsystem.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker is a function that checks the health of a subsystem.
type Checker func(ctx context.Context) Status

// Report is the aggregate result served by /health/ready.
type Report struct {
	Status    string    `json:"status"` // "ok" or "degraded"
	CheckedAt time.Time `json:"checked_at"`
	Checks    []Status  `json:"checks"`
}

// Registry holds named health checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers []namedChecker
}

type namedChecker struct {
	name  string
	check Checker
}

// NewRegistry creates a new health check registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named health checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll runs all registered checkers and returns the aggregate health
// status plus individual subsystem results.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	healthy = true
	statuses = make([]Status, len(checkers))

	for i, nc := range checkers {
		statuses[i] = nc.check(ctx)
		if statuses[i].Name == "" {
			statuses[i].Name = nc.name
		}
		if !statuses[i].Healthy {
			healthy = false
		}
	}

	return healthy, statuses
}

// Report runs every checker and wraps the result.
func (r *Registry) Report(ctx context.Context) Report {
	healthy, statuses := r.CheckAll(ctx)
	status := "ok"
	if !healthy {
		status = "degraded"
	}
	return Report{Status: status, CheckedAt: time.Now().UTC(), Checks: statuses}
}

// BreakerCheck reports the oracle unhealthy while any endpoint circuit is
// open. Half-open circuits count as healthy since a trial call is in flight.
func BreakerCheck(name string, b *circuitbreaker.Breaker) Checker {
	return func(_ context.Context) Status {
		var open []string
		for _, ep := range b.Snapshot() {
			if ep.State == circuitbreaker.StateOpen.String() {
				open = append(open, ep.Endpoint)
			}
		}
		if len(open) == 0 {
			return Status{Name: name, Healthy: true}
		}
		return Status{Name: name, Healthy: false, Detail: fmt.Sprintf("circuit open: %s", strings.Join(open, ", "))}
	}
}

// PingCheck wraps a ping function such as (*sql.DB).PingContext.
func PingCheck(name string, ping func(context.Context) error) Checker {
	return func(ctx context.Context) Status {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			return Status{Name: name, Healthy: false, Detail: err.Error()}
		}
		return Status{Name: name, Healthy: true}
	}
}
