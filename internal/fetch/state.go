// Package fetch orchestrates the dashboard's oracle requests: one slot per
// fetcher, loading/settled transitions, stale-response discarding and the
// filter selection that drives the listing.
package fetch

import (
	"github.com/mbd888/trustboard/pkg/x402"
)

// Phase is where a fetcher's slot is in its request cycle.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseLoading         Phase = "loading"
	PhaseSuccess         Phase = "success"
	PhasePaymentRequired Phase = "payment_required"
	PhaseFailed          Phase = "failed"
)

// Settled reports whether the phase is terminal for the current request.
func (p Phase) Settled() bool {
	return p == PhaseSuccess || p == PhasePaymentRequired || p == PhaseFailed
}

// Outcome classifies a settled request for rendering.
type Outcome string

const (
	OutcomeNone            Outcome = ""
	OutcomeOK              Outcome = "ok"
	OutcomeNoData          Outcome = "no_data"
	OutcomePaymentRequired Outcome = "payment_required"
	OutcomeFetchFailed     Outcome = "fetch_failed"
	OutcomeEmptyResult     Outcome = "empty_result"
)

// Fixed user-facing messages.
const (
	PaymentRequiredMessage = "This endpoint requires an x402 micropayment. Connect an x402-compatible client to view premium listings."
	FailedMessage          = "Failed to load agents. Please try again."
)

// State is a fetcher slot. Data is the last accepted payload.
type State[T any] struct {
	Phase    Phase       `json:"phase"`
	Outcome  Outcome     `json:"outcome,omitempty"`
	Data     T           `json:"data"`
	Message  string      `json:"message,omitempty"`
	Advisory *x402.Terms `json:"advisory,omitempty"`
}

// Loading reports whether a request is in flight.
func (s State[T]) Loading() bool { return s.Phase == PhaseLoading }
