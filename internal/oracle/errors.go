package oracle

import (
	"errors"
	"fmt"

	"github.com/mbd888/trustboard/pkg/x402"
)

var (
	// ErrPaymentRequired is matched by every 402 response.
	ErrPaymentRequired = errors.New("oracle: payment required")

	// ErrCircuitOpen means the call was skipped because the endpoint's breaker is open.
	ErrCircuitOpen = errors.New("oracle: circuit open")

	// ErrMalformed means the body looked like the expected shape but failed to decode.
	ErrMalformed = errors.New("oracle: malformed response")
)

// PaymentRequiredError carries the advisory x402 terms of a 402 response.
// Terms is nil when the response carried no parseable requirement.
type PaymentRequiredError struct {
	Endpoint string
	Terms    *x402.Terms
}

func (e *PaymentRequiredError) Error() string {
	if e.Terms != nil && e.Terms.PriceUSD != "" {
		return fmt.Sprintf("oracle: payment required for %s ($%s on %s)", e.Endpoint, e.Terms.PriceUSD, e.Terms.NetworkName)
	}
	return fmt.Sprintf("oracle: payment required for %s", e.Endpoint)
}

func (e *PaymentRequiredError) Unwrap() error { return ErrPaymentRequired }

// StatusError is a non-ok, non-402 response.
type StatusError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("oracle: %s returned %d: %s", e.Endpoint, e.Code, e.Message)
	}
	return fmt.Sprintf("oracle: %s returned %d", e.Endpoint, e.Code)
}

// Temporary reports whether the status indicates an upstream fault.
func (e *StatusError) Temporary() bool { return e.Code >= 500 }
