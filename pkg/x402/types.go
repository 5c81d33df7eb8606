// Package x402 recognises x402 "payment required" responses and extracts
// the payment terms for display. It never performs a payment.
package x402

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// USDCDecimals is the number of decimals of the USDC asset quoted by x402 servers.
const USDCDecimals = 6

// HeaderPaymentRequired carries a base64 JSON PaymentRequired document (x402 v2).
const HeaderPaymentRequired = "Payment-Required"

// ErrNoRequirement is returned when a 402 carries no parseable payment terms.
var ErrNoRequirement = errors.New("x402: no payment requirement in response")

// Requirement is one entry of the "accepts" list of a 402 response.
type Requirement struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	MaxAmountRequired string `json:"maxAmountRequired,omitempty"` // atomic units (v1)
	Amount            string `json:"amount,omitempty"`            // atomic units (v2)
	Price             string `json:"price,omitempty"`             // "$0.01" style (v2 route config)
	Resource          string `json:"resource,omitempty"`
	Description       string `json:"description,omitempty"`
	MimeType          string `json:"mimeType,omitempty"`
	PayTo             string `json:"payTo"`
	Asset             string `json:"asset,omitempty"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds,omitempty"`
}

// PaymentRequired is the body of a 402 response.
type PaymentRequired struct {
	Version int           `json:"x402Version"`
	Error   string        `json:"error,omitempty"`
	Accepts []Requirement `json:"accepts"`
}

// Terms is the display form of the first acceptable requirement.
type Terms struct {
	Scheme      string `json:"scheme,omitempty"`
	Network     string `json:"network,omitempty"`
	NetworkName string `json:"networkName,omitempty"`
	PriceUSD    string `json:"priceUsd,omitempty"`
	PayTo       string `json:"payTo,omitempty"`
	Description string `json:"description,omitempty"`
}

// networkNames maps CAIP-2 ids and legacy x402 network names to labels.
var networkNames = map[string]string{
	"eip155:8453":  "Base",
	"eip155:84532": "Base Sepolia",
	"eip155:1":     "Ethereum",
	"eip155:137":   "Polygon",
	"base":         "Base",
	"base-sepolia": "Base Sepolia",
	"ethereum":     "Ethereum",
	"polygon":      "Polygon",
}

// Is402Response checks if an HTTP response is a 402 Payment Required
func Is402Response(resp *http.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusPaymentRequired
}

// ParseResponse extracts payment terms from a 402 response. The header form
// wins over the body; body is the already-read response body.
func ParseResponse(resp *http.Response, body []byte) (*Terms, error) {
	if !Is402Response(resp) {
		code := 0
		if resp != nil {
			code = resp.StatusCode
		}
		return nil, fmt.Errorf("not a 402 response: got %d", code)
	}

	if h := resp.Header.Get(HeaderPaymentRequired); h != "" {
		raw, err := base64.StdEncoding.DecodeString(h)
		if err == nil {
			if terms, err := ParseBody(raw); err == nil {
				return terms, nil
			}
		}
	}
	return ParseBody(body)
}

// ParseBody parses a PaymentRequired JSON document.
func ParseBody(body []byte) (*Terms, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrNoRequirement
	}

	var doc PaymentRequired
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse payment requirement: %w", err)
	}
	if len(doc.Accepts) == 0 {
		return nil, ErrNoRequirement
	}
	return doc.Accepts[0].Terms(), nil
}

// Terms converts a requirement into its display form.
func (r Requirement) Terms() *Terms {
	t := &Terms{
		Scheme:      r.Scheme,
		Network:     r.Network,
		NetworkName: NetworkName(r.Network),
		Description: r.Description,
	}

	switch {
	case r.Price != "":
		t.PriceUSD = strings.TrimPrefix(strings.TrimSpace(r.Price), "$")
	case r.Amount != "":
		t.PriceUSD = FormatUSDC(r.Amount)
	case r.MaxAmountRequired != "":
		t.PriceUSD = FormatUSDC(r.MaxAmountRequired)
	}

	if common.IsHexAddress(r.PayTo) {
		t.PayTo = common.HexToAddress(r.PayTo).Hex()
	}
	return t
}

// NetworkName returns a label for a network id, or the id itself.
func NetworkName(network string) string {
	if name, ok := networkNames[strings.ToLower(network)]; ok {
		return name
	}
	return network
}

// FormatUSDC converts an atomic USDC amount ("10000") to a decimal string
// ("0.01"). Unparseable input is returned unchanged.
func FormatUSDC(atomic string) string {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(atomic), 10)
	if !ok || amount.Sign() < 0 {
		return atomic
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(USDCDecimals), nil)
	whole := new(big.Int).Div(amount, divisor)
	remainder := new(big.Int).Mod(amount, divisor)
	if remainder.Sign() == 0 {
		return whole.String()
	}

	frac := strings.TrimRight(fmt.Sprintf("%06d", remainder.Int64()), "0")
	return whole.String() + "." + frac
}
