package derive

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatCount renders an integer with thousands separators, or the
// placeholder for nil.
func FormatCount(n *int) string {
	if n == nil {
		return Placeholder
	}
	return groupThousands(strconv.Itoa(*n))
}

// FormatScore renders a score with one decimal, or the placeholder for nil.
func FormatScore(score *float64) string {
	if score == nil {
		return Placeholder
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}

// FormatUSD renders a dollar amount, or the placeholder for nil.
func FormatUSD(amount *float64) string {
	if amount == nil {
		return Placeholder
	}
	s := fmt.Sprintf("%.2f", *amount)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

// FormatPct renders a percentage with at most one decimal.
func FormatPct(p float64) string {
	s := strconv.FormatFloat(p, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0") + "%"
}

func groupThousands(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}
