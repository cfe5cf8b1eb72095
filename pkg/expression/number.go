package expression

import (
	"strconv"
)

// Unit suffixes accepted after numeric constants. K, M, G and T are powers of
// 1024; the rest are time units in seconds.
var suffixMultipliers = map[byte]float64{
	'K': 1024,
	'M': 1024 * 1024,
	'G': 1024 * 1024 * 1024,
	'T': 1024 * 1024 * 1024 * 1024,
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 604800,
}

func isSuffix(c byte) bool {
	_, ok := suffixMultipliers[c]
	return ok
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ConvertSuffix converts a numeric constant such as "5m", "-1.5K" or "10" to
// its plain value.
func ConvertSuffix(s string) (float64, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}

	mult := 1.0
	if m, ok := suffixMultipliers[s[len(s)-1]]; ok {
		mult = m
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v * mult, nil
}

// FormatNumber renders a float the way values are substituted into
// expressions: plain decimal text without exponent.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
