package common

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses a form field as a float. Blank input parses as NaN so
// callers can treat "missing" and "not a number" the same way.
func ParseNumber(value string) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return math.NaN()
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}
