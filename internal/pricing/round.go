package pricing

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// RoundSmart rounds x for display with precision that grows as the magnitude
// shrinks: 4 places below 0.01, 3 below 1, otherwise 2. The decision is made
// on the exact binary value, and an exact tie rounds away from zero, so 1.125
// gives 1.13 while 1.005 (stored just below) gives 1. NaN and ±Inf are
// returned unchanged.
func RoundSmart(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	a := math.Abs(x)
	places := 2
	switch {
	case a < 0.01:
		places = 4
	case a < 1:
		places = 3
	}
	s := strconv.FormatFloat(x, 'f', places, 64)
	if whole, ok := exactTie(x, places); ok {
		s = decimalString(whole, places)
	}
	rounded, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return x
	}
	return rounded
}

// exactTie reports whether x*10^places lies exactly halfway between two
// integers. If so it returns the integer away from zero.
func exactTie(x float64, places int) (*big.Int, bool) {
	const prec = 256
	scale := new(big.Float).SetPrec(prec).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil))
	scaled := new(big.Float).SetPrec(prec).Mul(new(big.Float).SetPrec(prec).SetFloat64(x), scale)
	whole, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(prec).Sub(scaled, new(big.Float).SetPrec(prec).SetInt(whole))
	if frac.Abs(frac).Cmp(big.NewFloat(0.5)) != 0 {
		return nil, false
	}
	if x < 0 {
		whole.Sub(whole, big.NewInt(1))
	} else {
		whole.Add(whole, big.NewInt(1))
	}
	return whole, true
}

func decimalString(n *big.Int, places int) string {
	digits := new(big.Int).Abs(n).String()
	if len(digits) <= places {
		digits = strings.Repeat("0", places-len(digits)+1) + digits
	}
	out := digits[:len(digits)-places] + "." + digits[len(digits)-places:]
	if n.Sign() < 0 {
		out = "-" + out
	}
	return out
}
