package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit is returned when a unit string does not name a supported unit.
var ErrUnknownUnit = errors.New("units: unknown unit")

// Unit identifies a supported measurement or money unit.
type Unit string

const (
	Kilogram Unit = "kilogram"
	Gram     Unit = "gram"
	Piece    Unit = "piece"
	Dozen    Unit = "dozen"
	Currency Unit = "currency"
)

// Category groups units that convert directly into each other.
type Category string

const (
	Weight Category = "weight"
	Count  Category = "count"
)

const (
	gramsPerKilogram = 1000
	piecesPerDozen   = 12
)

var aliases = map[string]Unit{
	"kilogram":  Kilogram,
	"kilograms": Kilogram,
	"kg":        Kilogram,
	"gram":      Gram,
	"grams":     Gram,
	"g":         Gram,
	"piece":     Piece,
	"pieces":    Piece,
	"pcs":       Piece,
	"pc":        Piece,
	"dozen":     Dozen,
	"dozens":    Dozen,
	"dz":        Dozen,
	"currency":  Currency,
	"rupee":     Currency,
	"rupees":    Currency,
	"inr":       Currency,
	"rs":        Currency,
	"₹":         Currency,
}

// Parse resolves a user supplied unit name, including the short forms used by
// the calculator form (kg, g, pcs, rupee).
func Parse(raw string) (Unit, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if u, ok := aliases[key]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, raw)
}

// Resolve is Parse without the error. Unknown names come back lowercased so
// callers can still report them against the field they came from.
func Resolve(raw string) Unit {
	if u, err := Parse(raw); err == nil {
		return u
	}
	return Unit(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	switch u {
	case Kilogram, Gram, Piece, Dozen, Currency:
		return true
	default:
		return false
	}
}

// Symbol returns the short label shown next to amounts.
func (u Unit) Symbol() string {
	switch u {
	case Kilogram:
		return "kg"
	case Gram:
		return "g"
	case Piece:
		return "piece"
	case Dozen:
		return "dozen"
	case Currency:
		return "₹"
	default:
		return string(u)
	}
}

// CategoryOf returns the category of u. Currency and unknown units have none.
func CategoryOf(u Unit) (Category, bool) {
	switch u {
	case Kilogram, Gram:
		return Weight, true
	case Piece, Dozen:
		return Count, true
	default:
		return "", false
	}
}

// ToCanonicalWeight converts q to grams. ok is false when unit is not a weight unit.
func ToCanonicalWeight(q float64, unit Unit) (grams float64, ok bool) {
	switch unit {
	case Kilogram:
		return q * gramsPerKilogram, true
	case Gram:
		return q, true
	default:
		return 0, false
	}
}

// ToCanonicalCount converts q to pieces. ok is false when unit is not a count unit.
func ToCanonicalCount(q float64, unit Unit) (pieces float64, ok bool) {
	switch unit {
	case Piece:
		return q, true
	case Dozen:
		return q * piecesPerDozen, true
	default:
		return 0, false
	}
}

// ToCanonical converts q into the canonical unit of category c.
func ToCanonical(c Category, q float64, unit Unit) (float64, bool) {
	switch c {
	case Weight:
		return ToCanonicalWeight(q, unit)
	case Count:
		return ToCanonicalCount(q, unit)
	default:
		return 0, false
	}
}

// Canonical returns the finest grained unit of c.
func Canonical(c Category) Unit {
	if c == Weight {
		return Gram
	}
	return Piece
}

// Alternate returns the coarser unit shown alongside canonical amounts and
// how many canonical units make one of it.
func Alternate(c Category) (Unit, float64) {
	if c == Weight {
		return Kilogram, gramsPerKilogram
	}
	return Dozen, piecesPerDozen
}

// Descriptor describes a supported unit for API consumers.
type Descriptor struct {
	Unit      Unit     `json:"unit"`
	Symbol    string   `json:"symbol"`
	Category  Category `json:"category,omitempty"`
	Canonical bool     `json:"canonical"`
	Factor    float64  `json:"factor,omitempty"`
}

// Supported lists every unit with its category and factor to canonical.
func Supported() []Descriptor {
	return []Descriptor{
		{Unit: Gram, Symbol: Gram.Symbol(), Category: Weight, Canonical: true, Factor: 1},
		{Unit: Kilogram, Symbol: Kilogram.Symbol(), Category: Weight, Factor: gramsPerKilogram},
		{Unit: Piece, Symbol: Piece.Symbol(), Category: Count, Canonical: true, Factor: 1},
		{Unit: Dozen, Symbol: Dozen.Symbol(), Category: Count, Factor: piecesPerDozen},
		{Unit: Currency, Symbol: Currency.Symbol()},
	}
}
