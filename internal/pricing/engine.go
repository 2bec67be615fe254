package pricing

import (
	"fmt"
	"math"

	"github.com/noah-isme/unitprice/internal/units"
)

// Kind tags which query a Result answers.
type Kind string

const (
	// KindQuantity answers "how much do I get for this amount of money".
	KindQuantity Kind = "quantity"
	// KindPrice answers "what does this quantity cost".
	KindPrice Kind = "price"
)

// Input carries one calculation request. Values are already parsed numbers.
type Input struct {
	BaseQuantity float64    `json:"baseQuantity"`
	BaseUnit     units.Unit `json:"baseUnit"`
	BasePrice    float64    `json:"basePrice"`
	DesiredValue float64    `json:"desiredValue"`
	DesiredUnit  units.Unit `json:"desiredUnit"`
}

// Quantity is the answer to a currency query.
type Quantity struct {
	CanonicalAmount float64    `json:"canonicalAmount"`
	CanonicalUnit   units.Unit `json:"canonicalUnit"`
	AlternateAmount float64    `json:"alternateAmount"`
	AlternateUnit   units.Unit `json:"alternateUnit"`
}

// Price is the answer to a quantity query.
type Price struct {
	Amount float64 `json:"amount"`
}

// Result is the tagged outcome of a successful calculation. Exactly one of
// Quantity or Price is set, matching Kind.
type Result struct {
	Kind      Kind           `json:"kind"`
	Category  units.Category `json:"category"`
	UnitPrice float64        `json:"unitPrice"`
	Quantity  *Quantity      `json:"quantity,omitempty"`
	Price     *Price         `json:"price,omitempty"`
	Input     Input          `json:"input"`
}

// Calculate derives the unit price from the base inputs and answers the
// query described by the desired value and unit.
func Calculate(in Input) (Result, error) {
	if !positive(in.BaseQuantity) || !positive(in.BasePrice) {
		return Result{}, fmt.Errorf("%w: base quantity and price must be positive numbers", ErrInvalidBaseInput)
	}
	category, ok := units.CategoryOf(in.BaseUnit)
	if !ok {
		return Result{}, fmt.Errorf("%w: base unit %q is not a weight or count unit", ErrInvalidBaseInput, in.BaseUnit)
	}
	unitPrice, err := UnitPrice(in.BaseQuantity, in.BaseUnit, in.BasePrice)
	if err != nil {
		return Result{}, err
	}

	res := Result{Category: category, UnitPrice: unitPrice, Input: in}

	if in.DesiredUnit == units.Currency {
		if !positive(in.DesiredValue) {
			return Result{}, fmt.Errorf("%w: amount must be a positive number", ErrInvalidDesiredInput)
		}
		canonical := in.DesiredValue / unitPrice
		if !finite(canonical) {
			return Result{}, fmt.Errorf("%w: amount is too large", ErrInvalidDesiredInput)
		}
		alt, factor := units.Alternate(category)
		res.Kind = KindQuantity
		res.Quantity = &Quantity{
			CanonicalAmount: canonical,
			CanonicalUnit:   units.Canonical(category),
			AlternateAmount: canonical / factor,
			AlternateUnit:   alt,
		}
		return res, nil
	}

	desiredCategory, ok := units.CategoryOf(in.DesiredUnit)
	if ok && desiredCategory != category {
		return Result{}, fmt.Errorf("%w: %s base cannot price a %s quantity", ErrIncompatibleCategories, category, desiredCategory)
	}
	if !positive(in.DesiredValue) {
		return Result{}, fmt.Errorf("%w: quantity must be a positive number", ErrInvalidDesiredInput)
	}
	canonical, ok := units.ToCanonical(category, in.DesiredValue, in.DesiredUnit)
	if !ok {
		return Result{}, fmt.Errorf("%w: cannot convert %q to %s", ErrUnitConversion, in.DesiredUnit, units.Canonical(category))
	}
	price := canonical * unitPrice
	if !finite(price) {
		return Result{}, fmt.Errorf("%w: quantity is too large", ErrInvalidDesiredInput)
	}
	res.Kind = KindPrice
	res.Price = &Price{Amount: price}
	return res, nil
}

// UnitPrice returns the price of one canonical unit (per gram or per piece).
func UnitPrice(baseQty float64, baseUnit units.Unit, basePrice float64) (float64, error) {
	if !positive(baseQty) || !positive(basePrice) {
		return 0, fmt.Errorf("%w: base quantity and price must be positive numbers", ErrInvalidBaseInput)
	}
	category, ok := units.CategoryOf(baseUnit)
	if !ok {
		return 0, fmt.Errorf("%w: base unit %q is not a weight or count unit", ErrInvalidBaseInput, baseUnit)
	}
	canonical, ok := units.ToCanonical(category, baseQty, baseUnit)
	if !ok || !positive(canonical) {
		return 0, fmt.Errorf("%w: base quantity overflows", ErrInvalidBaseInput)
	}
	unitPrice := basePrice / canonical
	if !positive(unitPrice) {
		return 0, fmt.Errorf("%w: price per %s underflows", ErrInvalidBaseInput, units.Canonical(category))
	}
	return unitPrice, nil
}

// Rounded returns a copy of r with every displayed number passed through
// RoundSmart. The echoed input is left untouched.
func (r Result) Rounded() Result {
	out := r
	out.UnitPrice = RoundSmart(r.UnitPrice)
	if r.Quantity != nil {
		q := *r.Quantity
		q.CanonicalAmount = RoundSmart(q.CanonicalAmount)
		q.AlternateAmount = RoundSmart(q.AlternateAmount)
		out.Quantity = &q
	}
	if r.Price != nil {
		out.Price = &Price{Amount: RoundSmart(r.Price.Amount)}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return finite(v) && v > 0
}
