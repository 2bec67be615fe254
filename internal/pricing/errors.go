package pricing

import "errors"

var (
	// ErrInvalidBaseInput is returned when the base quantity or price is missing, non-numeric or not positive.
	ErrInvalidBaseInput = errors.New("invalid base input")
	// ErrInvalidDesiredInput is returned when the desired amount or quantity is missing, non-numeric or not positive.
	ErrInvalidDesiredInput = errors.New("invalid desired input")
	// ErrUnitConversion indicates the desired unit cannot be converted within the base category.
	ErrUnitConversion = errors.New("unit conversion error")
	// ErrIncompatibleCategories indicates base and desired units belong to different categories.
	ErrIncompatibleCategories = errors.New("incompatible unit categories")
)

// Error codes exposed to API clients.
const (
	CodeInvalidBaseInput       = "INVALID_BASE_INPUT"
	CodeInvalidDesiredInput    = "INVALID_DESIRED_INPUT"
	CodeUnitConversion         = "UNIT_CONVERSION_ERROR"
	CodeIncompatibleCategories = "INCOMPATIBLE_CATEGORIES"
)

// Code maps a calculation error to its API error code. Unknown errors map to "".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidBaseInput):
		return CodeInvalidBaseInput
	case errors.Is(err, ErrInvalidDesiredInput):
		return CodeInvalidDesiredInput
	case errors.Is(err, ErrUnitConversion):
		return CodeUnitConversion
	case errors.Is(err, ErrIncompatibleCategories):
		return CodeIncompatibleCategories
	default:
		return ""
	}
}
