package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/noah-isme/unitprice/internal/pricing"
	"github.com/noah-isme/unitprice/internal/units"
)

// Format selects how a result is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for formats other than text, html and json.
var ErrUnknownFormat = errors.New("render: unknown format")

// ParseFormat resolves a format name. Blank input yields fallback.
func ParseFormat(value string, fallback Format) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return fallback, nil
	case FormatText:
		return FormatText, nil
	case FormatHTML:
		return FormatHTML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, value)
	}
}

// Level classifies a message for styling.
type Level string

const (
	LevelResult  Level = "result"
	LevelDanger  Level = "danger"
	LevelWarning Level = "warning"
)

// Output is a rendered message ready for display.
type Output struct {
	Format   Format `json:"format"`
	Level    Level  `json:"level"`
	Headline string `json:"headline,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Note     string `json:"note,omitempty"`
	Body     string `json:"body"`
}

var printer = message.NewPrinter(language.MustParse("en-IN"))

var (
	resultTmpl = template.Must(template.New("result").Parse(
		`<strong>{{.Headline}}</strong>{{if .Break}} <br>{{end}} {{.Detail}}`))
	errorTmpl = template.Must(template.New("error").Parse(
		`<div class="text-{{.Level}}">{{.Message}}</div>`))
)

// Result renders a successful calculation. Numbers are rounded with
// pricing.RoundSmart before formatting; echoed inputs are shown as given.
func Result(res pricing.Result, format Format) (Output, error) {
	rounded := res.Rounded()
	out := Output{Format: format, Level: LevelResult}
	breakLine := false

	switch res.Kind {
	case pricing.KindQuantity:
		if rounded.Quantity == nil {
			return Output{}, errors.New("render: quantity result without quantity")
		}
		q := rounded.Quantity
		out.Headline = fmt.Sprintf("₹ %s mein aapko:", Number(pricing.RoundSmart(res.Input.DesiredValue)))
		out.Detail = fmt.Sprintf("%s %s (%s %s)", Number(q.CanonicalAmount), q.CanonicalUnit.Symbol(), Number(q.AlternateAmount), q.AlternateUnit.Symbol())
		breakLine = true
	case pricing.KindPrice:
		if rounded.Price == nil {
			return Output{}, errors.New("render: price result without price")
		}
		out.Headline = fmt.Sprintf("%s %s ka daam:", echo(res.Input.DesiredValue), res.Input.DesiredUnit.Symbol())
		out.Detail = fmt.Sprintf("₹ %s", Number(rounded.Price.Amount))
		out.Note = fmt.Sprintf("Base: %s %s = ₹ %s. (₹ %s per %s)",
			echo(res.Input.BaseQuantity), res.Input.BaseUnit.Symbol(), echo(res.Input.BasePrice),
			Number(rounded.UnitPrice), units.Canonical(res.Category).Symbol())
	default:
		return Output{}, fmt.Errorf("render: unknown result kind %q", res.Kind)
	}

	body, err := renderBody(out, format, breakLine)
	if err != nil {
		return Output{}, err
	}
	out.Body = body
	return out, nil
}

// Error renders the user-facing message for a calculation error. desired is
// the unit the caller asked for; it picks between the money and quantity
// wording of invalid desired input.
func Error(calcErr error, desired units.Unit, format Format) (Output, error) {
	out := Output{Format: format, Level: LevelDanger, Headline: Message(calcErr, desired)}
	if errors.Is(calcErr, pricing.ErrIncompatibleCategories) {
		out.Level = LevelWarning
	}
	body, err := renderBody(out, format, false)
	if err != nil {
		return Output{}, err
	}
	out.Body = body
	return out, nil
}

// Message returns the display sentence for a calculation error.
func Message(err error, desired units.Unit) string {
	switch {
	case errors.Is(err, pricing.ErrInvalidBaseInput):
		return "Base quantity aur price sahi daalein."
	case errors.Is(err, pricing.ErrInvalidDesiredInput):
		if desired == units.Currency {
			return "Valid rupee amount daaliye."
		}
		return "Valid desired quantity daaliye."
	case errors.Is(err, pricing.ErrUnitConversion):
		return "Desired unit conversion error."
	case errors.Is(err, pricing.ErrIncompatibleCategories):
		return "Base unit aur desired unit alag prakaar ke hain (weight vs count). Is conversion ke liye extra info chahiye (jaise 1 piece ka wajan)."
	default:
		return "Kuch gadbad ho gayi, dobara koshish karein."
	}
}

func renderBody(out Output, format Format, breakLine bool) (string, error) {
	switch format {
	case FormatText, "":
		lines := []string{out.Headline}
		if out.Detail != "" {
			if breakLine {
				lines = append(lines, out.Detail)
			} else {
				lines[0] = out.Headline + " " + out.Detail
			}
		}
		if out.Note != "" {
			lines = append(lines, out.Note)
		}
		return strings.Join(lines, "\n"), nil
	case FormatHTML:
		var buf bytes.Buffer
		var err error
		if out.Level == LevelResult {
			err = resultTmpl.Execute(&buf, map[string]any{"Headline": out.Headline, "Detail": out.Detail, "Break": breakLine})
		} else {
			err = errorTmpl.Execute(&buf, map[string]any{"Level": string(out.Level), "Message": out.Headline})
		}
		if err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
		return buf.String(), nil
	case FormatJSON:
		data, err := json.Marshal(map[string]string{
			"level":    string(out.Level),
			"headline": out.Headline,
			"detail":   out.Detail,
			"note":     out.Note,
		})
		if err != nil {
			return "", fmt.Errorf("render json: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Number formats an already rounded value with Indian digit grouping.
func Number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(4)))
}

// echo prints a user-supplied value as entered: no grouping, no rounding.
func echo(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
