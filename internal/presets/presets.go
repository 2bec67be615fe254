package presets

import (
	"errors"
	"strings"
	"sync"

	"github.com/noah-isme/unitprice/internal/pricing"
	"github.com/noah-isme/unitprice/internal/units"
)

// ErrNotFound is returned when no preset exists for the requested id.
var ErrNotFound = errors.New("presets: not found")

// Preset is a named, ready-to-run calculator scenario.
type Preset struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	BaseQuantity float64    `json:"baseQuantity"`
	BaseUnit     units.Unit `json:"baseUnit"`
	BasePrice    float64    `json:"basePrice"`
	DesiredValue float64    `json:"desiredValue,omitempty"`
	DesiredUnit  units.Unit `json:"desiredUnit"`
}

var builtin = []Preset{
	{
		ID:           "example1",
		Title:        "1 kg = ₹42, 50 g kitne ka?",
		BaseQuantity: 1,
		BaseUnit:     units.Kilogram,
		BasePrice:    42,
		DesiredValue: 50,
		DesiredUnit:  units.Gram,
	},
	{
		ID:           "example2",
		Title:        "12 dozen = ₹60, ₹20 mein kitne?",
		BaseQuantity: 12,
		BaseUnit:     units.Dozen,
		BasePrice:    60,
		DesiredValue: 20,
		DesiredUnit:  units.Currency,
	},
}

// List returns the built-in presets in display order.
func List() []Preset {
	out := make([]Preset, len(builtin))
	copy(out, builtin)
	return out
}

// Get looks up a built-in preset by id, case-insensitively.
func Get(id string) (Preset, error) {
	return find(builtin, id)
}

func find(items []Preset, id string) (Preset, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range items {
		if p.ID == id {
			return p, nil
		}
	}
	return Preset{}, ErrNotFound
}

// Catalog is a replaceable preset set, safe for concurrent use. It starts
// with the built-ins; Replace layers extra presets over them.
type Catalog struct {
	mu    sync.RWMutex
	items []Preset
}

// NewCatalog returns a catalog holding the built-ins plus extra.
func NewCatalog(extra ...Preset) *Catalog {
	c := &Catalog{}
	c.Replace(extra)
	return c
}

// Replace swaps the non built-in presets. An extra preset with a built-in id
// overrides the built-in.
func (c *Catalog) Replace(extra []Preset) {
	items := List()
	for _, p := range extra {
		p.ID = strings.ToLower(strings.TrimSpace(p.ID))
		replaced := false
		for i := range items {
			if items[i].ID == p.ID {
				items[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			items = append(items, p)
		}
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

// List returns the presets in display order.
func (c *Catalog) List() []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Preset, len(c.items))
	copy(out, c.items)
	return out
}

// Get looks up a preset by id, case-insensitively.
func (c *Catalog) Get(id string) (Preset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return find(c.items, id)
}

// Defaults returns the values a form starts with after a reset. It carries
// no desired value, so calculating it as-is yields invalid desired input.
func Defaults() Preset {
	return Preset{
		ID:           "reset",
		Title:        "Reset",
		BaseQuantity: 1,
		BaseUnit:     units.Kilogram,
		BasePrice:    100,
		DesiredUnit:  units.Gram,
	}
}

// Input converts the preset into a calculation request.
func (p Preset) Input() pricing.Input {
	return pricing.Input{
		BaseQuantity: p.BaseQuantity,
		BaseUnit:     p.BaseUnit,
		BasePrice:    p.BasePrice,
		DesiredValue: p.DesiredValue,
		DesiredUnit:  p.DesiredUnit,
	}
}
