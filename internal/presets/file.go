package presets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/unitprice/internal/units"
)

type fileDoc struct {
	Presets []filePreset `yaml:"presets"`
}

type filePreset struct {
	ID           string  `yaml:"id"`
	Title        string  `yaml:"title"`
	BaseQuantity float64 `yaml:"baseQuantity"`
	BaseUnit     string  `yaml:"baseUnit"`
	BasePrice    float64 `yaml:"basePrice"`
	DesiredValue float64 `yaml:"desiredValue"`
	DesiredUnit  string  `yaml:"desiredUnit"`
}

// Decode reads presets from YAML:
//
//	presets:
//	  - id: rice
//	    title: 5 kg chawal
//	    baseQuantity: 5
//	    baseUnit: kg
//	    basePrice: 320
//	    desiredValue: 750
//	    desiredUnit: g
//
// Units accept the same aliases as the calculator form. Unknown keys, unknown
// units, duplicate ids and non-positive base values are rejected.
func Decode(r io.Reader) ([]Preset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("presets: parse: %w", err)
	}

	seen := make(map[string]bool, len(doc.Presets))
	out := make([]Preset, 0, len(doc.Presets))
	for i, fp := range doc.Presets {
		p, err := fp.preset()
		if err != nil {
			return nil, fmt.Errorf("presets: entry %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("presets: entry %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, nil
}

// LoadFile reads and decodes a presets file.
func LoadFile(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("presets: read %s: %w", path, err)
	}
	return Decode(bytes.NewReader(data))
}

func (fp filePreset) preset() (Preset, error) {
	id := strings.ToLower(strings.TrimSpace(fp.ID))
	if id == "" {
		return Preset{}, errors.New("id is required")
	}
	base, err := units.Parse(fp.BaseUnit)
	if err != nil {
		return Preset{}, fmt.Errorf("base unit: %w", err)
	}
	if _, ok := units.CategoryOf(base); !ok {
		return Preset{}, fmt.Errorf("base unit %q must be a weight or count unit", fp.BaseUnit)
	}
	desired, err := units.Parse(fp.DesiredUnit)
	if err != nil {
		return Preset{}, fmt.Errorf("desired unit: %w", err)
	}
	if !positive(fp.BaseQuantity) || !positive(fp.BasePrice) {
		return Preset{}, errors.New("base quantity and price must be positive")
	}
	if fp.DesiredValue < 0 || math.IsNaN(fp.DesiredValue) || math.IsInf(fp.DesiredValue, 0) {
		return Preset{}, errors.New("desired value must not be negative")
	}
	title := strings.TrimSpace(fp.Title)
	if title == "" {
		title = id
	}
	return Preset{
		ID:           id,
		Title:        title,
		BaseQuantity: fp.BaseQuantity,
		BaseUnit:     base,
		BasePrice:    fp.BasePrice,
		DesiredValue: fp.DesiredValue,
		DesiredUnit:  desired,
	}, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
