package units

import (
	"errors"
	"testing"
)

func TestParseAliases(t *testing.T) {
	cases := map[string]Unit{
		"kg":       Kilogram,
		" KG ":     Kilogram,
		"g":        Gram,
		"pcs":      Piece,
		"piece":    Piece,
		"Dozen":    Dozen,
		"rupee":    Currency,
		"₹":        Currency,
		"grams":    Gram,
		"currency": Currency,
	}
	for raw, want := range cases {
		got, err := Parse(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", raw, want, got)
		}
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "litre", "box", "ounce"} {
		if _, err := Parse(raw); !errors.Is(err, ErrUnknownUnit) {
			t.Fatalf("expected ErrUnknownUnit for %q, got %v", raw, err)
		}
	}
}

func TestCategoryOf(t *testing.T) {
	if c, ok := CategoryOf(Kilogram); !ok || c != Weight {
		t.Fatalf("kilogram: got %q %v", c, ok)
	}
	if c, ok := CategoryOf(Gram); !ok || c != Weight {
		t.Fatalf("gram: got %q %v", c, ok)
	}
	if c, ok := CategoryOf(Piece); !ok || c != Count {
		t.Fatalf("piece: got %q %v", c, ok)
	}
	if c, ok := CategoryOf(Dozen); !ok || c != Count {
		t.Fatalf("dozen: got %q %v", c, ok)
	}
	if _, ok := CategoryOf(Currency); ok {
		t.Fatal("currency must not have a category")
	}
	if _, ok := CategoryOf(Unit("litre")); ok {
		t.Fatal("unknown unit must not have a category")
	}
}

func TestToCanonicalWeight(t *testing.T) {
	if g, ok := ToCanonicalWeight(1.5, Kilogram); !ok || g != 1500 {
		t.Fatalf("expected 1500 g, got %v %v", g, ok)
	}
	if g, ok := ToCanonicalWeight(250, Gram); !ok || g != 250 {
		t.Fatalf("expected 250 g, got %v %v", g, ok)
	}
	if _, ok := ToCanonicalWeight(1, Dozen); ok {
		t.Fatal("dozen must not convert to grams")
	}
}

func TestToCanonicalCount(t *testing.T) {
	if p, ok := ToCanonicalCount(12, Dozen); !ok || p != 144 {
		t.Fatalf("expected 144 pieces, got %v %v", p, ok)
	}
	if p, ok := ToCanonicalCount(7, Piece); !ok || p != 7 {
		t.Fatalf("expected 7 pieces, got %v %v", p, ok)
	}
	if _, ok := ToCanonicalCount(1, Kilogram); ok {
		t.Fatal("kilogram must not convert to pieces")
	}
}

func TestAlternate(t *testing.T) {
	u, f := Alternate(Weight)
	if u != Kilogram || f != 1000 {
		t.Fatalf("unexpected weight alternate %s %v", u, f)
	}
	u, f = Alternate(Count)
	if u != Dozen || f != 12 {
		t.Fatalf("unexpected count alternate %s %v", u, f)
	}
	if Canonical(Weight) != Gram || Canonical(Count) != Piece {
		t.Fatal("unexpected canonical units")
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(" Pcs "); got != Piece {
		t.Fatalf("expected piece, got %q", got)
	}
	if got := Resolve(" Litre "); got != Unit("litre") || got.Valid() {
		t.Fatalf("expected unknown lowercased unit, got %q", got)
	}
}
