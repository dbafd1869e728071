package normalize_test

import (
	"reflect"
	"testing"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/normalize"
)

func TestNormalizeSymbols(t *testing.T) {
	cases := map[string]string{
		"Add to Cart!":        "add to cart",
		"wireless & portable": "wireless and portable",
		"buy 1+1":             "buy 1 plus 1",
		"email me @support":   "email me at support",
		"size #2":             "size hash 2",
		"50% off":              "50 percent off",
		"under $50":           "under dollar 50",
		"men's t-shirt":        "mens t shirt",
		"wi-fi_router":         "wi fi router",
	}
	for in, want := range cases {
		got := normalize.Normalize(in)
		if got.Normalized != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got.Normalized, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Add TO cart!", "  multiple   spaces  ", "red & blue shoes"}
	for _, in := range inputs {
		once := normalize.Normalize(in)
		twice := normalize.Normalize(once.Normalized)
		if once.Normalized != twice.Normalized {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once.Normalized, twice.Normalized)
		}
	}
}

func TestNormalizeSegments(t *testing.T) {
	got := normalize.Normalize("add to cart and apply coupon")
	want := []string{"add to cart", "apply coupon"}
	if !reflect.DeepEqual(got.Segments, want) {
		t.Errorf("Segments = %v, want %v", got.Segments, want)
	}
}

func TestNormalizerCache(t *testing.T) {
	n := normalize.NewNormalizer(4)
	a := n.Normalize("Add to Cart")
	b := n.Normalize("Add to Cart")
	if a.Normalized != b.Normalized {
		t.Fatalf("cached result mismatch: %q vs %q", a.Normalized, b.Normalized)
	}
}

func TestNormalizerMinimumCapacity(t *testing.T) {
	n := normalize.NewNormalizer(1)
	for i := 0; i < 200; i++ {
		n.Normalize(string(rune('a' + i%26)))
	}
}
