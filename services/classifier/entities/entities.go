// Package entities merges the LLM's free-form entity guesses with
// deterministic rule-based extractors, then normalizes and validates
// the result before it reaches types.Entities. Rule extraction follows
// the same regex-over-normalized-text approach as the keyword matcher.
package entities

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/llm"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

var knownColors = map[string]bool{
	"black": true, "white": true, "red": true, "blue": true, "green": true,
	"yellow": true, "orange": true, "purple": true, "pink": true, "brown": true,
	"gray": true, "grey": true, "beige": true, "navy": true, "gold": true, "silver": true,
}

var knownSizes = map[string]string{
	"xs": "XS", "small": "S", "s": "S", "medium": "M", "m": "M",
	"large": "L", "l": "L", "xl": "XL", "extra large": "XL", "xxl": "XXL",
}

var knownProductTypes = map[string]bool{
	"shoes": true, "shirt": true, "jacket": true, "dress": true, "jeans": true,
	"headphones": true, "bag": true, "watch": true, "hat": true, "socks": true,
}

var knownCurrencies = map[string]bool{"USD": true, "EUR": true, "GBP": true, "INR": true}

var (
	priceUnderRe   = regexp.MustCompile(`\bunder\s*\$?(\d+(?:\.\d+)?)\b`)
	priceBetweenRe = regexp.MustCompile(`\bbetween\s*\$?(\d+(?:\.\d+)?)\s*(?:and|-)\s*\$?(\d+(?:\.\d+)?)\b`)
	priceOverRe    = regexp.MustCompile(`\b(?:over|above)\s*\$?(\d+(?:\.\d+)?)\b`)
	sizeRe         = regexp.MustCompile(`\bsize\s+([A-Za-z0-9]+)\b`)
)

// Extractor pulls deterministic entity hints out of normalized text.
type Extractor struct {
	brandCatalogue map[string]string // lowercase -> canonical display form
}

// NewExtractor builds a rule-based extractor seeded with a known brand
// list, title-cased on output.
func NewExtractor(brands []string) *Extractor {
	cat := make(map[string]string, len(brands))
	for _, b := range brands {
		cat[strings.ToLower(b)] = b
	}
	return &Extractor{brandCatalogue: cat}
}

// ExtractRuleBased scans normalized, tokenized text for brand/color/
// size/product-type/price-range hints. Size also falls back to a
// "size <value>" regex for values outside the known-letter-size map
// (numeric shoe/ring sizes and the like).
func (x *Extractor) ExtractRuleBased(normalizedText string) types.Entities {
	var out types.Entities
	tokens := strings.Fields(normalizedText)

	for _, tok := range tokens {
		if canonical, ok := x.brandCatalogue[tok]; ok && out.Brand == nil {
			v := titleCase(canonical)
			out.Brand = &v
		}
		if knownColors[tok] && out.Color == nil {
			v := tok
			out.Color = &v
		}
		if sz, ok := knownSizes[tok]; ok && out.Size == nil {
			v := sz
			out.Size = &v
		}
		if knownProductTypes[tok] && out.ProductType == nil {
			v := tok
			out.ProductType = &v
		}
	}

	if out.Size == nil {
		if m := sizeRe.FindStringSubmatch(normalizedText); m != nil {
			v := strings.ToUpper(m[1])
			out.Size = &v
		}
	}

	if pr := extractPriceRange(normalizedText); pr != nil {
		out.PriceRange = pr
	}
	return out
}

func extractPriceRange(text string) *types.PriceRange {
	if m := priceBetweenRe.FindStringSubmatch(text); m != nil {
		lo, errLo := strconv.ParseFloat(m[1], 64)
		hi, errHi := strconv.ParseFloat(m[2], 64)
		if errLo == nil && errHi == nil {
			if lo > hi {
				lo, hi = hi, lo
			}
			return &types.PriceRange{Min: &lo, Max: &hi, Currency: "USD"}
		}
	}
	if m := priceUnderRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &types.PriceRange{Max: &v, Currency: "USD"}
		}
	}
	if m := priceOverRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &types.PriceRange{Min: &v, Currency: "USD"}
		}
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) == 0 {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// Merge combines the LLM's raw entity guesses with rule-based
// extraction, preferring the LLM's value when both produced one for the
// same field, then validates and normalizes the merged result.
func Merge(ruleBased types.Entities, llmEntities llm.RawEntities) types.Entities {
	out := ruleBased

	if v, ok := stringField(llmEntities, "product_type"); ok {
		out.ProductType = v
	}
	if v, ok := stringField(llmEntities, "category"); ok {
		out.Category = v
	}
	if v, ok := stringField(llmEntities, "brand"); ok {
		t := titleCase(*v)
		out.Brand = &t
	}
	if v, ok := stringField(llmEntities, "color"); ok {
		c := strings.ToLower(*v)
		out.Color = &c
	}
	if v, ok := stringField(llmEntities, "size"); ok {
		s := strings.ToUpper(*v)
		out.Size = &s
	}
	if pr := priceRangeField(llmEntities); pr != nil {
		out.PriceRange = Validate(pr)
	}

	return out
}

func stringField(m llm.RawEntities, key string) (*string, bool) {
	if m == nil {
		return nil, false
	}
	raw, ok := m[key]
	if !ok {
		return nil, false
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil, false
	}
	return &s, true
}

func priceRangeField(m llm.RawEntities) *types.PriceRange {
	if m == nil {
		return nil
	}
	raw, ok := m["price_range"]
	if !ok {
		return nil
	}
	asMap, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	pr := &types.PriceRange{Currency: "USD"}
	if c, ok := asMap["currency"].(string); ok && c != "" {
		pr.Currency = strings.ToUpper(c)
	}
	if v, ok := toFloat(asMap["min"]); ok {
		pr.Min = &v
	}
	if v, ok := toFloat(asMap["max"]); ok {
		pr.Max = &v
	}
	if pr.Min == nil && pr.Max == nil {
		return nil
	}
	return pr
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Validate enforces the invariants a price range must satisfy:
// non-negative bounds, min <= max, and a known currency code. Invalid
// ranges are repaired where possible (swap, clamp to zero) or dropped
// entirely when unrecoverable.
func Validate(pr *types.PriceRange) *types.PriceRange {
	if pr == nil {
		return nil
	}
	if pr.Min != nil && *pr.Min < 0 {
		zero := 0.0
		pr.Min = &zero
	}
	if pr.Max != nil && *pr.Max < 0 {
		return nil
	}
	if pr.Min != nil && pr.Max != nil && *pr.Min > *pr.Max {
		pr.Min, pr.Max = pr.Max, pr.Min
	}
	if pr.Currency == "" {
		pr.Currency = "USD"
	}
	if !knownCurrencies[pr.Currency] {
		pr.Currency = "USD"
	}
	return pr
}
