package keyword_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/keyword"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/normalize"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

func writeDict(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write dict: %v", err)
	}
}

func TestExactMatchScore(t *testing.T) {
	dir := t.TempDir()
	writeDict(t, dir, "cart.json", `{
		"ADD_TO_CART": {"priority": 1, "keywords": ["add to cart", "buy now"]}
	}`)
	m, err := keyword.Load(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cands := m.Match(normalize.Normalize("please add to cart"), 5)
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].ActionCode != "ADD_TO_CART" {
		t.Fatalf("expected ADD_TO_CART, got %s", cands[0].ActionCode)
	}
	if cands[0].Score != 1.0 {
		t.Fatalf("expected score 1.0 for exact priority-1 match, got %v", cands[0].Score)
	}
	if cands[0].MatchType != types.MatchExact {
		t.Fatalf("expected exact match type, got %s", cands[0].MatchType)
	}
}

func TestPriorityDivides(t *testing.T) {
	dir := t.TempDir()
	writeDict(t, dir, "d.json", `{
		"TRACK_ORDER": {"priority": 2, "keywords": ["track order"]}
	}`)
	m, err := keyword.Load(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cands := m.Match(normalize.Normalize("track order please"), 5)
	if len(cands) != 1 || cands[0].Score != 0.5 {
		t.Fatalf("expected score 0.5 for exact priority-2 match, got %+v", cands)
	}
}

func TestEmptyInputReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeDict(t, dir, "d.json", `{"X": {"priority": 1, "keywords": ["hello"]}}`)
	m, err := keyword.Load(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cands := m.Match(normalize.Normalize(""), 5)
	if len(cands) != 0 {
		t.Fatalf("expected no candidates for empty input, got %d", len(cands))
	}
}

func TestMalformedDictionarySkipped(t *testing.T) {
	dir := t.TempDir()
	writeDict(t, dir, "bad.json", `not json`)
	writeDict(t, dir, "good.json", `{"X": {"priority": 1, "keywords": ["hello"]}}`)
	m, err := keyword.Load(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load should not fail outright: %v", err)
	}
	cands := m.Match(normalize.Normalize("hello"), 5)
	if len(cands) != 1 {
		t.Fatalf("expected good.json's entry to still load, got %d candidates", len(cands))
	}
}

func TestDeterministicTieBreakByActionCode(t *testing.T) {
	dir := t.TempDir()
	writeDict(t, dir, "d.json", `{
		"ZEBRA": {"priority": 1, "keywords": ["hello world"]},
		"ALPHA": {"priority": 1, "keywords": ["hello world"]}
	}`)
	m, err := keyword.Load(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cands := m.Match(normalize.Normalize("hello world"), 5)
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].ActionCode != "ALPHA" || cands[1].ActionCode != "ZEBRA" {
		t.Fatalf("expected tie broken lexicographically, got %s then %s", cands[0].ActionCode, cands[1].ActionCode)
	}
}

func TestRegexPatternDetectedByMetaCharacters(t *testing.T) {
	dir := t.TempDir()
	writeDict(t, dir, "d.json", `{
		"CHECK_SIZE": {"priority": 1, "keywords": ["size\\s+\\d+"]}
	}`)
	m, err := keyword.Load(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cands := m.Match(normalize.Normalize("do you have size 10"), 5)
	if len(cands) != 1 {
		t.Fatalf("expected the regex pattern to match, got %d candidates", len(cands))
	}
	if cands[0].MatchType != types.MatchRegex {
		t.Fatalf("expected regex match type, got %s", cands[0].MatchType)
	}
}

func TestLiteralPhraseWithApostropheNotTreatedAsRegex(t *testing.T) {
	dir := t.TempDir()
	writeDict(t, dir, "d.json", `{
		"CHECK_PRICE": {"priority": 1, "keywords": ["what's the price"]}
	}`)
	m, err := keyword.Load(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cands := m.Match(normalize.Normalize("what's the price"), 5)
	if len(cands) != 1 || cands[0].MatchType != types.MatchExact {
		t.Fatalf("expected a literal exact match, got %+v", cands)
	}
}
