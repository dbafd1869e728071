package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/cache"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

func newEngine() *cache.Engine {
	return cache.NewEngine(cache.Config{
		SimilarityThreshold:         0.95,
		FallbackSimilarityThreshold: 0.90,
		TTL:                         time.Hour,
		MaxSize:                     3,
		MinQueryTokens:              3,
		MinConfidenceToStore:        0.70,
	}, nil)
}

func TestSetGetExactMatch(t *testing.T) {
	e := newEngine()
	result := types.ClassificationResult{ActionCode: "ADD_TO_CART", Confidence: 0.9}
	if !e.Set("add to cart now", 4, []float32{1, 0}, result) {
		t.Fatalf("expected Set to accept high-confidence, long-enough query")
	}
	got := e.Get(context.Background(), "add to cart now", []float32{1, 0}, false)
	if !got.Hit || got.Tier != "exact" {
		t.Fatalf("expected exact hit, got %+v", got)
	}
}

func TestSetRejectsLowConfidence(t *testing.T) {
	e := newEngine()
	result := types.ClassificationResult{ActionCode: "X", Confidence: 0.5}
	if e.Set("some long query text", 4, []float32{1, 0}, result) {
		t.Fatalf("expected Set to reject low-confidence result")
	}
}

func TestSetRejectsShortQuery(t *testing.T) {
	e := newEngine()
	result := types.ClassificationResult{ActionCode: "X", Confidence: 0.9}
	if e.Set("hi", 1, []float32{1, 0}, result) {
		t.Fatalf("expected Set to reject below-minimum-length query")
	}
}

func TestSemanticMatch(t *testing.T) {
	e := newEngine()
	e.Set("original phrasing here", 3, []float32{1, 0}, types.ClassificationResult{ActionCode: "X", Confidence: 0.9})
	got := e.Get(context.Background(), "different text entirely", []float32{0.999, 0.0447}, false)
	if !got.Hit || got.Tier != "semantic" {
		t.Fatalf("expected semantic hit above threshold, got %+v", got)
	}
}

func TestSemanticMissBelowThreshold(t *testing.T) {
	e := newEngine()
	e.Set("original phrasing here", 3, []float32{1, 0}, types.ClassificationResult{ActionCode: "X", Confidence: 0.9})
	got := e.Get(context.Background(), "unrelated text", []float32{0, 1}, false)
	if got.Hit {
		t.Fatalf("expected miss for orthogonal embedding, got %+v", got)
	}
}

func TestLRUEviction(t *testing.T) {
	e := newEngine() // MaxSize = 3
	e.Set("query one two", 3, []float32{1, 0}, types.ClassificationResult{ActionCode: "A", Confidence: 0.9})
	e.Set("query two three", 3, []float32{0, 1}, types.ClassificationResult{ActionCode: "B", Confidence: 0.9})
	e.Set("query three four", 3, []float32{1, 1}, types.ClassificationResult{ActionCode: "C", Confidence: 0.9})
	// Touch the first so it's no longer LRU.
	e.Get(context.Background(), "query one two", []float32{1, 0}, false)
	e.Set("query four five", 3, []float32{0, 0}, types.ClassificationResult{ActionCode: "D", Confidence: 0.9})

	stats := e.Stats(context.Background(), 10)
	if stats.Size != 3 {
		t.Fatalf("expected size capped at 3, got %d", stats.Size)
	}
	if got := e.Get(context.Background(), "query two three", nil, false); got.Hit {
		t.Fatalf("expected least-recently-used entry to be evicted")
	}
	if got := e.Get(context.Background(), "query one two", []float32{1, 0}, false); !got.Hit {
		t.Fatalf("expected recently-touched entry to survive eviction")
	}
}

func TestInvalidateAndClear(t *testing.T) {
	e := newEngine()
	e.Set("query one two", 3, []float32{1, 0}, types.ClassificationResult{ActionCode: "A", Confidence: 0.9})
	e.Invalidate("query one two")
	if got := e.Get(context.Background(), "query one two", []float32{1, 0}, false); got.Hit {
		t.Fatalf("expected invalidated entry to miss")
	}

	e.Set("query two three", 3, []float32{0, 1}, types.ClassificationResult{ActionCode: "B", Confidence: 0.9})
	e.Clear()
	stats := e.Stats(context.Background(), 10)
	if stats.Size != 0 {
		t.Fatalf("expected cleared cache to have size 0, got %d", stats.Size)
	}
}
