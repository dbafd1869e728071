package embedding_test

import (
	"errors"
	"testing"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/embedding"
)

type fakeEncoder struct {
	dim     int
	vectors map[string][]float32
	calls   int
}

func (f *fakeEncoder) Encode(text string) ([]float32, error) {
	f.calls++
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, f.dim), nil
}

func (f *fakeEncoder) Dimension() int { return f.dim }

func TestMatchReturnsHighestCosine(t *testing.T) {
	enc := &fakeEncoder{dim: 2, vectors: map[string][]float32{
		"add to cart": {1, 0},
		"q":           {1, 0},
	}}
	refs := embedding.ReferenceSet{
		"ADD_TO_CART":  {1, 0},
		"SEARCH_PRODUCT": {0, 1},
	}
	m := embedding.NewMatcher(func() (embedding.Encoder, error) { return enc, nil }, refs, 512)
	cands := m.Match("q", 5)
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].ActionCode != "ADD_TO_CART" {
		t.Fatalf("expected ADD_TO_CART first, got %s", cands[0].ActionCode)
	}
	if cands[0].Score < 0.99 {
		t.Fatalf("expected near-1.0 score for identical unit vectors, got %v", cands[0].Score)
	}
}

func TestEncoderInitFailureDegradesHealth(t *testing.T) {
	m := embedding.NewMatcher(func() (embedding.Encoder, error) {
		return nil, errors.New("model load failed")
	}, embedding.ReferenceSet{"X": {1, 0}}, 512)

	cands := m.Match("anything", 5)
	if cands != nil {
		t.Fatalf("expected nil candidates on encoder init failure, got %v", cands)
	}
	if m.Healthy() {
		t.Fatalf("expected Healthy()==false after encoder init failure")
	}
}

func TestQueryCacheAvoidsReEncoding(t *testing.T) {
	enc := &fakeEncoder{dim: 2}
	refs := embedding.ReferenceSet{"X": {1, 0}}
	m := embedding.NewMatcher(func() (embedding.Encoder, error) { return enc, nil }, refs, 512)
	m.Match("same query", 5)
	m.Match("same query", 5)
	if enc.calls != 1 {
		t.Fatalf("expected 1 encode call due to cache hit, got %d", enc.calls)
	}
}
