package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/cache"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/configmgr"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/decision"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/entities"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/kvstore"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/normalize"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/pipeline"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

type fakeKeyword struct{ cands []types.Candidate }

func (f fakeKeyword) Match(normalize.Result, int) []types.Candidate { return f.cands }

type fakeEmbedding struct{ healthy bool }

func (f fakeEmbedding) Match(string, int) []types.Candidate   { return nil }
func (f fakeEmbedding) Healthy() bool                         { return f.healthy }
func (f fakeEmbedding) Vector(string) ([]float32, bool)       { return nil, false }

type fixedVariant struct{ v configmgr.ConfigVariant }

func (f fixedVariant) Active() configmgr.ConfigVariant { return f.v }

func variant() configmgr.ConfigVariant {
	return configmgr.ConfigVariant{
		Name: "default", KeywordWeight: 0.6, EmbeddingWeight: 0.4,
		PriorityThreshold: 0.85, ConfidenceThreshold: 0.70, GapThreshold: 0.15,
		UseEmbedding: false, UseLLM: false,
	}
}

func TestClassifyRejectsEmptyQuery(t *testing.T) {
	svc := newService(t, nil)
	result := svc.Classify(context.Background(), "   ")
	if result.Status != types.StatusErrorInvalidInput {
		t.Fatalf("expected ERROR_INVALID_INPUT, got %s", result.Status)
	}
}

func TestClassifyHighConfidenceKeywordPopulatesEntities(t *testing.T) {
	cands := []types.Candidate{{ActionCode: "ADD_TO_CART", Score: 0.95, Source: types.SourceKeyword}}
	svc := newService(t, cands)
	result := svc.Classify(context.Background(), "add red shoes to cart")
	if result.ActionCode != "ADD_TO_CART" || result.Status != types.StatusConfidentKeyword {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Entities == nil || result.Entities.Color == nil || *result.Entities.Color != "red" {
		t.Fatalf("expected color entity to be extracted, got %+v", result.Entities)
	}
}

func TestClassifySecondCallHitsCache(t *testing.T) {
	cands := []types.Candidate{{ActionCode: "ADD_TO_CART", Score: 0.95, Source: types.SourceKeyword}}
	svc := newService(t, cands)
	first := svc.Classify(context.Background(), "add shoes to cart")
	second := svc.Classify(context.Background(), "add shoes to cart")
	if first.ActionCode != second.ActionCode {
		t.Fatalf("expected consistent result across cache hit, got %+v vs %+v", first, second)
	}
}

func newService(t *testing.T, kwCands []types.Candidate) *pipeline.Service {
	t.Helper()
	normalizer := normalize.NewNormalizer(128)
	cacheEngine := cache.NewEngine(cache.Config{
		SimilarityThreshold: 0.95, FallbackSimilarityThreshold: 0.90,
		TTL: time.Hour, MaxSize: 100, MinQueryTokens: 1, MinConfidenceToStore: 0.5,
	}, kvstore.NewInMemoryStore())
	emb := fakeEmbedding{healthy: false}
	d := decision.NewEngine(normalizer, fakeKeyword{cands: kwCands}, emb, nil, nil, zerolog.Nop())
	extractor := entities.NewExtractor(nil)
	return pipeline.New(normalizer, cacheEngine, emb, d, extractor, fixedVariant{v: variant()}, zerolog.Nop())
}
