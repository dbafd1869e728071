package blend_test

import (
	"testing"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/blend"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

func TestBlendWeightedSum(t *testing.T) {
	kw := []types.Candidate{{ActionCode: "ADD_TO_CART", Score: 0.55, Source: types.SourceKeyword}}
	emb := []types.Candidate{{ActionCode: "ADD_TO_CART", Score: 0.80, Source: types.SourceEmbedding}}
	out := blend.Blend(kw, emb, blend.Weights{Keyword: 0.6, Embedding: 0.4})
	if len(out) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out))
	}
	want := 0.6*0.55 + 0.4*0.80 + 0.05 // consensus bonus, both sides present
	if diff := out[0].Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected blended score %v, got %v", want, out[0].Score)
	}
}

func TestBlendConfidenceBonusAtHighMax(t *testing.T) {
	kw := []types.Candidate{{ActionCode: "X", Score: 0.95, Source: types.SourceKeyword}}
	emb := []types.Candidate{{ActionCode: "X", Score: 0.10, Source: types.SourceEmbedding}}
	out := blend.Blend(kw, emb, blend.Weights{Keyword: 0.6, Embedding: 0.4})
	want := 0.6*0.95 + 0.4*0.10 + 0.05 + 0.03
	if diff := out[0].Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected score %v, got %v", want, out[0].Score)
	}
}

func TestBlendScoresClampedToUnitInterval(t *testing.T) {
	kw := []types.Candidate{{ActionCode: "X", Score: 1.0, Source: types.SourceKeyword}}
	emb := []types.Candidate{{ActionCode: "X", Score: 1.0, Source: types.SourceEmbedding}}
	out := blend.Blend(kw, emb, blend.Weights{Keyword: 0.6, Embedding: 0.4})
	if out[0].Score > 1.0 {
		t.Fatalf("expected score clamped to <=1.0, got %v", out[0].Score)
	}
}

func TestBlendPassesThroughWhenOneSideEmpty(t *testing.T) {
	kw := []types.Candidate{{ActionCode: "X", Score: 0.9, Source: types.SourceKeyword}}
	out := blend.Blend(kw, nil, blend.Weights{Keyword: 1.0, Embedding: 0.0})
	if len(out) != 1 || out[0].Source != types.SourceBlended {
		t.Fatalf("expected single passed-through blended candidate, got %+v", out)
	}
	if out[0].ComponentScores.EmbeddingScore != 0 {
		t.Fatalf("expected missing embedding component to be 0, got %v", out[0].ComponentScores.EmbeddingScore)
	}
}

func TestBlendTieBreakByActionCode(t *testing.T) {
	kw := []types.Candidate{
		{ActionCode: "ZEBRA", Score: 0.5, Source: types.SourceKeyword},
		{ActionCode: "ALPHA", Score: 0.5, Source: types.SourceKeyword},
	}
	out := blend.Blend(kw, nil, blend.Weights{Keyword: 1.0, Embedding: 0.0})
	if out[0].ActionCode != "ALPHA" || out[1].ActionCode != "ZEBRA" {
		t.Fatalf("expected lexicographic tie-break, got %s then %s", out[0].ActionCode, out[1].ActionCode)
	}
}
