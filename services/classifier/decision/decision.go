// Package decision implements the orchestrator that runs keyword
// matching, embedding matching, blending, and confidence gating in
// sequence, applies the priority short-circuit, and decides whether a
// request can be answered synchronously or must escalate to the LLM
// queue. It depends only on small interfaces (never concrete cache/
// queue/LLM types) so it stays free of import cycles with the packages
// that depend on it.
package decision

import (
	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/blend"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/confidence"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/configmgr"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/normalize"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/taxonomy"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

// KeywordMatcher is the subset of keyword.Matcher the engine needs.
type KeywordMatcher interface {
	Match(norm normalize.Result, topN int) []types.Candidate
}

// EmbeddingMatcher is the subset of embedding.Matcher the engine needs.
// When the priority short-circuit fires, neither Healthy nor Match is
// called, so a spy implementation can assert Match was never invoked.
type EmbeddingMatcher interface {
	Match(normalizedQuery string, topN int) []types.Candidate
	Healthy() bool
}

// Escalator hands an ambiguous/unclear request to the async LLM queue.
// It returns the request_id the caller should report.
type Escalator interface {
	Escalate(query string, hint *types.Candidate, snapshot configmgr.ConfigVariant) (requestID string, err error)
}

// AuditLog records AMBIGUOUS/UNCLEAR outcomes to an append-only record
// for later analysis.
type AuditLog interface {
	RecordOutcome(query string, outcome types.GateOutcome, top []types.Candidate)
}

const (
	topN = 5
	// fallbackGenericCode/Confidence are used when the LLM path is
	// disabled entirely for the active variant.
	fallbackGenericCode       taxonomy.ActionCode = "SEARCH_PRODUCT"
	fallbackGenericConfidence                     = 0.1
)

// Engine wires the keyword matcher, embedding matcher, blend, and
// confidence gate together under one ConfigVariant snapshot per
// request.
type Engine struct {
	normalizer *normalize.Normalizer
	keyword    KeywordMatcher
	embedding  EmbeddingMatcher
	escalator  Escalator
	audit      AuditLog
	log        zerolog.Logger
}

// NewEngine builds a decision Engine from its dependencies.
func NewEngine(normalizer *normalize.Normalizer, kw KeywordMatcher, emb EmbeddingMatcher, esc Escalator, audit AuditLog, log zerolog.Logger) *Engine {
	return &Engine{normalizer: normalizer, keyword: kw, embedding: emb, escalator: esc, audit: audit, log: log}
}

// Classify runs the full hybrid cascade for one query under the given
// variant snapshot, read once at entry — the caller must pass a value,
// not a pointer it might later mutate.
func (e *Engine) Classify(query string, variant configmgr.ConfigVariant) types.ClassificationResult {
	norm := e.normalizer.Normalize(query)

	kwCandidates := e.keyword.Match(norm, topN)

	// Priority short-circuit: a sufficiently confident keyword match
	// answers immediately, and the embedding matcher must never run.
	if len(kwCandidates) > 0 && kwCandidates[0].Score >= variant.PriorityThreshold {
		top := kwCandidates[0]
		return types.ClassificationResult{
			ActionCode:      top.ActionCode,
			Confidence:      top.Score,
			Status:          types.StatusConfidentKeyword,
			MatchedKeywords: matchedKeywordTexts(kwCandidates),
			Source:          types.SourceKeyword,
			OriginalText:    query,
		}
	}

	weights := blend.Weights{Keyword: variant.KeywordWeight, Embedding: variant.EmbeddingWeight}
	var embCandidates []types.Candidate
	useEmbedding := variant.UseEmbedding && e.embedding.Healthy()
	if useEmbedding {
		embCandidates = e.embedding.Match(norm.Normalized, topN)
	} else {
		// Embedding disabled or unavailable: renormalize to keyword-only
		// for this request only.
		weights = blend.Weights{Keyword: 1.0, Embedding: 0.0}
	}

	blended := blend.Blend(kwCandidates, embCandidates, weights)

	gateThresholds := confidence.Thresholds{
		ConfidenceThreshold: variant.ConfidenceThreshold,
		GapThreshold:        variant.GapThreshold,
	}
	outcome := confidence.Gate(blended, gateThresholds)

	switch outcome {
	case types.GateConfident:
		top := blended[0]
		return types.ClassificationResult{
			ActionCode:      top.ActionCode,
			Confidence:      top.Score,
			Status:          types.StatusConfidentBlended,
			MatchedKeywords: matchedKeywordTexts(kwCandidates),
			Source:          types.SourceBlended,
			OriginalText:    query,
		}
	default:
		if e.audit != nil {
			e.audit.RecordOutcome(query, outcome, blended)
		}
		if !variant.UseLLM {
			return types.ClassificationResult{
				ActionCode:      fallbackGenericCode,
				Confidence:      fallbackGenericConfidence,
				Status:          types.StatusFallbackGeneric,
				MatchedKeywords: matchedKeywordTexts(kwCandidates),
				Source:          types.SourceFallback,
				OriginalText:    query,
			}
		}

		var hint *types.Candidate
		if len(blended) > 0 {
			hint = &blended[0]
		}
		requestID, err := e.escalator.Escalate(query, hint, variant)
		if err != nil {
			e.log.Error().Err(err).Str("query", query).Msg("decision: failed to escalate to LLM queue")
			return types.ClassificationResult{
				ActionCode:      fallbackGenericCode,
				Confidence:      fallbackGenericConfidence,
				Status:          types.StatusFallbackGeneric,
				MatchedKeywords: matchedKeywordTexts(kwCandidates),
				Source:          types.SourceFallback,
				OriginalText:    query,
			}
		}
		return types.ClassificationResult{
			Status:       types.StatusQueuedForLLM,
			Source:       types.SourceFallback,
			OriginalText: query,
			RequestID:    requestID,
		}
	}
}

func matchedKeywordTexts(cands []types.Candidate) []string {
	var out []string
	for _, c := range cands {
		if c.MatchedText != "" {
			out = append(out, c.MatchedText)
		}
	}
	return out
}
