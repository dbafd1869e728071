// Package types holds the tagged-variant data model shared across the
// classification pipeline: Candidate, ClassificationResult, Entities,
// and the enums that describe how a result was produced. Kept as
// explicit structs with typed string enums rather than
// map[string]interface{} so callers get compile-time field checking
// instead of string-keyed lookups.
package types

import "github.com/indpro-interns-oct-25/chatnshop/services/classifier/taxonomy"

// MatchSource identifies which matcher produced a Candidate.
type MatchSource string

const (
	SourceKeyword   MatchSource = "keyword"
	SourceEmbedding MatchSource = "embedding"
	SourceBlended   MatchSource = "blended"
	SourceFallback  MatchSource = "fallback"
)

// MatchType identifies how a keyword candidate matched, used for
// tie-breaking (exact > regex > partial).
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchRegex   MatchType = "regex"
	MatchPartial MatchType = "partial"
)

// matchTypeRank orders match types for tie-breaking; lower sorts first.
var matchTypeRank = map[MatchType]int{
	MatchExact:   0,
	MatchRegex:   1,
	MatchPartial: 2,
}

// MatchTypeRank returns the tie-break rank of mt (unknown types rank
// last, after partial).
func MatchTypeRank(mt MatchType) int {
	if r, ok := matchTypeRank[mt]; ok {
		return r
	}
	return len(matchTypeRank)
}

// ComponentScores breaks a blended Candidate's score into the
// contribution of each matcher, for observability and for tests that
// assert on the blend arithmetic.
type ComponentScores struct {
	KeywordScore   float64 `json:"keyword_score"`
	EmbeddingScore float64 `json:"embedding_score"`
}

// Candidate is one scored action-code hypothesis at any pipeline stage.
type Candidate struct {
	ActionCode      taxonomy.ActionCode `json:"action_code"`
	Score           float64             `json:"score"`
	Source          MatchSource         `json:"source"`
	MatchType       MatchType           `json:"match_type,omitempty"`
	MatchedText     string              `json:"matched_text,omitempty"`
	ComponentScores *ComponentScores    `json:"component_scores,omitempty"`
}

// ResultStatus describes how a ClassificationResult was reached.
type ResultStatus string

const (
	StatusConfidentKeyword  ResultStatus = "CONFIDENT_KEYWORD"
	StatusConfidentBlended  ResultStatus = "CONFIDENT_BLENDED"
	StatusQueuedForLLM      ResultStatus = "QUEUED_FOR_LLM"
	StatusLLMClassification ResultStatus = "LLM_CLASSIFICATION"
	StatusFallbackEmbedding ResultStatus = "FALLBACK_EMBEDDING"
	StatusFallbackKeyword   ResultStatus = "FALLBACK_KEYWORD"
	StatusFallbackGeneric   ResultStatus = "FALLBACK_GENERIC"
	StatusUnclear           ResultStatus = "UNCLEAR"
	StatusErrorInvalidInput ResultStatus = "ERROR_INVALID_INPUT"
	StatusErrorInternal     ResultStatus = "ERROR_INTERNAL"
)

// GateOutcome is the verdict of the confidence gate.
type GateOutcome string

const (
	GateConfident GateOutcome = "CONFIDENT"
	GateAmbiguous GateOutcome = "AMBIGUOUS"
	GateUnclear   GateOutcome = "UNCLEAR"
)

// PriceRange captures an extracted "under $50" / "between 10 and 20"
// style entity, in the caller's detected currency.
type PriceRange struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// Entities is the merged, validated, normalized entity bag attached to
// a classification result.
type Entities struct {
	ProductType *string     `json:"product_type,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Brand       *string     `json:"brand,omitempty"`
	Color       *string     `json:"color,omitempty"`
	Size        *string     `json:"size,omitempty"`
	PriceRange  *PriceRange `json:"price_range,omitempty"`
}

// IsEmpty reports whether every field is unset, in which case the
// caller should surface a nil Entities rather than an empty struct.
func (e *Entities) IsEmpty() bool {
	if e == nil {
		return true
	}
	return e.ProductType == nil && e.Category == nil && e.Brand == nil &&
		e.Color == nil && e.Size == nil && e.PriceRange == nil
}

// ClassificationResult is the final, externally-visible outcome of the
// pipeline for one query.
type ClassificationResult struct {
	ActionCode            taxonomy.ActionCode `json:"action_code"`
	Confidence            float64             `json:"confidence_score"`
	Status                ResultStatus        `json:"status"`
	MatchedKeywords       []string            `json:"matched_keywords"`
	Entities              *Entities           `json:"entities,omitempty"`
	Source                MatchSource         `json:"source"`
	OriginalText          string              `json:"original_text"`
	RequestID             string              `json:"request_id,omitempty"`
	RequiresClarification bool                `json:"requires_clarification,omitempty"`
	ClarifyingQuestions   []string            `json:"clarifying_questions,omitempty"`
	// FallbackSource names what produced this result when the LLM call
	// itself failed, e.g. "cache" for a result served from the
	// fallback-threshold cache lookup instead of a fresh classification.
	FallbackSource string `json:"fallback_source,omitempty"`
}
