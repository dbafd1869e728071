// Package classifyerrors translates an internal failure (an
// llm.ErrorKind, a validation failure, an unexpected panic recovery)
// into the user-facing response shape, and builds the generic
// low-confidence fallback result used whenever the pipeline cannot
// commit to an action code.
package classifyerrors

import (
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/llm"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

// AbsoluteFloorConfidence is the confidence GenericFallback reports. It
// gates nothing: the decision engine's own FALLBACK_GENERIC result
// reports 0.1, and an UNCLEAR result reports 0.
const AbsoluteFloorConfidence = 0.3

const fallbackActionCode = "SEARCH_PRODUCT"

// UserFacing is what callers receive instead of a raw internal error.
type UserFacing struct {
	Message          string   `json:"message"`
	RetryRecommended bool     `json:"retry_recommended"`
	Suggestions      []string `json:"suggestions,omitempty"`
}

// translations maps each llm.ErrorKind to a non-technical message plus
// whether retrying is worthwhile.
var translations = map[llm.ErrorKind]UserFacing{
	llm.ErrTimeout: {
		Message:          "We're taking longer than usual to understand that request.",
		RetryRecommended: true,
	},
	llm.ErrRateLimit: {
		Message:          "We're handling a lot of requests right now, please try again shortly.",
		RetryRecommended: true,
	},
	llm.ErrServerError: {
		Message:          "Something went wrong on our end while processing that request.",
		RetryRecommended: true,
	},
	llm.ErrAuth: {
		Message:          "We're unable to complete that request right now.",
		RetryRecommended: false,
	},
	llm.ErrContextLengthExceeded: {
		Message:          "That request was too long for us to process in one go.",
		RetryRecommended: false,
		Suggestions:      []string{"Try rephrasing your request more briefly."},
	},
	llm.ErrBudgetExceeded: {
		Message:          "We're unable to look that up in more detail right now.",
		RetryRecommended: false,
	},
	llm.ErrUnknown: {
		Message:          "Something unexpected happened while processing that request.",
		RetryRecommended: true,
	},
}

// ForErrorKind returns the user-facing translation for an llm.ErrorKind,
// falling back to a generic unknown-error message.
func ForErrorKind(kind llm.ErrorKind) UserFacing {
	if uf, ok := translations[kind]; ok {
		return uf
	}
	return translations[llm.ErrUnknown]
}

// ForInvalidInput builds the response for a request that failed input
// validation before the pipeline ever ran (empty query, oversized
// body, invalid encoding).
func ForInvalidInput(reason string) UserFacing {
	return UserFacing{
		Message:          "We couldn't understand that request: " + reason,
		RetryRecommended: false,
		Suggestions:      []string{"Check that your query is non-empty and under the size limit."},
	}
}

// clarifyingQuestions is offered when the pipeline lands on UNCLEAR —
// it genuinely doesn't know what the shopper wants, so it asks rather
// than guessing.
var clarifyingQuestions = []string{
	"Could you tell me more about what you're looking for?",
	"Are you trying to search for a product, check an order, or something else?",
}

// Unclear builds the UNCLEAR result for a query the gate could not
// resolve, carrying 2-4 clarifying questions.
func Unclear(originalText string) types.ClassificationResult {
	return types.ClassificationResult{
		ActionCode:            "",
		Confidence:            0,
		Status:                types.StatusUnclear,
		MatchedKeywords:       nil,
		Source:                types.SourceFallback,
		OriginalText:          originalText,
		RequiresClarification: true,
		ClarifyingQuestions:   ClarifyingQuestions(),
	}
}

// GenericFallback builds a low-confidence generic fallback result
// (SEARCH_PRODUCT at AbsoluteFloorConfidence). The request path does
// not call it: the decision engine builds its own FALLBACK_GENERIC
// result when the LLM path is disabled or escalation fails, and a
// failed LLM call in the worker resolves to a cached result or Unclear.
func GenericFallback(originalText string) types.ClassificationResult {
	return types.ClassificationResult{
		ActionCode:   fallbackActionCode,
		Confidence:   AbsoluteFloorConfidence,
		Status:       types.StatusFallbackGeneric,
		Source:       types.SourceFallback,
		OriginalText: originalText,
	}
}

// Internal builds the ERROR_INTERNAL result for an unrecoverable
// failure (panic recovery, corrupt configuration) that must still
// return a well-formed response rather than propagate.
func Internal(originalText string) types.ClassificationResult {
	return types.ClassificationResult{
		ActionCode:   "",
		Confidence:   0,
		Status:       types.StatusErrorInternal,
		Source:       types.SourceFallback,
		OriginalText: originalText,
	}
}

// InvalidInput builds the ERROR_INVALID_INPUT result for a request that
// never reached the pipeline.
func InvalidInput(originalText string) types.ClassificationResult {
	return types.ClassificationResult{
		ActionCode:   "",
		Confidence:   0,
		Status:       types.StatusErrorInvalidInput,
		Source:       types.SourceFallback,
		OriginalText: originalText,
	}
}

// ClarifyingQuestions returns the fixed set of clarifying questions
// attached to an UNCLEAR response.
func ClarifyingQuestions() []string {
	out := make([]string, len(clarifyingQuestions))
	copy(out, clarifyingQuestions)
	return out
}
