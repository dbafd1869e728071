package classifyerrors_test

import (
	"testing"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/classifyerrors"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/llm"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

func TestForErrorKindAuthNotRetryable(t *testing.T) {
	uf := classifyerrors.ForErrorKind(llm.ErrAuth)
	if uf.RetryRecommended {
		t.Fatalf("auth errors should not recommend retry")
	}
}

func TestForErrorKindTimeoutRetryable(t *testing.T) {
	uf := classifyerrors.ForErrorKind(llm.ErrTimeout)
	if !uf.RetryRecommended {
		t.Fatalf("timeout errors should recommend retry")
	}
}

func TestForErrorKindUnknownFallsBackToGenericMessage(t *testing.T) {
	uf := classifyerrors.ForErrorKind(llm.ErrorKind("something_new"))
	if uf.Message == "" {
		t.Fatalf("expected a non-empty fallback message")
	}
}

func TestGenericFallbackUsesAbsoluteFloor(t *testing.T) {
	result := classifyerrors.GenericFallback("find me shoes")
	if result.Confidence != classifyerrors.AbsoluteFloorConfidence {
		t.Fatalf("expected confidence %v, got %v", classifyerrors.AbsoluteFloorConfidence, result.Confidence)
	}
	if result.Status != types.StatusFallbackGeneric {
		t.Fatalf("expected FALLBACK_GENERIC status, got %s", result.Status)
	}
}

func TestUnclearCarriesOriginalText(t *testing.T) {
	result := classifyerrors.Unclear("???")
	if result.Status != types.StatusUnclear || result.OriginalText != "???" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestClarifyingQuestionsReturnsCopy(t *testing.T) {
	qs := classifyerrors.ClarifyingQuestions()
	if len(qs) < 2 {
		t.Fatalf("expected at least 2 clarifying questions, got %d", len(qs))
	}
	qs[0] = "mutated"
	qs2 := classifyerrors.ClarifyingQuestions()
	if qs2[0] == "mutated" {
		t.Fatalf("expected ClarifyingQuestions to return an independent copy")
	}
}
