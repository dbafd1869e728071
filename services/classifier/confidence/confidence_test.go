package confidence_test

import (
	"testing"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/confidence"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

var thresholds = confidence.Thresholds{ConfidenceThreshold: 0.70, GapThreshold: 0.15}

func TestConfident(t *testing.T) {
	cands := []types.Candidate{{ActionCode: "A", Score: 0.9}, {ActionCode: "B", Score: 0.5}}
	if got := confidence.Gate(cands, thresholds); got != types.GateConfident {
		t.Fatalf("expected CONFIDENT, got %s", got)
	}
}

func TestAmbiguousSmallGap(t *testing.T) {
	cands := []types.Candidate{{ActionCode: "A", Score: 0.80}, {ActionCode: "B", Score: 0.75}}
	if got := confidence.Gate(cands, thresholds); got != types.GateAmbiguous {
		t.Fatalf("expected AMBIGUOUS, got %s", got)
	}
}

func TestAmbiguousBothAboveThreshold(t *testing.T) {
	cands := []types.Candidate{{ActionCode: "A", Score: 0.95}, {ActionCode: "B", Score: 0.90}}
	if got := confidence.Gate(cands, thresholds); got != types.GateAmbiguous {
		t.Fatalf("expected AMBIGUOUS when two candidates clear threshold, got %s", got)
	}
}

func TestUnclearBelowThreshold(t *testing.T) {
	cands := []types.Candidate{{ActionCode: "A", Score: 0.4}}
	if got := confidence.Gate(cands, thresholds); got != types.GateUnclear {
		t.Fatalf("expected UNCLEAR, got %s", got)
	}
}

func TestUnclearEmpty(t *testing.T) {
	if got := confidence.Gate(nil, thresholds); got != types.GateUnclear {
		t.Fatalf("expected UNCLEAR for empty candidates, got %s", got)
	}
}

func TestSingleCandidateConfidentWhenAboveThreshold(t *testing.T) {
	cands := []types.Candidate{{ActionCode: "A", Score: 0.99}}
	if got := confidence.Gate(cands, thresholds); got != types.GateConfident {
		t.Fatalf("expected CONFIDENT for sole high-confidence candidate, got %s", got)
	}
}
