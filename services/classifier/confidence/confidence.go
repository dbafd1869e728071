// Package confidence decides whether the top blended candidate is
// confident enough to answer outright, ambiguous (needs escalation),
// or unclear.
package confidence

import "github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"

// Thresholds is the pair of knobs that drive the gate, sourced from the
// active ConfigVariant snapshot for this request.
type Thresholds struct {
	ConfidenceThreshold float64
	GapThreshold        float64
}

// Gate evaluates the (sorted desc) candidate list and returns the
// outcome:
//   - CONFIDENT: top1 >= confidence_threshold AND (top1-top2) >= gap_threshold
//   - AMBIGUOUS: top1 >= threshold but gap < gap_threshold, OR two
//     candidates both >= threshold
//   - UNCLEAR: top1 < threshold
func Gate(candidates []types.Candidate, t Thresholds) types.GateOutcome {
	if len(candidates) == 0 {
		return types.GateUnclear
	}
	top1 := candidates[0].Score
	if top1 < t.ConfidenceThreshold {
		return types.GateUnclear
	}
	if len(candidates) == 1 {
		return types.GateConfident
	}
	top2 := candidates[1].Score
	gap := top1 - top2
	if top2 >= t.ConfidenceThreshold {
		return types.GateAmbiguous
	}
	if gap < t.GapThreshold {
		return types.GateAmbiguous
	}
	return types.GateConfident
}
