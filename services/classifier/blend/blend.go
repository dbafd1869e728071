// Package blend merges keyword and embedding candidate lists into a
// single ranked list by weighted sum, with a small consensus/confidence
// bonus and deterministic tie-breaking.
package blend

import (
	"sort"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/taxonomy"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

const (
	consensusBonus       = 0.05
	confidenceBonus      = 0.03
	confidenceBonusFloor = 0.90
)

// Weights is the kw_weight/emb_weight pair for one request, already
// renormalized by the caller if one matcher was unavailable.
type Weights struct {
	Keyword   float64
	Embedding float64
}

// Blend merges keyword and embedding candidates by ActionCode. If one
// list is empty, the other's candidates come out with Source=blended
// and the missing component scored 0; their scores still go through
// the weighted sum and the confidence bonus, so a keyword score of 0.9
// at weights 1.0/0.0 comes out as 0.93.
func Blend(keywordCands, embeddingCands []types.Candidate, w Weights) []types.Candidate {
	type scores struct {
		kw, emb       float64
		hasKW, hasEmb bool
	}
	byCode := make(map[taxonomy.ActionCode]*scores)

	for _, c := range keywordCands {
		s := byCode[c.ActionCode]
		if s == nil {
			s = &scores{}
			byCode[c.ActionCode] = s
		}
		if c.Score > s.kw {
			s.kw = c.Score
		}
		s.hasKW = true
	}
	for _, c := range embeddingCands {
		s := byCode[c.ActionCode]
		if s == nil {
			s = &scores{}
			byCode[c.ActionCode] = s
		}
		if c.Score > s.emb {
			s.emb = c.Score
		}
		s.hasEmb = true
	}

	out := make([]types.Candidate, 0, len(byCode))
	for code, s := range byCode {
		base := w.Keyword*s.kw + w.Embedding*s.emb
		if s.hasKW && s.hasEmb && s.kw > 0 && s.emb > 0 {
			base += consensusBonus
		}
		maxIndividual := s.kw
		if s.emb > maxIndividual {
			maxIndividual = s.emb
		}
		if maxIndividual >= confidenceBonusFloor {
			base += confidenceBonus
		}
		base = clamp01(base)

		out = append(out, types.Candidate{
			ActionCode: code,
			Score:      base,
			Source:     types.SourceBlended,
			ComponentScores: &types.ComponentScores{
				KeywordScore:   s.kw,
				EmbeddingScore: s.emb,
			},
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if maxOf(a.ComponentScores) != maxOf(b.ComponentScores) {
			return maxOf(a.ComponentScores) > maxOf(b.ComponentScores)
		}
		return a.ActionCode < b.ActionCode
	})
	return out
}

func maxOf(c *types.ComponentScores) float64 {
	if c == nil {
		return 0
	}
	if c.KeywordScore > c.EmbeddingScore {
		return c.KeywordScore
	}
	return c.EmbeddingScore
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
