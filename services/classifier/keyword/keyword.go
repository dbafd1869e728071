// Package keyword scores a normalized query against per-ActionCode
// keyword dictionaries. Pattern style and scoring mirror the
// weighted-contains idea in the gateway's intelligence.Classifier,
// generalized from a fixed category table to loaded priority/regex/
// literal/partial KeywordEntry dictionaries.
package keyword

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/normalize"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/taxonomy"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

// regexMetaChars detects a keyword entry written as a regular
// expression rather than a literal phrase: the presence of a `\b`-style
// escape or a standard regex metacharacter (size\s+\d+, (find|show).*).
var regexMetaChars = regexp.MustCompile(`\\[bBdDsSwW]|[.*+?^${}()|\[\]]`)

func looksLikeRegex(kw string) bool {
	return regexMetaChars.MatchString(kw)
}

// pattern is one compiled matcher within an ActionCode's dictionary.
type pattern struct {
	raw       string
	isRegex   bool
	re        *regexp.Regexp
	tokens    []string // pre-normalized/tokenized, for literal patterns
	tokenSet  map[string]struct{}
}

// entry is one ActionCode's full keyword dictionary.
type entry struct {
	actionCode taxonomy.ActionCode
	priority   int // 1 (highest) - 9 (lowest)
	patterns   []pattern
}

// fileEntry mirrors the on-disk JSON shape:
// {"ACTION_CODE": {"priority": 1, "keywords": ["add to cart", "size\\s+\\d+"]}}.
type fileEntry struct {
	Priority int      `json:"priority"`
	Keywords []string `json:"keywords"`
}

// Matcher holds the loaded, compiled keyword dictionaries. Load builds
// it once and nothing mutates it afterwards, so concurrent Match calls
// need no lock.
type Matcher struct {
	entries []entry
}

// Load reads every *.json file in dir as {ActionCode: fileEntry}. A
// malformed file produces a warning and is skipped rather than failing
// startup — the service starts without that file's contributions.
func Load(dir string, log zerolog.Logger) (*Matcher, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("keyword: read dir %s: %w", dir, err)
	}

	m := &Matcher{}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, f.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("keyword: could not read dictionary file, skipping")
			continue
		}
		var parsed map[taxonomy.ActionCode]fileEntry
		if err := json.Unmarshal(raw, &parsed); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("keyword: malformed dictionary file, skipping")
			continue
		}
		for code, fe := range parsed {
			e, err := buildEntry(code, fe, log)
			if err != nil {
				log.Warn().Err(err).Str("file", path).Str("action_code", string(code)).Msg("keyword: dropping entry")
				continue
			}
			m.entries = append(m.entries, e)
		}
	}
	// Stable order for determinism regardless of map iteration / file order.
	sort.Slice(m.entries, func(i, j int) bool { return m.entries[i].actionCode < m.entries[j].actionCode })
	return m, nil
}

func buildEntry(code taxonomy.ActionCode, fe fileEntry, log zerolog.Logger) (entry, error) {
	if fe.Priority < 1 || fe.Priority > 9 {
		return entry{}, fmt.Errorf("priority %d out of range [1,9]", fe.Priority)
	}
	seen := make(map[string]struct{})
	var patterns []pattern
	for _, kw := range fe.Keywords {
		trimmed := strings.TrimSpace(kw)
		if trimmed == "" {
			continue // no empty patterns
		}
		dedupKey := strings.ToLower(trimmed)
		if _, dup := seen[dedupKey]; dup {
			continue
		}
		seen[dedupKey] = struct{}{}

		if looksLikeRegex(trimmed) {
			re, err := regexp.Compile("(?i)" + trimmed)
			if err != nil {
				log.Warn().Err(err).Str("pattern", trimmed).Msg("keyword: regex failed to compile, dropping pattern")
				continue
			}
			patterns = append(patterns, pattern{raw: trimmed, isRegex: true, re: re})
			continue
		}

		norm := normalize.Normalize(trimmed)
		if len(norm.Tokens) == 0 {
			continue
		}
		tokenSet := make(map[string]struct{}, len(norm.Tokens))
		for _, t := range norm.Tokens {
			tokenSet[t] = struct{}{}
		}
		patterns = append(patterns, pattern{raw: norm.Normalized, isRegex: false, tokens: norm.Tokens, tokenSet: tokenSet})
	}
	if len(patterns) == 0 {
		return entry{}, fmt.Errorf("no usable patterns")
	}
	return entry{actionCode: code, priority: fe.Priority, patterns: patterns}, nil
}

// Match scores norm against every loaded dictionary and returns the
// top N candidates, sorted by score desc, then match-type rank, then
// ActionCode ascending. An empty-token input returns an empty slice.
func (m *Matcher) Match(norm normalize.Result, topN int) []types.Candidate {
	if len(norm.Tokens) == 0 {
		return nil
	}

	type best struct {
		score     float64
		matchType types.MatchType
		matched   string
	}
	bestByCode := make(map[taxonomy.ActionCode]best)

	for _, e := range m.entries {
		for _, seg := range norm.Segments {
			segNorm := normalize.Normalize(seg)
			for _, p := range e.patterns {
				score, mt, matched, ok := scorePattern(p, segNorm)
				if !ok {
					continue
				}
				score /= float64(e.priority)
				cur, exists := bestByCode[e.actionCode]
				if !exists || score > cur.score ||
					(score == cur.score && types.MatchTypeRank(mt) < types.MatchTypeRank(cur.matchType)) {
					bestByCode[e.actionCode] = best{score: score, matchType: mt, matched: matched}
				}
			}
		}
	}

	candidates := make([]types.Candidate, 0, len(bestByCode))
	for code, b := range bestByCode {
		candidates = append(candidates, types.Candidate{
			ActionCode:  code,
			Score:       clamp01(b.score),
			Source:      types.SourceKeyword,
			MatchType:   b.matchType,
			MatchedText: b.matched,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if types.MatchTypeRank(a.MatchType) != types.MatchTypeRank(b.MatchType) {
			return types.MatchTypeRank(a.MatchType) < types.MatchTypeRank(b.MatchType)
		}
		return a.ActionCode < b.ActionCode
	})

	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

// scorePattern scores one pattern against one normalized segment. Exact
// literal match beats regex beats partial overlap, in that preference
// order for a single pattern (partial only applies when neither exact
// nor regex matched).
func scorePattern(p pattern, seg normalize.Result) (score float64, mt types.MatchType, matched string, ok bool) {
	if p.isRegex {
		if loc := p.re.FindStringIndex(seg.Normalized); loc != nil {
			matchLen := loc[1] - loc[0]
			patLen := len(p.raw)
			if patLen == 0 {
				patLen = 1
			}
			return float64(matchLen) / float64(patLen), types.MatchRegex, seg.Normalized[loc[0]:loc[1]], true
		}
		return 0, "", "", false
	}

	// Exact literal: every pattern token appears as a contiguous token
	// run within the segment.
	if containsTokenRun(seg.Tokens, p.tokens) {
		return 1.0, types.MatchExact, strings.Join(p.tokens, " "), true
	}

	// Partial: token-overlap fraction against the pattern's token set.
	overlap := 0
	for _, t := range seg.Tokens {
		if _, ok := p.tokenSet[t]; ok {
			overlap++
		}
	}
	if overlap == 0 || len(p.tokens) == 0 {
		return 0, "", "", false
	}
	frac := float64(overlap) / float64(len(p.tokens))
	return frac, types.MatchPartial, strings.Join(p.tokens, " "), true
}

func containsTokenRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, t := range needle {
			if haystack[i+j] != t {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
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
