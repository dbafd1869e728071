// Package normalize folds raw user text into a canonical, tokenized
// form shared by the keyword and embedding matchers. Normalization
// never suspends (no I/O, no locks held across a blocking call) and is
// idempotent: Normalize(Normalize(x)) == Normalize(x).
package normalize

import (
	"container/list"
	"regexp"
	"strings"
	"sync"
)

// symbolReplacements are applied before stripping punctuation, longest
// tokens first isn't required since each symbol is distinct.
var symbolReplacements = []struct {
	from string
	to   string
}{
	{"&", " and "},
	{"+", " plus "},
	{"@", " at "},
	{"#", " hash "},
	{"%", " percent "},
	{"$", " dollar "},
}

var (
	dashUnderscore = regexp.MustCompile(`[-_]+`)
	stripChars     = regexp.MustCompile(`[!?.,;:'"]`)
	wordRunes      = regexp.MustCompile(`\w+`)
	whitespace     = regexp.MustCompile(`\s+`)
	// segmentSplit marks the boundaries segmentText needs to see before
	// stripChars erases the punctuation they're built from.
	segmentSplit = regexp.MustCompile(`[,;]+|\band\b`)
)

// Result is the normalized form of one input: the canonical string plus
// its token runs, already lowercased and stripped.
type Result struct {
	Normalized string
	Tokens     []string
	// Segments splits Normalized on "and" and punctuation boundaries,
	// used by the keyword matcher to score clauses independently.
	Segments []string
}

// Normalize folds case, replaces/strips symbols, and tokenizes text. It
// is a pure function; Normalizer wraps it with an LRU cache.
func Normalize(text string) Result {
	s := strings.ToLower(text)
	for _, r := range symbolReplacements {
		s = strings.ReplaceAll(s, r.from, r.to)
	}
	s = dashUnderscore.ReplaceAllString(s, " ")

	// Segment boundaries (comma/semicolon, "and") have to be read off
	// the text before stripChars erases the punctuation they depend on.
	segments := segmentText(s)

	s = stripChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	tokens := wordRunes.FindAllString(s, -1)

	return Result{Normalized: s, Tokens: tokens, Segments: segments}
}

// segmentText splits s on comma/semicolon runs and the literal word
// "and", then normalizes each resulting clause the same way Normalize
// does its whole input, so "add to cart, track my order" yields two
// independently-scorable segments instead of one run-on clause.
func segmentText(s string) []string {
	parts := segmentSplit.Split(s, -1)
	var segments []string
	for _, p := range parts {
		p = stripChars.ReplaceAllString(p, "")
		p = whitespace.ReplaceAllString(p, " ")
		p = strings.TrimSpace(p)
		if p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) == 0 {
		cleaned := strings.TrimSpace(whitespace.ReplaceAllString(stripChars.ReplaceAllString(s, ""), " "))
		segments = []string{cleaned}
	}
	return segments
}

// Normalizer caches Normalize results behind an LRU of at least 128
// entries, since the same query text recurs heavily in production
// traffic (repeated cart/search phrasing).
type Normalizer struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	key   string
	value Result
}

// NewNormalizer builds a cache with the given capacity (minimum 128;
// smaller requests are clamped up).
func NewNormalizer(capacity int) *Normalizer {
	if capacity < 128 {
		capacity = 128
	}
	return &Normalizer{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Normalize returns the cached normalization of text, computing and
// storing it on a miss.
func (n *Normalizer) Normalize(text string) Result {
	n.mu.Lock()
	if el, ok := n.items[text]; ok {
		n.order.MoveToFront(el)
		result := el.Value.(*cacheEntry).value
		n.mu.Unlock()
		return result
	}
	n.mu.Unlock()

	result := Normalize(text)

	n.mu.Lock()
	defer n.mu.Unlock()
	if el, ok := n.items[text]; ok {
		n.order.MoveToFront(el)
		return el.Value.(*cacheEntry).value
	}
	el := n.order.PushFront(&cacheEntry{key: text, value: result})
	n.items[text] = el
	if n.order.Len() > n.capacity {
		oldest := n.order.Back()
		if oldest != nil {
			n.order.Remove(oldest)
			delete(n.items, oldest.Value.(*cacheEntry).key)
		}
	}
	return result
}
