// Package embedding implements semantic matching of a normalized
// query against per-ActionCode reference embeddings via cosine
// similarity. The reference-embedding shape is grounded on the
// ScoredEmbedding/Embedding vector types seen in the pack's vector-store
// examples (sqvect); the LRU query-embedding cache reuses the same
// doubly-linked-list approach as normalize's cache and the gateway's
// caching.Engine eviction idiom.
package embedding

import (
	"container/list"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/taxonomy"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

// Dimension is the default reference-embedding width.
const Dimension = 384

// Encoder turns text into a fixed-width vector. Implementations may be
// backed by a local model, an ONNX runtime, or a remote embedding API;
// encoders are expected to be expensive to initialize and cheap to call
// once warm, hence the lazy blocking init in Matcher.
type Encoder interface {
	Encode(text string) ([]float32, error)
	Dimension() int
}

// ReferenceSet maps an ActionCode to its unit-normalized reference
// vector: the mean of its example-phrase encodings, L2-normalized.
type ReferenceSet map[taxonomy.ActionCode][]float32

// BuildReferenceSet encodes every intent's example phrases and averages
// them into one unit vector per ActionCode.
func BuildReferenceSet(enc Encoder, defs []taxonomy.IntentDefinition) (ReferenceSet, error) {
	refs := make(ReferenceSet, len(defs))
	for _, d := range defs {
		if len(d.ExamplePhrases) == 0 {
			continue
		}
		sum := make([]float64, enc.Dimension())
		for _, phrase := range d.ExamplePhrases {
			v, err := enc.Encode(phrase)
			if err != nil {
				return nil, fmt.Errorf("embedding: encode example for %s: %w", d.ActionCode, err)
			}
			for i, x := range v {
				sum[i] += float64(x)
			}
		}
		mean := make([]float32, len(sum))
		for i, x := range sum {
			mean[i] = float32(x / float64(len(d.ExamplePhrases)))
		}
		refs[d.ActionCode] = normalizeVector(mean)
	}
	return refs, nil
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// cosineUnit computes the cosine similarity of two unit vectors (a
// plain dot product) and rescales it from [-1,1] to [0,1].
func cosineUnit(a, b []float32) float64 {
	var dot float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return (dot + 1) / 2
}

// Matcher is a lazy-init encoder + reference set + query cache.
type Matcher struct {
	initEncoder func() (Encoder, error)

	initOnce sync.Once
	initErr  error
	encoder  Encoder

	refs  ReferenceSet
	cache *queryCache

	mu      sync.RWMutex
	healthy bool
}

// NewMatcher builds a Matcher. initEncoder is invoked at most once, on
// the first call to Match, so startup never blocks on encoder warmup.
func NewMatcher(initEncoder func() (Encoder, error), refs ReferenceSet, cacheCapacity int) *Matcher {
	return &Matcher{
		initEncoder: initEncoder,
		refs:        refs,
		cache:       newQueryCache(cacheCapacity),
		healthy:     true,
	}
}

// Healthy reports whether the encoder initialized successfully. Once
// false, the Decision Engine should fall back to keyword-only scoring.
func (m *Matcher) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

func (m *Matcher) ensureEncoder() error {
	m.initOnce.Do(func() {
		enc, err := m.initEncoder()
		if err != nil {
			m.initErr = err
			m.mu.Lock()
			m.healthy = false
			m.mu.Unlock()
			return
		}
		m.encoder = enc
	})
	return m.initErr
}

// Match encodes normalizedQuery (blocking on first-ever call to
// initialize the encoder), compares it against every reference
// embedding, and returns the top N candidates sorted desc by score,
// ties broken by ActionCode.
func (m *Matcher) Match(normalizedQuery string, topN int) []types.Candidate {
	if normalizedQuery == "" {
		return nil
	}
	if err := m.ensureEncoder(); err != nil {
		return nil
	}

	vec, ok := m.cache.get(normalizedQuery)
	if !ok {
		v, err := m.encoder.Encode(normalizedQuery)
		if err != nil {
			return nil
		}
		vec = normalizeVector(v)
		m.cache.put(normalizedQuery, vec)
	}

	candidates := make([]types.Candidate, 0, len(m.refs))
	for code, ref := range m.refs {
		score := cosineUnit(vec, ref)
		candidates = append(candidates, types.Candidate{
			ActionCode: code,
			Score:      score,
			Source:     types.SourceEmbedding,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ActionCode < candidates[j].ActionCode
	})

	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

// Vector returns the unit embedding for normalizedQuery, computing and
// caching it if necessary. Used by the response cache to obtain a
// query vector for semantic lookups without duplicating encode calls.
func (m *Matcher) Vector(normalizedQuery string) ([]float32, bool) {
	if normalizedQuery == "" {
		return nil, false
	}
	if err := m.ensureEncoder(); err != nil {
		return nil, false
	}
	if vec, ok := m.cache.get(normalizedQuery); ok {
		return vec, true
	}
	v, err := m.encoder.Encode(normalizedQuery)
	if err != nil {
		return nil, false
	}
	vec := normalizeVector(v)
	m.cache.put(normalizedQuery, vec)
	return vec, true
}

// queryCache is an LRU of normalized-query -> unit embedding, sized to
// keep repeated queries from re-hitting the embedding API.
type queryCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

type queryCacheEntry struct {
	key   string
	value []float32
}

func newQueryCache(capacity int) *queryCache {
	if capacity < 512 {
		capacity = 512
	}
	return &queryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *queryCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*queryCacheEntry).value, true
}

func (c *queryCache) put(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*queryCacheEntry).value = value
		return
	}
	el := c.order.PushFront(&queryCacheEntry{key: key, value: value})
	c.items[key] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*queryCacheEntry).key)
		}
	}
}
