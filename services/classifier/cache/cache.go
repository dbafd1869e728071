// Package cache implements a two-tier response cache (exact
// normalized-query match, then semantic cosine match) sitting in front
// of the LLM escalation path. Adapted from the gateway's
// caching.Engine — same exact-index + RWMutex shape, one cache with no
// namespaces —
// but with true LRU eviction (the gateway's cache evicted
// oldest-by-CreatedAt), p50/p95 latency tracking, and top-K-by-hit-count,
// none of which the gateway's cache needed for its use case.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/kvstore"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

// Entry is one cached classification result plus its query embedding,
// owned exclusively by the cache and never mutated after insertion
// except HitCount.
type Entry struct {
	NormalizedQuery string
	Embedding       []float32
	Result          types.ClassificationResult
	StoredAt        time.Time
	TTL             time.Duration
	HitCount        int64
}

func (e *Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.StoredAt.Add(e.TTL))
}

// Config bundles the cache tunables, fixed at construction (main.go
// fills them from the boot-time config.Config, not a ConfigVariant).
type Config struct {
	SimilarityThreshold         float64
	FallbackSimilarityThreshold float64
	TTL                         time.Duration
	MaxSize                     int
	MinQueryTokens              int
	MinConfidenceToStore        float64
}

// LookupResult reports which tier (if any) produced a hit.
type LookupResult struct {
	Hit        bool
	Entry      *Entry
	Tier       string // "exact" | "semantic" | ""
	Similarity float64
}

// Stats is a point-in-time snapshot of cache health.
type Stats struct {
	Hits          int64
	Misses        int64
	Size          int
	Degraded      bool
	P50LatencyMS  float64
	P95LatencyMS  float64
	TopQueries    []TopQuery
}

// TopQuery is one entry in the top-K-by-hit-count report.
type TopQuery struct {
	NormalizedQuery string
	HitCount        int64
}

// Engine is the cache. mu guards the LRU list/index; the KV store
// backing degrades independently (see kvstore.DegradingStore) and
// Engine surfaces that as Stats.Degraded.
type Engine struct {
	mu    sync.RWMutex
	cfg   Config
	store kvstore.Store // consulted only for Stats.Degraded

	order *list.List               // front = most recently used
	byKey map[string]*list.Element // exact-match key -> element

	hits, misses int64
	latenciesMS  []float64 // bounded ring for p50/p95
}

type listElem struct {
	key   string
	entry *Entry
}

const maxLatencySamples = 2000

// NewEngine builds a cache on top of store (which may itself be a
// kvstore.DegradingStore, in which case Stats.Degraded reflects it).
func NewEngine(cfg Config, store kvstore.Store) *Engine {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10000
	}
	return &Engine{
		cfg:   cfg,
		store: store,
		order: list.New(),
		byKey: make(map[string]*list.Element),
	}
}

// ExactKey computes the wire-format exact-match cache key:
// cache:exact:<sha256(normalized_query)>.
func ExactKey(normalizedQuery string) string {
	sum := sha256.Sum256([]byte(normalizedQuery))
	return "cache:exact:" + hex.EncodeToString(sum[:])
}

// Get performs the two-tier lookup: exact match first, then semantic
// scan against queryEmbedding if the exact match misses. fallbackMode
// selects the looser (0.90 default) similarity threshold used when the
// LLM path itself is degraded.
func (e *Engine) Get(ctx context.Context, normalizedQuery string, queryEmbedding []float32, fallbackMode bool) LookupResult {
	start := time.Now()
	defer func() { e.recordLatency(time.Since(start)) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if el, ok := e.byKey[normalizedQuery]; ok {
		entry := el.Value.(*listElem).entry
		if entry.expired(now) {
			e.removeLocked(el)
		} else {
			entry.HitCount++
			e.order.MoveToFront(el)
			e.hits++
			return LookupResult{Hit: true, Entry: entry, Tier: "exact"}
		}
	}

	threshold := e.cfg.SimilarityThreshold
	if fallbackMode {
		threshold = e.cfg.FallbackSimilarityThreshold
	}

	var best *list.Element
	var bestSim float64
	for el := e.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*listElem).entry
		if entry.expired(now) {
			continue
		}
		sim := cosineSimilarity(queryEmbedding, entry.Embedding)
		if sim >= threshold && sim > bestSim {
			best, bestSim = el, sim
		}
	}
	if best != nil {
		entry := best.Value.(*listElem).entry
		entry.HitCount++
		e.order.MoveToFront(best)
		e.hits++
		return LookupResult{Hit: true, Entry: entry, Tier: "semantic", Similarity: bestSim}
	}

	e.misses++
	return LookupResult{}
}

// Set stores a result if it clears the write-gate: confidence >= 0.70
// and query length (in tokens, caller-supplied) >= MinQueryTokens.
func (e *Engine) Set(normalizedQuery string, tokenCount int, embedding []float32, result types.ClassificationResult) bool {
	if result.Confidence < e.cfg.MinConfidenceToStore || tokenCount < e.cfg.MinQueryTokens {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entry := &Entry{
		NormalizedQuery: normalizedQuery,
		Embedding:       embedding,
		Result:          result,
		StoredAt:        time.Now(),
		TTL:             e.cfg.TTL,
	}

	if el, exists := e.byKey[normalizedQuery]; exists {
		el.Value.(*listElem).entry = entry
		e.order.MoveToFront(el)
		return true
	}

	el := e.order.PushFront(&listElem{key: normalizedQuery, entry: entry})
	e.byKey[normalizedQuery] = el

	if e.order.Len() > e.cfg.MaxSize {
		oldest := e.order.Back()
		if oldest != nil {
			e.removeLocked(oldest)
		}
	}
	return true
}

func (e *Engine) removeLocked(el *list.Element) {
	le := el.Value.(*listElem)
	delete(e.byKey, le.key)
	e.order.Remove(el)
}

// Invalidate drops a single normalized query from the cache.
func (e *Engine) Invalidate(normalizedQuery string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if el, ok := e.byKey[normalizedQuery]; ok {
		e.removeLocked(el)
	}
}

// Clear empties the entire cache.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order = list.New()
	e.byKey = make(map[string]*list.Element)
}

func (e *Engine) recordLatency(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	e.mu.Lock()
	e.latenciesMS = append(e.latenciesMS, ms)
	if len(e.latenciesMS) > maxLatencySamples {
		e.latenciesMS = e.latenciesMS[len(e.latenciesMS)-maxLatencySamples:]
	}
	e.mu.Unlock()
}

// Stats reports hit/miss counts, p50/p95 lookup latency, current size,
// and the top-K queries by hit count.
func (e *Engine) Stats(ctx context.Context, topK int) Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Stats{
		Hits:   e.hits,
		Misses: e.misses,
		Size:   e.order.Len(),
	}
	if e.store != nil {
		s.Degraded = !e.store.Healthy(ctx)
	}

	samples := append([]float64(nil), e.latenciesMS...)
	sort.Float64s(samples)
	s.P50LatencyMS = percentile(samples, 0.50)
	s.P95LatencyMS = percentile(samples, 0.95)

	entries := make([]TopQuery, 0, e.order.Len())
	for el := e.order.Front(); el != nil; el = el.Next() {
		en := el.Value.(*listElem).entry
		entries = append(entries, TopQuery{NormalizedQuery: en.NormalizedQuery, HitCount: en.HitCount})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].HitCount > entries[j].HitCount })
	if topK > 0 && len(entries) > topK {
		entries = entries[:topK]
	}
	s.TopQueries = entries
	return s
}

func percentile(sortedSamples []float64, p float64) float64 {
	if len(sortedSamples) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sortedSamples)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sortedSamples) {
		idx = len(sortedSamples) - 1
	}
	return sortedSamples[idx]
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
