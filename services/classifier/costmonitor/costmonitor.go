// Package costmonitor implements the rate limiter that guards the
// LLM escalation path, the usage tracker that accumulates per-call cost
// into daily/monthly aggregates, and a spike detector over that daily
// history. The limiter is built on golang.org/x/time/rate's token
// bucket rather than the gateway's own hand-rolled sliding window
// (middleware/ratelimit.go), since the ecosystem package gives the same
// guarantee with less code to maintain; the spike detector keeps the
// gateway's intelligence.AnomalyDetector trailing-history idiom, scaled
// down to a daily-average comparison instead of a z-score.
package costmonitor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Limiter rate-limits LLM escalations using a token bucket sized to
// maxCalls tokens refilled evenly across window. It implements
// llm.RateLimiter.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter builds a limiter allowing maxCalls calls per window, with
// burst equal to maxCalls (default: 60 calls / 60s).
func NewLimiter(maxCalls int, window time.Duration) *Limiter {
	if maxCalls <= 0 {
		maxCalls = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	perSecond := rate.Limit(float64(maxCalls) / window.Seconds())
	return &Limiter{bucket: rate.NewLimiter(perSecond, maxCalls)}
}

// Allow reports whether a call may proceed right now.
func (l *Limiter) Allow() bool { return l.bucket.Allow() }

// usageRecord is one accounted LLM call.
type usageRecord struct {
	day              string
	model            string
	promptTokens     int
	completionTokens int
	cost             float64
	latency          time.Duration
}

// DailyAggregate summarizes a single day's LLM spend.
type DailyAggregate struct {
	Day         string
	Calls       int
	TotalCost   float64
	TotalTokens int
}

// Tracker accumulates usage records and exposes daily/monthly
// aggregates. It implements llm.UsageRecorder.
type Tracker struct {
	mu      sync.Mutex
	records []usageRecord
	daily   map[string]*DailyAggregate
}

// NewTracker builds an empty usage tracker.
func NewTracker() *Tracker {
	return &Tracker{daily: make(map[string]*DailyAggregate)}
}

// Record accounts one completed LLM call against today's aggregate.
func (t *Tracker) Record(model string, promptTokens, completionTokens int, cost float64, latency time.Duration) {
	day := time.Now().UTC().Format("2006-01-02")
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, usageRecord{day, model, promptTokens, completionTokens, cost, latency})
	agg, ok := t.daily[day]
	if !ok {
		agg = &DailyAggregate{Day: day}
		t.daily[day] = agg
	}
	agg.Calls++
	agg.TotalCost += cost
	agg.TotalTokens += promptTokens + completionTokens
}

// DailyCost returns the accumulated spend for day (UTC, format
// "2006-01-02").
func (t *Tracker) DailyCost(day string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if agg, ok := t.daily[day]; ok {
		return agg.TotalCost
	}
	return 0
}

// MonthlyCost sums every tracked day within the given month (format
// "2006-01").
func (t *Tracker) MonthlyCost(month string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total float64
	for day, agg := range t.daily {
		if len(day) >= 7 && day[:7] == month {
			total += agg.TotalCost
		}
	}
	return total
}

// History returns the daily aggregates sorted ascending by day,
// suitable for the spike detector.
func (t *Tracker) History() []DailyAggregate {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]DailyAggregate, 0, len(t.daily))
	for _, agg := range t.daily {
		out = append(out, *agg)
	}
	sortAggregatesByDay(out)
	return out
}

func sortAggregatesByDay(aggs []DailyAggregate) {
	for i := 1; i < len(aggs); i++ {
		for j := i; j > 0 && aggs[j].Day < aggs[j-1].Day; j-- {
			aggs[j], aggs[j-1] = aggs[j-1], aggs[j]
		}
	}
}

// SpikeDetector flags a day whose cost exceeds factor times the average
// of all prior days, requiring at least minHistoryDays of history
// before it will ever fire (cold-start safety, mirroring the gateway's
// AnomalyDetector len(h) < 5 guard, scaled down to a 2-day minimum for
// a service with a much smaller daily cost baseline).
type SpikeDetector struct {
	factor         float64
	minHistoryDays int
}

// NewSpikeDetector builds a detector with sensible defaults (factor
// 2.0, at least 2 days of history required).
func NewSpikeDetector(factor float64, minHistoryDays int) *SpikeDetector {
	if factor <= 0 {
		factor = 2.0
	}
	if minHistoryDays <= 0 {
		minHistoryDays = 2
	}
	return &SpikeDetector{factor: factor, minHistoryDays: minHistoryDays}
}

// SpikeResult is the verdict for the most recent day in history.
type SpikeResult struct {
	IsSpike bool
	Today   float64
	Average float64
	Factor  float64
}

// Check evaluates the last entry in history against the average of the
// entries preceding it.
func (d *SpikeDetector) Check(history []DailyAggregate) SpikeResult {
	if len(history) < d.minHistoryDays+1 {
		return SpikeResult{Factor: d.factor}
	}
	today := history[len(history)-1]
	prior := history[:len(history)-1]
	var sum float64
	for _, a := range prior {
		sum += a.TotalCost
	}
	avg := sum / float64(len(prior))
	return SpikeResult{
		IsSpike: avg > 0 && today.TotalCost > avg*d.factor,
		Today:   today.TotalCost,
		Average: avg,
		Factor:  d.factor,
	}
}

// Scheduler runs a spike check on a fixed interval (every 6h by
// default), logging any detected spike. Its Stop must be called to
// release the ticker goroutine.
type Scheduler struct {
	tracker  *Tracker
	detector *SpikeDetector
	interval time.Duration
	log      zerolog.Logger
	stopCh   chan struct{}
}

// NewScheduler builds a scheduler wired to tracker and detector.
func NewScheduler(tracker *Tracker, detector *SpikeDetector, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Scheduler{tracker: tracker, detector: detector, interval: interval, log: log, stopCh: make(chan struct{})}
}

// Start runs the periodic check in its own goroutine until Stop is
// called.
func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				result := s.detector.Check(s.tracker.History())
				if result.IsSpike {
					s.log.Warn().
						Float64("today_cost", result.Today).
						Float64("average_cost", result.Average).
						Float64("factor", result.Factor).
						Msg("LLM spend spike detected")
				}
			}
		}
	}()
}

// Stop halts the scheduler's background goroutine.
func (s *Scheduler) Stop() { close(s.stopCh) }
