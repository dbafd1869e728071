package kvstore

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DegradingStore wraps a primary Store (normally Redis-backed) and an
// in-process fallback. Every operation tries the primary first; on
// error it flips the degraded flag (logging once per state transition)
// and serves that call from the fallback. The next call tries the
// primary again, and a success clears the flag.
type DegradingStore struct {
	primary  Store
	fallback *InMemoryStore
	log      zerolog.Logger
	name     string
	degraded atomic.Bool
}

// NewDegradingStore builds a store that prefers primary and falls back
// to an internal in-memory map when primary calls fail.
func NewDegradingStore(name string, primary Store, log zerolog.Logger) *DegradingStore {
	return &DegradingStore{
		primary:  primary,
		fallback: NewInMemoryStore(),
		log:      log,
		name:     name,
	}
}

// Degraded reports whether the last operation fell back to the
// in-process map.
func (d *DegradingStore) Degraded() bool { return d.degraded.Load() }

func (d *DegradingStore) setDegraded(v bool) {
	if d.degraded.Swap(v) != v {
		if v {
			d.log.Warn().Str("store", d.name).Msg("backing store unreachable, degrading to in-process fallback")
		} else {
			d.log.Info().Str("store", d.name).Msg("backing store reachable again, leaving degraded mode")
		}
	}
}

func (d *DegradingStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := d.primary.Get(ctx, key)
	if err != nil {
		d.setDegraded(true)
		return d.fallback.Get(ctx, key)
	}
	d.setDegraded(false)
	return v, ok, nil
}

func (d *DegradingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := d.primary.Set(ctx, key, value, ttl); err != nil {
		d.setDegraded(true)
		return d.fallback.Set(ctx, key, value, ttl)
	}
	d.setDegraded(false)
	return nil
}

func (d *DegradingStore) Delete(ctx context.Context, key string) error {
	_ = d.fallback.Delete(ctx, key)
	if err := d.primary.Delete(ctx, key); err != nil {
		d.setDegraded(true)
		return nil
	}
	d.setDegraded(false)
	return nil
}

func (d *DegradingStore) Healthy(ctx context.Context) bool {
	return !d.degraded.Load() && d.primary.Healthy(ctx)
}
