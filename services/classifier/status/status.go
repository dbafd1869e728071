// Package status tracks the lifecycle of an escalated request
// (QUEUED -> PROCESSING -> COMPLETED|FAILED) behind the shared kvstore
// abstraction, with monotonic state transitions and a TTL measured
// from the last update.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/kvstore"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

// State is the request's lifecycle stage.
type State string

const (
	StateQueued     State = "QUEUED"
	StateProcessing State = "PROCESSING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// rank enforces monotonic transitions: a later state can't be
// overwritten by an earlier one.
var rank = map[State]int{
	StateQueued:     0,
	StateProcessing: 1,
	StateCompleted:  2,
	StateFailed:     2, // COMPLETED and FAILED are both terminal
}

// Usage records token/cost accounting for a completed LLM call.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

// Record is the polling-visible state of one async request.
type Record struct {
	RequestID string                      `json:"request_id"`
	State     State                       `json:"state"`
	Message   string                      `json:"message,omitempty"`
	Result    *types.ClassificationResult `json:"result,omitempty"`
	Usage     *Usage                      `json:"usage,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
	TTL       time.Duration               `json:"ttl"`
}

func (r *Record) expired(now time.Time) bool {
	return r.TTL > 0 && now.After(r.UpdatedAt.Add(r.TTL))
}

// Store tracks request lifecycle state, backed by any kvstore.Store
// (Redis or the in-process degraded fallback).
type Store struct {
	backing kvstore.Store
	ttl     time.Duration
}

// NewStore builds a status store with the default TTL (1h from last
// update).
func NewStore(backing kvstore.Store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{backing: backing, ttl: ttl}
}

func key(requestID string) string { return "status:" + requestID }

// Create writes the initial QUEUED record for a freshly enqueued
// request.
func (s *Store) Create(ctx context.Context, requestID string) error {
	now := time.Now()
	rec := Record{RequestID: requestID, State: StateQueued, CreatedAt: now, UpdatedAt: now, TTL: s.ttl}
	return s.put(ctx, rec)
}

// Update atomically transitions a request's state. Transitions must be
// monotonic; an attempt to move backward is rejected rather than
// silently applied.
func (s *Store) Update(ctx context.Context, requestID string, next State, message string, result *types.ClassificationResult, usage *Usage) error {
	rec, ok, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("status: %s not found", requestID)
	}
	if rank[next] < rank[rec.State] {
		return fmt.Errorf("status: illegal transition %s -> %s for %s", rec.State, next, requestID)
	}
	rec.State = next
	rec.Message = message
	if result != nil {
		rec.Result = result
	}
	if usage != nil {
		rec.Usage = usage
	}
	rec.UpdatedAt = time.Now()
	return s.put(ctx, rec)
}

// Get returns the record for requestID; an expired record reads as not
// found, and is opportunistically deleted.
func (s *Store) Get(ctx context.Context, requestID string) (Record, bool, error) {
	raw, ok, err := s.backing.Get(ctx, key(requestID))
	if err != nil {
		return Record{}, false, err
	}
	if !ok {
		return Record{}, false, nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, false, fmt.Errorf("status: corrupt record for %s: %w", requestID, err)
	}
	if rec.expired(time.Now()) {
		_ = s.backing.Delete(ctx, key(requestID))
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) put(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.backing.Set(ctx, key(rec.RequestID), string(raw), s.ttl)
}
