package status_test

import (
	"context"
	"testing"
	"time"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/kvstore"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/status"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

func newStore(ttl time.Duration) *status.Store {
	return status.NewStore(kvstore.NewInMemoryStore(), ttl)
}

func TestCreateThenGet(t *testing.T) {
	s := newStore(time.Hour)
	ctx := context.Background()
	if err := s.Create(ctx, "req-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec, ok, err := s.Get(ctx, "req-1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if rec.State != status.StateQueued {
		t.Fatalf("expected QUEUED, got %s", rec.State)
	}
}

func TestUpdateTransitionsForward(t *testing.T) {
	s := newStore(time.Hour)
	ctx := context.Background()
	_ = s.Create(ctx, "req-2")
	if err := s.Update(ctx, "req-2", status.StateProcessing, "", nil, nil); err != nil {
		t.Fatalf("Update to PROCESSING: %v", err)
	}
	result := &types.ClassificationResult{ActionCode: "ADD_TO_CART"}
	usage := &status.Usage{PromptTokens: 10, CompletionTokens: 5, Cost: 0.0001}
	if err := s.Update(ctx, "req-2", status.StateCompleted, "done", result, usage); err != nil {
		t.Fatalf("Update to COMPLETED: %v", err)
	}
	rec, ok, _ := s.Get(ctx, "req-2")
	if !ok || rec.State != status.StateCompleted || rec.Result == nil || rec.Usage == nil {
		t.Fatalf("unexpected record: %+v ok=%v", rec, ok)
	}
}

func TestUpdateRejectsBackwardTransition(t *testing.T) {
	s := newStore(time.Hour)
	ctx := context.Background()
	_ = s.Create(ctx, "req-3")
	_ = s.Update(ctx, "req-3", status.StateCompleted, "", nil, nil)
	if err := s.Update(ctx, "req-3", status.StateQueued, "", nil, nil); err == nil {
		t.Fatalf("expected error moving COMPLETED back to QUEUED")
	}
}

func TestGetUnknownRequestNotFound(t *testing.T) {
	s := newStore(time.Hour)
	_, ok, err := s.Get(context.Background(), "never-created")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected not found")
	}
}

func TestExpiredRecordReadsAsNotFound(t *testing.T) {
	s := newStore(10 * time.Millisecond)
	ctx := context.Background()
	_ = s.Create(ctx, "req-4")
	time.Sleep(30 * time.Millisecond)
	_, ok, err := s.Get(ctx, "req-4")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected expired record to read as not found")
	}
}

func TestUpdateUnknownRequestFails(t *testing.T) {
	s := newStore(time.Hour)
	if err := s.Update(context.Background(), "ghost", status.StateProcessing, "", nil, nil); err == nil {
		t.Fatalf("expected error updating a request that was never created")
	}
}
