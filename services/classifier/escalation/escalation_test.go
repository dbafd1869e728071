package escalation_test

import (
	"context"
	"testing"
	"time"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/configmgr"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/escalation"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/kvstore"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/queue"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/status"
)

func TestEscalateCreatesQueuedStatus(t *testing.T) {
	q := queue.New(queue.Config{MaxRetries: 3, RetryDelay: time.Millisecond, VisibilityTTL: time.Second})
	s := status.NewStore(kvstore.NewInMemoryStore(), time.Hour)
	e := escalation.New(q, s)

	requestID, err := e.Escalate("find me running shoes under 50", nil, configmgr.ConfigVariant{})
	if err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if requestID == "" {
		t.Fatalf("expected non-empty request id")
	}

	rec, ok, err := s.Get(context.Background(), requestID)
	if err != nil || !ok {
		t.Fatalf("expected status record, ok=%v err=%v", ok, err)
	}
	if rec.State != status.StateQueued {
		t.Fatalf("expected QUEUED, got %s", rec.State)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 queued message, got %d", q.Len())
	}
}
