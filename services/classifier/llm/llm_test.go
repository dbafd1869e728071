package llm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/llm"
)

func contextBackground() context.Context { return context.Background() }

func TestClassifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"action_code":"ADD_TO_CART","confidence":0.92,"entities":{},"reasoning":"clear intent","prompt_tokens":50,"completion_tokens":20}`))
	}))
	defer srv.Close()

	client := llm.NewClient(llm.Config{
		Endpoint: srv.URL, Model: "gpt-4o-mini", MaxRetries: 3,
		BaseBackoff: time.Millisecond, RequestTimeout: time.Second, MaxCostPerRequest: 1.0,
	}, llm.NewConnectionPool(llm.DefaultPoolConfig()), llm.DefaultPricing(), nil, nil, nil, zerolog.Nop())

	result, err := client.Classify(contextBackground(), "add this to my cart", llm.Context{}, nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.ActionCode != "ADD_TO_CART" || result.Confidence != 0.92 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestBudgetExceededSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := llm.NewClient(llm.Config{
		Endpoint: srv.URL, Model: "gpt-4o", MaxRetries: 3,
		BaseBackoff: time.Millisecond, RequestTimeout: time.Second, MaxCostPerRequest: 0.0000001,
	}, llm.NewConnectionPool(llm.DefaultPoolConfig()), llm.DefaultPricing(), nil, nil, nil, zerolog.Nop())

	_, err := client.Classify(contextBackground(), "a somewhat long query to price out", llm.Context{}, nil)
	if err == nil {
		t.Fatalf("expected budget_exceeded error")
	}
	ce, ok := err.(*llm.ClientError)
	if !ok || ce.Kind != llm.ErrBudgetExceeded {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if called {
		t.Fatalf("expected no network call when budget is exceeded")
	}
}

func TestAuthErrorDoesNotRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := llm.NewClient(llm.Config{
		Endpoint: srv.URL, Model: "gpt-4o-mini", MaxRetries: 3,
		BaseBackoff: time.Millisecond, RequestTimeout: time.Second, MaxCostPerRequest: 1.0,
	}, llm.NewConnectionPool(llm.DefaultPoolConfig()), llm.DefaultPricing(), nil, nil, nil, zerolog.Nop())

	_, err := client.Classify(contextBackground(), "query", llm.Context{}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for non-retryable auth error, got %d", calls)
	}
}

func TestServerErrorRetriesThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := llm.NewClient(llm.Config{
		Endpoint: srv.URL, Model: "gpt-4o-mini", MaxRetries: 3,
		BaseBackoff: time.Millisecond, RequestTimeout: time.Second, MaxCostPerRequest: 1.0,
	}, llm.NewConnectionPool(llm.DefaultPoolConfig()), llm.DefaultPricing(), nil, nil, nil, zerolog.Nop())

	_, err := client.Classify(contextBackground(), "query", llm.Context{}, nil)
	if err == nil {
		t.Fatalf("expected error after retries exhausted")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts for retryable server error, got %d", calls)
	}
}
