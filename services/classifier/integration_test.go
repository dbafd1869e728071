package main_test

import (
	"os"
	"testing"
)

// Integration tests require a running Redis instance and are skipped by
// default. Set RUN_CLASSIFIER_INTEGRATION=1 and point REDIS_URL at a
// real instance to run them.
func TestIntegrationSkipByDefault(t *testing.T) {
	if os.Getenv("RUN_CLASSIFIER_INTEGRATION") != "1" {
		t.Skip("integration tests skipped; set RUN_CLASSIFIER_INTEGRATION=1 to run")
	}
	// placeholder: add integration tests exercising the classify/status
	// endpoints end-to-end against real Redis-backed cache/queue/status stores.
}
