package config_test

import (
	"os"
	"testing"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/config"
)

func TestLoadConfigFromEnv(t *testing.T) {
	os.Setenv("REDIS_URL", "redis://localhost:6379")
	os.Setenv("ENV", "test")
	os.Setenv("KW_WEIGHT", "0.7")
	defer func() {
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("ENV")
		os.Unsetenv("KW_WEIGHT")
	}()

	cfg := config.Load()
	if cfg.RedisURL != "redis://localhost:6379" {
		t.Fatalf("expected REDIS_URL to be loaded, got %s", cfg.RedisURL)
	}
	if cfg.Env != "test" {
		t.Fatalf("expected ENV=test, got %s", cfg.Env)
	}
	if cfg.KeywordWeight != 0.7 {
		t.Fatalf("expected KW_WEIGHT=0.7, got %v", cfg.KeywordWeight)
	}
	if cfg.EmbeddingWeight != 0.4 {
		t.Fatalf("expected default EMB_WEIGHT=0.4, got %v", cfg.EmbeddingWeight)
	}
}

func TestEmbeddingEnabledDefaultsTrueAndRespectsOverride(t *testing.T) {
	if cfg := config.Load(); !cfg.EmbeddingEnabled {
		t.Fatalf("expected EMBEDDING_ENABLED to default true")
	}

	os.Setenv("EMBEDDING_ENABLED", "false")
	defer os.Unsetenv("EMBEDDING_ENABLED")

	cfg := config.Load()
	if cfg.EmbeddingEnabled {
		t.Fatalf("expected EMBEDDING_ENABLED=false to disable semantic matching")
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	cfg := config.Load()
	sum := cfg.KeywordWeight + cfg.EmbeddingWeight
	if diff := sum - 1.0; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected default kw_weight+emb_weight=1.0, got %v", sum)
	}
}
