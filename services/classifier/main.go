package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/alerts"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/cache"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/classifyerrors"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/config"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/configmgr"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/costmonitor"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/decision"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/embedding"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/entities"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/escalation"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/keyword"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/kvstore"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/llm"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/logger"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/normalize"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/pipeline"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/queue"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/redisclient"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/router"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/status"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/taxonomy"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

var errNoEmbeddingKey = errors.New("classifier: EMBEDDING_API_KEY not configured")

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("classifier service starting")

	var backing kvstore.Store = kvstore.NewInMemoryStore()
	if rc, err := redisclient.New(cfg); err != nil {
		log.Warn().Err(err).Msg("redis init failed — running on in-memory store only")
	} else if err := rc.Ping(); err != nil {
		log.Warn().Err(err).Msg("redis ping failed — running on in-memory store only")
	} else {
		log.Info().Msg("redis connected")
		backing = kvstore.NewDegradingStore("redis", kvstore.NewRedisStore(rc.Raw()), log)
	}
	degrading, _ := backing.(*kvstore.DegradingStore)

	catalogue, err := taxonomy.LoadDir(cfg.TaxonomyDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load intent taxonomy")
	}
	log.Info().Int("intents", catalogue.Len()).Msg("taxonomy loaded")

	keywordMatcher, err := keyword.Load(cfg.KeywordsDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load keyword dictionaries")
	}

	encoderFactory := func() (embedding.Encoder, error) {
		if !cfg.EmbeddingEnabled || cfg.EmbeddingAPIKey == "" {
			return nil, errNoEmbeddingKey
		}
		return embedding.NewHTTPEncoder(cfg.EmbeddingEndpoint, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, embedding.Dimension, cfg.EmbeddingTimeout), nil
	}

	var refs embedding.ReferenceSet
	switch {
	case !cfg.EmbeddingEnabled:
		log.Info().Msg("EMBEDDING_ENABLED=false — semantic matching disabled, keyword-only mode")
	case cfg.EmbeddingAPIKey == "":
		log.Info().Msg("EMBEDDING_API_KEY not set — semantic matching disabled, keyword-only mode")
	default:
		enc, encErr := encoderFactory()
		if encErr != nil {
			log.Warn().Err(encErr).Msg("embedding encoder init failed — semantic matching disabled")
		} else if built, buildErr := embedding.BuildReferenceSet(enc, catalogue.All()); buildErr != nil {
			log.Warn().Err(buildErr).Msg("failed to build embedding reference set — semantic matching disabled")
		} else {
			refs = built
		}
	}
	embeddingMatcher := embedding.NewMatcher(encoderFactory, refs, cfg.EmbeddingCacheCapacity)

	mgr, err := configmgr.Load(cfg.RulesDir+"/rules.json", cfg.RulesDir+"/versions", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config variants")
	}
	watchStop := make(chan struct{})
	go func() {
		if err := mgr.Watch(watchStop); err != nil {
			log.Error().Err(err).Msg("config watch exited")
		}
	}()

	normalizer := normalize.NewNormalizer(2048)
	cacheEngine := cache.NewEngine(cache.Config{
		SimilarityThreshold:         cfg.CacheSimilarityThreshold,
		FallbackSimilarityThreshold: cfg.CacheFallbackSimilarityThreshold,
		TTL:                         cfg.CacheTTL,
		MaxSize:                     cfg.CacheMaxSize,
		MinQueryTokens:              cfg.CacheMinQueryTokens,
		MinConfidenceToStore:        0.70,
	}, backing)

	q := queue.New(queue.Config{
		MaxRetries:    cfg.MaxRetries,
		RetryDelay:    cfg.RetryDelay,
		MessageTTL:    cfg.MessageTTL,
		VisibilityTTL: cfg.VisibilityTTL,
	})
	statusStore := status.NewStore(backing, cfg.MessageTTL)
	esc := escalation.New(q, statusStore)

	engine := decision.NewEngine(normalizer, keywordMatcher, embeddingMatcher, esc, nil, log)
	extractor := entities.NewExtractor(nil)
	svc := pipeline.New(normalizer, cacheEngine, embeddingMatcher, engine, extractor, mgr, log)

	limiter := costmonitor.NewLimiter(cfg.RateLimitMaxCalls, cfg.RateLimitWindow)
	tracker := costmonitor.NewTracker()
	spikeDetector := costmonitor.NewSpikeDetector(2.0, 2)
	scheduler := costmonitor.NewScheduler(tracker, spikeDetector, 6*time.Hour, log)
	scheduler.Start()

	alertSink := alerts.NewSink(cfg.EscalationWebhookURL, log)

	pool := llm.NewConnectionPool(llm.DefaultPoolConfig())
	pricing := llm.DefaultPricing()
	llmClient := llm.NewClient(llm.Config{
		Endpoint:          cfg.LLMEndpoint,
		APIKey:            cfg.LLMAPIKey,
		Model:             cfg.LLMModel,
		MaxRetries:        cfg.MaxRetries,
		BaseBackoff:       cfg.RetryDelay,
		RequestTimeout:    cfg.LLMRequestTimeout,
		MaxCostPerRequest: cfg.MaxCostPerRequest,
	}, pool, pricing, limiter, tracker, alertSink, log)

	validCodes := make(map[taxonomy.ActionCode]struct{}, catalogue.Len())
	for _, def := range catalogue.All() {
		validCodes[def.ActionCode] = struct{}{}
	}

	processor := func(ctx context.Context, msg *queue.Message) error {
		if err := statusStore.Update(ctx, msg.RequestID, status.StateProcessing, "", nil, nil); err != nil {
			log.Error().Err(err).Str("request_id", msg.RequestID).Msg("worker: failed to mark processing")
		}

		norm := normalizer.Normalize(msg.Payload.Query)
		var queryVec []float32
		if embeddingMatcher.Healthy() {
			queryVec, _ = embeddingMatcher.Vector(norm.Normalized)
		}

		llmCtx := llm.Context{}
		result, err := llmClient.Classify(ctx, msg.Payload.Query, llmCtx, validCodes)
		if err != nil {
			return resolveLLMFailure(ctx, cacheEngine, statusStore, msg, norm, queryVec, err, cfg.MaxRetries, log)
		}

		ruleEntities := extractor.ExtractRuleBased(norm.Normalized)
		merged := entities.Merge(ruleEntities, result.Entities)

		classification := types.ClassificationResult{
			ActionCode:   result.ActionCode,
			Confidence:   result.Confidence,
			Status:       types.StatusLLMClassification,
			Source:       types.SourceFallback,
			OriginalText: msg.Payload.Query,
			RequestID:    msg.RequestID,
		}
		if !merged.IsEmpty() {
			classification.Entities = &merged
		}

		cacheEngine.Set(norm.Normalized, len(norm.Tokens), queryVec, classification)

		usage := &status.Usage{
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			Cost:             result.Cost,
		}
		return statusStore.Update(ctx, msg.RequestID, status.StateCompleted, "", &classification, usage)
	}

	workerPool := queue.NewWorkerPool(q, cfg.WorkerCount, 250*time.Millisecond, processor, log)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerPool.Start(workerCtx)

	r := router.New(cfg, router.Dependencies{
		Pipeline:   svc,
		Status:     statusStore,
		Cache:      cacheEngine,
		ConfigMgr:  mgr,
		Store:      degrading,
		AdminToken: cfg.AdminToken,
	}, log)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("classifier listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	close(watchStop)
	scheduler.Stop()
	workerPool.Stop()
	workerCancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("classifier stopped gracefully")
	}
}

// resolveLLMFailure implements the fallback ladder a worker falls back
// to when the LLM call itself fails: retry the cache at the looser
// fallback similarity threshold, and failing that resolve to UNCLEAR
// with clarifying questions. Either way the request completes — an LLM
// failure must never strand the shopper in the dead-letter queue, so
// this always acknowledges the message unless the status store itself
// can't be written. In that case the error is returned so the queue's
// own retry/backoff applies, and the record is only marked FAILED once
// this was the message's last allowed attempt (about to be
// dead-lettered), never on an ordinary retryable attempt.
func resolveLLMFailure(ctx context.Context, cacheEngine *cache.Engine, statusStore *status.Store, msg *queue.Message, norm normalize.Result, queryVec []float32, llmErr error, maxRetries int, log zerolog.Logger) error {
	log.Warn().Err(llmErr).Str("request_id", msg.RequestID).Msg("worker: llm classification failed, applying fallback ladder")

	var result types.ClassificationResult
	if lookup := cacheEngine.Get(ctx, norm.Normalized, queryVec, true); lookup.Hit {
		result = lookup.Entry.Result
		result.Status = types.StatusLLMClassification
		result.FallbackSource = "cache"
	} else {
		result = classifyerrors.Unclear(msg.Payload.Query)
	}
	result.OriginalText = msg.Payload.Query
	result.RequestID = msg.RequestID

	if err := statusStore.Update(ctx, msg.RequestID, status.StateCompleted, llmErr.Error(), &result, nil); err != nil {
		log.Error().Err(err).Str("request_id", msg.RequestID).Msg("worker: failed to record fallback result")
		if msg.AttemptCount >= maxRetries {
			_ = statusStore.Update(ctx, msg.RequestID, status.StateFailed, err.Error(), nil, nil)
		}
		return err
	}
	return nil
}
