// Package pipeline wires the cache in front of the decision engine,
// then merges entity extraction into whatever result comes back,
// producing the single entry point the HTTP handler calls. This is the
// synchronous request path: cache check -> hybrid classify -> cache
// write -> respond.
package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/cache"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/classifyerrors"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/configmgr"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/decision"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/entities"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/normalize"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

// VectorSource is the subset of embedding.Matcher the pipeline needs to
// obtain a query vector for cache lookups, independent of whether that
// matcher is currently healthy for classification purposes.
type VectorSource interface {
	Vector(normalizedQuery string) ([]float32, bool)
	Healthy() bool
}

// ConfigSource is the subset of configmgr.Manager the pipeline needs.
type ConfigSource interface {
	Active() configmgr.ConfigVariant
}

// Service is the synchronous classify entry point.
type Service struct {
	normalizer *normalize.Normalizer
	cache      *cache.Engine
	vectors    VectorSource
	decision   *decision.Engine
	extractor  *entities.Extractor
	cfg        ConfigSource
	log        zerolog.Logger
}

// New builds the pipeline Service from its dependencies.
func New(normalizer *normalize.Normalizer, c *cache.Engine, vectors VectorSource, d *decision.Engine, extractor *entities.Extractor, cfg ConfigSource, log zerolog.Logger) *Service {
	return &Service{normalizer: normalizer, cache: c, vectors: vectors, decision: d, extractor: extractor, cfg: cfg, log: log}
}

const maxQueryLength = 500

// Classify runs the full synchronous path for one raw query string.
func (s *Service) Classify(ctx context.Context, rawQuery string) types.ClassificationResult {
	trimmed := strings.TrimSpace(rawQuery)
	if trimmed == "" {
		return classifyerrors.InvalidInput(rawQuery)
	}
	if len(trimmed) > maxQueryLength {
		return classifyerrors.InvalidInput(rawQuery)
	}

	variant := s.cfg.Active()
	norm := s.normalizer.Normalize(trimmed)

	fallbackMode := !variant.UseEmbedding || !s.vectors.Healthy()
	var queryVec []float32
	if s.vectors.Healthy() {
		queryVec, _ = s.vectors.Vector(norm.Normalized)
	}

	if lookup := s.cache.Get(ctx, norm.Normalized, queryVec, fallbackMode); lookup.Hit {
		result := lookup.Entry.Result
		result.OriginalText = rawQuery
		return result
	}

	result := s.decision.Classify(trimmed, variant)
	result.OriginalText = rawQuery

	if result.Status == types.StatusConfidentKeyword || result.Status == types.StatusConfidentBlended {
		ruleBased := s.extractor.ExtractRuleBased(norm.Normalized)
		result.Entities = &ruleBased
		if result.Entities.IsEmpty() {
			result.Entities = nil
		}
		s.cache.Set(norm.Normalized, len(norm.Tokens), queryVec, result)
	}

	return result
}
