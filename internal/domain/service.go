package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davidbz/basalt/internal/observability"
)

const (
	defaultMaxTokens = 1000
	cacheTTL         = 1 * time.Hour
)

// GenerationService orchestrates a generation call: catalog lookup, payload
// encoding, invocation, normalization and usage accounting.
type GenerationService struct {
	catalog    *Catalog
	codec      PayloadCodec
	invoker    ModelInvoker
	accountant *Accountant
	cache      ResponseCache
	events     EventPublisher
}

// NewGenerationService creates a new generation service (DI constructor).
func NewGenerationService(
	catalog *Catalog,
	codec PayloadCodec,
	invoker ModelInvoker,
	accountant *Accountant,
	cache ResponseCache,
	events EventPublisher,
) *GenerationService {
	return &GenerationService{
		catalog:    catalog,
		codec:      codec,
		invoker:    invoker,
		accountant: accountant,
		cache:      cache,
		events:     events,
	}
}

// Generate handles a non-streaming generation request.
func (s *GenerationService) Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	entry, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)

	// Check cache for non-streaming requests.
	if s.cache != nil {
		cached, cacheErr := s.cache.Get(ctx, req)
		if cacheErr != nil && !errors.Is(cacheErr, ErrCacheMiss) {
			logger.Warn("cache get failed, continuing without cache",
				observability.Error(cacheErr))
		}
		if cached != nil {
			logger.Info("cache HIT - returning cached result",
				observability.String("model", entry.ID))
			return cached, nil
		}
	}

	payload, err := s.codec.BuildPayload(entry, req)
	if err != nil {
		return nil, fmt.Errorf("payload encoding failed: %w", err)
	}

	start := time.Now()
	body, err := s.invoker.Invoke(ctx, entry.ID, payload)
	if err != nil {
		return nil, fmt.Errorf("invocation failed: %w", err)
	}
	latency := time.Since(start)

	out, err := s.codec.ParseResponse(entry, body)
	if err != nil {
		return nil, fmt.Errorf("response normalization failed: %w", err)
	}

	res := &GenerationResult{
		Model:        entry.ID,
		Text:         out.Text,
		InputTokens:  out.InputTokens,
		OutputTokens: out.OutputTokens,
		Cost:         entry.Cost(out.InputTokens, out.OutputTokens),
		LatencyMS:    latency.Milliseconds(),
		FinishTime:   time.Now(),
	}

	s.accountant.Record(entry, res)
	s.publishCompleted(ctx, entry, res)

	// Cache hits are never re-recorded, so only completed invocations land here.
	if s.cache != nil {
		if setErr := s.cache.Set(ctx, req, res, cacheTTL); setErr != nil {
			logger.Warn("failed to store result in cache",
				observability.Error(setErr))
		}
	}

	return res, nil
}

// GenerateStream handles a streaming generation request. The returned stream
// must be closed by the caller on every exit path; usage is recorded only
// when the stream completes cleanly.
func (s *GenerationService) GenerateStream(ctx context.Context, req *GenerationRequest) (*GenerationStream, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	entry, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	payload, err := s.codec.BuildPayload(entry, req)
	if err != nil {
		return nil, fmt.Errorf("payload encoding failed: %w", err)
	}

	raw, err := s.invoker.InvokeStream(ctx, entry.ID, payload)
	if err != nil {
		return nil, fmt.Errorf("stream invocation failed: %w", err)
	}

	return newGenerationStream(entry, s.codec, raw, func(res *GenerationResult) {
		s.accountant.Record(entry, res)
		s.publishCompleted(ctx, entry, res)
	}), nil
}

// Usage returns an immutable snapshot of the session usage totals.
func (s *GenerationService) Usage() SessionUsage {
	return s.accountant.Snapshot()
}

// ResetUsage clears the session usage totals.
func (s *GenerationService) ResetUsage(ctx context.Context) {
	s.accountant.Reset()
	if s.events != nil {
		s.events.Publish(ctx, "usage.reset", nil)
	}
}

// Models returns the catalog entries for comparison display.
func (s *GenerationService) Models() []ModelEntry {
	return s.catalog.List()
}

// prepare resolves the model entry and normalizes request parameters.
// Oversized max_tokens is clamped to the model ceiling rather than rejected;
// the clamp is logged so operators can see cost-relevant adjustments.
func (s *GenerationService) prepare(ctx context.Context, req *GenerationRequest) (ModelEntry, error) {
	entry, err := s.catalog.Lookup(req.Model)
	if err != nil {
		return ModelEntry{}, err
	}

	if req.Temperature < 0 || req.Temperature > 1 {
		return ModelEntry{}, fmt.Errorf("%w: temperature %.2f outside [0,1]", ErrValidation, req.Temperature)
	}

	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}

	if req.MaxTokens > entry.MaxOutputTokens {
		observability.FromContext(ctx).Warn("max_tokens clamped to model ceiling",
			observability.String("model", entry.ID),
			observability.Int("requested", req.MaxTokens),
			observability.Int("ceiling", entry.MaxOutputTokens))
		req.MaxTokens = entry.MaxOutputTokens
	}

	return entry, nil
}

func (s *GenerationService) publishCompleted(ctx context.Context, entry ModelEntry, res *GenerationResult) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, "generation.completed", map[string]interface{}{
		"model":            entry.ID,
		"family":           string(entry.Family),
		"input_tokens":     res.InputTokens,
		"output_tokens":    res.OutputTokens,
		"cost":             res.Cost,
		"latency_ms":       res.LatencyMS,
		"tokens_estimated": res.TokensEstimated,
	})
}
