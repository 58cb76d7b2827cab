package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/basalt/internal/domain"
)

func testCatalog() *domain.Catalog {
	return domain.NewCatalog([]domain.ModelEntry{
		{
			ID:              "test.claude",
			Family:          domain.FamilyClaude,
			InputCostPer1K:  0.003,
			OutputCostPer1K: 0.015,
			MaxOutputTokens: 4096,
		},
		{
			ID:              "test.titan",
			Family:          domain.FamilyTitan,
			InputCostPer1K:  0.0008,
			OutputCostPer1K: 0.0016,
			MaxOutputTokens: 8192,
		},
	})
}

// mockCodec is a mock implementation of PayloadCodec for testing.
type mockCodec struct {
	buildErr   error
	builtReqs  []*domain.GenerationRequest
	output     *domain.ModelOutput
	parseErr   error
	deltas     []domain.ChunkDelta
	deltaIndex int
}

func (m *mockCodec) BuildPayload(_ domain.ModelEntry, req *domain.GenerationRequest) ([]byte, error) {
	if m.buildErr != nil {
		return nil, m.buildErr
	}
	reqCopy := *req
	m.builtReqs = append(m.builtReqs, &reqCopy)
	return []byte("payload"), nil
}

func (m *mockCodec) ParseResponse(_ domain.ModelEntry, _ []byte) (*domain.ModelOutput, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	if m.output != nil {
		return m.output, nil
	}
	return &domain.ModelOutput{Text: "test response", InputTokens: 10, OutputTokens: 20}, nil
}

func (m *mockCodec) ParseChunk(_ domain.ModelEntry, _ []byte) (*domain.ChunkDelta, error) {
	if m.deltaIndex >= len(m.deltas) {
		return nil, errors.New("unexpected chunk")
	}
	delta := m.deltas[m.deltaIndex]
	m.deltaIndex++
	return &delta, nil
}

// mockStream is an in-memory ChunkStream for testing.
type mockStream struct {
	chunks   int
	idx      int
	err      error
	closed   bool
	closeCnt int
}

func (m *mockStream) Next(_ context.Context) bool {
	if m.idx >= m.chunks {
		return false
	}
	m.idx++
	return true
}

func (m *mockStream) Chunk() []byte { return []byte("chunk") }
func (m *mockStream) Err() error    { return m.err }
func (m *mockStream) Close() error {
	m.closed = true
	m.closeCnt++
	return nil
}

// mockInvoker is a mock implementation of ModelInvoker for testing.
type mockInvoker struct {
	invokeErr error
	body      []byte
	stream    *mockStream
	streamErr error
	calls     int
}

func (m *mockInvoker) Invoke(_ context.Context, _ string, _ []byte) ([]byte, error) {
	m.calls++
	if m.invokeErr != nil {
		return nil, m.invokeErr
	}
	return m.body, nil
}

func (m *mockInvoker) InvokeStream(_ context.Context, _ string, _ []byte) (domain.ChunkStream, error) {
	m.calls++
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return m.stream, nil
}

func (m *mockInvoker) Name() string { return "mock" }

// mockCache is a mock implementation of ResponseCache for testing.
type mockCache struct {
	hit    *domain.GenerationResult
	stored int
}

func (m *mockCache) Get(_ context.Context, _ *domain.GenerationRequest) (*domain.GenerationResult, error) {
	if m.hit == nil {
		return nil, domain.ErrCacheMiss
	}
	return m.hit, nil
}

func (m *mockCache) Set(_ context.Context, _ *domain.GenerationRequest, _ *domain.GenerationResult, _ time.Duration) error {
	m.stored++
	return nil
}

func newService(codec *mockCodec, invoker *mockInvoker, accountant *domain.Accountant, cache domain.ResponseCache) *domain.GenerationService {
	return domain.NewGenerationService(testCatalog(), codec, invoker, accountant, cache, nil)
}

func TestGenerationService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("successful generation computes cost and records usage", func(t *testing.T) {
		codec := &mockCodec{output: &domain.ModelOutput{Text: "hello", InputTokens: 1000, OutputTokens: 500}}
		invoker := &mockInvoker{body: []byte("{}")}
		accountant := domain.NewAccountant()
		service := newService(codec, invoker, accountant, nil)

		res, err := service.Generate(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi"})
		require.NoError(t, err)
		require.Equal(t, "hello", res.Text)
		require.Equal(t, 1000, res.InputTokens)
		require.Equal(t, 500, res.OutputTokens)
		require.InDelta(t, 0.0105, res.Cost, 0.0000001) // 0.003*1 + 0.015*0.5

		snap := accountant.Snapshot()
		require.Equal(t, 1, snap.CallCount)
		require.InDelta(t, res.Cost, snap.TotalCost, 0.0000001)
	})

	t.Run("nil request is rejected", func(t *testing.T) {
		service := newService(&mockCodec{}, &mockInvoker{}, domain.NewAccountant(), nil)

		_, err := service.Generate(ctx, nil)
		require.Error(t, err)
	})

	t.Run("unknown model returns ErrUnknownModel", func(t *testing.T) {
		service := newService(&mockCodec{}, &mockInvoker{}, domain.NewAccountant(), nil)

		_, err := service.Generate(ctx, &domain.GenerationRequest{Model: "nope", Prompt: "hi"})
		require.ErrorIs(t, err, domain.ErrUnknownModel)
	})

	t.Run("out-of-range temperature returns ErrValidation", func(t *testing.T) {
		service := newService(&mockCodec{}, &mockInvoker{}, domain.NewAccountant(), nil)

		_, err := service.Generate(ctx, &domain.GenerationRequest{
			Model:       "test.claude",
			Prompt:      "hi",
			Temperature: 1.5,
		})
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("oversized max_tokens is clamped, not rejected", func(t *testing.T) {
		codec := &mockCodec{}
		invoker := &mockInvoker{body: []byte("{}")}
		service := newService(codec, invoker, domain.NewAccountant(), nil)

		_, err := service.Generate(ctx, &domain.GenerationRequest{
			Model:     "test.titan",
			Prompt:    "hi",
			MaxTokens: 10000, // above the 8192 ceiling
		})
		require.NoError(t, err)
		require.Len(t, codec.builtReqs, 1)
		require.Equal(t, 8192, codec.builtReqs[0].MaxTokens)
	})

	t.Run("missing max_tokens gets a default before clamping", func(t *testing.T) {
		codec := &mockCodec{}
		invoker := &mockInvoker{body: []byte("{}")}
		service := newService(codec, invoker, domain.NewAccountant(), nil)

		_, err := service.Generate(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi"})
		require.NoError(t, err)
		require.Equal(t, 1000, codec.builtReqs[0].MaxTokens)
	})

	t.Run("transport failure leaves usage unchanged", func(t *testing.T) {
		invoker := &mockInvoker{invokeErr: fmt.Errorf("%w: connection refused", domain.ErrTransport)}
		accountant := domain.NewAccountant()
		service := newService(&mockCodec{}, invoker, accountant, nil)

		_, err := service.Generate(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi"})
		require.ErrorIs(t, err, domain.ErrTransport)
		require.Equal(t, 0, accountant.Snapshot().CallCount)
	})

	t.Run("normalization failure leaves usage unchanged", func(t *testing.T) {
		codec := &mockCodec{parseErr: errors.New("bad body")}
		accountant := domain.NewAccountant()
		service := newService(codec, &mockInvoker{body: []byte("{}")}, accountant, nil)

		_, err := service.Generate(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi"})
		require.Error(t, err)
		require.Equal(t, 0, accountant.Snapshot().CallCount)
	})

	t.Run("cache hit skips invocation and records nothing", func(t *testing.T) {
		cached := &domain.GenerationResult{Model: "test.claude", Text: "cached"}
		cache := &mockCache{hit: cached}
		invoker := &mockInvoker{body: []byte("{}")}
		accountant := domain.NewAccountant()
		service := newService(&mockCodec{}, invoker, accountant, cache)

		res, err := service.Generate(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi"})
		require.NoError(t, err)
		require.Equal(t, "cached", res.Text)
		require.Equal(t, 0, invoker.calls)
		require.Equal(t, 0, accountant.Snapshot().CallCount)
	})

	t.Run("cache miss stores the completed result", func(t *testing.T) {
		cache := &mockCache{}
		service := newService(&mockCodec{}, &mockInvoker{body: []byte("{}")}, domain.NewAccountant(), cache)

		_, err := service.Generate(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi"})
		require.NoError(t, err)
		require.Equal(t, 1, cache.stored)
	})
}

func TestGenerationService_GenerateStream(t *testing.T) {
	ctx := context.Background()

	t.Run("stream yields fragments and a final recorded result", func(t *testing.T) {
		codec := &mockCodec{deltas: []domain.ChunkDelta{
			{Text: "Hello "},
			{Text: "world"},
			{Done: true, InputTokens: 7, OutputTokens: 2, HasUsage: true},
		}}
		raw := &mockStream{chunks: 3}
		invoker := &mockInvoker{stream: raw}
		accountant := domain.NewAccountant()
		service := newService(codec, invoker, accountant, nil)

		stream, err := service.GenerateStream(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi", Stream: true})
		require.NoError(t, err)
		defer stream.Close()

		var fragments []string
		for stream.Next(ctx) {
			fragments = append(fragments, stream.Fragment())
		}
		require.NoError(t, stream.Err())
		require.Equal(t, []string{"Hello ", "world"}, fragments)

		result, done := stream.Result()
		require.True(t, done)
		require.Equal(t, "Hello world", result.Text)
		require.Equal(t, 7, result.InputTokens)
		require.Equal(t, 2, result.OutputTokens)
		require.False(t, result.TokensEstimated)
		require.InDelta(t, 0.003*0.007+0.015*0.002, result.Cost, 0.0000001)

		require.True(t, raw.closed)
		require.Equal(t, 1, accountant.Snapshot().CallCount)
		require.InDelta(t, result.Cost, accountant.Snapshot().TotalCost, 0.0000001)
	})

	t.Run("final chunk without usage yields zero counts flagged as estimate", func(t *testing.T) {
		codec := &mockCodec{deltas: []domain.ChunkDelta{
			{Text: "partial"},
			{Done: true},
		}}
		invoker := &mockInvoker{stream: &mockStream{chunks: 2}}
		accountant := domain.NewAccountant()
		service := newService(codec, invoker, accountant, nil)

		stream, err := service.GenerateStream(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi", Stream: true})
		require.NoError(t, err)
		defer stream.Close()

		for stream.Next(ctx) {
		}
		require.NoError(t, stream.Err())

		result, done := stream.Result()
		require.True(t, done)
		require.Equal(t, "partial", result.Text)
		require.Equal(t, 0, result.InputTokens)
		require.Equal(t, 0, result.OutputTokens)
		require.True(t, result.TokensEstimated)

		require.Equal(t, 1, accountant.Snapshot().CallCount)
	})

	t.Run("transport error mid-stream records nothing and releases the stream", func(t *testing.T) {
		codec := &mockCodec{deltas: []domain.ChunkDelta{{Text: "some"}}}
		raw := &mockStream{chunks: 1, err: fmt.Errorf("%w: reset", domain.ErrTransport)}
		invoker := &mockInvoker{stream: raw}
		accountant := domain.NewAccountant()
		service := newService(codec, invoker, accountant, nil)

		stream, err := service.GenerateStream(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi", Stream: true})
		require.NoError(t, err)
		defer stream.Close()

		for stream.Next(ctx) {
		}
		require.ErrorIs(t, stream.Err(), domain.ErrTransport)

		_, done := stream.Result()
		require.False(t, done)
		require.True(t, raw.closed)
		require.Equal(t, 0, accountant.Snapshot().CallCount)
	})

	t.Run("abandoning a stream early records nothing", func(t *testing.T) {
		codec := &mockCodec{deltas: []domain.ChunkDelta{
			{Text: "a"}, {Text: "b"}, {Done: true, HasUsage: true},
		}}
		raw := &mockStream{chunks: 3}
		invoker := &mockInvoker{stream: raw}
		accountant := domain.NewAccountant()
		service := newService(codec, invoker, accountant, nil)

		stream, err := service.GenerateStream(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi", Stream: true})
		require.NoError(t, err)

		require.True(t, stream.Next(ctx))
		require.NoError(t, stream.Close())

		require.True(t, raw.closed)
		require.Equal(t, 0, accountant.Snapshot().CallCount)
	})

	t.Run("stream ending without done marker finalizes best-effort", func(t *testing.T) {
		codec := &mockCodec{deltas: []domain.ChunkDelta{{Text: "cut "}, {Text: "off"}}}
		invoker := &mockInvoker{stream: &mockStream{chunks: 2}}
		accountant := domain.NewAccountant()
		service := newService(codec, invoker, accountant, nil)

		stream, err := service.GenerateStream(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi", Stream: true})
		require.NoError(t, err)
		defer stream.Close()

		for stream.Next(ctx) {
		}
		require.NoError(t, stream.Err())

		result, done := stream.Result()
		require.True(t, done)
		require.Equal(t, "cut off", result.Text)
		require.True(t, result.TokensEstimated)
	})

	t.Run("stream invocation failure records nothing", func(t *testing.T) {
		invoker := &mockInvoker{streamErr: fmt.Errorf("%w: down", domain.ErrTransport)}
		accountant := domain.NewAccountant()
		service := newService(&mockCodec{}, invoker, accountant, nil)

		_, err := service.GenerateStream(ctx, &domain.GenerationRequest{Model: "test.claude", Prompt: "hi", Stream: true})
		require.ErrorIs(t, err, domain.ErrTransport)
		require.Equal(t, 0, accountant.Snapshot().CallCount)
	})
}

func TestGenerationService_ResetUsage(t *testing.T) {
	service := newService(&mockCodec{}, &mockInvoker{body: []byte("{}")}, domain.NewAccountant(), nil)

	_, err := service.Generate(context.Background(), &domain.GenerationRequest{Model: "test.claude", Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, 1, service.Usage().CallCount)

	service.ResetUsage(context.Background())
	require.Equal(t, 0, service.Usage().CallCount)
}
