package domain

import (
	"context"
	"time"
)

// PayloadCodec converts between the unified request/result types and a
// family's wire shapes. Implementations dispatch on ModelEntry.Family and
// fail with ErrUnsupportedFamily on an unrecognized variant.
type PayloadCodec interface {
	// BuildPayload encodes a request into the family-specific JSON body.
	// MaxTokens is clamped to the entry's ceiling before encoding.
	BuildPayload(entry ModelEntry, req *GenerationRequest) ([]byte, error)

	// ParseResponse decodes a complete family-specific response body.
	ParseResponse(entry ModelEntry, body []byte) (*ModelOutput, error)

	// ParseChunk decodes one streamed chunk. The final chunk carries Done
	// and, when the service reported them, total token counts.
	ParseChunk(entry ModelEntry, chunk []byte) (*ChunkDelta, error)
}

// ChunkStream is a finite cursor over raw streamed chunks. It is not
// restartable. Close releases the underlying connection and is safe to call
// at any point, including before the stream is exhausted.
type ChunkStream interface {
	// Next advances to the next chunk, blocking until one arrives, the
	// stream ends, ctx is cancelled, or the transport fails. It returns
	// false on end of stream or error; check Err to distinguish.
	Next(ctx context.Context) bool

	// Chunk returns the raw bytes of the current chunk.
	Chunk() []byte

	// Err returns the terminal error, if any, once Next has returned false.
	Err() error

	// Close releases the underlying connection.
	Close() error
}

// ModelInvoker sends encoded payloads to an inference endpoint. Errors are
// classified into the domain taxonomy (ErrTransport, ErrAuthorization,
// ErrValidation) and never retried internally.
type ModelInvoker interface {
	// Invoke performs a single blocking model invocation.
	Invoke(ctx context.Context, modelID string, payload []byte) ([]byte, error)

	// InvokeStream performs a streaming invocation. The caller owns the
	// returned stream and must Close it on every exit path.
	InvokeStream(ctx context.Context, modelID string, payload []byte) (ChunkStream, error)

	// Name returns the transport identifier.
	Name() string
}

// ResponseCache stores completed results keyed by request. Implementations
// return ErrCacheMiss when no entry exists.
type ResponseCache interface {
	Get(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
	Set(ctx context.Context, req *GenerationRequest, res *GenerationResult, ttl time.Duration) error
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
