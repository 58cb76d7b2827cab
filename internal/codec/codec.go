// Package codec encodes unified generation requests into the wire shape each
// Bedrock model family expects, and normalizes the family-specific responses
// and stream chunks back into domain types. Families are an enumerable set
// dispatched with explicit switches; supporting a new family means one new
// file plus an arm in each switch below.
package codec

import (
	"fmt"

	"github.com/davidbz/basalt/internal/domain"
)

// Codec implements domain.PayloadCodec for the Claude, Llama and Titan
// families. Stateless, safe for concurrent use.
type Codec struct{}

// New creates a new codec.
func New() *Codec {
	return &Codec{}
}

// invocationMetrics is the usage block Bedrock appends to the final chunk of
// a response stream, identical across families. It may be absent.
type invocationMetrics struct {
	InputTokenCount  int `json:"inputTokenCount"`
	OutputTokenCount int `json:"outputTokenCount"`
}

// BuildPayload encodes a request into the family-specific JSON body.
// MaxTokens above the model ceiling is clamped, not rejected.
func (c *Codec) BuildPayload(entry domain.ModelEntry, req *domain.GenerationRequest) ([]byte, error) {
	maxTokens := req.MaxTokens
	if entry.MaxOutputTokens > 0 && maxTokens > entry.MaxOutputTokens {
		maxTokens = entry.MaxOutputTokens
	}

	switch entry.Family {
	case domain.FamilyClaude:
		return buildClaudePayload(req.Prompt, maxTokens, req.Temperature)
	case domain.FamilyLlama:
		return buildLlamaPayload(req.Prompt, maxTokens, req.Temperature)
	case domain.FamilyTitan:
		return buildTitanPayload(req.Prompt, maxTokens, req.Temperature)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFamily, entry.Family)
	}
}

// ParseResponse decodes a complete family-specific response body into the
// normalized output.
func (c *Codec) ParseResponse(entry domain.ModelEntry, body []byte) (*domain.ModelOutput, error) {
	switch entry.Family {
	case domain.FamilyClaude:
		return parseClaudeResponse(body)
	case domain.FamilyLlama:
		return parseLlamaResponse(body)
	case domain.FamilyTitan:
		return parseTitanResponse(body)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFamily, entry.Family)
	}
}

// ParseChunk decodes one raw streamed chunk into a normalized delta.
func (c *Codec) ParseChunk(entry domain.ModelEntry, chunk []byte) (*domain.ChunkDelta, error) {
	switch entry.Family {
	case domain.FamilyClaude:
		return parseClaudeChunk(chunk)
	case domain.FamilyLlama:
		return parseLlamaChunk(chunk)
	case domain.FamilyTitan:
		return parseTitanChunk(chunk)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFamily, entry.Family)
	}
}
