package codec

import (
	"encoding/json"
	"fmt"

	"github.com/davidbz/basalt/internal/domain"
)

// Llama chat models take a single instruction-tagged prompt string.
const (
	llamaPromptTemplate = "<s>[INST] %s [/INST]"
	llamaTopP           = 0.9
)

type llamaRequest struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type llamaResponse struct {
	Generation           string `json:"generation"`
	PromptTokenCount     int    `json:"prompt_token_count"`
	GenerationTokenCount int    `json:"generation_token_count"`
}

type llamaChunk struct {
	Generation           string             `json:"generation"`
	StopReason           *string            `json:"stop_reason"`
	PromptTokenCount     *int               `json:"prompt_token_count"`
	GenerationTokenCount *int               `json:"generation_token_count"`
	Metrics              *invocationMetrics `json:"amazon-bedrock-invocationMetrics"`
}

func buildLlamaPayload(prompt string, maxTokens int, temperature float64) ([]byte, error) {
	return json.Marshal(llamaRequest{
		Prompt:      fmt.Sprintf(llamaPromptTemplate, prompt),
		MaxGenLen:   maxTokens,
		Temperature: temperature,
		TopP:        llamaTopP,
	})
}

func parseLlamaResponse(body []byte) (*domain.ModelOutput, error) {
	var resp llamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode llama response: %w", err)
	}

	// Token count fields are optional on this family; absent means zero.
	return &domain.ModelOutput{
		Text:         resp.Generation,
		InputTokens:  resp.PromptTokenCount,
		OutputTokens: resp.GenerationTokenCount,
	}, nil
}

func parseLlamaChunk(raw []byte) (*domain.ChunkDelta, error) {
	var chunk llamaChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, fmt.Errorf("failed to decode llama chunk: %w", err)
	}

	delta := &domain.ChunkDelta{
		Text: chunk.Generation,
		Done: chunk.StopReason != nil,
	}

	switch {
	case chunk.Metrics != nil:
		delta.InputTokens = chunk.Metrics.InputTokenCount
		delta.OutputTokens = chunk.Metrics.OutputTokenCount
		delta.HasUsage = true
	case chunk.PromptTokenCount != nil && chunk.GenerationTokenCount != nil:
		delta.InputTokens = *chunk.PromptTokenCount
		delta.OutputTokens = *chunk.GenerationTokenCount
		delta.HasUsage = true
	}

	return delta, nil
}
