package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/davidbz/basalt/internal/domain"
)

// Protocol version tag required by the Bedrock Claude messages API.
const anthropicVersion = "bedrock-2023-05-31"

const (
	claudeChunkContentDelta = "content_block_delta"
	claudeChunkMessageStop  = "message_stop"
)

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	Messages         []claudeMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type claudeChunk struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
	Metrics *invocationMetrics `json:"amazon-bedrock-invocationMetrics"`
}

func buildClaudePayload(prompt string, maxTokens int, temperature float64) ([]byte, error) {
	return json.Marshal(claudeRequest{
		AnthropicVersion: anthropicVersion,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
}

func parseClaudeResponse(body []byte) (*domain.ModelOutput, error) {
	var resp claudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode claude response: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, errors.New("claude response has no content blocks")
	}

	return &domain.ModelOutput{
		Text:         resp.Content[0].Text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

func parseClaudeChunk(raw []byte) (*domain.ChunkDelta, error) {
	var chunk claudeChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, fmt.Errorf("failed to decode claude chunk: %w", err)
	}

	delta := &domain.ChunkDelta{}

	if chunk.Type == claudeChunkContentDelta {
		delta.Text = chunk.Delta.Text
	}
	if chunk.Type == claudeChunkMessageStop {
		delta.Done = true
	}
	if chunk.Metrics != nil {
		delta.InputTokens = chunk.Metrics.InputTokenCount
		delta.OutputTokens = chunk.Metrics.OutputTokenCount
		delta.HasUsage = true
	}

	return delta, nil
}
