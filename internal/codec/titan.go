package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/davidbz/basalt/internal/domain"
)

const titanTopP = 1.0

type titanGenerationConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"topP"`
	StopSequences []string `json:"stopSequences"`
}

type titanRequest struct {
	InputText            string                `json:"inputText"`
	TextGenerationConfig titanGenerationConfig `json:"textGenerationConfig"`
}

type titanResponse struct {
	InputTextTokenCount int `json:"inputTextTokenCount"`
	Results             []struct {
		OutputText string `json:"outputText"`
		TokenCount int    `json:"tokenCount"`
	} `json:"results"`
}

type titanChunk struct {
	OutputText                string             `json:"outputText"`
	CompletionReason          string             `json:"completionReason"`
	InputTextTokenCount       *int               `json:"inputTextTokenCount"`
	TotalOutputTextTokenCount *int               `json:"totalOutputTextTokenCount"`
	Metrics                   *invocationMetrics `json:"amazon-bedrock-invocationMetrics"`
}

func buildTitanPayload(prompt string, maxTokens int, temperature float64) ([]byte, error) {
	return json.Marshal(titanRequest{
		InputText: prompt,
		TextGenerationConfig: titanGenerationConfig{
			MaxTokenCount: maxTokens,
			Temperature:   temperature,
			TopP:          titanTopP,
			StopSequences: []string{},
		},
	})
}

func parseTitanResponse(body []byte) (*domain.ModelOutput, error) {
	var resp titanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode titan response: %w", err)
	}

	if len(resp.Results) == 0 {
		return nil, errors.New("titan response has no results")
	}

	return &domain.ModelOutput{
		Text:         resp.Results[0].OutputText,
		InputTokens:  resp.InputTextTokenCount,
		OutputTokens: resp.Results[0].TokenCount,
	}, nil
}

func parseTitanChunk(raw []byte) (*domain.ChunkDelta, error) {
	var chunk titanChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, fmt.Errorf("failed to decode titan chunk: %w", err)
	}

	delta := &domain.ChunkDelta{
		Text: chunk.OutputText,
		Done: chunk.CompletionReason != "",
	}

	switch {
	case chunk.Metrics != nil:
		delta.InputTokens = chunk.Metrics.InputTokenCount
		delta.OutputTokens = chunk.Metrics.OutputTokenCount
		delta.HasUsage = true
	case chunk.InputTextTokenCount != nil && chunk.TotalOutputTextTokenCount != nil:
		delta.InputTokens = *chunk.InputTextTokenCount
		delta.OutputTokens = *chunk.TotalOutputTextTokenCount
		delta.HasUsage = true
	}

	return delta, nil
}
