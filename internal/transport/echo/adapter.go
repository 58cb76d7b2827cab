// Package echo provides a testing transport that echoes the prompt back in
// the wire shape of the invoked model's family, without calling any external
// service. It implements the domain.ModelInvoker interface and gives
// deterministic responses for development and tests.
package echo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/basalt/internal/domain"
	"github.com/davidbz/basalt/internal/observability"
)

const (
	transportName = "echo"
	chunkDelay    = 10 * time.Millisecond
)

// Client implements the domain.ModelInvoker interface for echo testing.
type Client struct {
	name string
}

// NewClient creates a new echo transport. No configuration is required as
// this transport operates entirely in-memory.
func NewClient() *Client {
	return &Client{name: transportName}
}

// Invoke echoes the prompt back as a complete family-shaped response body.
func (c *Client) Invoke(ctx context.Context, modelID string, payload []byte) ([]byte, error) {
	family, err := familyOf(modelID)
	if err != nil {
		return nil, err
	}

	prompt, err := extractPrompt(family, payload)
	if err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)
	logger.Debug("echoing request", observability.String("family", string(family)))

	tokens := countTokens(prompt)
	return encodeResponse(family, prompt, tokens)
}

// InvokeStream echoes the prompt back word by word as family-shaped chunks,
// ending with a done chunk that carries invocation metrics.
func (c *Client) InvokeStream(ctx context.Context, modelID string, payload []byte) (domain.ChunkStream, error) {
	family, err := familyOf(modelID)
	if err != nil {
		return nil, err
	}

	prompt, err := extractPrompt(family, payload)
	if err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)
	logger.Debug("streaming echo request", observability.String("family", string(family)))

	words := strings.Fields(prompt)
	chunks := make([][]byte, 0, len(words)+1)
	for i, word := range words {
		fragment := word
		if i < len(words)-1 {
			fragment += " "
		}
		raw, encErr := encodeChunk(family, fragment, false, 0, 0)
		if encErr != nil {
			return nil, encErr
		}
		chunks = append(chunks, raw)
	}

	tokens := countTokens(prompt)
	final, err := encodeChunk(family, "", true, tokens, tokens)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, final)

	return &sliceStream{chunks: chunks}, nil
}

// Name returns the transport identifier.
func (c *Client) Name() string {
	return c.name
}

// familyOf infers the model family from the model id prefix, mirroring how
// Bedrock namespaces model identifiers.
func familyOf(modelID string) (domain.Family, error) {
	switch {
	case strings.HasPrefix(modelID, "anthropic."):
		return domain.FamilyClaude, nil
	case strings.HasPrefix(modelID, "meta."):
		return domain.FamilyLlama, nil
	case strings.HasPrefix(modelID, "amazon."):
		return domain.FamilyTitan, nil
	default:
		return "", fmt.Errorf("%w: no family for model %s", domain.ErrUnsupportedFamily, modelID)
	}
}

// extractPrompt pulls the user prompt back out of a family-encoded payload.
func extractPrompt(family domain.Family, payload []byte) (string, error) {
	switch family {
	case domain.FamilyClaude:
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		if len(req.Messages) == 0 {
			return "", fmt.Errorf("%w: claude payload has no messages", domain.ErrValidation)
		}
		return req.Messages[0].Content, nil

	case domain.FamilyLlama:
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		prompt := strings.TrimPrefix(req.Prompt, "<s>[INST] ")
		return strings.TrimSuffix(prompt, " [/INST]"), nil

	case domain.FamilyTitan:
		var req struct {
			InputText string `json:"inputText"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return req.InputText, nil

	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFamily, family)
	}
}

func encodeResponse(family domain.Family, text string, tokens int) ([]byte, error) {
	switch family {
	case domain.FamilyClaude:
		return json.Marshal(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": text}},
			"usage": map[string]int{
				"input_tokens":  tokens,
				"output_tokens": tokens,
			},
		})
	case domain.FamilyLlama:
		return json.Marshal(map[string]interface{}{
			"generation":             text,
			"prompt_token_count":     tokens,
			"generation_token_count": tokens,
			"stop_reason":            "stop",
		})
	case domain.FamilyTitan:
		return json.Marshal(map[string]interface{}{
			"inputTextTokenCount": tokens,
			"results": []map[string]interface{}{{
				"outputText":       text,
				"tokenCount":       tokens,
				"completionReason": "FINISH",
			}},
		})
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFamily, family)
	}
}

func encodeChunk(family domain.Family, fragment string, done bool, inputTokens, outputTokens int) ([]byte, error) {
	switch family {
	case domain.FamilyClaude:
		chunk := map[string]interface{}{}
		if done {
			chunk["type"] = "message_stop"
			chunk["amazon-bedrock-invocationMetrics"] = map[string]int{
				"inputTokenCount":  inputTokens,
				"outputTokenCount": outputTokens,
			}
		} else {
			chunk["type"] = "content_block_delta"
			chunk["delta"] = map[string]string{"type": "text_delta", "text": fragment}
		}
		return json.Marshal(chunk)

	case domain.FamilyLlama:
		chunk := map[string]interface{}{"generation": fragment}
		if done {
			chunk["stop_reason"] = "stop"
			chunk["amazon-bedrock-invocationMetrics"] = map[string]int{
				"inputTokenCount":  inputTokens,
				"outputTokenCount": outputTokens,
			}
		}
		return json.Marshal(chunk)

	case domain.FamilyTitan:
		chunk := map[string]interface{}{"outputText": fragment}
		if done {
			chunk["completionReason"] = "FINISH"
			chunk["amazon-bedrock-invocationMetrics"] = map[string]int{
				"inputTokenCount":  inputTokens,
				"outputTokenCount": outputTokens,
			}
		}
		return json.Marshal(chunk)

	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFamily, family)
	}
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}

// sliceStream is an in-memory chunk cursor.
type sliceStream struct {
	chunks [][]byte
	idx    int
	cur    []byte
	err    error
}

func (s *sliceStream) Next(ctx context.Context) bool {
	if s.err != nil || s.idx >= len(s.chunks) {
		return false
	}

	select {
	case <-ctx.Done():
		s.err = fmt.Errorf("%w: %v", domain.ErrTransport, ctx.Err())
		return false
	default:
	}

	s.cur = s.chunks[s.idx]
	s.idx++
	time.Sleep(chunkDelay)
	return true
}

func (s *sliceStream) Chunk() []byte {
	return s.cur
}

func (s *sliceStream) Err() error {
	return s.err
}

func (s *sliceStream) Close() error {
	s.idx = len(s.chunks)
	return nil
}
