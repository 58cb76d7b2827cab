package domain

import "time"

// Family identifies the request/response wire convention a model speaks.
// Bedrock models fall into a small enumerable set of incompatible schemas;
// dispatch on Family is an explicit switch in the codec, so adding a family
// is one new constant plus two new switch arms.
type Family string

const (
	FamilyClaude Family = "claude"
	FamilyLlama  Family = "llama"
	FamilyTitan  Family = "titan"
)

// ModelEntry describes one catalog model: identity, pricing and limits.
// Entries are immutable after catalog construction.
type ModelEntry struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Family          Family  `json:"family"`
	Description     string  `json:"description"`
	InputCostPer1K  float64 `json:"input_cost_per_1k"`  // USD per 1K input tokens
	OutputCostPer1K float64 `json:"output_cost_per_1k"` // USD per 1K output tokens
	MaxOutputTokens int     `json:"max_output_tokens"`
}

const tokensToPerK = 1000.0

// Cost computes the USD cost of a call against this entry's pricing.
func (m ModelEntry) Cost(inputTokens, outputTokens int) float64 {
	inputCost := float64(inputTokens) / tokensToPerK * m.InputCostPer1K
	outputCost := float64(outputTokens) / tokensToPerK * m.OutputCostPer1K
	return inputCost + outputCost
}

// GenerationRequest represents a unified generation request, independent of
// the model family it will be encoded for.
type GenerationRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Stream      bool    `json:"stream,omitempty"`
}

// GenerationResult represents a completed generation, normalized across
// families. Immutable after creation.
type GenerationResult struct {
	Model        string    `json:"model"`
	Text         string    `json:"text"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Cost         float64   `json:"cost"`
	LatencyMS    int64     `json:"latency_ms"`
	FinishTime   time.Time `json:"finish_time"`

	// TokensEstimated marks a streamed result whose final chunk carried no
	// usage metadata. Token counts (and therefore cost) are a lower bound,
	// distinguishing a truncated-usage stream from a genuine zero-token
	// generation.
	TokensEstimated bool `json:"tokens_estimated,omitempty"`
}

// ModelOutput is the normalized body of a single non-streaming response.
type ModelOutput struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// ChunkDelta is the normalized content of one streamed chunk.
type ChunkDelta struct {
	Text string
	Done bool

	// Token counts reported by the final chunk. Valid only when HasUsage.
	InputTokens  int
	OutputTokens int
	HasUsage     bool
}

// ModelUsage aggregates usage for a single model within a session.
type ModelUsage struct {
	Calls        int     `json:"calls"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// SessionUsage is the running in-memory usage total for one session.
// Totals always equal the sum of every recorded GenerationResult.
type SessionUsage struct {
	StartedAt    time.Time             `json:"started_at"`
	CallCount    int                   `json:"call_count"`
	InputTokens  int                   `json:"input_tokens"`
	OutputTokens int                   `json:"output_tokens"`
	TotalCost    float64               `json:"total_cost"`
	PerModel     map[string]ModelUsage `json:"per_model"`
}
