package domain

import "fmt"

// Catalog is the static model catalog. It is built once at startup, never
// mutated afterwards, and safe to share read-only across concurrent calls.
type Catalog struct {
	entries []ModelEntry
	byID    map[string]ModelEntry
}

// NewCatalog creates a catalog from the given entries, preserving order for
// display purposes.
func NewCatalog(entries []ModelEntry) *Catalog {
	byID := make(map[string]ModelEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return &Catalog{
		entries: entries,
		byID:    byID,
	}
}

// DefaultCatalog returns the built-in catalog of supported Bedrock models.
func DefaultCatalog() *Catalog {
	return NewCatalog([]ModelEntry{
		{
			ID:              "anthropic.claude-3-sonnet-20240229-v1:0",
			Name:            "Claude 3 Sonnet",
			Family:          FamilyClaude,
			Description:     "Best for reasoning, analysis, creative writing",
			InputCostPer1K:  0.003,
			OutputCostPer1K: 0.015,
			MaxOutputTokens: 4096,
		},
		{
			ID:              "anthropic.claude-3-haiku-20240307-v1:0",
			Name:            "Claude 3 Haiku",
			Family:          FamilyClaude,
			Description:     "Fastest and most cost-effective",
			InputCostPer1K:  0.00025,
			OutputCostPer1K: 0.00125,
			MaxOutputTokens: 4096,
		},
		{
			ID:              "meta.llama2-70b-chat-v1",
			Name:            "Llama 2 70B",
			Family:          FamilyLlama,
			Description:     "Open-source, good for general tasks",
			InputCostPer1K:  0.00195,
			OutputCostPer1K: 0.00256,
			MaxOutputTokens: 2048,
		},
		{
			ID:              "amazon.titan-text-express-v1",
			Name:            "Titan Text G1 - Express",
			Family:          FamilyTitan,
			Description:     "AWS native, cost-effective for basic tasks",
			InputCostPer1K:  0.0008,
			OutputCostPer1K: 0.0016,
			MaxOutputTokens: 8192,
		},
	})
}

// Lookup retrieves a model entry by id.
func (c *Catalog) Lookup(modelID string) (ModelEntry, error) {
	entry, exists := c.byID[modelID]
	if !exists {
		return ModelEntry{}, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return entry, nil
}

// List returns all entries in declaration order for comparison display.
func (c *Catalog) List() []ModelEntry {
	out := make([]ModelEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
