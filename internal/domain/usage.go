package domain

import (
	"sync"
	"time"
)

// Accountant maintains in-memory session usage totals. Record is atomic
// with respect to concurrent call completions; a call that fails before
// producing a GenerationResult contributes nothing.
type Accountant struct {
	mu    sync.Mutex
	usage SessionUsage
}

// NewAccountant creates an accountant with an empty session starting now.
func NewAccountant() *Accountant {
	return &Accountant{
		usage: SessionUsage{
			StartedAt: time.Now(),
			PerModel:  make(map[string]ModelUsage),
		},
	}
}

// Record adds a completed result to the session totals and the per-model
// breakdown. Each result must be recorded exactly once.
func (a *Accountant) Record(entry ModelEntry, res *GenerationResult) {
	if res == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.usage.CallCount++
	a.usage.InputTokens += res.InputTokens
	a.usage.OutputTokens += res.OutputTokens
	a.usage.TotalCost += res.Cost

	m := a.usage.PerModel[entry.ID]
	m.Calls++
	m.InputTokens += res.InputTokens
	m.OutputTokens += res.OutputTokens
	m.Cost += res.Cost
	a.usage.PerModel[entry.ID] = m
}

// Snapshot returns an immutable copy of the current session usage.
func (a *Accountant) Snapshot() SessionUsage {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := a.usage
	snap.PerModel = make(map[string]ModelUsage, len(a.usage.PerModel))
	for id, m := range a.usage.PerModel {
		snap.PerModel[id] = m
	}
	return snap
}

// Reset clears all accumulated usage and restarts the session clock.
func (a *Accountant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.usage = SessionUsage{
		StartedAt: time.Now(),
		PerModel:  make(map[string]ModelUsage),
	}
}
