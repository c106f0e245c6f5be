// Package usage tracks process-wide request and token counters.
package usage

import (
	"sync"
	"sync/atomic"
)

// ModelStats is the per-model slice of the counters.
type ModelStats struct {
	Requests     int64 `json:"requests"`
	Success      int64 `json:"success"`
	Failure      int64 `json:"failure"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Tracker accumulates request outcomes and token usage. The global
// counters are atomics; the per-model map is guarded by a mutex taken
// only for the map update.
type Tracker struct {
	total        atomic.Int64
	success      atomic.Int64
	failure      atomic.Int64
	inputTokens  atomic.Int64
	outputTokens atomic.Int64

	mu     sync.Mutex
	models map[string]*ModelStats
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{models: make(map[string]*ModelStats)}
}

// RecordSuccess counts one completed request with its token usage.
func (t *Tracker) RecordSuccess(model string, inputTokens, outputTokens int64) {
	t.total.Add(1)
	t.success.Add(1)
	t.inputTokens.Add(inputTokens)
	t.outputTokens.Add(outputTokens)

	t.mu.Lock()
	stats := t.stats(model)
	stats.Requests++
	stats.Success++
	stats.InputTokens += inputTokens
	stats.OutputTokens += outputTokens
	t.mu.Unlock()
}

// RecordFailure counts one failed request.
func (t *Tracker) RecordFailure(model string) {
	t.total.Add(1)
	t.failure.Add(1)

	t.mu.Lock()
	stats := t.stats(model)
	stats.Requests++
	stats.Failure++
	t.mu.Unlock()
}

func (t *Tracker) stats(model string) *ModelStats {
	stats, ok := t.models[model]
	if !ok {
		stats = &ModelStats{}
		t.models[model] = stats
	}
	return stats
}

// Snapshot is a point-in-time copy of all counters, shaped for JSON.
type Snapshot struct {
	TotalRequests   int64                 `json:"total_requests"`
	SuccessRequests int64                 `json:"success_requests"`
	FailureRequests int64                 `json:"failure_requests"`
	InputTokens     int64                 `json:"input_tokens"`
	OutputTokens    int64                 `json:"output_tokens"`
	Models          map[string]ModelStats `json:"models"`
}

// Snapshot copies the counters. Per-model stats are copied by value so
// the caller can marshal without racing updates.
func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		TotalRequests:   t.total.Load(),
		SuccessRequests: t.success.Load(),
		FailureRequests: t.failure.Load(),
		InputTokens:     t.inputTokens.Load(),
		OutputTokens:    t.outputTokens.Load(),
		Models:          make(map[string]ModelStats),
	}
	t.mu.Lock()
	for model, stats := range t.models {
		snap.Models[model] = *stats
	}
	t.mu.Unlock()
	return snap
}
