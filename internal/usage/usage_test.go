package usage

import (
	"sync"
	"testing"
)

func TestTrackerCounts(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess("claude-opus-4-5", 10, 5)
	tr.RecordSuccess("claude-opus-4-5", 7, 3)
	tr.RecordFailure("gpt-4o")

	snap := tr.Snapshot()
	if snap.TotalRequests != 3 || snap.SuccessRequests != 2 || snap.FailureRequests != 1 {
		t.Fatalf("totals = %+v", snap)
	}
	if snap.InputTokens != 17 || snap.OutputTokens != 8 {
		t.Fatalf("tokens = %+v", snap)
	}
	claude := snap.Models["claude-opus-4-5"]
	if claude.Requests != 2 || claude.Success != 2 || claude.InputTokens != 17 {
		t.Fatalf("claude stats = %+v", claude)
	}
	if snap.Models["gpt-4o"].Failure != 1 {
		t.Fatalf("gpt-4o stats = %+v", snap.Models["gpt-4o"])
	}
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.RecordSuccess("m", 1, 1)
			}
		}()
	}
	wg.Wait()
	snap := tr.Snapshot()
	if snap.TotalRequests != 1600 || snap.Models["m"].Requests != 1600 {
		t.Fatalf("snapshot = %+v", snap)
	}
}
