package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campaignforge/internal/domain"
)

// BatchStatus is a derived view over the JobStates of one GenerateAll call.
// It has no lifecycle of its own; every snapshot recomputes from the current
// states.
type BatchStatus struct {
	BatchID    string            `json:"batch_id"`
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	TimedOut   int               `json:"timed_out"`
	InProgress int               `json:"in_progress"`
	Done       bool              `json:"done"`
	States     []domain.JobState `json:"states"`
}

// AllSucceeded reports whether every member finished successfully.
func (s BatchStatus) AllSucceeded() bool {
	return s.Done && s.Succeeded == s.Total
}

// AnyFailed reports whether at least one member failed or timed out.
func (s BatchStatus) AnyFailed() bool {
	return s.Failed > 0 || s.TimedOut > 0
}

// Batch is the handle returned by GenerateAll.
type Batch struct {
	ID      string
	orch    *Orchestrator
	postIDs []int64
}

func newBatch(o *Orchestrator) *Batch {
	return &Batch{ID: uuid.NewString(), orch: o}
}

// Snapshot computes the batch's aggregate state from the member JobStates.
func (b *Batch) Snapshot() BatchStatus {
	status := BatchStatus{BatchID: b.ID, Total: len(b.postIDs)}
	status.States = make([]domain.JobState, 0, len(b.postIDs))
	for _, id := range b.postIDs {
		state, ok := b.orch.GetState(id)
		if !ok {
			// Should not happen: every batch member gets at least an
			// immediate failed state. Count it as failed rather than lose it.
			status.Failed++
			status.States = append(status.States, domain.JobState{PostID: id, Phase: domain.PhaseFailed, Error: "untracked"})
			continue
		}
		status.States = append(status.States, state)
		switch state.Phase {
		case domain.PhaseSucceeded:
			status.Succeeded++
		case domain.PhaseFailed:
			status.Failed++
		case domain.PhaseTimedOut:
			status.TimedOut++
		default:
			status.InProgress++
		}
	}
	status.Done = status.InProgress == 0
	return status
}

// Wait blocks until every member reaches a terminal state or ctx ends,
// returning the final snapshot. Progress is observed by sampling the
// JobStates, the same pull model the HTTP callers use.
func (b *Batch) Wait(ctx context.Context) BatchStatus {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		status := b.Snapshot()
		if status.Done {
			return status
		}
		select {
		case <-ctx.Done():
			return status
		case <-ticker.C:
		}
	}
}
