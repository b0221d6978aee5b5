package domain

import (
	"fmt"
	"time"
)

// JobPhase enumerates the per-post generation state machine:
// idle -> submitting -> polling -> {succeeded | failed | timed_out}.
// Terminal phases are superseded only by a fresh submitting transition
// triggered by an explicit regenerate.
type JobPhase string

const (
	PhaseIdle       JobPhase = "idle"
	PhaseSubmitting JobPhase = "submitting"
	PhasePolling    JobPhase = "polling"
	PhaseSucceeded  JobPhase = "succeeded"
	PhaseFailed     JobPhase = "failed"
	PhaseTimedOut   JobPhase = "timed_out"
)

// Terminal reports whether the phase is final for the current job.
func (p JobPhase) Terminal() bool {
	switch p {
	case PhaseSucceeded, PhaseFailed, PhaseTimedOut:
		return true
	default:
		return false
	}
}

// Active reports whether a job is currently in flight for the post.
func (p JobPhase) Active() bool {
	return p == PhaseSubmitting || p == PhasePolling
}

var jobTransitions = map[JobPhase][]JobPhase{
	PhaseIdle:       {PhaseSubmitting},
	PhaseSubmitting: {PhasePolling, PhaseSucceeded, PhaseFailed},
	PhasePolling:    {PhaseSucceeded, PhaseFailed, PhaseTimedOut},
	PhaseSucceeded:  {PhaseSubmitting},
	PhaseFailed:     {PhaseSubmitting},
	PhaseTimedOut:   {PhaseSubmitting},
}

// JobState is the authoritative progress record for one post's generation.
// At most one non-terminal JobState exists per post at any time.
type JobState struct {
	PostID    int64        `json:"post_id"`
	Phase     JobPhase     `json:"phase"`
	Kind      ArtifactKind `json:"kind"`
	JobID     string       `json:"job_id,omitempty"`
	Attempts  int          `json:"attempts"`
	Error     string       `json:"error,omitempty"`
	Warning   string       `json:"warning,omitempty"`
	Artifacts []Artifact   `json:"artifacts,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Transition advances the state machine to the requested phase, rejecting
// moves the machine does not allow.
func (s *JobState) Transition(to JobPhase) error {
	from := s.Phase
	if from == "" {
		from = PhaseIdle
	}
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			s.Phase = to
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("job state %d: illegal transition %s -> %s", s.PostID, from, to)
}

// Clone returns a copy safe to hand to callers while pollers keep mutating
// the original.
func (s JobState) Clone() JobState {
	out := s
	if len(s.Artifacts) > 0 {
		out.Artifacts = append([]Artifact(nil), s.Artifacts...)
	}
	return out
}
