package domain

import (
	"testing"
	"time"
)

func TestJobStateTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    JobPhase
		to      JobPhase
		allowed bool
	}{
		{name: "idle to submitting", from: PhaseIdle, to: PhaseSubmitting, allowed: true},
		{name: "zero value treated as idle", from: "", to: PhaseSubmitting, allowed: true},
		{name: "submitting to polling", from: PhaseSubmitting, to: PhasePolling, allowed: true},
		{name: "submitting to succeeded sync completion", from: PhaseSubmitting, to: PhaseSucceeded, allowed: true},
		{name: "submitting to failed", from: PhaseSubmitting, to: PhaseFailed, allowed: true},
		{name: "submitting cannot time out", from: PhaseSubmitting, to: PhaseTimedOut, allowed: false},
		{name: "polling to succeeded", from: PhasePolling, to: PhaseSucceeded, allowed: true},
		{name: "polling to timed out", from: PhasePolling, to: PhaseTimedOut, allowed: true},
		{name: "idle cannot poll", from: PhaseIdle, to: PhasePolling, allowed: false},
		{name: "succeeded regenerates", from: PhaseSucceeded, to: PhaseSubmitting, allowed: true},
		{name: "failed regenerates", from: PhaseFailed, to: PhaseSubmitting, allowed: true},
		{name: "timed out regenerates", from: PhaseTimedOut, to: PhaseSubmitting, allowed: true},
		{name: "succeeded cannot fail", from: PhaseSucceeded, to: PhaseFailed, allowed: false},
		{name: "terminal cannot reverse", from: PhaseFailed, to: PhasePolling, allowed: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := JobState{PostID: 1, Phase: tc.from}
			err := s.Transition(tc.to)
			if tc.allowed && err != nil {
				t.Fatalf("Transition(%s -> %s) unexpected error: %v", tc.from, tc.to, err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatalf("Transition(%s -> %s) expected error", tc.from, tc.to)
				}
				if s.Phase != tc.from {
					t.Fatalf("rejected transition mutated phase to %s", s.Phase)
				}
				return
			}
			if s.Phase != tc.to {
				t.Fatalf("phase = %s, want %s", s.Phase, tc.to)
			}
			if s.UpdatedAt.IsZero() {
				t.Fatal("UpdatedAt not stamped")
			}
		})
	}
}

func TestJobPhasePredicates(t *testing.T) {
	for _, p := range []JobPhase{PhaseSucceeded, PhaseFailed, PhaseTimedOut} {
		if !p.Terminal() {
			t.Fatalf("%s should be terminal", p)
		}
		if p.Active() {
			t.Fatalf("%s should not be active", p)
		}
	}
	for _, p := range []JobPhase{PhaseSubmitting, PhasePolling} {
		if p.Terminal() {
			t.Fatalf("%s should not be terminal", p)
		}
		if !p.Active() {
			t.Fatalf("%s should be active", p)
		}
	}
	if PhaseIdle.Terminal() || PhaseIdle.Active() {
		t.Fatal("idle is neither terminal nor active")
	}
}

func TestJobStateClone(t *testing.T) {
	orig := JobState{
		PostID:    7,
		Phase:     PhaseSucceeded,
		Artifacts: []Artifact{{URL: "https://cdn.example.com/a.png", Selected: true}},
		StartedAt: time.Now(),
	}
	clone := orig.Clone()
	clone.Artifacts[0].URL = "https://cdn.example.com/b.png"
	if orig.Artifacts[0].URL != "https://cdn.example.com/a.png" {
		t.Fatal("clone shares artifact backing array with original")
	}
}
