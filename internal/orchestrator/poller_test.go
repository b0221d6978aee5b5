package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campaignforge/internal/genclient"
)

// scriptedStatusClient returns the scripted result for the nth call.
type scriptedStatusClient struct {
	mu     sync.Mutex
	calls  int
	script func(call int) (*genclient.StatusResult, error)
}

func (c *scriptedStatusClient) QueryStatus(ctx context.Context, jobID string) (*genclient.StatusResult, error) {
	c.mu.Lock()
	c.calls++
	call := c.calls
	c.mu.Unlock()
	return c.script(call)
}

func (c *scriptedStatusClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestPoller(client statusClient, maxAttempts int) *poller {
	return &poller{
		client:      client,
		jobID:       "job-1",
		interval:    time.Millisecond,
		maxAttempts: maxAttempts,
		logger:      zerolog.Nop(),
	}
}

func TestPollerTerminalSuccess(t *testing.T) {
	client := &scriptedStatusClient{script: func(call int) (*genclient.StatusResult, error) {
		if call < 3 {
			return &genclient.StatusResult{Status: genclient.StatusProcessing}, nil
		}
		return &genclient.StatusResult{Status: genclient.StatusSucceeded}, nil
	}}

	var attempts []int
	p := newTestPoller(client, 10)
	p.onAttempt = func(attempt int) { attempts = append(attempts, attempt) }

	outcome := p.run(context.Background())
	if outcome.err != nil || outcome.timedOut {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.status.Status != genclient.StatusSucceeded {
		t.Fatalf("status = %q", outcome.status.Status)
	}
	if client.callCount() != 3 {
		t.Fatalf("calls = %d, want 3", client.callCount())
	}
	if len(attempts) != 3 || attempts[2] != 3 {
		t.Fatalf("onAttempt progression = %v", attempts)
	}
}

func TestPollerTimedOutAtCeiling(t *testing.T) {
	client := &scriptedStatusClient{script: func(call int) (*genclient.StatusResult, error) {
		return &genclient.StatusResult{Status: genclient.StatusProcessing}, nil
	}}

	outcome := newTestPoller(client, 4).run(context.Background())
	if !outcome.timedOut {
		t.Fatalf("expected timeout, got %+v", outcome)
	}
	if client.callCount() != 4 {
		t.Fatalf("calls = %d, want attempt ceiling 4", client.callCount())
	}
}

func TestPollerPersistentErrorAtCeiling(t *testing.T) {
	transient := &genclient.ServiceError{Service: "backend", Message: "gateway down", StatusCode: 502, Retryable: true}
	client := &scriptedStatusClient{script: func(call int) (*genclient.StatusResult, error) {
		return nil, transient
	}}

	outcome := newTestPoller(client, 3).run(context.Background())
	if outcome.timedOut {
		t.Fatal("persistent errors must surface as failure, not timeout")
	}
	if !errors.Is(outcome.err, transient) {
		t.Fatalf("err = %v, want last transient error", outcome.err)
	}
}

func TestPollerCleanResponseClearsTransientError(t *testing.T) {
	client := &scriptedStatusClient{script: func(call int) (*genclient.StatusResult, error) {
		if call == 1 {
			return nil, &genclient.ServiceError{Service: "backend", Message: "blip", Retryable: true}
		}
		return &genclient.StatusResult{Status: genclient.StatusProcessing}, nil
	}}

	outcome := newTestPoller(client, 3).run(context.Background())
	if !outcome.timedOut {
		t.Fatalf("cleared transient error should yield timeout at ceiling, got %+v", outcome)
	}
}

func TestPollerNonRetryableErrorAborts(t *testing.T) {
	fatal := &genclient.ServiceError{Service: "backend", Message: "job not found", StatusCode: 404, Retryable: false}
	client := &scriptedStatusClient{script: func(call int) (*genclient.StatusResult, error) {
		return nil, fatal
	}}

	outcome := newTestPoller(client, 10).run(context.Background())
	if !errors.Is(outcome.err, fatal) {
		t.Fatalf("err = %v, want non-retryable error", outcome.err)
	}
	if client.callCount() != 1 {
		t.Fatalf("calls = %d, non-retryable errors must abort immediately", client.callCount())
	}
}

func TestPollerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedStatusClient{script: func(call int) (*genclient.StatusResult, error) {
		cancel()
		return &genclient.StatusResult{Status: genclient.StatusProcessing}, nil
	}}

	outcome := newTestPoller(client, 10).run(ctx)
	if !errors.Is(outcome.err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", outcome.err)
	}
}

func TestBackoffWaitCapped(t *testing.T) {
	if got := backoffWait(4*time.Second, 1); got != 8*time.Second {
		t.Fatalf("backoffWait attempt 1 = %v", got)
	}
	if got := backoffWait(4*time.Second, 20); got != time.Minute {
		t.Fatalf("backoffWait must cap at a minute, got %v", got)
	}
}
