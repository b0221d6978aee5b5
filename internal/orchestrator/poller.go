package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"campaignforge/internal/genclient"
)

// statusClient is the slice of the generation client the poller needs.
type statusClient interface {
	QueryStatus(ctx context.Context, jobID string) (*genclient.StatusResult, error)
}

// pollOutcome is the single terminal result of one poller run. Exactly one of
// the fields is meaningful: status for a backend-terminal response, timedOut
// when the attempt ceiling was reached while the job was still in flight, and
// err for cancellation or a non-retryable/persistent error.
type pollOutcome struct {
	status   *genclient.StatusResult
	timedOut bool
	err      error
}

// poller owns exactly one in-flight job from submission through to a terminal
// state. It performs a fixed-interval status loop with a bounded number of
// attempts; transient errors consume attempts instead of aborting.
type poller struct {
	client      statusClient
	jobID       string
	interval    time.Duration
	maxAttempts int
	logger      zerolog.Logger

	// onAttempt, when set, is invoked after every attempt with the running
	// count so the owner can expose progress.
	onAttempt func(attempt int)
}

// run polls until the backend reports a terminal status, the attempt ceiling
// is hit, or ctx is cancelled. Cancellation mid-call lets the in-flight
// request finish and discards its result.
func (p *poller) run(ctx context.Context) pollOutcome {
	interval := p.interval
	if interval <= 0 {
		interval = 4 * time.Second
	}
	maxAttempts := p.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 30
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return pollOutcome{err: ctx.Err()}
		case <-timer.C:
		}

		res, err := p.client.QueryStatus(ctx, p.jobID)
		if p.onAttempt != nil {
			p.onAttempt(attempt)
		}

		wait := interval
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return pollOutcome{err: ctx.Err()}
			}
			var svcErr *genclient.ServiceError
			if errors.As(err, &svcErr) {
				if !svcErr.Retryable {
					return pollOutcome{err: err}
				}
				if svcErr.RetryAfter > 0 {
					wait = svcErr.RetryAfter
				} else if svcErr.StatusCode == 429 {
					// No hint from the backend; back off harder than the
					// regular cadence.
					wait = backoffWait(interval, attempt)
				}
			}
			lastErr = err
			p.logger.Warn().Err(err).Str("job_id", p.jobID).Int("attempt", attempt).Msg("status query failed")
		case res.Status.Terminal():
			return pollOutcome{status: res}
		default:
			// Still pending/processing; a clean response clears any earlier
			// transient error.
			lastErr = nil
		}

		if attempt >= maxAttempts {
			if lastErr != nil {
				return pollOutcome{err: lastErr}
			}
			return pollOutcome{timedOut: true}
		}
		timer.Reset(wait)
	}
}

func backoffWait(base time.Duration, attempt int) time.Duration {
	wait := base
	for i := 0; i < attempt && wait < time.Minute; i++ {
		wait *= 2
	}
	if wait > time.Minute {
		wait = time.Minute
	}
	return wait
}
