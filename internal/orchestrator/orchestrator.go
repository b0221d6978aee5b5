package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"campaignforge/internal/domain"
	"campaignforge/internal/genclient"
)

// GenerationClient is the slice of the backend client the orchestrator uses.
type GenerationClient interface {
	Submit(ctx context.Context, post *domain.Post, params genclient.Params) (*genclient.SubmitResult, error)
	QueryStatus(ctx context.Context, jobID string) (*genclient.StatusResult, error)
}

// Options tunes orchestration behavior. Zero values fall back to defaults
// matching production cadence (4s poll interval, 30 attempts, submission
// width 3 with a short pause between waves).
type Options struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	SubmitWidth     int
	SubmitPause     time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 4 * time.Second
	}
	if o.MaxPollAttempts <= 0 {
		o.MaxPollAttempts = 30
	}
	if o.SubmitWidth <= 0 {
		o.SubmitWidth = 3
	}
	if o.SubmitPause <= 0 {
		o.SubmitPause = 500 * time.Millisecond
	}
	return o
}

// itemState tracks one post's generation. The orchestrator mutex guards the
// JobState and bookkeeping; commitMu serializes store writes for the post so
// a placeholder reset and a late reconciliation cannot interleave.
type itemState struct {
	commitMu sync.Mutex

	state  domain.JobState
	epoch  uint64
	cancel context.CancelFunc
	active bool
	params genclient.Params
}

// BatchItem pairs one post with its generation parameters.
type BatchItem struct {
	Post   *domain.Post
	Params genclient.Params
}

// Orchestrator owns the set of posts being generated: it fans out submit
// calls with bounded concurrency, runs one poller per accepted job, feeds
// terminal results through the reconciler, and exposes per-post and batch
// level state. The items map is the only shared mutable structure.
type Orchestrator struct {
	client GenerationClient
	store  domain.PostStore
	recon  *Reconciler
	logger zerolog.Logger
	opts   Options

	rootCtx   context.Context
	stop      context.CancelFunc
	submitSem *semaphore.Weighted

	mu      sync.Mutex
	items   map[int64]*itemState
	batches map[string]*Batch
}

// New builds an Orchestrator. Close must be called to stop all pollers.
func New(client GenerationClient, store domain.PostStore, recon *Reconciler, logger zerolog.Logger, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		client:    client,
		store:     store,
		recon:     recon,
		logger:    logger,
		opts:      opts,
		rootCtx:   ctx,
		stop:      cancel,
		submitSem: semaphore.NewWeighted(int64(opts.SubmitWidth)),
		items:     make(map[int64]*itemState),
		batches:   make(map[string]*Batch),
	}
}

// Close cancels every active poller. In-flight network calls are allowed to
// finish; their results are discarded.
func (o *Orchestrator) Close() {
	o.stop()
}

// GenerateOne submits a single post and starts its poller. It returns
// immediately; terminal resolution is observed via GetState. Any active job
// for the post is superseded first.
func (o *Orchestrator) GenerateOne(post *domain.Post, params genclient.Params) (domain.JobState, error) {
	if !post.Persistable() {
		return domain.JobState{}, domain.ErrPostNotEligible
	}
	params = params.Normalized()
	if err := params.Validate(); err != nil {
		return domain.JobState{}, err
	}

	epoch, ctx := o.begin(post.ID, params)
	go o.run(ctx, post, params, epoch)

	state, _ := o.GetState(post.ID)
	return state, nil
}

// GenerateAll starts generation for every item not already in flight,
// submitting in waves of SubmitWidth with a pause between waves. Items that
// cannot be submitted at all get a terminal failed JobState instead of being
// dropped from the batch.
func (o *Orchestrator) GenerateAll(items []BatchItem) (*Batch, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: batch needs at least one item", domain.ErrInvalidParams)
	}

	batch := newBatch(o)
	type launch struct {
		post   *domain.Post
		params genclient.Params
	}
	var launches []launch

	for _, item := range items {
		post := item.Post
		if post == nil {
			continue
		}
		batch.postIDs = append(batch.postIDs, post.ID)
		params := item.Params.Normalized()
		if !post.Persistable() {
			o.failImmediately(post.ID, params.Kind, domain.ErrPostNotEligible.Error())
			continue
		}
		if err := params.Validate(); err != nil {
			o.failImmediately(post.ID, params.Kind, err.Error())
			continue
		}
		if state, ok := o.GetState(post.ID); ok && state.Phase.Active() {
			// Already submitting or polling; the batch observes the live job
			// instead of starting a duplicate.
			continue
		}
		launches = append(launches, launch{post: post, params: params})
	}

	o.mu.Lock()
	o.batches[batch.ID] = batch
	o.mu.Unlock()

	go func() {
		for i, l := range launches {
			if i > 0 && i%o.opts.SubmitWidth == 0 {
				select {
				case <-o.rootCtx.Done():
					return
				case <-time.After(o.opts.SubmitPause):
				}
			}
			epoch, ctx := o.begin(l.post.ID, l.params)
			go o.run(ctx, l.post, l.params, epoch)
		}
	}()

	return batch, nil
}

// Regenerate supersedes any active job for the post, resets its stored
// artifacts and starts a fresh generation. When params is nil the last used
// parameters are reused.
func (o *Orchestrator) Regenerate(ctx context.Context, postID int64, params *genclient.Params) (domain.JobState, error) {
	post, err := o.store.Get(ctx, postID)
	if err != nil {
		return domain.JobState{}, err
	}
	p := o.lastParams(postID)
	if params != nil {
		p = *params
	}
	return o.GenerateOne(post, p)
}

// Cancel stops polling for one post, leaving its JobState at the last known
// value. Cancelling an idle or already-cancelled post is a no-op.
func (o *Orchestrator) Cancel(postID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	it := o.items[postID]
	if it == nil {
		return
	}
	if it.cancel != nil {
		it.cancel()
		it.cancel = nil
	}
	it.active = false
}

// GetState returns a copy of the post's current JobState.
func (o *Orchestrator) GetState(postID int64) (domain.JobState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	it := o.items[postID]
	if it == nil {
		return domain.JobState{}, false
	}
	return it.state.Clone(), true
}

// States returns a snapshot of every tracked JobState.
func (o *Orchestrator) States() []domain.JobState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.JobState, 0, len(o.items))
	for _, it := range o.items {
		out = append(out, it.state.Clone())
	}
	return out
}

// BatchByID looks up a previously started batch handle.
func (o *Orchestrator) BatchByID(id string) (*Batch, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.batches[id]
	return b, ok
}

// RefreshAll performs a one-shot status re-check for every post stuck in
// polling without a live poller (for example after a cancel). It never
// creates a duplicate poller for a post whose poller is still alive. The
// number of posts checked is returned.
func (o *Orchestrator) RefreshAll(ctx context.Context) int {
	type target struct {
		postID int64
		jobID  string
		epoch  uint64
		params genclient.Params
	}
	o.mu.Lock()
	var targets []target
	for id, it := range o.items {
		if it.state.Phase == domain.PhasePolling && !it.active && it.state.JobID != "" {
			targets = append(targets, target{postID: id, jobID: it.state.JobID, epoch: it.epoch, params: it.params})
		}
	}
	o.mu.Unlock()

	for _, t := range targets {
		res, err := o.client.QueryStatus(ctx, t.jobID)
		if err != nil {
			o.logger.Warn().Err(err).Int64("post_id", t.postID).Str("job_id", t.jobID).Msg("refresh: status query failed")
			continue
		}
		switch res.Status {
		case genclient.StatusFailed:
			msg := res.Message
			if msg == "" {
				msg = "backend reported failure"
			}
			o.commitTerminal(ctx, t.postID, t.epoch, domain.PhaseFailed, msg)
		case genclient.StatusSucceeded:
			o.reconcile(ctx, t.postID, t.params, t.epoch, res.Artifacts)
		default:
			// Still in flight; leave the state as polling.
		}
	}
	return len(targets)
}

// begin supersedes any existing job for the post and installs a fresh
// submitting JobState under a new epoch. Late results from the superseded
// job fail the epoch check and are discarded.
func (o *Orchestrator) begin(postID int64, params genclient.Params) (uint64, context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	it := o.items[postID]
	if it == nil {
		it = &itemState{}
		o.items[postID] = it
	}
	if it.cancel != nil {
		it.cancel()
	}
	it.epoch++
	it.active = true
	it.params = params

	ctx, cancel := context.WithCancel(o.rootCtx)
	it.cancel = cancel

	state := domain.JobState{PostID: postID, Kind: params.Kind, StartedAt: time.Now()}
	_ = state.Transition(domain.PhaseSubmitting)
	it.state = state

	return it.epoch, ctx
}

// failImmediately records a terminal failed JobState for a post that never
// got as far as a submission, so the batch never silently drops it.
func (o *Orchestrator) failImmediately(postID int64, kind domain.ArtifactKind, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	it := o.items[postID]
	if it == nil {
		it = &itemState{}
		o.items[postID] = it
	}
	if it.cancel != nil {
		it.cancel()
		it.cancel = nil
	}
	it.epoch++
	it.active = false

	state := domain.JobState{PostID: postID, Kind: kind, StartedAt: time.Now()}
	_ = state.Transition(domain.PhaseSubmitting)
	_ = state.Transition(domain.PhaseFailed)
	state.Error = msg
	it.state = state
}

func (o *Orchestrator) item(postID int64) *itemState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.items[postID]
}

func (o *Orchestrator) epochCurrent(postID int64, epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	it := o.items[postID]
	return it != nil && it.epoch == epoch
}

func (o *Orchestrator) lastParams(postID int64) genclient.Params {
	o.mu.Lock()
	defer o.mu.Unlock()
	if it := o.items[postID]; it != nil {
		return it.params
	}
	return genclient.Params{}
}

// commit applies fn to the post's JobState if the epoch is still current.
func (o *Orchestrator) commit(postID int64, epoch uint64, fn func(s *domain.JobState)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	it := o.items[postID]
	if it == nil || it.epoch != epoch {
		return false
	}
	fn(&it.state)
	it.state.UpdatedAt = time.Now()
	return true
}

// commitTerminal moves the post to a terminal phase and mirrors the failure
// onto the stored post status.
func (o *Orchestrator) commitTerminal(ctx context.Context, postID int64, epoch uint64, phase domain.JobPhase, msg string) {
	applied := o.commit(postID, epoch, func(s *domain.JobState) {
		if err := s.Transition(phase); err != nil {
			o.logger.Error().Err(err).Int64("post_id", postID).Msg("orchestrator: transition rejected")
			return
		}
		s.Error = msg
	})
	if !applied {
		return
	}
	if phase == domain.PhaseFailed || phase == domain.PhaseTimedOut {
		it := o.item(postID)
		if it == nil {
			return
		}
		it.commitMu.Lock()
		defer it.commitMu.Unlock()
		if !o.epochCurrent(postID, epoch) {
			return
		}
		if _, err := o.store.UpdateGeneration(ctx, postID, domain.GenerationUpdate{Status: domain.PostStatusFailed}); err != nil {
			o.logger.Warn().Err(err).Int64("post_id", postID).Msg("orchestrator: persist failed status")
		}
	}
}

// run drives one post's generation end to end: placeholder reset, bounded
// submission, polling, reconciliation.
func (o *Orchestrator) run(ctx context.Context, post *domain.Post, params genclient.Params, epoch uint64) {
	defer o.finish(post.ID, epoch)

	if !o.resetPlaceholders(ctx, post.ID, params.Kind, epoch) {
		return
	}

	if err := o.submitSem.Acquire(ctx, 1); err != nil {
		return
	}
	res, err := o.client.Submit(ctx, post, params)
	o.submitSem.Release(1)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.logger.Warn().Err(err).Int64("post_id", post.ID).Str("service", params.Service).Msg("submit failed")
		o.commitTerminal(ctx, post.ID, epoch, domain.PhaseFailed, err.Error())
		return
	}

	if !res.Async() {
		// Synchronous completion: no poller needed.
		o.reconcile(ctx, post.ID, params, epoch, res.Artifacts)
		return
	}

	if !o.commit(post.ID, epoch, func(s *domain.JobState) {
		if err := s.Transition(domain.PhasePolling); err == nil {
			s.JobID = res.JobID
		}
	}) {
		return
	}
	o.logger.Info().Int64("post_id", post.ID).Str("job_id", res.JobID).Msg("job accepted, polling")

	p := &poller{
		client:      o.client,
		jobID:       res.JobID,
		interval:    o.opts.PollInterval,
		maxAttempts: o.opts.MaxPollAttempts,
		logger:      o.logger,
		onAttempt: func(attempt int) {
			o.commit(post.ID, epoch, func(s *domain.JobState) { s.Attempts = attempt })
		},
	}
	outcome := p.run(ctx)

	switch {
	case ctx.Err() != nil:
		// Cancelled or superseded; leave the last-known state untouched.
	case outcome.timedOut:
		o.commitTerminal(ctx, post.ID, epoch, domain.PhaseTimedOut, "backend still processing after attempt ceiling")
	case outcome.err != nil:
		o.commitTerminal(ctx, post.ID, epoch, domain.PhaseFailed, outcome.err.Error())
	case outcome.status.Status == genclient.StatusFailed:
		msg := outcome.status.Message
		if msg == "" {
			msg = "backend reported failure"
		}
		o.commitTerminal(ctx, post.ID, epoch, domain.PhaseFailed, msg)
	default:
		o.reconcile(ctx, post.ID, params, epoch, outcome.status.Artifacts)
	}
}

// resetPlaceholders clears the post's stored artifacts before a new job so
// the UI never shows stale results as current.
func (o *Orchestrator) resetPlaceholders(ctx context.Context, postID int64, kind domain.ArtifactKind, epoch uint64) bool {
	it := o.item(postID)
	if it == nil {
		return false
	}
	it.commitMu.Lock()
	defer it.commitMu.Unlock()
	if !o.epochCurrent(postID, epoch) {
		return false
	}
	update := domain.GenerationUpdate{Kind: kind, Status: domain.PostStatusGenerating}
	if _, err := o.store.UpdateGeneration(ctx, postID, update); err != nil {
		if ctx.Err() != nil {
			return false
		}
		// Not fatal: generation proceeds, reconciliation will write again.
		o.logger.Warn().Err(err).Int64("post_id", postID).Msg("orchestrator: placeholder reset failed")
	}
	return true
}

// reconcile validates a successful job's artifacts, merges and persists them
// under the post's commit lock, then marks the JobState succeeded. A
// regenerate that raced ahead wins: its epoch bump makes this commit a no-op.
func (o *Orchestrator) reconcile(ctx context.Context, postID int64, params genclient.Params, epoch uint64, candidates []domain.Artifact) {
	for i := range candidates {
		if params.Kind != "" {
			candidates[i].Kind = params.Kind
		}
		if candidates[i].Service == "" {
			candidates[i].Service = params.Service
		}
		if candidates[i].Style == "" {
			candidates[i].Style = params.Style
		}
	}

	valid, verr := o.recon.Validate(ctx, postID, candidates)
	if verr != nil {
		o.logger.Warn().Err(verr).Int64("post_id", postID).Msg("artifact validation rejected job")
		o.commitTerminal(ctx, postID, epoch, domain.PhaseFailed, verr.Error())
		return
	}

	it := o.item(postID)
	if it == nil {
		return
	}
	it.commitMu.Lock()
	defer it.commitMu.Unlock()
	if !o.epochCurrent(postID, epoch) {
		return
	}

	merged, err := o.recon.Commit(ctx, postID, params.Kind, valid)
	warning := ""
	if err != nil {
		warning = err.Error()
		o.logger.Warn().Err(err).Int64("post_id", postID).Msg("reconciler: persistence failed, result kept in memory")
	}
	o.commit(postID, epoch, func(s *domain.JobState) {
		if terr := s.Transition(domain.PhaseSucceeded); terr != nil {
			o.logger.Error().Err(terr).Int64("post_id", postID).Msg("orchestrator: transition rejected")
			return
		}
		s.Artifacts = merged
		s.Warning = warning
		s.Error = ""
	})
}

// finish releases per-run bookkeeping once the run goroutine exits.
func (o *Orchestrator) finish(postID int64, epoch uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	it := o.items[postID]
	if it == nil || it.epoch != epoch {
		return
	}
	it.active = false
	if it.cancel != nil {
		it.cancel()
		it.cancel = nil
	}
}
