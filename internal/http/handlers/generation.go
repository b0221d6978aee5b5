package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"campaignforge/internal/domain"
	"campaignforge/internal/genclient"
	"campaignforge/internal/middleware"
	"campaignforge/internal/orchestrator"
)

type batchItemRequest struct {
	PostID  int64  `json:"post_id" validate:"required,gt=0"`
	Count   int    `json:"count" validate:"omitempty,min=1,max=10"`
	Style   string `json:"style" validate:"omitempty,oneof=realistic artistic minimalist vibrant professional"`
	Service string `json:"service" validate:"omitempty,oneof=flux sdxl ideogram"`
}

type startBatchRequest struct {
	Items []batchItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

type regenerateRequest struct {
	Count   int    `json:"count" validate:"omitempty,min=1,max=10"`
	Style   string `json:"style" validate:"omitempty,oneof=realistic artistic minimalist vibrant professional"`
	Service string `json:"service" validate:"omitempty,oneof=flux sdxl ideogram"`
}

// StartBatch kicks off image generation for a set of posts and returns the
// batch handle. 202: generation proceeds asynchronously; progress is pulled
// via BatchStatus / GetState.
func (a *App) StartBatch(w http.ResponseWriter, r *http.Request) {
	var req startBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	locale := middleware.LocaleFromContext(r.Context())
	items := make([]orchestrator.BatchItem, 0, len(req.Items))
	for _, item := range req.Items {
		post, err := a.Store.Get(r.Context(), item.PostID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				a.error(w, http.StatusNotFound, "not_found", "post "+strconv.FormatInt(item.PostID, 10)+" not found")
				return
			}
			a.error(w, http.StatusInternalServerError, "internal", "failed to load post")
			return
		}
		items = append(items, orchestrator.BatchItem{
			Post: post,
			Params: genclient.Params{
				Kind:    domain.ArtifactKindImage,
				Count:   item.Count,
				Style:   item.Style,
				Service: item.Service,
				Locale:  locale,
			},
		})
	}

	batch, err := a.Orch.GenerateAll(items)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	a.json(w, http.StatusAccepted, batch.Snapshot())
}

// BatchStatus returns the aggregate and per-post state of a batch.
func (a *App) BatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	batch, ok := a.Orch.BatchByID(batchID)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "batch not found")
		return
	}
	a.json(w, http.StatusOK, batch.Snapshot())
}

// GetState returns the post's current generation state; posts never
// submitted report idle.
func (a *App) GetState(w http.ResponseWriter, r *http.Request) {
	postID, ok := a.postIDParam(w, r)
	if !ok {
		return
	}
	state, tracked := a.Orch.GetState(postID)
	if !tracked {
		state = domain.JobState{PostID: postID, Phase: domain.PhaseIdle}
	}
	a.json(w, http.StatusOK, state)
}

// Regenerate supersedes any active job for the post and starts a fresh one.
// An empty body reuses the post's previous parameters.
func (a *App) Regenerate(w http.ResponseWriter, r *http.Request) {
	postID, ok := a.postIDParam(w, r)
	if !ok {
		return
	}

	var params *genclient.Params
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		if err := a.validate.Struct(req); err != nil {
			a.error(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		params = &genclient.Params{
			Kind:    domain.ArtifactKindImage,
			Count:   req.Count,
			Style:   req.Style,
			Service: req.Service,
			Locale:  middleware.LocaleFromContext(r.Context()),
		}
	}

	state, err := a.Orch.Regenerate(r.Context(), postID, params)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidParams) || errors.Is(err, domain.ErrPostNotEligible) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to regenerate")
		return
	}
	a.json(w, http.StatusAccepted, state)
}

// Cancel stops polling for the post, leaving its state at the last known
// value. Cancelling twice is the same as cancelling once.
func (a *App) Cancel(w http.ResponseWriter, r *http.Request) {
	postID, ok := a.postIDParam(w, r)
	if !ok {
		return
	}
	a.Orch.Cancel(postID)
	state, tracked := a.Orch.GetState(postID)
	if !tracked {
		state = domain.JobState{PostID: postID, Phase: domain.PhaseIdle}
	}
	a.json(w, http.StatusOK, state)
}

// Refresh forces a one-shot status re-check for every post stuck in polling
// without a live poller, e.g. after a client reload lost its view.
func (a *App) Refresh(w http.ResponseWriter, r *http.Request) {
	checked := a.Orch.RefreshAll(r.Context())
	a.json(w, http.StatusOK, map[string]int{"checked": checked})
}

// GenerateVideo starts video generation for one post.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	postID, ok := a.postIDParam(w, r)
	if !ok {
		return
	}
	post, err := a.Store.Get(r.Context(), postID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load post")
		return
	}

	state, err := a.Orch.GenerateOne(post, genclient.Params{
		Kind:   domain.ArtifactKindVideo,
		Locale: middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	a.json(w, http.StatusAccepted, state)
}

func (a *App) postIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "post_id")
	postID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || postID <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "post_id must be a positive integer")
		return 0, false
	}
	return postID, true
}
