package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"campaignforge/internal/domain"
)

// ArtifactValidationError reports a job the backend called successful whose
// artifacts were all unusable. It is terminal: the job is treated as failed.
type ArtifactValidationError struct {
	PostID  int64
	Reasons []string
}

func (e *ArtifactValidationError) Error() string {
	return fmt.Sprintf("post %d: no usable artifacts (%s)", e.PostID, strings.Join(e.Reasons, "; "))
}

// URLProber confirms a candidate artifact URL actually resolves before it is
// accepted. Implementations must be safe for concurrent use.
type URLProber interface {
	Probe(ctx context.Context, url string) error
}

// HTTPProber issues a HEAD request against the artifact URL, mirroring the
// UI's pre-load check that an image really renders before accepting it.
type HTTPProber struct {
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context, url string) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe %s: http %d", url, resp.StatusCode)
	}
	return nil
}

// Reconciler turns a terminal backend response into durable post state:
// validate artifacts, merge them with the stored collection preserving prior
// selections, pick the primary, and persist through the collaborator store.
type Reconciler struct {
	store  domain.PostStore
	prober URLProber
	logger zerolog.Logger
}

// NewReconciler builds a Reconciler. A nil prober skips the reachability
// check and relies on scheme/host validation alone.
func NewReconciler(store domain.PostStore, prober URLProber, logger zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, prober: prober, logger: logger}
}

// Validate filters candidates down to usable artifacts. When nothing
// survives, the returned ArtifactValidationError makes the job failed even
// though the backend reported success.
func (r *Reconciler) Validate(ctx context.Context, postID int64, candidates []domain.Artifact) ([]domain.Artifact, *ArtifactValidationError) {
	var usable []domain.Artifact
	var reasons []string
	for _, a := range candidates {
		if !domain.UsableArtifactURL(a.URL) {
			reasons = append(reasons, fmt.Sprintf("rejected url %q", a.URL))
			continue
		}
		if r.prober != nil {
			if err := r.prober.Probe(ctx, a.URL); err != nil {
				reasons = append(reasons, fmt.Sprintf("unreachable url %q: %v", a.URL, err))
				continue
			}
		}
		usable = append(usable, a)
	}
	if len(usable) == 0 {
		if len(reasons) == 0 {
			reasons = []string{"backend returned no artifacts"}
		}
		return nil, &ArtifactValidationError{PostID: postID, Reasons: reasons}
	}
	for i := range usable {
		usable[i].Order = i
	}
	return usable, nil
}

// MergeArtifacts folds incoming artifacts into an existing collection. Prior
// artifacts keep their curated selection flags; incoming ones that are new
// default to selected. Display order is recomputed over the merged set.
func MergeArtifacts(existing, incoming []domain.Artifact) []domain.Artifact {
	selectionByURL := make(map[string]bool, len(existing))
	for _, a := range existing {
		selectionByURL[a.URL] = a.Selected
	}

	merged := make([]domain.Artifact, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, a := range existing {
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		merged = append(merged, a)
	}
	for _, a := range incoming {
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		if prior, ok := selectionByURL[a.URL]; ok {
			a.Selected = prior
		} else {
			a.Selected = true
		}
		merged = append(merged, a)
	}
	for i := range merged {
		merged[i].Order = i
	}
	return merged
}

// PrimaryURL picks the post's primary artifact: first selected, else first.
func PrimaryURL(artifacts []domain.Artifact) string {
	for _, a := range artifacts {
		if a.Selected {
			return a.URL
		}
	}
	if len(artifacts) > 0 {
		return artifacts[0].URL
	}
	return ""
}

// Commit merges validated artifacts into the stored post and persists the
// result. A persistence failure does not undo the generation: the merged
// in-memory collection is still returned alongside the StoreError so the
// caller can keep the succeeded JobState and surface a warning.
func (r *Reconciler) Commit(ctx context.Context, postID int64, kind domain.ArtifactKind, validated []domain.Artifact) ([]domain.Artifact, error) {
	existing, err := r.loadExisting(ctx, postID, kind)
	if err != nil {
		// Merge against nothing rather than dropping the result.
		r.logger.Warn().Err(err).Int64("post_id", postID).Msg("reconciler: load existing post failed")
	}

	if kind != domain.ArtifactKindVideo {
		kind = domain.ArtifactKindImage
	}
	merged := MergeArtifacts(existing, validated)
	update := domain.GenerationUpdate{Kind: kind, Status: domain.PostStatusCompleted}
	if kind == domain.ArtifactKindVideo {
		update.VideoURL = PrimaryURL(merged)
	} else {
		update.Images = merged
		update.PrimaryURL = PrimaryURL(merged)
	}

	if _, err := r.store.UpdateGeneration(ctx, postID, update); err != nil {
		return merged, &domain.StoreError{Op: "update", PostID: postID, Err: err}
	}
	return merged, nil
}

func (r *Reconciler) loadExisting(ctx context.Context, postID int64, kind domain.ArtifactKind) ([]domain.Artifact, error) {
	post, err := r.store.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if kind == domain.ArtifactKindVideo {
		return nil, nil
	}
	return post.Images, nil
}
