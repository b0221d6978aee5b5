package domain

import "context"

// GenerationUpdate is the single read-modify-write payload applied to a post
// when generation state changes. Kind scopes which artifact fields apply:
// image updates replace Images/PrimaryURL, video updates replace VideoURL,
// and an empty Kind touches only Status. Within the applicable kind an empty
// value still overwrites, which is how placeholder resets clear stale
// artifacts.
type GenerationUpdate struct {
	Kind       ArtifactKind
	Images     []Artifact
	PrimaryURL string
	VideoURL   string
	Status     PostStatus
}

// PostStore is the collaborator store contract. The orchestrator never
// assumes the store is transactional across posts; each post's update is
// independent.
type PostStore interface {
	Get(ctx context.Context, postID int64) (*Post, error)
	UpdateGeneration(ctx context.Context, postID int64, update GenerationUpdate) (*Post, error)
}
