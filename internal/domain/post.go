package domain

import "time"

// PostStatus enumerates the post's own lifecycle tag. It is persisted with the
// post and is independent of the orchestrator's in-memory JobState.
type PostStatus string

const (
	PostStatusPending    PostStatus = "pending"
	PostStatusGenerating PostStatus = "generating"
	PostStatusCompleted  PostStatus = "completed"
	PostStatusFailed     PostStatus = "failed"
)

// Post is the unit of generation: one campaign content item with its text and
// any generated artifacts. The collaborator store owns its lifecycle; the
// orchestrator only reads it and writes generation results back.
type Post struct {
	ID         int64
	CampaignID int64
	Content    string
	Images     []Artifact
	VideoURL   string
	Status     PostStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Persistable reports whether the post carries a stable identifier. Posts
// without one cannot have generation results written back.
func (p *Post) Persistable() bool {
	return p != nil && p.ID > 0
}

// PrimaryImageURL returns the first selected image, falling back to the first
// image when nothing is selected.
func (p *Post) PrimaryImageURL() string {
	if p == nil || len(p.Images) == 0 {
		return ""
	}
	for _, a := range p.Images {
		if a.Selected {
			return a.URL
		}
	}
	return p.Images[0].URL
}
