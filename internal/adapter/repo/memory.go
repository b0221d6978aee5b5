package repo

import (
	"context"
	"sync"
	"time"

	"campaignforge/internal/domain"
)

// MemoryPostStore is an in-memory domain.PostStore for development and test
// environments where PostgreSQL is not available.
type MemoryPostStore struct {
	mu    sync.Mutex
	posts map[int64]*domain.Post
}

func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{posts: make(map[int64]*domain.Post)}
}

// Put seeds or replaces a post.
func (s *MemoryPostStore) Put(post *domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := clonePost(post)
	s.posts[post.ID] = clone
}

func (s *MemoryPostStore) Get(ctx context.Context, postID int64) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePost(post), nil
}

func (s *MemoryPostStore) UpdateGeneration(ctx context.Context, postID int64, update domain.GenerationUpdate) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	switch update.Kind {
	case domain.ArtifactKindImage:
		post.Images = append([]domain.Artifact(nil), update.Images...)
	case domain.ArtifactKindVideo:
		post.VideoURL = update.VideoURL
	}
	post.Status = update.Status
	post.UpdatedAt = time.Now()
	return clonePost(post), nil
}

func clonePost(post *domain.Post) *domain.Post {
	clone := *post
	clone.Images = append([]domain.Artifact(nil), post.Images...)
	return &clone
}
