package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignforge/internal/adapter/repo"
	"campaignforge/internal/domain"
)

type rejectingProber struct {
	reject map[string]bool
}

func (p *rejectingProber) Probe(ctx context.Context, url string) error {
	if p.reject[url] {
		return errors.New("head probe failed")
	}
	return nil
}

func TestValidateRejectsUnusableURLs(t *testing.T) {
	recon := NewReconciler(repo.NewMemoryPostStore(), nil, zerolog.Nop())

	valid, verr := recon.Validate(context.Background(), 1, []domain.Artifact{
		{URL: "blob:https://app.example.com/550e8400"},
		{URL: "https://cdn.example.com/good.png"},
		{URL: "http://localhost/bad.png"},
	})
	require.Nil(t, verr)
	require.Len(t, valid, 1)
	assert.Equal(t, "https://cdn.example.com/good.png", valid[0].URL)
	assert.Equal(t, 0, valid[0].Order)
}

func TestValidateAllUnusableIsTerminal(t *testing.T) {
	recon := NewReconciler(repo.NewMemoryPostStore(), nil, zerolog.Nop())

	valid, verr := recon.Validate(context.Background(), 7, []domain.Artifact{
		{URL: "data:image/png;base64,xyz"},
		{URL: "https://via.placeholder.com/300"},
	})
	require.NotNil(t, verr)
	assert.Nil(t, valid)
	assert.Equal(t, int64(7), verr.PostID)
	assert.Len(t, verr.Reasons, 2)
	assert.Contains(t, verr.Error(), "no usable artifacts")
}

func TestValidateEmptyResultIsTerminal(t *testing.T) {
	recon := NewReconciler(repo.NewMemoryPostStore(), nil, zerolog.Nop())

	_, verr := recon.Validate(context.Background(), 3, nil)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Error(), "backend returned no artifacts")
}

func TestValidateProberFiltersUnreachable(t *testing.T) {
	prober := &rejectingProber{reject: map[string]bool{"https://cdn.example.com/dead.png": true}}
	recon := NewReconciler(repo.NewMemoryPostStore(), prober, zerolog.Nop())

	valid, verr := recon.Validate(context.Background(), 1, []domain.Artifact{
		{URL: "https://cdn.example.com/dead.png"},
		{URL: "https://cdn.example.com/live.png"},
	})
	require.Nil(t, verr)
	require.Len(t, valid, 1)
	assert.Equal(t, "https://cdn.example.com/live.png", valid[0].URL)
}

func TestMergeArtifactsPreservesSelection(t *testing.T) {
	existing := []domain.Artifact{
		{URL: "https://cdn.example.com/keep.png", Selected: true},
		{URL: "https://cdn.example.com/deselected.png", Selected: false},
	}
	incoming := []domain.Artifact{
		{URL: "https://cdn.example.com/deselected.png", Selected: true},
		{URL: "https://cdn.example.com/new.png"},
	}

	merged := MergeArtifacts(existing, incoming)
	require.Len(t, merged, 3)

	byURL := make(map[string]domain.Artifact, len(merged))
	for _, a := range merged {
		byURL[a.URL] = a
	}
	assert.True(t, byURL["https://cdn.example.com/keep.png"].Selected)
	assert.False(t, byURL["https://cdn.example.com/deselected.png"].Selected, "prior curation wins over incoming default")
	assert.True(t, byURL["https://cdn.example.com/new.png"].Selected, "new artifacts default to selected")
	for i, a := range merged {
		assert.Equal(t, i, a.Order)
	}
}

func TestPrimaryURL(t *testing.T) {
	artifacts := []domain.Artifact{
		{URL: "https://cdn.example.com/1.png"},
		{URL: "https://cdn.example.com/2.png", Selected: true},
	}
	assert.Equal(t, "https://cdn.example.com/2.png", PrimaryURL(artifacts))

	artifacts[1].Selected = false
	assert.Equal(t, "https://cdn.example.com/1.png", PrimaryURL(artifacts))
	assert.Equal(t, "", PrimaryURL(nil))
}

func TestCommitPersistsMergedImages(t *testing.T) {
	store := repo.NewMemoryPostStore()
	store.Put(&domain.Post{ID: 1, Content: "hello", Images: []domain.Artifact{
		{Kind: domain.ArtifactKindImage, URL: "https://cdn.example.com/old.png", Selected: false},
	}})
	recon := NewReconciler(store, nil, zerolog.Nop())

	merged, err := recon.Commit(context.Background(), 1, domain.ArtifactKindImage, []domain.Artifact{
		{Kind: domain.ArtifactKindImage, URL: "https://cdn.example.com/new.png"},
	})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	post, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusCompleted, post.Status)
	require.Len(t, post.Images, 2)
	assert.Equal(t, "https://cdn.example.com/new.png", post.PrimaryImageURL(), "new selected artifact becomes primary")
}

func TestCommitVideoWritesURLOnly(t *testing.T) {
	store := repo.NewMemoryPostStore()
	store.Put(&domain.Post{ID: 2, Content: "promo", Images: []domain.Artifact{
		{Kind: domain.ArtifactKindImage, URL: "https://cdn.example.com/poster.png", Selected: true},
	}})
	recon := NewReconciler(store, nil, zerolog.Nop())

	_, err := recon.Commit(context.Background(), 2, domain.ArtifactKindVideo, []domain.Artifact{
		{Kind: domain.ArtifactKindVideo, URL: "https://cdn.example.com/clip.mp4"},
	})
	require.NoError(t, err)

	post, err := store.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/clip.mp4", post.VideoURL)
	require.Len(t, post.Images, 1, "video commit must not clobber images")
}

type failingStore struct {
	domain.PostStore
}

func (s *failingStore) UpdateGeneration(ctx context.Context, postID int64, update domain.GenerationUpdate) (*domain.Post, error) {
	return nil, errors.New("disk full")
}

func TestCommitStoreFailureKeepsResult(t *testing.T) {
	mem := repo.NewMemoryPostStore()
	mem.Put(&domain.Post{ID: 3, Content: "x"})
	recon := NewReconciler(&failingStore{PostStore: mem}, nil, zerolog.Nop())

	merged, err := recon.Commit(context.Background(), 3, domain.ArtifactKindImage, []domain.Artifact{
		{Kind: domain.ArtifactKindImage, URL: "https://cdn.example.com/a.png"},
	})
	require.Error(t, err)

	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, int64(3), storeErr.PostID)
	require.Len(t, merged, 1, "merged result survives the persistence failure")
}
