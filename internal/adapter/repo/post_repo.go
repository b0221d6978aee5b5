package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"campaignforge/internal/domain"
	"campaignforge/internal/sqlinline"
)

// Executor is the SQL surface the repository needs. Satisfied by
// *infra.SQLRunner in production and by stubs in tests.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// PostRepositoryPG implements domain.PostStore on PostgreSQL. Artifacts are
// stored as a JSONB column on the posts row; each update is an independent
// single-row write.
type PostRepositoryPG struct {
	db Executor
}

func NewPostRepository(db Executor) *PostRepositoryPG {
	return &PostRepositoryPG{db: db}
}

// Get fetches a post by its identifier.
func (r *PostRepositoryPG) Get(ctx context.Context, postID int64) (*domain.Post, error) {
	row := r.db.QueryRow(ctx, sqlinline.QSelectPost, postID)
	var post domain.Post
	var imagesRaw []byte
	if err := row.Scan(
		&post.ID,
		&post.CampaignID,
		&post.Content,
		&imagesRaw,
		&post.VideoURL,
		&post.Status,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(imagesRaw) > 0 {
		if err := json.Unmarshal(imagesRaw, &post.Images); err != nil {
			return nil, fmt.Errorf("decode post %d images: %w", postID, err)
		}
	}
	return &post, nil
}

// UpdateGeneration applies a generation update scoped by artifact kind:
// image updates replace the images column and the primary URL, video updates
// replace the video URL, an empty kind only touches status.
func (r *PostRepositoryPG) UpdateGeneration(ctx context.Context, postID int64, update domain.GenerationUpdate) (*domain.Post, error) {
	switch update.Kind {
	case domain.ArtifactKindImage:
		imagesRaw := []byte("[]")
		if update.Images != nil {
			var err error
			imagesRaw, err = json.Marshal(update.Images)
			if err != nil {
				return nil, fmt.Errorf("encode post %d images: %w", postID, err)
			}
		}
		if err := r.exec(ctx, sqlinline.QUpdatePostImages, postID, imagesRaw, update.PrimaryURL, update.Status); err != nil {
			return nil, err
		}
	case domain.ArtifactKindVideo:
		if err := r.exec(ctx, sqlinline.QUpdatePostVideo, postID, update.VideoURL, update.Status); err != nil {
			return nil, err
		}
	default:
		if err := r.exec(ctx, sqlinline.QUpdatePostStatus, postID, update.Status); err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, postID)
}

func (r *PostRepositoryPG) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
