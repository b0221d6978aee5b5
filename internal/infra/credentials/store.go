package credentials

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"campaignforge/internal/sqlinline"
)

const (
	// ProviderGeneration keys the generation backend's API token in the
	// integration_tokens table. Used as a fallback when the key is not set
	// through the environment.
	ProviderGeneration = "generation_backend"
)

// Executor is the slice of the SQL runner the store needs.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

type Store struct {
	db Executor
}

func NewStore(db Executor) *Store {
	return &Store{db: db}
}

func (s *Store) GenerationAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGeneration)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.db.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGenerationAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("generation api key is required")
	}
	_, err := s.db.Exec(ctx, sqlinline.QUpsertIntegrationToken, ProviderGeneration, key)
	return err
}
