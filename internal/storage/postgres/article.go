package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"article_sync/internal/domain"
)

// ErrArticleNotFound is returned when no article matches the id/user pair.
var ErrArticleNotFound = errors.New("article not found")

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

func (s *ArticleStore) Get(ctx context.Context, articleID, userID string) (*domain.Article, error) {
	query := `
		SELECT id, user_id, title, content, summary,
		       repo_path, remote_url, remote_sha,
		       sync_status, first_sync_at, last_sync_at, sync_count,
		       local_modified_at, remote_modified_at,
		       created_at, updated_at
		FROM articles
		WHERE id = $1 AND user_id = $2`

	var article domain.Article
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &article, query, articleID, userID)
	if err == sql.ErrNoRows {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &article, nil
}

// Update persists the content and sync bookkeeping fields. updated_at is
// deliberately left alone: sync writes must not look like author edits.
func (s *ArticleStore) Update(ctx context.Context, article *domain.Article) error {
	query := `
		UPDATE articles SET
			content = :content,
			repo_path = :repo_path,
			remote_url = :remote_url,
			remote_sha = :remote_sha,
			sync_status = :sync_status,
			first_sync_at = :first_sync_at,
			last_sync_at = :last_sync_at,
			sync_count = :sync_count,
			local_modified_at = :local_modified_at,
			remote_modified_at = :remote_modified_at
		WHERE id = :id AND user_id = :user_id`

	res, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, article)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrArticleNotFound
	}
	return nil
}
