package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"article_sync/internal/domain"
)

// SyncHistoryStore is the append-only sync ledger. There is intentionally no
// update or delete statement for this table.
type SyncHistoryStore struct {
	db *sqlx.DB
}

func NewSyncHistoryStore(db *sqlx.DB) *SyncHistoryStore {
	return &SyncHistoryStore{db: db}
}

// Append inserts one ledger row, assigning its id and creation time.
func (s *SyncHistoryStore) Append(ctx context.Context, record *domain.SyncHistory) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sync_history (
			id, article_id, user_id,
			sync_type, sync_direction, sync_status,
			content_before, content_after, has_changes,
			remote_sha, remote_url, repo_path,
			conflict_type, conflict_resolution,
			error_message, sync_duration_ms, file_size,
			created_at
		) VALUES (
			:id, :article_id, :user_id,
			:sync_type, :sync_direction, :sync_status,
			:content_before, :content_after, :has_changes,
			:remote_sha, :remote_url, :repo_path,
			:conflict_type, :conflict_resolution,
			:error_message, :sync_duration_ms, :file_size,
			:created_at
		)`

	if _, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, record); err != nil {
		return fmt.Errorf("append sync history: %w", err)
	}
	return nil
}

// ListByArticle returns the newest rows first.
func (s *SyncHistoryStore) ListByArticle(ctx context.Context, articleID string, limit int) ([]domain.SyncHistory, error) {
	query := `
		SELECT id, article_id, user_id,
		       sync_type, sync_direction, sync_status,
		       content_before, content_after, has_changes,
		       remote_sha, remote_url, repo_path,
		       conflict_type, conflict_resolution,
		       error_message, sync_duration_ms, file_size,
		       created_at
		FROM sync_history
		WHERE article_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var rows []domain.SyncHistory
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, articleID, limit); err != nil {
		return nil, fmt.Errorf("list sync history: %w", err)
	}
	return rows, nil
}
