// Package service implements the bidirectional sync engine between local
// articles and their mirrors in the remote content repository.
package service

import (
	"context"
	"log/slog"
	"time"

	"article_sync/internal/domain"
)

type SyncService struct {
	articles  ArticleStore
	history   SyncHistoryStore
	remotes   RemoteClientFactory
	txManager TransactionManager
	notifier  Notifier
	logger    *slog.Logger
	locks     *articleLocker
}

func NewSyncService(
	articles ArticleStore,
	history SyncHistoryStore,
	remotes RemoteClientFactory,
	txManager TransactionManager,
	notifier Notifier,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		articles:  articles,
		history:   history,
		remotes:   remotes,
		txManager: txManager,
		notifier:  notifier,
		logger:    logger,
		locks:     newArticleLocker(),
	}
}

// appendHistory writes a ledger row outside any transaction. The ledger is
// best-effort: a failed write must not mask the operation's own result.
func (s *SyncService) appendHistory(ctx context.Context, record *domain.SyncHistory) {
	if err := s.history.Append(ctx, record); err != nil {
		s.logger.Warn("failed to append sync history",
			"article_id", record.ArticleID,
			"sync_type", record.SyncType,
			"error", err,
		)
	}
}

func (s *SyncService) notify(ctx context.Context, articleID, userID string, syncType domain.SyncType, outcome domain.SyncOutcome) {
	if s.notifier == nil {
		return
	}
	event := domain.SyncEvent{
		ArticleID: articleID,
		UserID:    userID,
		Type:      syncType,
		Status:    outcome,
		Timestamp: time.Now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("failed to publish sync event",
			"article_id", articleID,
			"sync_type", syncType,
			"error", err,
		)
	}
}

func ptr[T any](v T) *T {
	return &v
}

func durationMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
