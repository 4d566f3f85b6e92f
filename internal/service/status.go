package service

import (
	"context"
	"fmt"

	"article_sync/internal/domain"
)

const (
	recentHistoryLimit  = 5
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Status returns the article's sync snapshot plus its most recent ledger rows.
func (s *SyncService) Status(ctx context.Context, userID, articleID string) (*domain.StatusResult, error) {
	article, err := s.articles.Get(ctx, articleID, userID)
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}

	recent, err := s.history.ListByArticle(ctx, articleID, recentHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent history: %w", err)
	}

	return &domain.StatusResult{
		ArticleID:     article.ID,
		Title:         article.Title,
		SyncStatus:    article.SyncStatus,
		FirstSyncAt:   article.FirstSyncAt,
		LastSyncAt:    article.LastSyncAt,
		SyncCount:     article.SyncCount,
		RemoteURL:     article.RemoteURL,
		RepoPath:      article.RepoPath,
		RecentHistory: recent,
	}, nil
}

// History returns the article's ledger rows, newest first.
func (s *SyncService) History(ctx context.Context, userID, articleID string, limit int) ([]domain.SyncHistory, error) {
	// ownership check
	if _, err := s.articles.Get(ctx, articleID, userID); err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.history.ListByArticle(ctx, articleID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return rows, nil
}
