package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"article_sync/internal/domain"
)

var (
	// ErrInvalidResolution is returned for an unknown resolution policy.
	ErrInvalidResolution = errors.New("invalid resolution type")
	// ErrMissingCustomContent is returned when use_custom carries no content.
	ErrMissingCustomContent = errors.New("custom content is required for custom resolution")
)

// ResolveConflict settles a detected conflict with the caller's chosen
// policy. use_local keeps the local body and just clears the conflict,
// use_remote delegates to a forced pull, use_custom installs the supplied
// merged text. Every resolution appends a conflict_resolved ledger row.
func (s *SyncService) ResolveConflict(ctx context.Context, userID, articleID string, resolution domain.Resolution, customContent string) (*domain.ResolveResult, error) {
	if !resolution.Valid() {
		return nil, ErrInvalidResolution
	}
	if resolution == domain.ResolutionUseCustom && customContent == "" {
		return nil, ErrMissingCustomContent
	}

	release := s.locks.acquire(articleID)
	defer release()

	start := time.Now()

	article, err := s.articles.Get(ctx, articleID, userID)
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}

	contentBefore := article.Content

	if resolution == domain.ResolutionUseRemote {
		if _, err := s.pull(ctx, userID, articleID, true); err != nil {
			return nil, fmt.Errorf("resolve via remote: %w", err)
		}
		// the pull wrote the remote body; re-read for the resolution row
		article, err = s.articles.Get(ctx, articleID, userID)
		if err != nil {
			return nil, fmt.Errorf("reload article: %w", err)
		}
		s.recordResolution(ctx, article, start, resolution, contentBefore, article.Content)
		s.notify(ctx, articleID, userID, domain.SyncTypeConflictResolved, domain.OutcomeSuccess)
		return &domain.ResolveResult{
			Success:    true,
			Resolution: resolution,
			HasChanges: article.Content != contentBefore,
		}, nil
	}

	now := time.Now().UTC()
	if resolution == domain.ResolutionUseCustom {
		article.Content = customContent
		article.LocalModifiedAt = ptr(now)
	}
	article.SyncStatus = domain.SyncStatusSynced
	article.LastSyncAt = ptr(now)

	hasChanges := article.Content != contentBefore

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.articles.Update(txCtx, article); err != nil {
			return err
		}
		return s.history.Append(txCtx, &domain.SyncHistory{
			ArticleID:          article.ID,
			UserID:             article.UserID,
			SyncType:           domain.SyncTypeConflictResolved,
			SyncDirection:      domain.DirectionBidirectional,
			SyncStatus:         domain.OutcomeSuccess,
			ContentBefore:      ptr(contentBefore),
			ContentAfter:       ptr(article.Content),
			HasChanges:         hasChanges,
			ConflictResolution: ptr(string(resolution)),
			RepoPath:           article.RepoPath,
			RemoteURL:          article.RemoteURL,
			SyncDurationMs:     durationMs(start),
			FileSize:           len(article.Content),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("finalize resolution: %w", err)
	}

	s.logger.Info("conflict resolved",
		"article_id", articleID,
		"resolution", resolution,
		"has_changes", hasChanges,
	)
	s.notify(ctx, articleID, userID, domain.SyncTypeConflictResolved, domain.OutcomeSuccess)

	return &domain.ResolveResult{
		Success:    true,
		Resolution: resolution,
		HasChanges: hasChanges,
	}, nil
}

// recordResolution logs the conflict_resolved row for the delegated
// use_remote path, where the pull already wrote its own success row.
func (s *SyncService) recordResolution(ctx context.Context, article *domain.Article, start time.Time, resolution domain.Resolution, contentBefore, contentAfter string) {
	record := &domain.SyncHistory{
		ArticleID:          article.ID,
		UserID:             article.UserID,
		SyncType:           domain.SyncTypeConflictResolved,
		SyncDirection:      domain.DirectionBidirectional,
		SyncStatus:         domain.OutcomeSuccess,
		ContentBefore:      ptr(contentBefore),
		ContentAfter:       ptr(contentAfter),
		HasChanges:         contentBefore != contentAfter,
		ConflictResolution: ptr(string(resolution)),
		RepoPath:           article.RepoPath,
		RemoteURL:          article.RemoteURL,
		SyncDurationMs:     durationMs(start),
	}
	s.appendHistory(ctx, record)
}
