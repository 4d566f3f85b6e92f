package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"article_sync/internal/domain"
	"article_sync/internal/remote/github"
)

// ErrNotPublished is returned when there is no remote file to take down.
var ErrNotPublished = errors.New("article has no published remote file")

// Unpublish deletes the article's remote file and any sibling assets in its
// folder, then demotes the article to local. Sibling deletion failures are
// skipped: the primary objective, taking the document offline, has already
// succeeded. RepoPath is retained so a republish reuses the same location.
func (s *SyncService) Unpublish(ctx context.Context, userID, articleID string) (*domain.UnpublishResult, error) {
	release := s.locks.acquire(articleID)
	defer release()

	start := time.Now()

	article, err := s.articles.Get(ctx, articleID, userID)
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}

	if article.RepoPath == nil {
		return nil, ErrNotPublished
	}
	primary := *article.RepoPath

	client, err := s.remotes.ClientFor(ctx, userID)
	if err != nil {
		s.recordUnpublishFailure(ctx, article, start, err)
		return nil, err
	}

	message := "Unpublish article: " + article.Title
	result := &domain.UnpublishResult{}

	if err := s.deleteFresh(ctx, client, primary, message); err != nil {
		if !errors.Is(err, github.ErrNotFound) {
			s.recordUnpublishFailure(ctx, article, start, err)
			s.notify(ctx, articleID, userID, domain.SyncTypeUnpublish, domain.OutcomeFailed)
			result.FailedFiles = append(result.FailedFiles, domain.FileError{Path: primary, Error: err.Error()})
			return result, nil
		}
		// already gone out-of-band; the objective is met either way
		s.logger.Info("primary file already absent", "article_id", articleID, "path", primary)
	} else {
		result.DeletedFiles = append(result.DeletedFiles, primary)
	}

	// take sibling assets (images etc.) down with the document
	if folder := path.Dir(primary); folder != "." && folder != "/" {
		result.DeletedFiles, result.FailedFiles = s.deleteSiblings(
			ctx, client, folder, primary, message, result.DeletedFiles, result.FailedFiles,
		)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		article.SyncStatus = domain.SyncStatusLocal
		article.RemoteURL = nil
		article.RemoteSHA = nil
		article.RemoteModifiedAt = nil

		if err := s.articles.Update(txCtx, article); err != nil {
			return err
		}

		outcome := domain.OutcomeSuccess
		if len(result.FailedFiles) > 0 {
			outcome = domain.OutcomePartialSuccess
		}
		return s.history.Append(txCtx, &domain.SyncHistory{
			ArticleID:      article.ID,
			UserID:         article.UserID,
			SyncType:       domain.SyncTypeUnpublish,
			SyncDirection:  domain.DirectionLocalToRemote,
			SyncStatus:     outcome,
			RepoPath:       article.RepoPath,
			ErrorMessage:   joinFileErrors(result.FailedFiles),
			SyncDurationMs: durationMs(start),
			FileSize:       len(result.DeletedFiles),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("finalize unpublish: %w", err)
	}

	result.Success = true

	s.logger.Info("unpublish completed",
		"article_id", articleID,
		"deleted", len(result.DeletedFiles),
		"failed", len(result.FailedFiles),
	)
	s.notify(ctx, articleID, userID, domain.SyncTypeUnpublish, domain.OutcomeSuccess)

	return result, nil
}

// deleteFresh re-reads the file's concurrency token right before deleting.
func (s *SyncService) deleteFresh(ctx context.Context, client RemoteClient, filePath, message string) error {
	file, err := client.Get(ctx, filePath)
	if err != nil {
		return err
	}
	return client.Delete(ctx, filePath, file.SHA, message)
}

func (s *SyncService) deleteSiblings(ctx context.Context, client RemoteClient, folder, primary, message string, deleted []string, failed []domain.FileError) ([]string, []domain.FileError) {
	entries, err := client.ListFolder(ctx, folder)
	if err != nil {
		if !errors.Is(err, github.ErrNotFound) {
			s.logger.Warn("failed to list article folder", "folder", folder, "error", err)
		}
		return deleted, failed
	}

	for _, entry := range entries {
		if entry.Path == primary || entry.Type != "file" {
			continue
		}
		if err := client.Delete(ctx, entry.Path, entry.SHA, message); err != nil {
			s.logger.Warn("failed to delete sibling file", "path", entry.Path, "error", err)
			failed = append(failed, domain.FileError{Path: entry.Path, Error: err.Error()})
			continue
		}
		deleted = append(deleted, entry.Path)
	}
	return deleted, failed
}

func (s *SyncService) recordUnpublishFailure(ctx context.Context, article *domain.Article, start time.Time, cause error) {
	s.appendHistory(ctx, &domain.SyncHistory{
		ArticleID:      article.ID,
		UserID:         article.UserID,
		SyncType:       domain.SyncTypeUnpublish,
		SyncDirection:  domain.DirectionLocalToRemote,
		SyncStatus:     domain.OutcomeFailed,
		RepoPath:       article.RepoPath,
		RemoteURL:      article.RemoteURL,
		ErrorMessage:   ptr(cause.Error()),
		SyncDurationMs: durationMs(start),
	})
}
