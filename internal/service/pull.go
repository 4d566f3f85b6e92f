package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"article_sync/internal/domain"
	"article_sync/internal/remote/github"
)

// ErrNotLinked is returned when an article has never been published and has
// no remote path to pull from.
var ErrNotLinked = errors.New("article is not linked to a remote file")

// Pull fetches the remote document and either overwrites the local copy or
// reports a conflict, leaving the local content untouched for the caller to
// resolve. forceOverwrite bypasses conflict detection.
func (s *SyncService) Pull(ctx context.Context, userID, articleID string, forceOverwrite bool) (*domain.PullResult, error) {
	release := s.locks.acquire(articleID)
	defer release()

	return s.pull(ctx, userID, articleID, forceOverwrite)
}

// pull is the lock-free core, shared with conflict resolution.
func (s *SyncService) pull(ctx context.Context, userID, articleID string, forceOverwrite bool) (*domain.PullResult, error) {
	start := time.Now()

	article, err := s.articles.Get(ctx, articleID, userID)
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}

	if article.RepoPath == nil {
		s.recordPullFailure(ctx, article, start, ErrNotLinked)
		return nil, ErrNotLinked
	}
	repoPath := *article.RepoPath

	client, err := s.remotes.ClientFor(ctx, userID)
	if err != nil {
		s.recordPullFailure(ctx, article, start, err)
		return nil, err
	}

	file, err := client.Get(ctx, repoPath)
	if err != nil {
		s.recordPullFailure(ctx, article, start, err)
		s.notify(ctx, articleID, userID, domain.SyncTypePull, domain.OutcomeFailed)
		if errors.Is(err, github.ErrNotFound) {
			return nil, fmt.Errorf("remote file %s: %w", repoPath, err)
		}
		return nil, fmt.Errorf("fetch remote file: %w", err)
	}

	// Without the remote modification instant the detector cannot tell a
	// diverged remote from an unchanged one, and an overwrite here could
	// destroy local edits. Refuse to guess.
	remoteModified, err := client.LastModified(ctx, repoPath)
	if err != nil {
		s.recordPullFailure(ctx, article, start, err)
		s.notify(ctx, articleID, userID, domain.SyncTypePull, domain.OutcomeFailed)
		return nil, fmt.Errorf("resolve remote modification time: %w", err)
	}

	remoteBody := domain.StripFrontMatter(string(file.Content))
	contentChanged := article.Content != remoteBody

	class := ClassifyChanges(ChangeInputs{
		LocalModified:  article.LocalModified(),
		RemoteModified: remoteModified,
		Baseline:       article.SyncBaseline(),
		LocalContent:   article.Content,
		RemoteContent:  remoteBody,
	})

	if class == ChangeConflict && !forceOverwrite {
		return s.recordConflict(ctx, article, start, remoteBody, remoteModified, file.SHA)
	}
	if class == ChangeConflict {
		s.logger.Warn("conflict bypassed by forced overwrite", "article_id", articleID)
	}

	contentBefore := article.Content
	now := time.Now().UTC()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		article.Content = remoteBody
		article.RemoteSHA = ptr(file.SHA)
		article.RemoteModifiedAt = ptr(remoteModified)
		article.LocalModifiedAt = ptr(now)
		article.MarkSynced(now)

		if err := s.articles.Update(txCtx, article); err != nil {
			return err
		}

		record := &domain.SyncHistory{
			ArticleID:      article.ID,
			UserID:         article.UserID,
			SyncType:       domain.SyncTypePull,
			SyncDirection:  domain.DirectionRemoteToLocal,
			SyncStatus:     domain.OutcomeSuccess,
			ContentBefore:  ptr(contentBefore),
			ContentAfter:   ptr(remoteBody),
			HasChanges:     contentChanged,
			RemoteSHA:      ptr(file.SHA),
			RemoteURL:      article.RemoteURL,
			RepoPath:       article.RepoPath,
			SyncDurationMs: durationMs(start),
			FileSize:       len(remoteBody),
		}
		if class == ChangeConflict {
			record.ConflictType = ptr("content_conflict")
		}
		return s.history.Append(txCtx, record)
	})
	if err != nil {
		return nil, fmt.Errorf("finalize pull: %w", err)
	}

	s.logger.Info("pull completed",
		"article_id", articleID,
		"has_changes", contentChanged,
		"sync_count", article.SyncCount,
	)
	s.notify(ctx, articleID, userID, domain.SyncTypePull, domain.OutcomeSuccess)

	return &domain.PullResult{
		Success:    true,
		HasChanges: contentChanged,
	}, nil
}

// recordConflict logs the divergence with both bodies and flips the article
// to conflict state. Content and sync bookkeeping stay untouched so the
// caller can still choose either side.
func (s *SyncService) recordConflict(ctx context.Context, article *domain.Article, start time.Time, remoteBody string, remoteModified time.Time, remoteSHA string) (*domain.PullResult, error) {
	s.logger.Warn("conflict detected",
		"article_id", article.ID,
		"repo_path", *article.RepoPath,
	)

	if article.SyncStatus != domain.SyncStatusConflict {
		article.SyncStatus = domain.SyncStatusConflict
		if err := s.articles.Update(ctx, article); err != nil {
			return nil, fmt.Errorf("mark conflict: %w", err)
		}
	}

	s.appendHistory(ctx, &domain.SyncHistory{
		ArticleID:      article.ID,
		UserID:         article.UserID,
		SyncType:       domain.SyncTypePull,
		SyncDirection:  domain.DirectionRemoteToLocal,
		SyncStatus:     domain.OutcomeConflict,
		ContentBefore:  ptr(article.Content),
		ContentAfter:   ptr(remoteBody),
		HasChanges:     article.Content != remoteBody,
		ConflictType:   ptr("content_conflict"),
		RemoteSHA:      ptr(remoteSHA),
		RemoteURL:      article.RemoteURL,
		RepoPath:       article.RepoPath,
		SyncDurationMs: durationMs(start),
		FileSize:       len(remoteBody),
	})
	s.notify(ctx, article.ID, article.UserID, domain.SyncTypePull, domain.OutcomeConflict)

	localModified := article.LocalModified()
	return &domain.PullResult{
		Success:          false,
		Conflict:         true,
		HasChanges:       article.Content != remoteBody,
		LocalContent:     article.Content,
		RemoteContent:    remoteBody,
		LocalModifiedAt:  &localModified,
		RemoteModifiedAt: &remoteModified,
		Diff:             diffPreview(article.Content, remoteBody),
	}, nil
}

func (s *SyncService) recordPullFailure(ctx context.Context, article *domain.Article, start time.Time, cause error) {
	s.appendHistory(ctx, &domain.SyncHistory{
		ArticleID:      article.ID,
		UserID:         article.UserID,
		SyncType:       domain.SyncTypePull,
		SyncDirection:  domain.DirectionRemoteToLocal,
		SyncStatus:     domain.OutcomeFailed,
		RepoPath:       article.RepoPath,
		RemoteURL:      article.RemoteURL,
		ErrorMessage:   ptr(cause.Error()),
		SyncDurationMs: durationMs(start),
	})
}

func diffPreview(local, remote string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(local, remote, false)
	dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}
