package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"article_sync/internal/domain"
	"article_sync/internal/remote/github"
)

// ErrEmptyBatch is returned when a publish call carries no files.
var ErrEmptyBatch = errors.New("publish batch is empty")

// Publish pushes a batch of files to the remote repository with
// create-or-update semantics. The first file is the primary document: only
// its success promotes the article to synced. Individual file failures are
// collected, not raised, so the caller can re-upload exactly the failed
// paths. Exactly one history row summarizes the whole batch.
func (s *SyncService) Publish(ctx context.Context, userID, articleID string, files []domain.PublishFile, commitMessage string) (*domain.PublishResult, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}

	release := s.locks.acquire(articleID)
	defer release()

	start := time.Now()

	article, err := s.articles.Get(ctx, articleID, userID)
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}

	client, err := s.remotes.ClientFor(ctx, userID)
	if err != nil {
		s.recordPublishFailure(ctx, article, start, len(files), err)
		return nil, err
	}

	if commitMessage == "" {
		if article.RemoteSHA != nil {
			commitMessage = "Update article: " + article.Title
		} else {
			commitMessage = "Add article: " + article.Title
		}
	}

	primary := files[0]
	result := &domain.PublishResult{}
	var primaryPut *github.PutResult

	for i, file := range files {
		content := file.Content
		if i == 0 && len(content) == 0 {
			content = []byte(article.Content)
		}
		if strings.HasSuffix(file.Path, ".md") && !file.Raw {
			summary := ""
			if article.Summary != nil {
				summary = *article.Summary
			}
			content = []byte(domain.ComposeFrontMatter(article.Title, summary, string(content), start.UTC()))
		}

		put, err := s.pushFile(ctx, client, file.Path, content, commitMessage)
		if err != nil {
			s.logger.Warn("file push failed",
				"article_id", articleID,
				"path", file.Path,
				"error", err,
			)
			result.FailedFiles = append(result.FailedFiles, domain.FileError{Path: file.Path, Error: err.Error()})
			continue
		}

		result.SuccessFiles = append(result.SuccessFiles, file.Path)
		if i == 0 {
			primaryPut = put
		}
	}

	if primaryPut == nil {
		s.recordPublishFailure(ctx, article, start, len(files), fmt.Errorf("primary document %s failed", primary.Path))
		s.notify(ctx, articleID, userID, domain.SyncTypePublish, domain.OutcomeFailed)
		return result, nil
	}

	outcome := domain.OutcomeSuccess
	if len(result.FailedFiles) > 0 {
		outcome = domain.OutcomePartialSuccess
	}

	now := time.Now().UTC()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		article.RepoPath = ptr(primary.Path)
		article.RemoteSHA = ptr(primaryPut.SHA)
		article.RemoteURL = ptr(primaryPut.HTMLURL)
		article.RemoteModifiedAt = ptr(primaryPut.CommittedAt)
		article.MarkSynced(now)

		if err := s.articles.Update(txCtx, article); err != nil {
			return err
		}
		return s.history.Append(txCtx, &domain.SyncHistory{
			ArticleID:      article.ID,
			UserID:         article.UserID,
			SyncType:       domain.SyncTypePublish,
			SyncDirection:  domain.DirectionLocalToRemote,
			SyncStatus:     outcome,
			ContentBefore:  ptr(article.Content),
			ContentAfter:   ptr(article.Content),
			RemoteSHA:      article.RemoteSHA,
			RemoteURL:      article.RemoteURL,
			RepoPath:       article.RepoPath,
			ErrorMessage:   joinFileErrors(result.FailedFiles),
			SyncDurationMs: durationMs(start),
			FileSize:       len(files),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("finalize publish: %w", err)
	}

	result.Success = true
	result.RemoteURL = primaryPut.HTMLURL
	result.SyncCount = article.SyncCount

	s.logger.Info("publish completed",
		"article_id", articleID,
		"files", len(files),
		"failed", len(result.FailedFiles),
		"sync_count", article.SyncCount,
	)
	s.notify(ctx, articleID, userID, domain.SyncTypePublish, outcome)

	return result, nil
}

// pushFile looks up the file's current concurrency token and commits on top
// of it. The fresh lookup per push keeps the token validity window short.
func (s *SyncService) pushFile(ctx context.Context, client RemoteClient, path string, content []byte, message string) (*github.PutResult, error) {
	sha := ""
	existing, err := client.Get(ctx, path)
	switch {
	case err == nil:
		sha = existing.SHA
	case errors.Is(err, github.ErrNotFound):
		// create
	default:
		return nil, fmt.Errorf("check remote state: %w", err)
	}

	put, err := client.Put(ctx, path, content, sha, message)
	if err != nil {
		return nil, err
	}
	return put, nil
}

func (s *SyncService) recordPublishFailure(ctx context.Context, article *domain.Article, start time.Time, fileCount int, cause error) {
	s.appendHistory(ctx, &domain.SyncHistory{
		ArticleID:      article.ID,
		UserID:         article.UserID,
		SyncType:       domain.SyncTypePublish,
		SyncDirection:  domain.DirectionLocalToRemote,
		SyncStatus:     domain.OutcomeFailed,
		RepoPath:       article.RepoPath,
		RemoteURL:      article.RemoteURL,
		ErrorMessage:   ptr(cause.Error()),
		SyncDurationMs: durationMs(start),
		FileSize:       fileCount,
	})
}

func joinFileErrors(failures []domain.FileError) *string {
	if len(failures) == 0 {
		return nil
	}
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = f.Path + ": " + f.Error
	}
	return ptr(strings.Join(parts, "; "))
}
