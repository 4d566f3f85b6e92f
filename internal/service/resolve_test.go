package service_test

import (
	"context"
	"time"

	"go.uber.org/mock/gomock"

	"article_sync/internal/domain"
	"article_sync/internal/service"
	"article_sync/testdata/utils"
)

func (s *SyncServiceTestSuite) conflictedArticle() *domain.Article {
	article := s.syncedArticle()
	article.SyncStatus = domain.SyncStatusConflict
	article.LocalModifiedAt = utils.Ptr(article.LastSyncAt.Add(5 * time.Minute))
	return article
}

func (s *SyncServiceTestSuite) TestResolve_UseLocal() {
	ctx := context.Background()
	article := s.conflictedArticle()
	previousCount := article.SyncCount

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal(domain.SyncTypeConflictResolved, record.SyncType)
			s.Equal(domain.DirectionBidirectional, record.SyncDirection)
			s.Equal("use_local", *record.ConflictResolution)
			s.False(record.HasChanges)
			return nil
		},
	)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.ResolveConflict(ctx, testUserID, testArticleID, domain.ResolutionUseLocal, "")

	s.NoError(err)
	s.True(result.Success)
	s.False(result.HasChanges)
	s.Equal(domain.SyncStatusSynced, article.SyncStatus)
	s.Equal("# Hi", article.Content)
	s.Equal(previousCount, article.SyncCount)
	s.NotNil(article.LastSyncAt)
}

func (s *SyncServiceTestSuite) TestResolve_UseCustom() {
	ctx := context.Background()
	article := s.conflictedArticle()

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal("use_custom", *record.ConflictResolution)
			s.True(record.HasChanges)
			s.Equal("# Hi", *record.ContentBefore)
			s.Equal("# merged", *record.ContentAfter)
			return nil
		},
	)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.ResolveConflict(ctx, testUserID, testArticleID, domain.ResolutionUseCustom, "# merged")

	s.NoError(err)
	s.True(result.HasChanges)
	s.Equal("# merged", article.Content)
	s.Equal(domain.SyncStatusSynced, article.SyncStatus)
}

func (s *SyncServiceTestSuite) TestResolve_UseRemote() {
	ctx := context.Background()
	article := s.conflictedArticle()
	remoteEdit := article.LastSyncAt.Add(15 * time.Minute)

	// the resolver loads the article, delegates to a forced pull, then
	// re-reads the stored body for its own ledger row
	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil).Times(3)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)
	s.client.EXPECT().Get(ctx, testRepoPath).Return(remoteFile("# Hi, remote edit"), nil)
	s.client.EXPECT().LastModified(ctx, testRepoPath).Return(remoteEdit, nil)

	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)

	// pull success row plus the conflict_resolved row
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			if record.SyncType == domain.SyncTypeConflictResolved {
				s.Equal("# Hi", *record.ContentBefore)
				s.Equal("# Hi, remote edit", *record.ContentAfter)
				s.True(record.HasChanges)
			}
			return nil
		},
	).Times(2)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil).Times(2)

	result, err := s.svc.ResolveConflict(ctx, testUserID, testArticleID, domain.ResolutionUseRemote, "")

	s.NoError(err)
	s.True(result.Success)
	s.True(result.HasChanges)
	s.Equal("# Hi, remote edit", article.Content)
	s.Equal(domain.SyncStatusSynced, article.SyncStatus)
}

func (s *SyncServiceTestSuite) TestResolve_InvalidResolution() {
	_, err := s.svc.ResolveConflict(context.Background(), testUserID, testArticleID, "use_nothing", "")
	s.ErrorIs(err, service.ErrInvalidResolution)
}

func (s *SyncServiceTestSuite) TestResolve_CustomWithoutContent() {
	_, err := s.svc.ResolveConflict(context.Background(), testUserID, testArticleID, domain.ResolutionUseCustom, "")
	s.ErrorIs(err, service.ErrMissingCustomContent)
}
