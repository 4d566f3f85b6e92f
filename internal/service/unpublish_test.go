package service_test

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"article_sync/internal/domain"
	"article_sync/internal/remote/github"
	"article_sync/internal/service"
)

const testArticleFolder = "posts/hello-world"

func (s *SyncServiceTestSuite) TestUnpublish_DeletesFolderContents() {
	ctx := context.Background()
	article := s.syncedArticle()

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(&github.File{Path: testRepoPath, SHA: "sha-current"}, nil)
	s.client.EXPECT().Delete(ctx, testRepoPath, "sha-current", "Unpublish article: Hello World").Return(nil)

	s.client.EXPECT().ListFolder(ctx, testArticleFolder).Return([]github.Entry{
		{Path: testRepoPath, SHA: "sha-current", Type: "file"},
		{Path: testArticleFolder + "/cover.png", SHA: "sha-img", Type: "file"},
		{Path: testArticleFolder + "/assets", SHA: "sha-dir", Type: "dir"},
	}, nil)
	s.client.EXPECT().Delete(ctx, testArticleFolder+"/cover.png", "sha-img", "Unpublish article: Hello World").Return(nil)

	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal(domain.SyncTypeUnpublish, record.SyncType)
			s.Equal(domain.OutcomeSuccess, record.SyncStatus)
			s.Equal(2, record.FileSize)
			return nil
		},
	)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Unpublish(ctx, testUserID, testArticleID)

	s.NoError(err)
	s.True(result.Success)
	s.Equal([]string{testRepoPath, testArticleFolder + "/cover.png"}, result.DeletedFiles)
	s.Empty(result.FailedFiles)

	s.Equal(domain.SyncStatusLocal, article.SyncStatus)
	s.Nil(article.RemoteSHA)
	s.Nil(article.RemoteURL)
	s.Nil(article.RemoteModifiedAt)
	s.NotNil(article.RepoPath) // retained for republish
}

func (s *SyncServiceTestSuite) TestUnpublish_SiblingFailureIsPartial() {
	ctx := context.Background()
	article := s.syncedArticle()

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(&github.File{Path: testRepoPath, SHA: "sha-current"}, nil)
	s.client.EXPECT().Delete(ctx, testRepoPath, "sha-current", gomock.Any()).Return(nil)

	s.client.EXPECT().ListFolder(ctx, testArticleFolder).Return([]github.Entry{
		{Path: testArticleFolder + "/cover.png", SHA: "sha-img", Type: "file"},
	}, nil)
	s.client.EXPECT().Delete(ctx, testArticleFolder+"/cover.png", "sha-img", gomock.Any()).
		Return(errors.New("network down"))

	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal(domain.OutcomePartialSuccess, record.SyncStatus)
			s.Contains(*record.ErrorMessage, "cover.png")
			return nil
		},
	)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Unpublish(ctx, testUserID, testArticleID)

	s.NoError(err)
	s.True(result.Success)
	s.Equal([]string{testRepoPath}, result.DeletedFiles)
	s.Len(result.FailedFiles, 1)
	s.Equal(domain.SyncStatusLocal, article.SyncStatus)
}

func (s *SyncServiceTestSuite) TestUnpublish_PrimaryFailureAborts() {
	ctx := context.Background()
	article := s.syncedArticle()

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(&github.File{Path: testRepoPath, SHA: "sha-current"}, nil)
	s.client.EXPECT().Delete(ctx, testRepoPath, "sha-current", gomock.Any()).
		Return(github.ErrStaleToken)

	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal(domain.OutcomeFailed, record.SyncStatus)
			return nil
		},
	)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Unpublish(ctx, testUserID, testArticleID)

	s.NoError(err)
	s.False(result.Success)
	s.Empty(result.DeletedFiles)
	s.Len(result.FailedFiles, 1)
	s.Equal(testRepoPath, result.FailedFiles[0].Path)

	// remote state unknown, so local linkage stays intact
	s.Equal(domain.SyncStatusSynced, article.SyncStatus)
	s.NotNil(article.RemoteSHA)
}

func (s *SyncServiceTestSuite) TestUnpublish_AlreadyAbsentPrimary() {
	ctx := context.Background()
	article := s.syncedArticle()

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(nil, github.ErrNotFound)
	s.client.EXPECT().ListFolder(ctx, testArticleFolder).Return(nil, github.ErrNotFound)

	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal(domain.OutcomeSuccess, record.SyncStatus)
			return nil
		},
	)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Unpublish(ctx, testUserID, testArticleID)

	s.NoError(err)
	s.True(result.Success)
	s.Empty(result.DeletedFiles)
	s.Equal(domain.SyncStatusLocal, article.SyncStatus)
}

func (s *SyncServiceTestSuite) TestUnpublish_NotPublished() {
	ctx := context.Background()
	article := s.localArticle()

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)

	_, err := s.svc.Unpublish(ctx, testUserID, testArticleID)

	s.ErrorIs(err, service.ErrNotPublished)
}
