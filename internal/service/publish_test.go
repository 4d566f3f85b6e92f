package service_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/mock/gomock"

	"article_sync/internal/domain"
	"article_sync/internal/remote/github"
	"article_sync/internal/service"
)

func (s *SyncServiceTestSuite) TestPublish_FirstPublish() {
	ctx := context.Background()
	article := s.localArticle()
	files := []domain.PublishFile{{Path: testRepoPath, Content: []byte("# Hi")}}

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(nil, github.ErrNotFound)
	s.client.EXPECT().Put(ctx, testRepoPath, gomock.Any(), "", "Add article: Hello World").DoAndReturn(
		func(_ context.Context, _ string, content []byte, _, _ string) (*github.PutResult, error) {
			s.Contains(string(content), "title: Hello World")
			s.Contains(string(content), "# Hi")
			return &github.PutResult{
				SHA:         "sha-1",
				HTMLURL:     "https://github.com/rain/blog/blob/main/" + testRepoPath,
				CommittedAt: time.Now().UTC(),
			}, nil
		},
	)

	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal(domain.SyncTypePublish, record.SyncType)
			s.Equal(domain.DirectionLocalToRemote, record.SyncDirection)
			s.Equal(domain.OutcomeSuccess, record.SyncStatus)
			s.Equal(1, record.FileSize)
			s.False(record.HasChanges)
			return nil
		},
	)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Publish(ctx, testUserID, testArticleID, files, "")

	s.NoError(err)
	s.True(result.Success)
	s.Equal([]string{testRepoPath}, result.SuccessFiles)
	s.Empty(result.FailedFiles)
	s.NotEmpty(result.RemoteURL)

	s.Equal(domain.SyncStatusSynced, article.SyncStatus)
	s.Equal(testRepoPath, *article.RepoPath)
	s.Equal("sha-1", *article.RemoteSHA)
	s.Equal(1, article.SyncCount)
	s.NotNil(article.FirstSyncAt)
	s.NotNil(article.LastSyncAt)
}

func (s *SyncServiceTestSuite) TestPublish_UpdateAttachesToken() {
	ctx := context.Background()
	article := s.syncedArticle()
	files := []domain.PublishFile{{Path: testRepoPath, Content: []byte("# Hi v2")}}

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(&github.File{SHA: "sha-remote"}, nil)
	s.client.EXPECT().Put(ctx, testRepoPath, gomock.Any(), "sha-remote", "Update article: Hello World").Return(
		&github.PutResult{SHA: "sha-2", HTMLURL: "url", CommittedAt: time.Now().UTC()}, nil,
	)

	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)
	s.history.EXPECT().Append(ctx, gomock.Any()).Return(nil)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Publish(ctx, testUserID, testArticleID, files, "")

	s.NoError(err)
	s.True(result.Success)
	s.Equal("sha-2", *article.RemoteSHA)
	s.Equal(4, article.SyncCount)
}

func (s *SyncServiceTestSuite) TestPublish_PartialFailure() {
	ctx := context.Background()
	article := s.syncedArticle()
	files := []domain.PublishFile{
		{Path: testRepoPath, Content: []byte("# Hi")},
		{Path: "posts/hello-world/one.png", Content: []byte{1}},
		{Path: "posts/hello-world/two.png", Content: []byte{2}},
	}

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(nil, github.ErrNotFound)
	s.client.EXPECT().Put(ctx, testRepoPath, gomock.Any(), "", gomock.Any()).Return(
		&github.PutResult{SHA: "sha-1", HTMLURL: "url", CommittedAt: time.Now().UTC()}, nil,
	)

	s.client.EXPECT().Get(ctx, "posts/hello-world/one.png").Return(nil, github.ErrNotFound)
	s.client.EXPECT().Put(ctx, "posts/hello-world/one.png", gomock.Any(), "", gomock.Any()).Return(
		nil, errors.New("connection reset"),
	)

	s.client.EXPECT().Get(ctx, "posts/hello-world/two.png").Return(nil, github.ErrNotFound)
	s.client.EXPECT().Put(ctx, "posts/hello-world/two.png", gomock.Any(), "", gomock.Any()).Return(
		&github.PutResult{SHA: "sha-3", CommittedAt: time.Now().UTC()}, nil,
	)

	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal(domain.OutcomePartialSuccess, record.SyncStatus)
			s.Equal(3, record.FileSize)
			s.Contains(*record.ErrorMessage, "one.png")
			return nil
		},
	)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Publish(ctx, testUserID, testArticleID, files, "")

	s.NoError(err)
	s.True(result.Success)
	s.Equal([]string{testRepoPath, "posts/hello-world/two.png"}, result.SuccessFiles)
	s.Len(result.FailedFiles, 1)
	s.Equal("posts/hello-world/one.png", result.FailedFiles[0].Path)
	s.Equal(domain.SyncStatusSynced, article.SyncStatus)
}

func (s *SyncServiceTestSuite) TestPublish_PrimaryFailureBlocksPromotion() {
	ctx := context.Background()
	article := s.localArticle()
	files := []domain.PublishFile{
		{Path: testRepoPath, Content: []byte("# Hi")},
		{Path: "posts/hello-world/one.png", Content: []byte{1}},
	}

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(nil, github.ErrNotFound)
	s.client.EXPECT().Put(ctx, testRepoPath, gomock.Any(), "", gomock.Any()).Return(nil, errors.New("boom"))

	s.client.EXPECT().Get(ctx, "posts/hello-world/one.png").Return(nil, github.ErrNotFound)
	s.client.EXPECT().Put(ctx, "posts/hello-world/one.png", gomock.Any(), "", gomock.Any()).Return(
		&github.PutResult{SHA: "sha-img", CommittedAt: time.Now().UTC()}, nil,
	)

	// failure row is standalone, no transaction, no article update
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal(domain.OutcomeFailed, record.SyncStatus)
			s.Contains(*record.ErrorMessage, "primary document")
			return nil
		},
	)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Publish(ctx, testUserID, testArticleID, files, "")

	s.NoError(err)
	s.False(result.Success)
	s.Equal([]string{"posts/hello-world/one.png"}, result.SuccessFiles)
	s.Len(result.FailedFiles, 1)
	s.Equal(domain.SyncStatusLocal, article.SyncStatus)
	s.Equal(0, article.SyncCount)
	s.Nil(article.FirstSyncAt)
}

func (s *SyncServiceTestSuite) TestPublish_EmptyBatch() {
	_, err := s.svc.Publish(context.Background(), testUserID, testArticleID, nil, "")
	s.ErrorIs(err, service.ErrEmptyBatch)
}

func (s *SyncServiceTestSuite) TestPublish_StaleTokenReportedPerFile() {
	ctx := context.Background()
	article := s.syncedArticle()
	files := []domain.PublishFile{{Path: testRepoPath, Content: []byte("# Hi")}}

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(&github.File{SHA: "sha-now-stale"}, nil)
	s.client.EXPECT().Put(ctx, testRepoPath, gomock.Any(), "sha-now-stale", gomock.Any()).Return(
		nil, github.ErrStaleToken,
	)

	s.history.EXPECT().Append(ctx, gomock.Any()).Return(nil)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Publish(ctx, testUserID, testArticleID, files, "")

	s.NoError(err)
	s.False(result.Success)
	s.Len(result.FailedFiles, 1)
	s.Contains(result.FailedFiles[0].Error, "stale concurrency token")
}

func (s *SyncServiceTestSuite) TestPublish_CredentialFailure() {
	ctx := context.Background()
	article := s.localArticle()

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(nil, github.ErrAuth)
	s.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, record *domain.SyncHistory) error {
			s.Equal(domain.OutcomeFailed, record.SyncStatus)
			return nil
		},
	)

	_, err := s.svc.Publish(ctx, testUserID, testArticleID,
		[]domain.PublishFile{{Path: testRepoPath, Content: []byte("x")}}, "")
	s.ErrorIs(err, github.ErrAuth)
}

func (s *SyncServiceTestSuite) TestPublish_RawFileSkipsFrontMatter() {
	ctx := context.Background()
	article := s.localArticle()
	files := []domain.PublishFile{{Path: testRepoPath, Content: []byte("# Hi"), Raw: true}}

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.remotes.EXPECT().ClientFor(ctx, testUserID).Return(s.client, nil)

	s.client.EXPECT().Get(ctx, testRepoPath).Return(nil, github.ErrNotFound)
	s.client.EXPECT().Put(ctx, testRepoPath, gomock.Any(), "", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, content []byte, _, _ string) (*github.PutResult, error) {
			s.False(strings.HasPrefix(string(content), "---"))
			return &github.PutResult{SHA: "sha-1", CommittedAt: time.Now().UTC()}, nil
		},
	)

	s.expectTransaction(ctx)
	s.articles.EXPECT().Update(ctx, article).Return(nil)
	s.history.EXPECT().Append(ctx, gomock.Any()).Return(nil)
	s.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	result, err := s.svc.Publish(ctx, testUserID, testArticleID, files, "")
	s.NoError(err)
	s.True(result.Success)
}
