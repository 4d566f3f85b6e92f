package service_test

import (
	"context"
	"time"

	"article_sync/internal/domain"
	"article_sync/internal/storage/postgres"
)

func (s *SyncServiceTestSuite) TestStatus_ReturnsSnapshotWithRecentHistory() {
	ctx := context.Background()
	article := s.syncedArticle()
	rows := []domain.SyncHistory{
		{ID: "h-2", SyncType: domain.SyncTypePull, CreatedAt: time.Now()},
		{ID: "h-1", SyncType: domain.SyncTypePublish, CreatedAt: time.Now().Add(-time.Hour)},
	}

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(article, nil)
	s.history.EXPECT().ListByArticle(ctx, testArticleID, 5).Return(rows, nil)

	result, err := s.svc.Status(ctx, testUserID, testArticleID)

	s.NoError(err)
	s.Equal(testArticleID, result.ArticleID)
	s.Equal("Hello World", result.Title)
	s.Equal(domain.SyncStatusSynced, result.SyncStatus)
	s.Equal(3, result.SyncCount)
	s.Equal(article.LastSyncAt, result.LastSyncAt)
	s.Equal(rows, result.RecentHistory)
}

func (s *SyncServiceTestSuite) TestHistory_DefaultLimit() {
	ctx := context.Background()

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(s.syncedArticle(), nil)
	s.history.EXPECT().ListByArticle(ctx, testArticleID, 20).Return([]domain.SyncHistory{}, nil)

	rows, err := s.svc.History(ctx, testUserID, testArticleID, 0)

	s.NoError(err)
	s.Empty(rows)
}

func (s *SyncServiceTestSuite) TestHistory_LimitClamped() {
	ctx := context.Background()

	s.articles.EXPECT().Get(ctx, testArticleID, testUserID).Return(s.syncedArticle(), nil)
	s.history.EXPECT().ListByArticle(ctx, testArticleID, 100).Return([]domain.SyncHistory{}, nil)

	_, err := s.svc.History(ctx, testUserID, testArticleID, 500)

	s.NoError(err)
}

func (s *SyncServiceTestSuite) TestHistory_OwnershipEnforced() {
	ctx := context.Background()

	s.articles.EXPECT().Get(ctx, testArticleID, "someone-else").Return(nil, postgres.ErrArticleNotFound)

	_, err := s.svc.History(ctx, "someone-else", testArticleID, 10)

	s.ErrorIs(err, postgres.ErrArticleNotFound)
}
