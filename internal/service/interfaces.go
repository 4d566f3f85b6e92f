package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"article_sync/internal/domain"
	"article_sync/internal/remote/github"
)

type ArticleStore interface {
	Get(ctx context.Context, articleID, userID string) (*domain.Article, error)
	Update(ctx context.Context, article *domain.Article) error
}

type SyncHistoryStore interface {
	Append(ctx context.Context, record *domain.SyncHistory) error
	ListByArticle(ctx context.Context, articleID string, limit int) ([]domain.SyncHistory, error)
}

// RemoteClient is the contents-API surface the coordinators consume.
type RemoteClient interface {
	Get(ctx context.Context, path string) (*github.File, error)
	Put(ctx context.Context, path string, content []byte, sha, message string) (*github.PutResult, error)
	Delete(ctx context.Context, path, sha, message string) error
	ListFolder(ctx context.Context, path string) ([]github.Entry, error)
	LastModified(ctx context.Context, path string) (time.Time, error)
}

// RemoteClientFactory hands out a client bound to one user's credential.
type RemoteClientFactory interface {
	ClientFor(ctx context.Context, userID string) (RemoteClient, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier publishes sync events for downstream consumers. Delivery is
// best-effort: failures never affect the operation result.
type Notifier interface {
	Notify(ctx context.Context, event domain.SyncEvent) error
}
