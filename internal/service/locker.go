package service

import "sync"

// articleLocker serializes sync operations per article. Concurrent pushes to
// one article would otherwise race each other's concurrency tokens.
type articleLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newArticleLocker() *articleLocker {
	return &articleLocker{locks: make(map[string]*sync.Mutex)}
}

// acquire blocks until the article's lock is held and returns the release.
func (l *articleLocker) acquire(articleID string) func() {
	l.mu.Lock()
	m, ok := l.locks[articleID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[articleID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
