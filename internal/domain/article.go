package domain

import "time"

// SyncStatus is the article's synchronization state against its remote mirror.
type SyncStatus string

const (
	// SyncStatusLocal means the article was never synced, or was unpublished.
	SyncStatusLocal SyncStatus = "local"
	// SyncStatusSynced means the last sync operation succeeded with no pending divergence.
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusConflict means a pull detected unresolved divergence on both sides.
	SyncStatusConflict SyncStatus = "conflict"
)

type Article struct {
	ID      string  `db:"id"`
	UserID  string  `db:"user_id"`
	Title   string  `db:"title"`
	Content string  `db:"content"`
	Summary *string `db:"summary"`

	// RepoPath is retained across unpublish so a republish reuses the same location.
	RepoPath  *string `db:"repo_path"`
	RemoteURL *string `db:"remote_url"`
	// RemoteSHA is the remote file's content hash, required to update or delete it.
	// Nil means the file does not exist remotely as far as this record knows.
	RemoteSHA *string `db:"remote_sha"`

	SyncStatus       SyncStatus `db:"sync_status"`
	FirstSyncAt      *time.Time `db:"first_sync_at"`
	LastSyncAt       *time.Time `db:"last_sync_at"`
	SyncCount        int        `db:"sync_count"`
	LocalModifiedAt  *time.Time `db:"local_modified_at"`
	RemoteModifiedAt *time.Time `db:"remote_modified_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// LocalModified returns the instant the local replica last changed. The
// dedicated column wins; updated_at is the fallback for records written
// before the engine started stamping it.
func (a *Article) LocalModified() time.Time {
	if a.LocalModifiedAt != nil {
		return *a.LocalModifiedAt
	}
	return a.UpdatedAt
}

// SyncBaseline returns the reference instant for change detection: the last
// successful sync, or creation time if the article was never synced.
func (a *Article) SyncBaseline() time.Time {
	if a.LastSyncAt != nil {
		return *a.LastSyncAt
	}
	return a.CreatedAt
}

// MarkSynced stamps the bookkeeping fields shared by every successful sync,
// in either direction. firstSyncAt is set once and never overwritten.
func (a *Article) MarkSynced(now time.Time) {
	if a.FirstSyncAt == nil {
		t := now
		a.FirstSyncAt = &t
	}
	t := now
	a.LastSyncAt = &t
	a.SyncCount++
	a.SyncStatus = SyncStatusSynced
}
