package domain

import "time"

// SyncType identifies the kind of operation a history row records.
type SyncType string

const (
	SyncTypePublish          SyncType = "publish_to_github"
	SyncTypePull             SyncType = "pull_from_github"
	SyncTypeUnpublish        SyncType = "unpublish_from_github"
	SyncTypeConflictResolved SyncType = "conflict_resolved"
)

// SyncDirection is the direction content moved, or bidirectional for resolutions.
type SyncDirection string

const (
	DirectionLocalToRemote SyncDirection = "local_to_remote"
	DirectionRemoteToLocal SyncDirection = "remote_to_local"
	DirectionBidirectional SyncDirection = "bidirectional"
)

// SyncOutcome is the terminal status of a recorded sync attempt.
type SyncOutcome string

const (
	OutcomeSuccess        SyncOutcome = "success"
	OutcomeFailed         SyncOutcome = "failed"
	OutcomeConflict       SyncOutcome = "conflict"
	OutcomePartialSuccess SyncOutcome = "partial_success"
)

// Resolution is the caller-chosen policy for settling a conflict.
type Resolution string

const (
	ResolutionUseLocal  Resolution = "use_local"
	ResolutionUseRemote Resolution = "use_remote"
	ResolutionUseCustom Resolution = "use_custom"
)

// Valid reports whether r is one of the accepted resolution policies.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionUseLocal, ResolutionUseRemote, ResolutionUseCustom:
		return true
	}
	return false
}

// SyncHistory is one row of the append-only sync ledger. Rows are created at
// the end of every coordinator invocation and never updated or deleted.
type SyncHistory struct {
	ID        string `db:"id" json:"id"`
	ArticleID string `db:"article_id" json:"articleId"`
	UserID    string `db:"user_id" json:"userId"`

	SyncType      SyncType      `db:"sync_type" json:"syncType"`
	SyncDirection SyncDirection `db:"sync_direction" json:"syncDirection"`
	SyncStatus    SyncOutcome   `db:"sync_status" json:"syncStatus"`

	ContentBefore *string `db:"content_before" json:"contentBefore,omitempty"`
	ContentAfter  *string `db:"content_after" json:"contentAfter,omitempty"`
	HasChanges    bool    `db:"has_changes" json:"hasChanges"`

	RemoteSHA *string `db:"remote_sha" json:"remoteSha,omitempty"`
	RemoteURL *string `db:"remote_url" json:"remoteUrl,omitempty"`
	RepoPath  *string `db:"repo_path" json:"repoPath,omitempty"`

	ConflictType       *string `db:"conflict_type" json:"conflictType,omitempty"`
	ConflictResolution *string `db:"conflict_resolution" json:"conflictResolution,omitempty"`

	ErrorMessage *string `db:"error_message" json:"errorMessage,omitempty"`
	// SyncDurationMs is wall-clock time of the whole operation in milliseconds.
	SyncDurationMs int64 `db:"sync_duration_ms" json:"syncDurationMs"`
	// FileSize is bytes for single-file operations, file count for batches.
	FileSize int `db:"file_size" json:"fileSize"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// PublishFile is one entry of a publish batch. The first entry of a batch is
// the primary document and gates the article's promotion to synced.
type PublishFile struct {
	Path string `json:"path"`
	// Content is the raw file body. Binary assets are passed through as-is,
	// markdown documents get a front-matter envelope on push.
	Content []byte `json:"content"`
	// Raw skips the front-matter envelope even for .md paths.
	Raw bool `json:"raw"`
}

// FileError records a single failed path inside a batch.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// PublishResult reports a (possibly partial) publish batch. Callers can
// re-upload exactly the failed paths without re-sending the whole batch.
type PublishResult struct {
	Success      bool        `json:"success"`
	SuccessFiles []string    `json:"successFiles"`
	FailedFiles  []FileError `json:"failedFiles"`
	RemoteURL    string      `json:"remoteUrl,omitempty"`
	SyncCount    int         `json:"syncCount"`
}

// PullResult reports a pull. On conflict both bodies are returned and the
// article is left untouched for the caller to resolve.
type PullResult struct {
	Success          bool       `json:"success"`
	Conflict         bool       `json:"conflict"`
	HasChanges       bool       `json:"hasChanges"`
	LocalContent     string     `json:"localContent,omitempty"`
	RemoteContent    string     `json:"remoteContent,omitempty"`
	LocalModifiedAt  *time.Time `json:"localModifiedAt,omitempty"`
	RemoteModifiedAt *time.Time `json:"remoteModifiedAt,omitempty"`
	// Diff is a human-readable preview of the divergence, only set on conflict.
	Diff string `json:"diff,omitempty"`
}

// ResolveResult reports a conflict resolution.
type ResolveResult struct {
	Success    bool       `json:"success"`
	Resolution Resolution `json:"resolution"`
	HasChanges bool       `json:"hasChanges"`
}

// UnpublishResult reports remote deletions. Sibling failures are listed but
// do not fail the operation once the primary file is gone.
type UnpublishResult struct {
	Success      bool        `json:"success"`
	DeletedFiles []string    `json:"deletedFiles"`
	FailedFiles  []FileError `json:"failedFiles"`
}

// SyncEvent is the message emitted to downstream consumers after every
// coordinator invocation.
type SyncEvent struct {
	ArticleID string      `json:"articleId"`
	UserID    string      `json:"userId"`
	Type      SyncType    `json:"type"`
	Status    SyncOutcome `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

// StatusResult is the sync snapshot shown to the UI.
type StatusResult struct {
	ArticleID     string        `json:"articleId"`
	Title         string        `json:"title"`
	SyncStatus    SyncStatus    `json:"syncStatus"`
	FirstSyncAt   *time.Time    `json:"firstSyncAt,omitempty"`
	LastSyncAt    *time.Time    `json:"lastSyncAt,omitempty"`
	SyncCount     int           `json:"syncCount"`
	RemoteURL     *string       `json:"remoteUrl,omitempty"`
	RepoPath      *string       `json:"repoPath,omitempty"`
	RecentHistory []SyncHistory `json:"recentHistory"`
}
