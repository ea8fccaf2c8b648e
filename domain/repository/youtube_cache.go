package repository

import (
	"context"
	"time"

	"channel-insight/domain/model"
)

// ICacheStore defines the snapshot store for one (owner, channel) scope
type ICacheStore interface {
	// ReadSnapshot returns the scope's entries ordered by last_updated desc, position asc.
	// Undecodable payloads surface as model.ErrCacheCorruption.
	ReadSnapshot(ctx context.Context, ownerID, channelID string) ([]model.CacheSnapshotEntry, error)
	// ReadComments returns persisted comments for the given videos.
	ReadComments(ctx context.Context, ownerID, channelID string, videoIDs []string) ([]model.Comment, error)
	// WriteDelta upserts snapshot entries and appends new comments atomically.
	WriteDelta(ctx context.Context, ownerID, channelID string, delta *model.Delta) error
	// ClearSnapshot removes the scope's snapshot and persisted comments.
	ClearSnapshot(ctx context.Context, ownerID, channelID string) error
}

// ISyncResultSink receives finished cycles. It never feeds back into a sync.
type ISyncResultSink interface {
	Record(ctx context.Context, result *model.SyncResult) error
}

// IAnalysisHistory lists past cycles for trend charts
type IAnalysisHistory interface {
	ListResults(ctx context.Context, ownerID, channelID string, since time.Time) ([]model.SyncResult, error)
}

// IScopeLock serializes sync cycles per scope. Acquire fails with
// model.ErrSyncInProgress when the scope is already held.
type IScopeLock interface {
	Acquire(ctx context.Context, scope string) (release func(), err error)
}
