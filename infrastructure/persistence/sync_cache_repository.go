package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"channel-insight/domain/model"
	"channel-insight/infrastructure/logger"

	"github.com/lib/pq"
)

const (
	DialectPostgres = "psql"
	DialectMSSQL    = "mssql"
)

// dialect holds the vendor specific statements of the snapshot store
type dialect struct {
	schema        []string
	readSnapshot  string
	upsertEntry   string
	insertComment string
	clearEntries  string
	clearComments string
	readComments  func(ownerID, channelID string, videoIDs []string) (string, []interface{})
}

var postgresDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS sync_snapshot (
        owner_id TEXT NOT NULL,
        channel_id TEXT NOT NULL,
        item_id TEXT NOT NULL,
        last_updated TIMESTAMPTZ NOT NULL,
        position INTEGER NOT NULL,
        payload JSONB NOT NULL,
        PRIMARY KEY (owner_id, channel_id, item_id)
    )`,
		`CREATE TABLE IF NOT EXISTS sync_comment (
        owner_id TEXT NOT NULL,
        channel_id TEXT NOT NULL,
        comment_id TEXT NOT NULL,
        video_id TEXT NOT NULL,
        payload JSONB NOT NULL,
        PRIMARY KEY (owner_id, channel_id, comment_id)
    )`,
		`CREATE INDEX IF NOT EXISTS idx_sync_snapshot_order ON sync_snapshot(owner_id, channel_id, last_updated DESC, position ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_comment_video ON sync_comment(owner_id, channel_id, video_id)`,
	},
	readSnapshot: `SELECT item_id, last_updated, position, payload FROM sync_snapshot
WHERE owner_id=$1 AND channel_id=$2 ORDER BY last_updated DESC, position ASC`,
	upsertEntry: `INSERT INTO sync_snapshot(owner_id, channel_id, item_id, last_updated, position, payload)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (owner_id, channel_id, item_id) DO UPDATE SET last_updated=EXCLUDED.last_updated, position=EXCLUDED.position, payload=EXCLUDED.payload`,
	insertComment: `INSERT INTO sync_comment(owner_id, channel_id, comment_id, video_id, payload)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (owner_id, channel_id, comment_id) DO NOTHING`,
	clearEntries:  `DELETE FROM sync_snapshot WHERE owner_id=$1 AND channel_id=$2`,
	clearComments: `DELETE FROM sync_comment WHERE owner_id=$1 AND channel_id=$2`,
	readComments: func(ownerID, channelID string, videoIDs []string) (string, []interface{}) {
		return `SELECT payload FROM sync_comment WHERE owner_id=$1 AND channel_id=$2 AND video_id = ANY($3)`,
			[]interface{}{ownerID, channelID, pq.Array(videoIDs)}
	},
}

var mssqlDialect = dialect{
	schema: []string{
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.sync_snapshot') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.sync_snapshot (
        owner_id NVARCHAR(128) NOT NULL,
        channel_id NVARCHAR(64) NOT NULL,
        item_id NVARCHAR(64) NOT NULL,
        last_updated DATETIMEOFFSET NOT NULL,
        position INT NOT NULL,
        payload NVARCHAR(MAX) NOT NULL,
        CONSTRAINT pk_sync_snapshot PRIMARY KEY (owner_id, channel_id, item_id)
    );
END`,
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.sync_comment') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.sync_comment (
        owner_id NVARCHAR(128) NOT NULL,
        channel_id NVARCHAR(64) NOT NULL,
        comment_id NVARCHAR(128) NOT NULL,
        video_id NVARCHAR(64) NOT NULL,
        payload NVARCHAR(MAX) NOT NULL,
        CONSTRAINT pk_sync_comment PRIMARY KEY (owner_id, channel_id, comment_id)
    );
END`,
	},
	readSnapshot: `SELECT item_id, last_updated, position, payload FROM dbo.sync_snapshot
WHERE owner_id=@p1 AND channel_id=@p2 ORDER BY last_updated DESC, position ASC`,
	upsertEntry: `MERGE dbo.sync_snapshot AS target
USING (SELECT @p1 AS owner_id, @p2 AS channel_id, @p3 AS item_id) AS src
ON (target.owner_id = src.owner_id AND target.channel_id = src.channel_id AND target.item_id = src.item_id)
WHEN MATCHED THEN UPDATE SET last_updated=@p4, position=@p5, payload=@p6
WHEN NOT MATCHED THEN INSERT (owner_id, channel_id, item_id, last_updated, position, payload)
VALUES (@p1, @p2, @p3, @p4, @p5, @p6);`,
	insertComment: `MERGE dbo.sync_comment AS target
USING (SELECT @p1 AS owner_id, @p2 AS channel_id, @p3 AS comment_id) AS src
ON (target.owner_id = src.owner_id AND target.channel_id = src.channel_id AND target.comment_id = src.comment_id)
WHEN NOT MATCHED THEN INSERT (owner_id, channel_id, comment_id, video_id, payload)
VALUES (@p1, @p2, @p3, @p4, @p5);`,
	clearEntries:  `DELETE FROM dbo.sync_snapshot WHERE owner_id=@p1 AND channel_id=@p2`,
	clearComments: `DELETE FROM dbo.sync_comment WHERE owner_id=@p1 AND channel_id=@p2`,
	readComments: func(ownerID, channelID string, videoIDs []string) (string, []interface{}) {
		args := []interface{}{ownerID, channelID}
		marks := make([]string, len(videoIDs))
		for i, id := range videoIDs {
			args = append(args, id)
			marks[i] = fmt.Sprintf("@p%d", i+3)
		}
		return `SELECT payload FROM dbo.sync_comment WHERE owner_id=@p1 AND channel_id=@p2 AND video_id IN (` +
			strings.Join(marks, ",") + `)`, args
	},
}

func dialectFor(name string) (dialect, error) {
	switch name {
	case DialectPostgres, "postgres", "":
		return postgresDialect, nil
	case DialectMSSQL:
		return mssqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported snapshot store dialect %q", name)
	}
}

// EnsureSyncCacheSchema creates the snapshot and comment tables if not exists
func EnsureSyncCacheSchema(db *sql.DB, dialectName string) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	d, err := dialectFor(dialectName)
	if err != nil {
		return err
	}
	for i, ddl := range d.schema {
		if _, err := db.Exec(ddl); err != nil {
			// indexes are optional
			if i >= 2 {
				logger.GetLogger().WithField("error", err).Warn("failed creating sync cache index")
				continue
			}
			return fmt.Errorf("create sync cache schema (%s): %w", dialectName, err)
		}
	}
	return nil
}

// SyncCacheRepository persists per-scope snapshots and classified comments.
// Video and comment payloads are stored as JSON.
type SyncCacheRepository struct {
	db      *sql.DB
	dialect dialect
}

func NewSyncCacheRepository(db *sql.DB, dialectName string) (*SyncCacheRepository, error) {
	d, err := dialectFor(dialectName)
	if err != nil {
		return nil, err
	}
	return &SyncCacheRepository{db: db, dialect: d}, nil
}

func (r *SyncCacheRepository) ReadSnapshot(ctx context.Context, ownerID, channelID string) ([]model.CacheSnapshotEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.readSnapshot, ownerID, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CacheSnapshotEntry
	for rows.Next() {
		var (
			raw   []byte
			entry = model.CacheSnapshotEntry{OwnerID: ownerID, ChannelID: channelID}
		)
		if err := rows.Scan(&entry.ItemID, &entry.LastUpdated, &entry.Position, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &entry.Video); err != nil {
			return nil, fmt.Errorf("%w: entry %s: %v", model.ErrCacheCorruption, entry.ItemID, err)
		}
		if entry.Video.ID == "" {
			entry.Video.ID = entry.ItemID
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *SyncCacheRepository) ReadComments(ctx context.Context, ownerID, channelID string, videoIDs []string) ([]model.Comment, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	query, args := r.dialect.readComments(ownerID, channelID, videoIDs)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var c model.Comment
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: comment payload: %v", model.ErrCacheCorruption, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// WriteDelta upserts every snapshot entry and inserts new comments in one
// transaction. Entries missing from the delta are left untouched.
func (r *SyncCacheRepository) WriteDelta(ctx context.Context, ownerID, channelID string, delta *model.Delta) (err error) {
	if delta.IsEmpty() {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(delta.Snapshot) > 0 {
		stmt, err := tx.PrepareContext(ctx, r.dialect.upsertEntry)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i := range delta.Snapshot {
			e := &delta.Snapshot[i]
			raw, err := json.Marshal(&e.Video)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, ownerID, channelID, e.ItemID, e.LastUpdated.UTC(), e.Position, string(raw)); err != nil {
				return fmt.Errorf("upsert entry %s: %w", e.ItemID, err)
			}
		}
	}

	if len(delta.NewComments) > 0 {
		stmt, err := tx.PrepareContext(ctx, r.dialect.insertComment)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i := range delta.NewComments {
			c := &delta.NewComments[i]
			raw, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, ownerID, channelID, c.ID, c.VideoID, string(raw)); err != nil {
				return fmt.Errorf("insert comment %s: %w", c.ID, err)
			}
		}
	}

	return tx.Commit()
}

func (r *SyncCacheRepository) ClearSnapshot(ctx context.Context, ownerID, channelID string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, r.dialect.clearComments, ownerID, channelID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, r.dialect.clearEntries, ownerID, channelID); err != nil {
		return err
	}
	return tx.Commit()
}
