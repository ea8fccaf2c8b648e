package persistence

import (
	"context"
	"time"

	"channel-insight/domain/model"

	"gorm.io/gorm"
)

// SyncResultRecord is one finished cycle in the analysis history
type SyncResultRecord struct {
	ID            uint      `gorm:"primaryKey"`
	CycleID       string    `gorm:"size:64;uniqueIndex"`
	OwnerID       string    `gorm:"size:128;index:idx_sync_results_scope,priority:1"`
	ChannelID     string    `gorm:"size:64;index:idx_sync_results_scope,priority:2"`
	ChannelTitle  string    `gorm:"size:255"`
	Mode          string    `gorm:"size:16"`
	Positive      int
	Neutral       int
	Negative      int
	TotalComments int
	TotalViews    int64
	TotalLikes    int64
	Subscribers   int64
	VideoCount    int
	NewVideos     int
	NewComments   int
	StartedAt     time.Time
	CompletedAt   time.Time `gorm:"index:idx_sync_results_scope,priority:3"`
	ElapsedMs     int64
}

func (SyncResultRecord) TableName() string {
	return "sync_results"
}

func toRecord(r *model.SyncResult) SyncResultRecord {
	return SyncResultRecord{
		CycleID:       r.CycleID,
		OwnerID:       r.OwnerID,
		ChannelID:     r.Channel.ID,
		ChannelTitle:  r.Channel.Title,
		Mode:          string(r.Mode),
		Positive:      r.Stats.Positive,
		Neutral:       r.Stats.Neutral,
		Negative:      r.Stats.Negative,
		TotalComments: r.Stats.TotalComments,
		TotalViews:    r.Stats.TotalViews,
		TotalLikes:    r.Stats.TotalLikes,
		Subscribers:   r.Channel.SubscriberCount,
		VideoCount:    len(r.Videos),
		NewVideos:     r.NewVideoCount,
		NewComments:   r.NewCommentCount,
		StartedAt:     r.StartedAt.UTC(),
		CompletedAt:   r.CompletedAt.UTC(),
		ElapsedMs:     r.Elapsed.Milliseconds(),
	}
}

// toResult restores the summary fields; videos and comments are not kept
func (rec SyncResultRecord) toResult() model.SyncResult {
	return model.SyncResult{
		CycleID: rec.CycleID,
		OwnerID: rec.OwnerID,
		Mode:    model.SyncMode(rec.Mode),
		Channel: model.ChannelInfo{
			ID:              rec.ChannelID,
			Title:           rec.ChannelTitle,
			SubscriberCount: rec.Subscribers,
		},
		Stats: model.AggregateStats{
			Positive:      rec.Positive,
			Neutral:       rec.Neutral,
			Negative:      rec.Negative,
			TotalViews:    rec.TotalViews,
			TotalLikes:    rec.TotalLikes,
			TotalComments: rec.TotalComments,
		},
		NewVideoCount:   rec.NewVideos,
		NewCommentCount: rec.NewComments,
		StartedAt:       rec.StartedAt,
		CompletedAt:     rec.CompletedAt,
		Elapsed:         time.Duration(rec.ElapsedMs) * time.Millisecond,
	}
}

// AnalysisRepository keeps the cycle history on MySQL. It is both a result
// sink and the source of trend series.
type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Migrate() error {
	return r.db.AutoMigrate(&SyncResultRecord{})
}

func (r *AnalysisRepository) Record(ctx context.Context, result *model.SyncResult) error {
	rec := toRecord(result)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *AnalysisRepository) ListResults(ctx context.Context, ownerID, channelID string, since time.Time) ([]model.SyncResult, error) {
	var records []SyncResultRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND channel_id = ? AND completed_at >= ?", ownerID, channelID, since.UTC()).
		Order("completed_at asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.SyncResult, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toResult())
	}
	return out, nil
}
