package dto

import (
	"time"

	"channel-insight/domain/model"
)

// SyncResultEvent is the message published for every finished cycle
type SyncResultEvent struct {
	CycleID         string               `json:"cycle_id"`
	OwnerID         string               `json:"owner_id"`
	ChannelID       string               `json:"channel_id"`
	ChannelTitle    string               `json:"channel_title"`
	Mode            model.SyncMode       `json:"mode"`
	Stats           model.AggregateStats `json:"stats"`
	VideoCount      int                  `json:"video_count"`
	NewVideoCount   int                  `json:"new_video_count"`
	NewCommentCount int                  `json:"new_comment_count"`
	CompletedAt     time.Time            `json:"completed_at"`
	ElapsedMs       int64                `json:"elapsed_ms"`
}

func NewSyncResultEvent(r *model.SyncResult) SyncResultEvent {
	return SyncResultEvent{
		CycleID:         r.CycleID,
		OwnerID:         r.OwnerID,
		ChannelID:       r.Channel.ID,
		ChannelTitle:    r.Channel.Title,
		Mode:            r.Mode,
		Stats:           r.Stats,
		VideoCount:      len(r.Videos),
		NewVideoCount:   r.NewVideoCount,
		NewCommentCount: r.NewCommentCount,
		CompletedAt:     r.CompletedAt,
		ElapsedMs:       r.Elapsed.Milliseconds(),
	}
}
