package dto

import "channel-insight/domain/model"

// VideoIDPage is one page of a channel's upload listing, newest first
type VideoIDPage struct {
	IDs           []string `json:"ids"`
	NextPageToken string   `json:"next_page_token,omitempty"`
}

// CommentPage is one page of a video's top-level comment threads
type CommentPage struct {
	Comments      []model.Comment `json:"comments"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

// UpdateCheck reports whether the channel has uploads newer than the cache
type UpdateCheck struct {
	ChannelID      string `json:"channel_id"`
	HasUpdates     bool   `json:"has_updates"`
	LatestRemoteID string `json:"latest_remote_id,omitempty"`
	LatestCachedID string `json:"latest_cached_id,omitempty"`
	FirstAnalysis  bool   `json:"first_analysis"`
}
