package model

import "time"

// Video represents a channel upload as observed during one sync cycle
type Video struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PublishedAt  time.Time `json:"published_at"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// Comment represents a top-level comment on a video
type Comment struct {
	ID          string    `json:"id"`
	VideoID     string    `json:"video_id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	LikeCount   int64     `json:"like_count"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   Sentiment `json:"sentiment"`
}

// ChannelInfo represents the resolved channel and its public statistics
type ChannelInfo struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	PublishedAt     time.Time `json:"published_at"`
	SubscriberCount int64     `json:"subscriber_count"`
	VideoCount      int64     `json:"video_count"`
	ViewCount       int64     `json:"view_count"`
}
