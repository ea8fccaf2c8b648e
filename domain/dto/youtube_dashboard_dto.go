package dto

import (
	"time"

	"channel-insight/domain/model"
)

// TopVideo represents a condensed top video record
type TopVideo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Views       int64  `json:"views"`
	Likes       int64  `json:"likes"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// TopComment represents a condensed top comment record
type TopComment struct {
	ID      string `json:"id"`
	VideoID string `json:"video_id"`
	Author  string `json:"author"`
	Text    string `json:"text"`
	Likes   int64  `json:"likes"`
}

// MonthlyUpload represents uploads count per month (YYYY-MM)
type MonthlyUpload struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// TrendPoint is one sync cycle on the engagement time series
type TrendPoint struct {
	Date            time.Time `json:"date"`
	Views           int64     `json:"views"`
	Likes           int64     `json:"likes"`
	Comments        int       `json:"comments"`
	Positive        int       `json:"positive"`
	Neutral         int       `json:"neutral"`
	Negative        int       `json:"negative"`
	Subscribers     int64     `json:"subscribers"`
	SubscriberDelta int64     `json:"subscriber_delta"`
}

// DashboardSummary aggregates one cycle for a charting collaborator
type DashboardSummary struct {
	ChannelID      string                        `json:"channel_id"`
	ChannelTitle   string                        `json:"channel_title"`
	Subscribers    int64                         `json:"subscribers"`
	TotalVideos    int                           `json:"total_videos"`
	TotalViews     int64                         `json:"total_views"`
	TotalLikes     int64                         `json:"total_likes"`
	TotalComments  int                           `json:"total_comments"`
	AvgLikes       float64                       `json:"avg_likes"`
	Sentiment      SentimentBreakdown            `json:"sentiment"`
	Monthly        []MonthlyUpload               `json:"monthly_uploads"`
	TopVideos      []TopVideo                    `json:"top_videos"`
	TopComments    []TopComment                  `json:"top_comments"`
	VideoSentiment map[string]SentimentBreakdown `json:"video_sentiment"`
}

// VideoAnalysis is the sentiment of one video's cached comments
type VideoAnalysis struct {
	VideoID       string             `json:"video_id"`
	TotalComments int                `json:"total_comments"`
	Sentiment     SentimentBreakdown `json:"sentiment"`
	Comments      []CommentSentiment `json:"comments"`
}

type CommentSentiment struct {
	ID        string          `json:"id"`
	Sentiment model.Sentiment `json:"sentiment"`
}
