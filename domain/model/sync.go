package model

import (
	"strings"
	"time"
)

// Credential is one API quota pool. Either APIKey is set, or the OAuth
// triple (ClientID, ClientSecret, RefreshToken).
type Credential struct {
	APIKey       string `json:"api_key"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

func (c Credential) IsOAuth() bool {
	return c.APIKey == "" && c.RefreshToken != ""
}

// String never prints the secret material.
func (c Credential) String() string {
	if c.IsOAuth() {
		return "oauth:" + mask(c.ClientID)
	}
	return "key:" + mask(c.APIKey)
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type SyncMode string

const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
)

// CacheSnapshotEntry is one cached video for an (owner, channel) scope.
// Entries for a scope are ordered by LastUpdated desc, then Position asc.
type CacheSnapshotEntry struct {
	OwnerID     string    `json:"owner_id"`
	ChannelID   string    `json:"channel_id"`
	ItemID      string    `json:"item_id"`
	LastUpdated time.Time `json:"last_updated"`
	Position    int       `json:"position"`
	Video       Video     `json:"video"`
}

// AggregateStats holds sentiment counts and engagement totals for one cycle.
// Positive+Neutral+Negative always equals TotalComments.
type AggregateStats struct {
	Positive      int   `json:"positive"`
	Neutral       int   `json:"neutral"`
	Negative      int   `json:"negative"`
	TotalViews    int64 `json:"total_views"`
	TotalLikes    int64 `json:"total_likes"`
	TotalComments int   `json:"total_comments"`
}

type SyncResult struct {
	CycleID         string         `json:"cycle_id"`
	OwnerID         string         `json:"owner_id"`
	Mode            SyncMode       `json:"mode"`
	Channel         ChannelInfo    `json:"channel"`
	Videos          []Video        `json:"videos"`
	Comments        []Comment      `json:"comments"`
	Stats           AggregateStats `json:"stats"`
	NewVideoCount   int            `json:"new_video_count"`
	NewCommentCount int            `json:"new_comment_count"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     time.Time      `json:"completed_at"`
	Elapsed         time.Duration  `json:"elapsed"`
}

// Delta is what the cache store must persist once a cycle reaches Done.
// Snapshot carries an entry for every merged video that completed fetch and
// classification; NewVideos and NewComments are the items first seen this cycle.
type Delta struct {
	NewVideos   []Video              `json:"new_videos"`
	NewComments []Comment            `json:"new_comments"`
	Snapshot    []CacheSnapshotEntry `json:"snapshot"`
}

func (d *Delta) IsEmpty() bool {
	return d == nil || (len(d.NewVideos) == 0 && len(d.NewComments) == 0 && len(d.Snapshot) == 0)
}

type SyncOutcome struct {
	Result *SyncResult `json:"result"`
	Delta  *Delta      `json:"delta"`
}
