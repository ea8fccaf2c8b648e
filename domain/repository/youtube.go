package repository

import (
	"context"

	"channel-insight/domain/dto"
	"channel-insight/domain/model"
)

// IContentAPI defines the remote content operations a sync cycle needs.
// An instance is bound to one credential.
type IContentAPI interface {
	// SearchChannel resolves a channel by name. Returns model.ErrNotFound when nothing matches.
	SearchChannel(ctx context.Context, name string) (*model.ChannelInfo, error)
	// GetChannel loads a channel by id.
	GetChannel(ctx context.Context, channelID string) (*model.ChannelInfo, error)
	// ListVideos returns one page of upload ids, newest first.
	ListVideos(ctx context.Context, channelID, pageToken string) (*dto.VideoIDPage, error)
	// GetVideoDetails loads full video records. Ids that no longer exist are omitted.
	GetVideoDetails(ctx context.Context, ids []string) ([]model.Video, error)
	// ListComments returns one page of top-level comments. Disabled comments yield an empty page.
	ListComments(ctx context.Context, videoID, pageToken string) (*dto.CommentPage, error)
}

// ContentAPIFactory builds an IContentAPI bound to the given credential
type ContentAPIFactory func(ctx context.Context, cred model.Credential) (IContentAPI, error)

// ISentimentScorer returns a compound score in [-1, 1]
type ISentimentScorer interface {
	Score(text string) float64
}
