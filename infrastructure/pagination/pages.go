package pagination

import (
	"context"

	"channel-insight/domain/model"
	"channel-insight/domain/repository"
)

// VideoIDs lists a channel's upload ids, newest first
func VideoIDs(ctx context.Context, api repository.IContentAPI, channelID, pageToken string) ([]string, string, error) {
	page, err := api.ListVideos(ctx, channelID, pageToken)
	if err != nil || page == nil {
		return nil, "", err
	}
	return page.IDs, page.NextPageToken, nil
}

// Comments lists a video's top-level comments
func Comments(ctx context.Context, api repository.IContentAPI, videoID, pageToken string) ([]model.Comment, string, error) {
	page, err := api.ListComments(ctx, videoID, pageToken)
	if err != nil || page == nil {
		return nil, "", err
	}
	return page.Comments, page.NextPageToken, nil
}
