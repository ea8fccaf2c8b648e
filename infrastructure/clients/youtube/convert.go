package youtube

import (
	"fmt"
	"time"

	"channel-insight/domain/model"

	"google.golang.org/api/youtube/v3"
)

func convertToVideo(video *youtube.Video) (model.Video, error) {
	if video == nil || video.Id == "" || video.Snippet == nil {
		return model.Video{}, fmt.Errorf("video without id or snippet: %w", model.ErrMalformedResponse)
	}
	publishedAt, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt)
	if err != nil {
		return model.Video{}, fmt.Errorf("video %s published_at %q: %w", video.Id, video.Snippet.PublishedAt, model.ErrMalformedResponse)
	}

	v := model.Video{
		ID:          video.Id,
		ChannelID:   video.Snippet.ChannelId,
		Title:       video.Snippet.Title,
		Description: video.Snippet.Description,
		PublishedAt: publishedAt,
	}
	if video.Statistics != nil {
		v.ViewCount = int64(video.Statistics.ViewCount)
		v.LikeCount = int64(video.Statistics.LikeCount)
		v.CommentCount = int64(video.Statistics.CommentCount)
	}
	v.ThumbnailURL = bestThumbnail(video.Snippet.Thumbnails)
	return v, nil
}

func convertToComment(videoID string, thread *youtube.CommentThread) (model.Comment, error) {
	if thread == nil || thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
		return model.Comment{}, fmt.Errorf("comment thread without top level comment: %w", model.ErrMalformedResponse)
	}
	top := thread.Snippet.TopLevelComment
	publishedAt, err := time.Parse(time.RFC3339, top.Snippet.PublishedAt)
	if err != nil {
		return model.Comment{}, fmt.Errorf("comment %s published_at %q: %w", top.Id, top.Snippet.PublishedAt, model.ErrMalformedResponse)
	}
	id := top.Id
	if id == "" {
		id = thread.Id
	}
	return model.Comment{
		ID:          id,
		VideoID:     videoID,
		Author:      top.Snippet.AuthorDisplayName,
		Text:        top.Snippet.TextDisplay,
		LikeCount:   top.Snippet.LikeCount,
		PublishedAt: publishedAt,
	}, nil
}

func convertToChannelInfo(channel *youtube.Channel) (*model.ChannelInfo, error) {
	if channel == nil || channel.Snippet == nil {
		return nil, fmt.Errorf("channel without snippet: %w", model.ErrMalformedResponse)
	}
	publishedAt, _ := time.Parse(time.RFC3339, channel.Snippet.PublishedAt)

	info := &model.ChannelInfo{
		ID:           channel.Id,
		Title:        channel.Snippet.Title,
		Description:  channel.Snippet.Description,
		PublishedAt:  publishedAt,
		ThumbnailURL: bestThumbnail(channel.Snippet.Thumbnails),
	}
	if channel.Statistics != nil {
		info.SubscriberCount = int64(channel.Statistics.SubscriberCount)
		info.VideoCount = int64(channel.Statistics.VideoCount)
		info.ViewCount = int64(channel.Statistics.ViewCount)
	}
	return info, nil
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
