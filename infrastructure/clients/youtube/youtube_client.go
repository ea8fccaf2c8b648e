package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"channel-insight/domain/dto"
	"channel-insight/domain/model"
	"channel-insight/domain/repository"
	"channel-insight/infrastructure/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	videoPageSize   = 50
	commentPageSize = 100
)

// Client is a read-only YouTube Data API client bound to one credential
type Client struct {
	service *youtube.Service
}

// NewYouTubeClient creates a client in API-key mode, or in OAuth mode when the
// credential carries a refresh token.
func NewYouTubeClient(ctx context.Context, cred model.Credential, opts ...option.ClientOption) (*Client, error) {
	if cred.APIKey != "" {
		service, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(cred.APIKey)}, opts...)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service with API key: %w", err)
		}
		return &Client{service: service}, nil
	}
	if !cred.IsOAuth() {
		return nil, fmt.Errorf("credential has neither API key nor refresh token: %w", model.ErrNoCredentials)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Scopes:       []string{youtube.YoutubeReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	token := &oauth2.Token{
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
		// Force refresh on first use
		Expiry: time.Now().Add(-1 * time.Minute),
	}
	httpClient := oauth2Config.Client(ctx, token)
	service, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Client{service: service}, nil
}

// Factory adapts NewYouTubeClient to repository.ContentAPIFactory
func Factory(opts ...option.ClientOption) repository.ContentAPIFactory {
	return func(ctx context.Context, cred model.Credential) (repository.IContentAPI, error) {
		return NewYouTubeClient(ctx, cred, opts...)
	}
}

// SearchChannel resolves a channel by name then loads its statistics
func (c *Client) SearchChannel(ctx context.Context, name string) (*model.ChannelInfo, error) {
	response, err := c.service.Search.List([]string{"snippet"}).
		Q(name).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError("search channel", err)
	}
	if len(response.Items) == 0 || response.Items[0].Id == nil || response.Items[0].Id.ChannelId == "" {
		return nil, fmt.Errorf("channel %q: %w", name, model.ErrNotFound)
	}
	return c.GetChannel(ctx, response.Items[0].Id.ChannelId)
}

func (c *Client) GetChannel(ctx context.Context, channelID string) (*model.ChannelInfo, error) {
	response, err := c.service.Channels.List([]string{"snippet", "statistics"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError("get channel", err)
	}
	if len(response.Items) == 0 {
		return nil, fmt.Errorf("channel %s: %w", channelID, model.ErrNotFound)
	}
	return convertToChannelInfo(response.Items[0])
}

// ListVideos returns one page of upload ids, newest first
func (c *Client) ListVideos(ctx context.Context, channelID, pageToken string) (*dto.VideoIDPage, error) {
	call := c.service.Search.List([]string{"id"}).
		ChannelId(channelID).
		Type("video").
		Order("date").
		MaxResults(videoPageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	response, err := call.Context(ctx).Do()
	if err != nil {
		return nil, classifyError("list videos", err)
	}

	page := &dto.VideoIDPage{NextPageToken: response.NextPageToken}
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			logger.GetLogger().WithField("channelId", channelID).WithField("error", model.ErrMalformedResponse).Warn("Skipping search result without video id")
			continue
		}
		page.IDs = append(page.IDs, item.Id.VideoId)
	}
	return page, nil
}

// GetVideoDetails loads up to 50 videos per call. Unknown ids are omitted by the API.
func (c *Client) GetVideoDetails(ctx context.Context, ids []string) ([]model.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	response, err := c.service.Videos.List([]string{"snippet", "statistics"}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError("get video details", err)
	}

	videos := make([]model.Video, 0, len(response.Items))
	for _, item := range response.Items {
		video, err := convertToVideo(item)
		if err != nil {
			logger.GetLogger().WithField("videoId", item.Id).WithField("error", err).Warn("Skipping malformed video")
			continue
		}
		videos = append(videos, video)
	}
	return videos, nil
}

// ListComments returns one page of top-level comments as plain text
func (c *Client) ListComments(ctx context.Context, videoID, pageToken string) (*dto.CommentPage, error) {
	call := c.service.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		MaxResults(commentPageSize).
		TextFormat("plainText")
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	response, err := call.Context(ctx).Do()
	if err != nil {
		if isCommentsDisabled(err) {
			return &dto.CommentPage{}, nil
		}
		return nil, classifyError("list comments", err)
	}

	page := &dto.CommentPage{NextPageToken: response.NextPageToken}
	for _, thread := range response.Items {
		comment, err := convertToComment(videoID, thread)
		if err != nil {
			logger.GetLogger().WithField("videoId", videoID).WithField("error", err).Warn("Skipping malformed comment")
			continue
		}
		page.Comments = append(page.Comments, comment)
	}
	return page, nil
}
