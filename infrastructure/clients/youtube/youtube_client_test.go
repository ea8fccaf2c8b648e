package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"channel-insight/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	service, err := ytapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/youtube/v3/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return &Client{service: service}
}

func writeAPIError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s","errors":[{"reason":"%s","message":"%s"}]}}`, code, reason, reason, reason)
}

func TestClient_ListVideos(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/search"))
		assert.Equal(t, "UC123", r.URL.Query().Get("channelId"))
		assert.Equal(t, "date", r.URL.Query().Get("order"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"nextPageToken":"NEXT","items":[{"id":{"videoId":"v1"}},{"id":{}},{"id":{"videoId":"v2"}}]}`)
	})

	page, err := client.ListVideos(context.Background(), "UC123", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, page.IDs)
	assert.Equal(t, "NEXT", page.NextPageToken)
}

func TestClient_ListComments_DisabledIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusForbidden, "commentsDisabled")
	})

	page, err := client.ListComments(context.Background(), "v1", "")
	require.NoError(t, err)
	assert.Empty(t, page.Comments)
	assert.Empty(t, page.NextPageToken)
}

func TestClient_ListComments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "plainText", r.URL.Query().Get("textFormat"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"id":"t1","snippet":{"topLevelComment":{"id":"c1","snippet":{"authorDisplayName":"ann","textDisplay":"great video","likeCount":4,"publishedAt":"2024-03-01T10:00:00Z"}}}},
			{"id":"t2","snippet":{}}
		]}`)
	})

	page, err := client.ListComments(context.Background(), "v1", "")
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, "c1", page.Comments[0].ID)
	assert.Equal(t, "v1", page.Comments[0].VideoID)
	assert.Equal(t, int64(4), page.Comments[0].LikeCount)
}

func TestClient_QuotaExceeded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusForbidden, "quotaExceeded")
	})

	_, err := client.ListVideos(context.Background(), "UC123", "")
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
}

func TestClient_SearchChannelNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[]}`)
	})

	_, err := client.SearchChannel(context.Background(), "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestClassifyError(t *testing.T) {
	apiErr := func(code int, reason string) error {
		return &googleapi.Error{Code: code, Errors: []googleapi.ErrorItem{{Reason: reason}}}
	}
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"quota", apiErr(403, "quotaExceeded"), model.ErrQuotaExceeded},
		{"daily limit", apiErr(403, "dailyLimitExceeded"), model.ErrQuotaExceeded},
		{"not found", apiErr(404, "notFound"), model.ErrNotFound},
		{"video gone", apiErr(400, "videoNotFound"), model.ErrNotFound},
		{"server", apiErr(503, "backendError"), model.ErrTransientNetwork},
		{"rate limited", apiErr(403, "rateLimitExceeded"), model.ErrTransientNetwork},
		{"deadline", context.DeadlineExceeded, model.ErrTransientNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyError("op", tt.err), tt.want)
		})
	}

	plain := classifyError("op", errors.New("bad request"))
	assert.False(t, errors.Is(plain, model.ErrTransientNetwork))
	assert.Nil(t, classifyError("op", nil))
	assert.ErrorIs(t, classifyError("op", context.Canceled), context.Canceled)
}

func TestConvertToVideo(t *testing.T) {
	v, err := convertToVideo(&ytapi.Video{
		Id: "v1",
		Snippet: &ytapi.VideoSnippet{
			Title:       "t",
			ChannelId:   "UC1",
			PublishedAt: "2024-01-02T03:04:05Z",
			Thumbnails:  &ytapi.ThumbnailDetails{Medium: &ytapi.Thumbnail{Url: "m.jpg"}},
		},
		Statistics: &ytapi.VideoStatistics{ViewCount: 10, LikeCount: 2, CommentCount: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.ViewCount)
	assert.Equal(t, int64(3), v.CommentCount)
	assert.Equal(t, "m.jpg", v.ThumbnailURL)

	_, err = convertToVideo(&ytapi.Video{Id: "v2", Snippet: &ytapi.VideoSnippet{PublishedAt: "yesterday"}})
	assert.ErrorIs(t, err, model.ErrMalformedResponse)

	_, err = convertToVideo(&ytapi.Video{Id: "v3"})
	assert.ErrorIs(t, err, model.ErrMalformedResponse)
}
