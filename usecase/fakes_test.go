package usecase_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"channel-insight/domain/dto"
	"channel-insight/domain/model"
	"channel-insight/domain/repository"
	"channel-insight/usecase"
)

// fakeChannel is an in-memory YouTube channel. Videos are kept newest first.
type fakeChannel struct {
	mu           sync.Mutex
	info         model.ChannelInfo
	videos       []model.Video
	comments     map[string][]model.Comment
	commentErr   map[string]error
	pageSize     int
	onComments   func()
	detailsCalls int
	commentCalls map[string]int
	// unlisted makes channel lookups come back empty
	unlisted bool
}

func newFakeChannel(id string) *fakeChannel {
	return &fakeChannel{
		info:         model.ChannelInfo{ID: id, Title: "Channel " + id, SubscriberCount: 1000},
		comments:     make(map[string][]model.Comment),
		commentErr:   make(map[string]error),
		commentCalls: make(map[string]int),
		pageSize:     3,
	}
}

// upload prepends a video with n comments, the first one positive
func (f *fakeChannel) upload(id string, n int) {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = "meh"
		if i == 0 {
			texts[i] = "good"
		}
	}
	f.uploadWithComments(id, texts...)
}

// uploadWithComments prepends a video carrying one comment per text
func (f *fakeChannel) uploadWithComments(id string, texts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := model.Video{
		ID:           id,
		ChannelID:    f.info.ID,
		Title:        "video " + id,
		PublishedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(f.videos)) * time.Hour),
		ViewCount:    100,
		LikeCount:    10,
		CommentCount: int64(len(texts)),
	}
	f.videos = append([]model.Video{v}, f.videos...)
	for i, text := range texts {
		f.comments[id] = append(f.comments[id], model.Comment{
			ID:        fmt.Sprintf("%s-c%d", id, i),
			VideoID:   id,
			Author:    "viewer",
			Text:      text,
			LikeCount: int64(i),
		})
	}
}

func (f *fakeChannel) commentCallsFor(videoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commentCalls[videoID]
}

func (f *fakeChannel) totalCommentCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.commentCalls {
		total += n
	}
	return total
}

func (f *fakeChannel) client() repository.IContentAPI { return fakeClient{f} }

type fakeClient struct{ f *fakeChannel }

func (c fakeClient) SearchChannel(ctx context.Context, name string) (*model.ChannelInfo, error) {
	if c.f.unlisted {
		return nil, nil
	}
	info := c.f.info
	return &info, nil
}

func (c fakeClient) GetChannel(ctx context.Context, id string) (*model.ChannelInfo, error) {
	if c.f.unlisted {
		return nil, nil
	}
	if id != c.f.info.ID {
		return nil, model.ErrNotFound
	}
	info := c.f.info
	return &info, nil
}

func (c fakeClient) ListVideos(ctx context.Context, channelID, pageToken string) (*dto.VideoIDPage, error) {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()
	start := 0
	if pageToken != "" {
		start, _ = strconv.Atoi(pageToken)
	}
	end := min(start+f.pageSize, len(f.videos))
	page := &dto.VideoIDPage{}
	for _, v := range f.videos[start:end] {
		page.IDs = append(page.IDs, v.ID)
	}
	if end < len(f.videos) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (c fakeClient) GetVideoDetails(ctx context.Context, ids []string) ([]model.Video, error) {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailsCalls++
	var out []model.Video
	for _, id := range ids {
		for _, v := range f.videos {
			if v.ID == id {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (c fakeClient) ListComments(ctx context.Context, videoID, pageToken string) (*dto.CommentPage, error) {
	f := c.f
	f.mu.Lock()
	f.commentCalls[videoID]++
	hook := f.onComments
	err := f.commentErr[videoID]
	comments := append([]model.Comment(nil), f.comments[videoID]...)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &dto.CommentPage{Comments: comments}, nil
}

func (f *fakeChannel) factory() repository.ContentAPIFactory {
	return func(ctx context.Context, cred model.Credential) (repository.IContentAPI, error) {
		return f.client(), nil
	}
}

// memCache is an in-memory ICacheStore
type memCache struct {
	mu       sync.Mutex
	entries  map[string]map[string]model.CacheSnapshotEntry
	comments map[string]map[string]model.Comment
	readErr  error
	clearErr error
	clears   int
	writes   int
}

func newMemCache() *memCache {
	return &memCache{
		entries:  make(map[string]map[string]model.CacheSnapshotEntry),
		comments: make(map[string]map[string]model.Comment),
	}
}

func (m *memCache) ReadSnapshot(ctx context.Context, ownerID, channelID string) ([]model.CacheSnapshotEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		err := m.readErr
		m.readErr = nil
		return nil, err
	}
	var out []model.CacheSnapshotEntry
	for _, e := range m.entries[usecase.ScopeKey(ownerID, channelID)] {
		out = append(out, e)
	}
	usecase.SortSnapshot(out)
	return out, nil
}

func (m *memCache) ReadComments(ctx context.Context, ownerID, channelID string, videoIDs []string) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(videoIDs))
	for _, id := range videoIDs {
		wanted[id] = true
	}
	var out []model.Comment
	for _, c := range m.comments[usecase.ScopeKey(ownerID, channelID)] {
		if wanted[c.VideoID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCache) WriteDelta(ctx context.Context, ownerID, channelID string, delta *model.Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	key := usecase.ScopeKey(ownerID, channelID)
	if m.entries[key] == nil {
		m.entries[key] = make(map[string]model.CacheSnapshotEntry)
		m.comments[key] = make(map[string]model.Comment)
	}
	for _, e := range delta.Snapshot {
		m.entries[key][e.ItemID] = e
	}
	for _, c := range delta.NewComments {
		m.comments[key][c.ID] = c
	}
	return nil
}

func (m *memCache) ClearSnapshot(ctx context.Context, ownerID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	if m.clearErr != nil {
		return m.clearErr
	}
	key := usecase.ScopeKey(ownerID, channelID)
	delete(m.entries, key)
	delete(m.comments, key)
	return nil
}

func (m *memCache) size(ownerID, channelID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[usecase.ScopeKey(ownerID, channelID)])
}

// wordScorer scores "good" positive, "bad" negative, anything else neutral
type wordScorer struct{}

func (wordScorer) Score(text string) float64 {
	switch text {
	case "good":
		return 0.8
	case "bad":
		return -0.8
	default:
		return 0
	}
}
