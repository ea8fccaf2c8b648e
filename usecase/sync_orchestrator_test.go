package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"channel-insight/domain/model"
	"channel-insight/domain/repository"
	"channel-insight/infrastructure/cache"
	"channel-insight/infrastructure/credential"
	"channel-insight/infrastructure/pagination"
	"channel-insight/infrastructure/retry"
	"channel-insight/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "owner-1"

func newOrchestrator(t *testing.T, ch *fakeChannel, store *memCache, lock repository.IScopeLock, maxVideos int) *usecase.SyncOrchestrator {
	t.Helper()
	rotator, err := credential.NewRotator([]model.Credential{{APIKey: "key-0001"}, {APIKey: "key-0002"}})
	require.NoError(t, err)
	if lock == nil {
		lock = cache.NewLocalScopeLock()
	}
	return usecase.NewSyncOrchestrator(rotator, ch.factory(), store, lock, usecase.NewSentimentClassifier(wordScorer{}), usecase.SyncSettings{
		MaxVideos:          maxVideos,
		WorkerSafetyFactor: 2,
		DetailsBatchSize:   2,
		Session: pagination.Options{
			CallTimeout: 5 * time.Second,
			Retry: retry.Config{
				MaxRetries:     1,
				InitialBackoff: time.Millisecond,
				MaxBackoff:     time.Millisecond,
				Multiplier:     1,
			},
		},
	})
}

func commitTo(store *memCache) usecase.CommitFunc {
	return func(ctx context.Context, outcome *model.SyncOutcome) error {
		r := outcome.Result
		if r.Mode == model.SyncModeFull {
			if err := store.ClearSnapshot(ctx, r.OwnerID, r.Channel.ID); err != nil {
				return err
			}
		}
		return store.WriteDelta(ctx, r.OwnerID, r.Channel.ID, outcome.Delta)
	}
}

func videoIDs(videos []model.Video) []string {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	return ids
}

func request(channelID string) usecase.SyncRequest {
	return usecase.SyncRequest{OwnerID: owner, ChannelID: channelID}
}

func TestSyncState_String(t *testing.T) {
	assert.Equal(t, "incremental-sync", usecase.StateIncrementalSync.String())
	assert.Equal(t, "failed", usecase.StateFailed.String())
	assert.Equal(t, "state(42)", usecase.SyncState(42).String())
}

func TestSync_FirstRunIsFullSync(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 4)
	ch.upload("b", 1)
	ch.upload("c", 2)
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 100)

	outcome, err := o.Sync(context.Background(), request("UC1"))
	require.NoError(t, err)

	r := outcome.Result
	assert.Equal(t, model.SyncModeFull, r.Mode)
	assert.Equal(t, []string{"c", "b", "a"}, videoIDs(r.Videos))
	assert.Equal(t, 7, r.Stats.TotalComments)
	assert.Equal(t, 3, r.Stats.Positive)
	assert.Equal(t, 4, r.Stats.Neutral)
	assert.Equal(t, 0, r.Stats.Negative)
	assert.Equal(t, int64(300), r.Stats.TotalViews)
	assert.Equal(t, int64(30), r.Stats.TotalLikes)
	assert.Equal(t, 3, r.NewVideoCount)
	assert.Equal(t, 7, r.NewCommentCount)
	assert.NotEmpty(t, r.CycleID)

	require.Len(t, outcome.Delta.Snapshot, 3)
	for i, e := range outcome.Delta.Snapshot {
		assert.Equal(t, i, e.Position)
		assert.Equal(t, owner, e.OwnerID)
		assert.Equal(t, "UC1", e.ChannelID)
	}
	for _, c := range r.Comments {
		assert.NotEmpty(t, c.Sentiment)
	}
	assert.Zero(t, store.writes, "Sync must not persist")
}

func TestSync_SentimentBreakdownAcrossVideos(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.uploadWithComments("silent")
	ch.uploadWithComments("split", "good", "bad")
	ch.uploadWithComments("busy", "good", "good", "good", "meh", "bad")
	o := newOrchestrator(t, ch, newMemCache(), nil, 100)

	outcome, err := o.Sync(context.Background(), request("UC1"))
	require.NoError(t, err)

	stats := outcome.Result.Stats
	assert.Len(t, outcome.Result.Videos, 3)
	assert.Equal(t, 7, stats.TotalComments)
	assert.Equal(t, 4, stats.Positive)
	assert.Equal(t, 1, stats.Neutral)
	assert.Equal(t, 2, stats.Negative)
	assert.Equal(t, stats.TotalComments, stats.Positive+stats.Neutral+stats.Negative)
	assert.Zero(t, ch.commentCallsFor("silent"))
}

func TestSync_FullThenIncrementalWithoutChanges(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 4)
	ch.upload("b", 1)
	ch.upload("c", 2)
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 100)
	ctx := context.Background()

	first, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)
	detailsAfterFirst := ch.detailsCalls
	commentsAfterFirst := ch.totalCommentCalls()

	second, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)

	r := second.Result
	assert.Equal(t, model.SyncModeIncremental, r.Mode)
	assert.ElementsMatch(t, videoIDs(first.Result.Videos), videoIDs(r.Videos))
	assert.Equal(t, 7, r.Stats.TotalComments)
	assert.Equal(t, 0, r.NewVideoCount)
	assert.Empty(t, second.Delta.NewVideos)
	assert.Empty(t, second.Delta.NewComments)
	assert.Len(t, second.Delta.Snapshot, 3)
	assert.Equal(t, detailsAfterFirst, ch.detailsCalls)
	assert.Equal(t, commentsAfterFirst, ch.totalCommentCalls())
}

func TestSync_IncrementalFetchesOnlyNewVideos(t *testing.T) {
	ch := newFakeChannel("UC1")
	for i := 0; i < 10; i++ {
		ch.upload(fmt.Sprintf("v%02d", i), 1)
	}
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 100)
	ctx := context.Background()

	_, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)
	assert.Equal(t, 5, ch.detailsCalls)

	ch.upload("fresh", 2)
	outcome, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)

	r := outcome.Result
	assert.Equal(t, model.SyncModeIncremental, r.Mode)
	require.Len(t, r.Videos, 11)
	assert.Equal(t, "fresh", r.Videos[0].ID)
	assert.Equal(t, 1, r.NewVideoCount)
	assert.Equal(t, 2, r.NewCommentCount)
	assert.Equal(t, 12, r.Stats.TotalComments)
	assert.Equal(t, 6, ch.detailsCalls)
	assert.Equal(t, 1, ch.commentCallsFor("fresh"))
	assert.Equal(t, 1, ch.commentCallsFor("v00"))
	assert.Equal(t, 11, store.size(owner, "UC1"))
}

func TestSync_CeilingKeepsNewestItems(t *testing.T) {
	ch := newFakeChannel("UC1")
	for i := 0; i < 5; i++ {
		ch.upload(fmt.Sprintf("v%d", i), 1)
	}
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 5)
	ctx := context.Background()

	first, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)
	assert.Equal(t, []string{"v4", "v3", "v2", "v1", "v0"}, videoIDs(first.Result.Videos))

	ch.upload("n1", 1)
	ch.upload("n2", 1)
	second, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)

	assert.Equal(t, []string{"n2", "n1", "v4", "v3", "v2"}, videoIDs(second.Result.Videos))
	assert.Equal(t, 2, second.Result.NewVideoCount)
	assert.Equal(t, 5, second.Result.Stats.TotalComments)
}

func TestSync_RequestCeilingOverridesSettings(t *testing.T) {
	ch := newFakeChannel("UC1")
	for i := 0; i < 6; i++ {
		ch.upload(fmt.Sprintf("v%d", i), 0)
	}
	o := newOrchestrator(t, ch, newMemCache(), nil, 100)

	req := request("UC1")
	req.MaxVideos = 2
	outcome, err := o.Sync(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"v5", "v4"}, videoIDs(outcome.Result.Videos))
}

func TestSync_ResolvesChannelByName(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 1)
	o := newOrchestrator(t, ch, newMemCache(), nil, 100)

	outcome, err := o.Sync(context.Background(), usecase.SyncRequest{OwnerID: owner, ChannelName: "some channel"})
	require.NoError(t, err)
	assert.Equal(t, "UC1", outcome.Result.Channel.ID)
}

func TestSync_InvalidRequest(t *testing.T) {
	o := newOrchestrator(t, newFakeChannel("UC1"), newMemCache(), nil, 100)

	_, err := o.Sync(context.Background(), usecase.SyncRequest{ChannelID: "UC1"})
	assert.Error(t, err)
	_, err = o.Sync(context.Background(), usecase.SyncRequest{OwnerID: owner})
	assert.Error(t, err)
}

func TestSync_UnknownChannelFailsAtResolve(t *testing.T) {
	o := newOrchestrator(t, newFakeChannel("UC1"), newMemCache(), nil, 100)

	_, err := o.Sync(context.Background(), request("UC-missing"))

	var syncErr *model.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, model.StageResolveChannel, syncErr.Stage)
	assert.False(t, syncErr.Retryable)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSync_EmptyLookupNamesTheIdentifierUsed(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.unlisted = true
	o := newOrchestrator(t, ch, newMemCache(), nil, 100)

	_, err := o.Sync(context.Background(), request("UC1"))
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), `channel id "UC1"`)

	_, err = o.Sync(context.Background(), usecase.SyncRequest{OwnerID: owner, ChannelName: "Some Channel"})
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), `channel "Some Channel"`)
}

func TestSync_VideosWithoutCommentsSkipCommentFetch(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("quiet", 0)
	ch.upload("busy", 2)
	o := newOrchestrator(t, ch, newMemCache(), nil, 100)

	outcome, err := o.Sync(context.Background(), request("UC1"))
	require.NoError(t, err)
	assert.Len(t, outcome.Result.Videos, 2)
	assert.Equal(t, 0, ch.commentCallsFor("quiet"))
	assert.Equal(t, 2, outcome.Result.Stats.TotalComments)
}

func TestSync_VanishedVideoIsDropped(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 1)
	ch.upload("gone", 3)
	ch.commentErr["gone"] = fmt.Errorf("video: %w", model.ErrNotFound)
	o := newOrchestrator(t, ch, newMemCache(), nil, 100)

	outcome, err := o.Sync(context.Background(), request("UC1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, videoIDs(outcome.Result.Videos))
	assert.Len(t, outcome.Delta.Snapshot, 1)
}

func TestSync_TransientCommentFailureIsRetriedNextCycle(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 4)
	ch.upload("flaky", 2)
	ch.commentErr["flaky"] = fmt.Errorf("%w: 503 backend error", model.ErrTransientNetwork)
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 100)
	ctx := context.Background()

	first, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)
	assert.Equal(t, []string{"flaky", "a"}, videoIDs(first.Result.Videos))
	assert.Equal(t, 4, first.Result.Stats.TotalComments)
	assert.Equal(t, []string{"a"}, videoIDs(first.Delta.NewVideos))
	assert.Len(t, first.Delta.Snapshot, 1)
	assert.Equal(t, 2, ch.commentCallsFor("flaky"), "one retry before giving up")

	ch.mu.Lock()
	delete(ch.commentErr, "flaky")
	ch.mu.Unlock()

	second, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)
	assert.Equal(t, model.SyncModeIncremental, second.Result.Mode)
	assert.Equal(t, []string{"flaky"}, videoIDs(second.Delta.NewVideos))
	assert.Equal(t, 6, second.Result.Stats.TotalComments)
}

func TestSync_QuotaAfterRotationIsFatal(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 1)
	ch.upload("b", 1)
	ch.commentErr["b"] = model.ErrQuotaExceeded
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 100)

	outcome, err := o.SyncAndCommit(context.Background(), request("UC1"), commitTo(store))
	assert.Nil(t, outcome)

	var syncErr *model.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, model.StageListComments, syncErr.Stage)
	assert.True(t, syncErr.Retryable)
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
	assert.Equal(t, 2, ch.commentCallsFor("b"))
	assert.Zero(t, store.writes)
}

func TestSync_CancellationFailsWithoutWriting(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 1)
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch.onComments = cancel

	outcome, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.writes)
}

func TestSync_RejectsConcurrentCycleOnSameScope(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 1)
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 100)

	started := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	ch.onComments = func() {
		once.Do(func() { close(started) })
		<-proceed
	}

	done := make(chan error, 1)
	go func() {
		_, err := o.SyncAndCommit(context.Background(), request("UC1"), commitTo(store))
		done <- err
	}()
	<-started

	_, err := o.Sync(context.Background(), request("UC1"))
	var syncErr *model.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, model.StageAcquireLock, syncErr.Stage)
	assert.ErrorIs(t, err, model.ErrSyncInProgress)

	close(proceed)
	require.NoError(t, <-done)
	assert.Equal(t, 1, store.size(owner, "UC1"))

	_, err = o.Sync(context.Background(), request("UC1"))
	assert.NoError(t, err, "lock is released after the cycle")
}

func TestSync_CorruptedSnapshotForcesFullResync(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 1)
	ch.upload("b", 1)
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 100)
	ctx := context.Background()

	_, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)

	store.readErr = fmt.Errorf("decode payload: %w", model.ErrCacheCorruption)
	store.clearErr = errors.New("database is read-only")
	_, err = o.Sync(ctx, request("UC1"))

	var syncErr *model.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, model.StageReadSnapshot, syncErr.Stage)
	assert.True(t, syncErr.Retryable)
	assert.Equal(t, 2, store.clears, "corruption triggers a clear attempt")
	require.Equal(t, 2, store.size(owner, "UC1"))

	store.clearErr = nil
	resync, err := o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)
	assert.Equal(t, model.SyncModeFull, resync.Result.Mode)

	after, err := o.Sync(ctx, request("UC1"))
	require.NoError(t, err)
	assert.Equal(t, model.SyncModeIncremental, after.Result.Mode)
}

func TestCheckForUpdates(t *testing.T) {
	ch := newFakeChannel("UC1")
	ch.upload("a", 1)
	store := newMemCache()
	o := newOrchestrator(t, ch, store, nil, 100)
	ctx := context.Background()

	check, err := o.CheckForUpdates(ctx, request("UC1"))
	require.NoError(t, err)
	assert.True(t, check.FirstAnalysis)
	assert.True(t, check.HasUpdates)
	assert.Equal(t, "a", check.LatestRemoteID)

	_, err = o.SyncAndCommit(ctx, request("UC1"), commitTo(store))
	require.NoError(t, err)

	check, err = o.CheckForUpdates(ctx, request("UC1"))
	require.NoError(t, err)
	assert.False(t, check.FirstAnalysis)
	assert.False(t, check.HasUpdates)
	assert.Equal(t, "a", check.LatestCachedID)

	ch.upload("b", 0)
	check, err = o.CheckForUpdates(ctx, request("UC1"))
	require.NoError(t, err)
	assert.True(t, check.HasUpdates)
	assert.Equal(t, "b", check.LatestRemoteID)
	assert.Equal(t, "a", check.LatestCachedID)
}
