package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"channel-insight/domain/dto"
	"channel-insight/domain/model"
	"channel-insight/domain/repository"
	"channel-insight/infrastructure/credential"
	"channel-insight/infrastructure/logger"
	"channel-insight/infrastructure/pagination"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type SyncState int

const (
	StateIdle SyncState = iota
	StateDeciding
	StateFullSync
	StateIncrementalSync
	StateMerging
	StateAggregating
	StateDone
	StateFailed
)

func (s SyncState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDeciding:
		return "deciding"
	case StateFullSync:
		return "full-sync"
	case StateIncrementalSync:
		return "incremental-sync"
	case StateMerging:
		return "merging"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SyncRequest identifies the scope of one cycle. ChannelID wins over
// ChannelName when both are set.
type SyncRequest struct {
	OwnerID     string
	ChannelName string
	ChannelID   string
	// MaxVideos overrides the configured ceiling when > 0
	MaxVideos int
}

func (r SyncRequest) validate() error {
	if r.OwnerID == "" {
		return fmt.Errorf("owner id is required")
	}
	if r.ChannelID == "" && r.ChannelName == "" {
		return fmt.Errorf("channel name or id is required")
	}
	return nil
}

type SyncSettings struct {
	MaxVideos           int
	MaxCommentsPerVideo int
	WorkerSafetyFactor  int
	DetailsBatchSize    int
	PageInterval        time.Duration
	CommentPageInterval time.Duration
	Session             pagination.Options
	// Clock paces page calls; nil means the wall clock
	Clock pagination.Clock
}

// CommitFunc persists a finished cycle while the scope lock is still held
type CommitFunc func(ctx context.Context, outcome *model.SyncOutcome) error

// SyncOrchestrator runs one sync cycle per call:
// Idle -> Deciding -> FullSync|IncrementalSync -> Merging -> Aggregating -> Done,
// or Failed from any state.
type SyncOrchestrator struct {
	rotator    *credential.Rotator
	factory    repository.ContentAPIFactory
	cache      repository.ICacheStore
	lock       repository.IScopeLock
	classifier *SentimentClassifier
	diff       *CacheDiffEngine
	aggregator *AggregationEngine
	settings   SyncSettings

	// scopes whose snapshot was found corrupted; their next cycle is a full sync
	forceFull sync.Map
	now       func() time.Time
}

func NewSyncOrchestrator(
	rotator *credential.Rotator,
	factory repository.ContentAPIFactory,
	cache repository.ICacheStore,
	lock repository.IScopeLock,
	classifier *SentimentClassifier,
	settings SyncSettings,
) *SyncOrchestrator {
	if settings.WorkerSafetyFactor <= 0 {
		settings.WorkerSafetyFactor = 1
	}
	if settings.DetailsBatchSize <= 0 {
		settings.DetailsBatchSize = 50
	}
	if settings.Clock != nil && settings.Session.Retry.After == nil {
		settings.Session.Retry.After = settings.Clock.After
	}
	return &SyncOrchestrator{
		rotator:    rotator,
		factory:    factory,
		cache:      cache,
		lock:       lock,
		classifier: classifier,
		diff:       NewCacheDiffEngine(),
		aggregator: NewAggregationEngine(),
		settings:   settings,
		now:        time.Now,
	}
}

// ScopeKey identifies an (owner, channel) scope for locking
func ScopeKey(ownerID, channelID string) string {
	return ownerID + "/" + channelID
}

// Sync runs a cycle and returns its outcome without persisting anything.
func (o *SyncOrchestrator) Sync(ctx context.Context, req SyncRequest) (*model.SyncOutcome, error) {
	return o.SyncAndCommit(ctx, req, nil)
}

// SyncAndCommit runs a cycle and, once it reaches Done, hands the outcome to
// commit before releasing the scope lock.
func (o *SyncOrchestrator) SyncAndCommit(ctx context.Context, req SyncRequest, commit CommitFunc) (*model.SyncOutcome, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	c := &cycle{o: o, req: req, state: StateIdle, started: o.now()}
	c.scope = log.Fields{"ownerId": req.OwnerID, "channelId": req.ChannelID, "channelName": req.ChannelName}

	session, err := pagination.NewSession(ctx, o.rotator, o.factory, o.settings.Session)
	if err != nil {
		return nil, c.fail(model.StageResolveChannel, err)
	}
	c.session = session

	channel, err := c.resolveChannel(ctx)
	if err != nil {
		return nil, c.fail(model.StageResolveChannel, err)
	}
	c.channel = channel
	c.scope = log.Fields{"ownerId": req.OwnerID, "channelId": channel.ID}

	release, err := o.lock.Acquire(ctx, ScopeKey(req.OwnerID, channel.ID))
	if err != nil {
		return nil, c.fail(model.StageAcquireLock, err)
	}
	defer release()

	outcome, err := c.run(ctx)
	if err != nil {
		return nil, err
	}
	if commit != nil {
		if err := commit(ctx, outcome); err != nil {
			return nil, c.fail(model.StageCommit, err)
		}
	}
	return outcome, nil
}

// CheckForUpdates compares the newest remote upload with the newest cached one
func (o *SyncOrchestrator) CheckForUpdates(ctx context.Context, req SyncRequest) (*dto.UpdateCheck, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	c := &cycle{o: o, req: req, scope: log.Fields{"ownerId": req.OwnerID, "channelId": req.ChannelID}}
	session, err := pagination.NewSession(ctx, o.rotator, o.factory, o.settings.Session)
	if err != nil {
		return nil, model.NewSyncError(model.StageResolveChannel, err)
	}
	c.session = session
	channel, err := c.resolveChannel(ctx)
	if err != nil {
		return nil, model.NewSyncError(model.StageResolveChannel, err)
	}

	entries, err := o.cache.ReadSnapshot(ctx, req.OwnerID, channel.ID)
	if err != nil {
		return nil, model.NewSyncError(model.StageReadSnapshot, err)
	}
	check := &dto.UpdateCheck{ChannelID: channel.ID, FirstAnalysis: len(entries) == 0}

	fetcher := pagination.NewFetcher(model.StageListVideos, session, nil, pagination.VideoIDs)
	ids, _, err := fetcher.ListPage(ctx, channel.ID, "")
	if err != nil {
		return nil, model.NewSyncError(model.StageListVideos, err)
	}
	if len(ids) > 0 {
		check.LatestRemoteID = ids[0]
	}

	cached := make(map[string]struct{}, len(entries))
	var latest *model.Video
	for i := range entries {
		cached[entries[i].ItemID] = struct{}{}
		if latest == nil || entries[i].Video.PublishedAt.After(latest.PublishedAt) {
			latest = &entries[i].Video
		}
	}
	if latest != nil {
		check.LatestCachedID = latest.ID
	}
	_, known := cached[check.LatestRemoteID]
	check.HasUpdates = check.LatestRemoteID != "" && !known
	return check, nil
}

func (o *SyncOrchestrator) workerLimit() int {
	n := o.rotator.Size() * o.settings.WorkerSafetyFactor
	if n < 1 {
		return 1
	}
	return n
}

func (o *SyncOrchestrator) ceiling(req SyncRequest) int {
	if req.MaxVideos > 0 {
		return req.MaxVideos
	}
	return o.settings.MaxVideos
}

type cycle struct {
	o       *SyncOrchestrator
	req     SyncRequest
	channel *model.ChannelInfo
	session *pagination.Session
	state   SyncState
	started time.Time
	// scope is attached to every cycle log line
	scope log.Fields
}

func (c *cycle) transition(next SyncState) {
	logger.GetLogger().WithFields(c.scope).WithFields(log.Fields{"from": c.state.String(), "to": next.String()}).Debug("Sync state transition")
	c.state = next
}

func (c *cycle) fail(stage string, err error) error {
	c.transition(StateFailed)
	syncErr := model.NewSyncError(stage, err)
	logger.GetLogger().WithFields(c.scope).WithField("stage", stage).WithField("retryable", syncErr.Retryable).WithField("error", err).Error("Sync cycle failed")
	return syncErr
}

func (c *cycle) resolveChannel(ctx context.Context) (*model.ChannelInfo, error) {
	var channel *model.ChannelInfo
	byID := c.req.ChannelID != ""
	err := c.session.Call(ctx, model.StageResolveChannel, func(ctx context.Context, api repository.IContentAPI) error {
		var err error
		if byID {
			channel, err = api.GetChannel(ctx, c.req.ChannelID)
		} else {
			channel, err = api.SearchChannel(ctx, c.req.ChannelName)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if channel == nil {
		if byID {
			return nil, fmt.Errorf("channel id %q: %w", c.req.ChannelID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("channel %q: %w", c.req.ChannelName, model.ErrNotFound)
	}
	return channel, nil
}

func (c *cycle) run(ctx context.Context) (*model.SyncOutcome, error) {
	o := c.o
	owner, channelID := c.req.OwnerID, c.channel.ID
	scope := ScopeKey(owner, channelID)

	c.transition(StateDeciding)
	var snapshot []model.CacheSnapshotEntry
	mode := model.SyncModeFull
	if _, forced := o.forceFull.Load(scope); forced {
		logger.GetLogger().WithFields(c.scope).Info("Snapshot marked corrupted earlier, forcing full resync")
	} else {
		entries, err := o.cache.ReadSnapshot(ctx, owner, channelID)
		if err != nil {
			if errors.Is(err, model.ErrCacheCorruption) {
				o.markCorrupted(ctx, owner, channelID)
			}
			return nil, c.fail(model.StageReadSnapshot, err)
		}
		SortSnapshot(entries)
		snapshot = entries
		if len(snapshot) > 0 {
			mode = model.SyncModeIncremental
		}
	}
	if mode == model.SyncModeFull {
		c.transition(StateFullSync)
	} else {
		c.transition(StateIncrementalSync)
	}

	ceiling := o.ceiling(c.req)
	ids, err := c.listVideoIDs(ctx, ceiling)
	if err != nil {
		return nil, c.fail(model.StageListVideos, err)
	}
	diff := o.diff.Diff(ids, snapshot)
	logger.GetLogger().WithFields(c.scope).WithFields(log.Fields{
		"mode":   mode,
		"fresh":  len(ids),
		"new":    len(diff.NewIDs),
		"known":  len(diff.KnownIDs),
		"cached": len(diff.MergedFromCache),
	}).Info("Parent collection diffed")

	fresh, err := c.videoDetails(ctx, diff.NewIDs)
	if err != nil {
		return nil, c.fail(model.StageVideoDetails, err)
	}
	nested, err := c.fetchComments(ctx, fresh)
	if err != nil {
		return nil, c.fail(model.StageListComments, err)
	}
	fresh = dropVanished(fresh, nested.vanished)

	c.transition(StateMerging)
	merged := o.diff.Merge(fresh, diff.MergedFromCache, ceiling)
	freshSet := make(map[string]struct{}, len(fresh))
	for _, v := range fresh {
		freshSet[v.ID] = struct{}{}
	}
	var cachedParents []string
	for _, v := range merged {
		if _, ok := freshSet[v.ID]; !ok {
			cachedParents = append(cachedParents, v.ID)
		}
	}
	persisted, err := c.persistedComments(ctx, cachedParents)
	if err != nil {
		return nil, c.fail(model.StageReadComments, err)
	}

	now := o.now()
	delta := &model.Delta{}
	var comments []model.Comment
	for i, v := range merged {
		if _, isFresh := freshSet[v.ID]; isFresh {
			comments = append(comments, nested.comments[v.ID]...)
			if nested.incomplete[v.ID] {
				continue
			}
			delta.NewVideos = append(delta.NewVideos, v)
			delta.NewComments = append(delta.NewComments, nested.comments[v.ID]...)
		}
		delta.Snapshot = append(delta.Snapshot, model.CacheSnapshotEntry{
			OwnerID:     owner,
			ChannelID:   channelID,
			ItemID:      v.ID,
			LastUpdated: now,
			Position:    i,
			Video:       v,
		})
	}
	comments = append(comments, persisted...)

	c.transition(StateAggregating)
	stats := o.aggregator.Aggregate(merged, comments)

	if err := ctx.Err(); err != nil {
		return nil, c.fail(model.StageCommit, err)
	}
	if mode == model.SyncModeFull {
		o.forceFull.Delete(scope)
	}
	completed := o.now()
	result := &model.SyncResult{
		CycleID:         uuid.NewString(),
		OwnerID:         owner,
		Mode:            mode,
		Channel:         *c.channel,
		Videos:          merged,
		Comments:        comments,
		Stats:           stats,
		NewVideoCount:   len(delta.NewVideos),
		NewCommentCount: len(delta.NewComments),
		StartedAt:       c.started,
		CompletedAt:     completed,
		Elapsed:         completed.Sub(c.started),
	}
	c.transition(StateDone)
	logger.GetLogger().WithFields(c.scope).WithFields(log.Fields{
		"cycleId":     result.CycleID,
		"videos":      len(merged),
		"comments":    len(comments),
		"newVideos":   result.NewVideoCount,
		"newComments": result.NewCommentCount,
		"elapsed":     result.Elapsed.String(),
	}).Info("Sync cycle done")
	return &model.SyncOutcome{Result: result, Delta: delta}, nil
}

func (o *SyncOrchestrator) markCorrupted(ctx context.Context, ownerID, channelID string) {
	o.forceFull.Store(ScopeKey(ownerID, channelID), struct{}{})
	if err := o.cache.ClearSnapshot(ctx, ownerID, channelID); err != nil {
		logger.WithScope(ownerID, channelID).WithField("error", err).Warn("Failed clearing corrupted snapshot")
	}
}

func (c *cycle) listVideoIDs(ctx context.Context, ceiling int) ([]string, error) {
	limiter := pagination.NewTokenBucket(c.o.settings.PageInterval, c.o.settings.Clock)
	fetcher := pagination.NewFetcher(model.StageListVideos, c.session, limiter, pagination.VideoIDs)
	return pagination.Collect(fetcher.FetchAll(ctx, c.channel.ID, ceiling))
}

// videoDetails loads new videos in batches and returns them in ids order.
// Ids the API no longer knows are dropped.
func (c *cycle) videoDetails(ctx context.Context, ids []string) ([]model.Video, error) {
	byID := make(map[string]model.Video, len(ids))
	batch := c.o.settings.DetailsBatchSize
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		var videos []model.Video
		err := c.session.Call(ctx, model.StageVideoDetails, func(ctx context.Context, api repository.IContentAPI) error {
			var err error
			videos, err = api.GetVideoDetails(ctx, ids[start:end])
			return err
		})
		if errors.Is(err, model.ErrNotFound) {
			logger.GetLogger().WithFields(c.scope).WithField("error", err).Warn("Video batch vanished upstream, dropping")
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, v := range videos {
			byID[v.ID] = v
		}
	}

	out := make([]model.Video, 0, len(byID))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type nestedResult struct {
	comments   map[string][]model.Comment
	incomplete map[string]bool
	vanished   map[string]bool
}

// fetchComments fetches and classifies comments of every video in a bounded
// worker pool. Each worker runs its own session and credential.
func (c *cycle) fetchComments(ctx context.Context, videos []model.Video) (*nestedResult, error) {
	o := c.o
	res := &nestedResult{
		comments:   make(map[string][]model.Comment),
		incomplete: make(map[string]bool),
		vanished:   make(map[string]bool),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workerLimit())
	for _, video := range videos {
		if video.CommentCount == 0 {
			continue
		}
		g.Go(func() error {
			session, err := pagination.NewSession(gctx, o.rotator, o.factory, o.settings.Session)
			if err != nil {
				return err
			}
			limiter := pagination.NewTokenBucket(o.settings.CommentPageInterval, o.settings.Clock)
			fetcher := pagination.NewFetcher(model.StageListComments, session, limiter, pagination.Comments)
			comments, err := pagination.Collect(fetcher.FetchAll(gctx, video.ID, o.settings.MaxCommentsPerVideo))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				o.classifier.ClassifyAll(comments)
				res.comments[video.ID] = comments
			case gctx.Err() != nil:
				return gctx.Err()
			case errors.Is(err, model.ErrNotFound):
				res.vanished[video.ID] = true
			case errors.Is(err, model.ErrQuotaExceeded):
				return err
			default:
				logger.GetLogger().WithFields(c.scope).WithField("videoId", video.ID).WithField("error", err).Warn("Skipping comments of video for this cycle")
				res.incomplete[video.ID] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *cycle) persistedComments(ctx context.Context, videoIDs []string) ([]model.Comment, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	comments, err := c.o.cache.ReadComments(ctx, c.req.OwnerID, c.channel.ID, videoIDs)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(videoIDs))
	for _, id := range videoIDs {
		wanted[id] = struct{}{}
	}
	out := comments[:0]
	for _, cm := range comments {
		if _, ok := wanted[cm.VideoID]; !ok {
			continue
		}
		if cm.Sentiment == "" {
			cm.Sentiment = c.o.classifier.Classify(cm.Text)
		}
		out = append(out, cm)
	}
	return out, nil
}

func dropVanished(videos []model.Video, vanished map[string]bool) []model.Video {
	if len(vanished) == 0 {
		return videos
	}
	out := make([]model.Video, 0, len(videos))
	for _, v := range videos {
		if !vanished[v.ID] {
			out = append(out, v)
		}
	}
	return out
}
