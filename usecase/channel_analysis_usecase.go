package usecase

import (
	"context"
	"fmt"
	"time"

	"channel-insight/domain/dto"
	"channel-insight/domain/model"
	"channel-insight/domain/repository"
	"channel-insight/infrastructure/logger"
)

// IChannelAnalysisUseCase defines the channel analysis operations
type IChannelAnalysisUseCase interface {
	// Analyze runs one sync cycle, persists its delta and publishes the result
	Analyze(ctx context.Context, req SyncRequest) (*model.SyncResult, error)
	CheckForUpdates(ctx context.Context, ownerID, channelName string) (*dto.UpdateCheck, error)
	AnalyzeVideo(ctx context.Context, ownerID, channelID, videoID string) (*dto.VideoAnalysis, error)
	// Trend returns the engagement time series of past cycles
	Trend(ctx context.Context, ownerID, channelID string, since time.Time) ([]dto.TrendPoint, error)
	Dashboard(result *model.SyncResult, topN int) dto.DashboardSummary
}

// ChannelAnalysisUseCase drives the orchestrator and owns every cache write
type ChannelAnalysisUseCase struct {
	orchestrator *SyncOrchestrator
	cache        repository.ICacheStore
	history      repository.IAnalysisHistory // optional
	sinks        []repository.ISyncResultSink
	aggregator   *AggregationEngine
}

func NewChannelAnalysisUseCase(orchestrator *SyncOrchestrator, cache repository.ICacheStore) *ChannelAnalysisUseCase {
	return &ChannelAnalysisUseCase{
		orchestrator: orchestrator,
		cache:        cache,
		aggregator:   NewAggregationEngine(),
	}
}

// WithHistory enables trend queries (fluent)
func (u *ChannelAnalysisUseCase) WithHistory(history repository.IAnalysisHistory) *ChannelAnalysisUseCase {
	u.history = history
	return u
}

// WithSinks adds result sinks; nil sinks are skipped (fluent)
func (u *ChannelAnalysisUseCase) WithSinks(sinks ...repository.ISyncResultSink) *ChannelAnalysisUseCase {
	for _, s := range sinks {
		if s != nil {
			u.sinks = append(u.sinks, s)
		}
	}
	return u
}

func (u *ChannelAnalysisUseCase) Analyze(ctx context.Context, req SyncRequest) (*model.SyncResult, error) {
	outcome, err := u.orchestrator.SyncAndCommit(ctx, req, u.commit)
	if err != nil {
		return nil, err
	}
	u.publish(ctx, outcome.Result)
	return outcome.Result, nil
}

// commit replaces the scope on a full sync and upserts otherwise
func (u *ChannelAnalysisUseCase) commit(ctx context.Context, outcome *model.SyncOutcome) error {
	r := outcome.Result
	if r.Mode == model.SyncModeFull {
		if err := u.cache.ClearSnapshot(ctx, r.OwnerID, r.Channel.ID); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}
	if outcome.Delta.IsEmpty() {
		return nil
	}
	if err := u.cache.WriteDelta(ctx, r.OwnerID, r.Channel.ID, outcome.Delta); err != nil {
		return fmt.Errorf("write delta: %w", err)
	}
	return nil
}

// publish hands the result to every sink. Sink failures never fail the cycle.
func (u *ChannelAnalysisUseCase) publish(ctx context.Context, result *model.SyncResult) {
	for _, sink := range u.sinks {
		if err := sink.Record(ctx, result); err != nil {
			logger.WithScope(result.OwnerID, result.Channel.ID).
				WithField("sink", fmt.Sprintf("%T", sink)).
				WithField("error", err).
				Warn("Failed recording sync result")
		}
	}
}

func (u *ChannelAnalysisUseCase) CheckForUpdates(ctx context.Context, ownerID, channelName string) (*dto.UpdateCheck, error) {
	return u.orchestrator.CheckForUpdates(ctx, SyncRequest{OwnerID: ownerID, ChannelName: channelName})
}

// AnalyzeVideo reports the sentiment of one video's cached comments without
// calling the content API. Comments stored without a label are classified.
func (u *ChannelAnalysisUseCase) AnalyzeVideo(ctx context.Context, ownerID, channelID, videoID string) (*dto.VideoAnalysis, error) {
	stored, err := u.cache.ReadComments(ctx, ownerID, channelID, []string{videoID})
	if err != nil {
		return nil, fmt.Errorf("read comments of video %s: %w", videoID, err)
	}
	comments := make([]model.Comment, 0, len(stored))
	for _, c := range stored {
		if c.VideoID != videoID {
			continue
		}
		if c.Sentiment == "" {
			c.Sentiment = u.orchestrator.classifier.Classify(c.Text)
		}
		comments = append(comments, c)
	}
	if len(comments) == 0 {
		return nil, fmt.Errorf("comments of video %s: %w", videoID, model.ErrNotFound)
	}

	analysis := &dto.VideoAnalysis{
		VideoID:       videoID,
		TotalComments: len(comments),
		Sentiment:     u.aggregator.VideoSentiment(comments)[videoID],
		Comments:      make([]dto.CommentSentiment, 0, len(comments)),
	}
	for _, c := range comments {
		analysis.Comments = append(analysis.Comments, dto.CommentSentiment{ID: c.ID, Sentiment: c.Sentiment})
	}
	return analysis, nil
}

func (u *ChannelAnalysisUseCase) Trend(ctx context.Context, ownerID, channelID string, since time.Time) ([]dto.TrendPoint, error) {
	if u.history == nil {
		return nil, fmt.Errorf("analysis history is not configured")
	}
	results, err := u.history.ListResults(ctx, ownerID, channelID, since)
	if err != nil {
		return nil, err
	}
	return u.aggregator.TimeSeries(results), nil
}

func (u *ChannelAnalysisUseCase) Dashboard(result *model.SyncResult, topN int) dto.DashboardSummary {
	return u.aggregator.Dashboard(result, topN)
}
