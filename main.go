package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-insight/domain/model"
	"channel-insight/domain/repository"
	"channel-insight/infrastructure/cache"
	youtubeclient "channel-insight/infrastructure/clients/youtube"
	"channel-insight/infrastructure/configuration"
	"channel-insight/infrastructure/credential"
	"channel-insight/infrastructure/logger"
	"channel-insight/infrastructure/pagination"
	"channel-insight/infrastructure/persistence"
	"channel-insight/infrastructure/pubsub"
	"channel-insight/infrastructure/retry"
	"channel-insight/infrastructure/sentiment"
	"channel-insight/infrastructure/servicebus"
	"channel-insight/usecase"

	"golang.org/x/sync/errgroup"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")
	configuration.Reload()
	logger.Configure(configuration.C.Logger.Format, configuration.C.Logger.Level)

	if err := configuration.Validate(); err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot start without YouTube credentials")
	}
	rotator, err := credential.NewRotator(configuration.Credentials())
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot build credential rotator")
	}

	store, err := InitiateSnapshotStore()
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Snapshot store initialization failed")
	}

	lock := InitiateScopeLock(ctx)
	orchestrator := usecase.NewSyncOrchestrator(
		rotator,
		youtubeclient.Factory(),
		store,
		lock,
		usecase.NewSentimentClassifier(sentiment.NewLexiconScorer()),
		syncSettings(configuration.C),
	)
	analysis := usecase.NewChannelAnalysisUseCase(orchestrator, store)
	sinks, history, closeSinks := InitiateSinks(ctx)
	defer closeSinks()
	analysis.WithSinks(sinks...)
	if history != nil {
		analysis.WithHistory(history)
	}

	targets := configuration.C.Sync.Targets
	if len(targets) == 0 {
		logger.GetLogger().Warn("No sync targets configured - nothing to do")
		return
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"targets":     len(targets),
		"credentials": rotator.Size(),
		"interval":    configuration.C.Sync.Interval.String(),
	}).Info("Starting channel sync worker")

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			return runTarget(gctx, analysis, target, configuration.C.Sync.Interval)
		})
	}

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-gctx.Done():
	}
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Worker returned an error")
		os.Exit(2)
	}
	logger.GetLogger().Info("Worker stopped")
}

// runTarget analyses one scope immediately and then on every tick
func runTarget(ctx context.Context, analysis usecase.IChannelAnalysisUseCase, target configuration.Target, interval time.Duration) error {
	req := usecase.SyncRequest{
		OwnerID:     target.OwnerID,
		ChannelName: target.ChannelName,
		ChannelID:   target.ChannelID,
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		analyze(ctx, analysis, req)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func analyze(ctx context.Context, analysis usecase.IChannelAnalysisUseCase, req usecase.SyncRequest) {
	log := logger.WithScope(req.OwnerID, req.ChannelID).WithField("channelName", req.ChannelName)

	result, err := analysis.Analyze(ctx, req)
	if err != nil {
		var syncErr *model.SyncError
		switch {
		case ctx.Err() != nil:
			log.Info("Sync cancelled by shutdown")
		case errors.Is(err, model.ErrSyncInProgress):
			log.Info("Sync already running for scope, skipping tick")
		case errors.As(err, &syncErr):
			log.WithFields(map[string]interface{}{
				"stage":     syncErr.Stage,
				"retryable": syncErr.Retryable,
				"error":     syncErr.Err,
			}).Error("Sync failed")
		default:
			log.WithField("error", err).Error("Sync failed")
		}
		return
	}

	dashboard := analysis.Dashboard(result, 5)
	log.WithFields(map[string]interface{}{
		"mode":        result.Mode,
		"videos":      dashboard.TotalVideos,
		"comments":    dashboard.TotalComments,
		"positive":    dashboard.Sentiment.Positive,
		"neutral":     dashboard.Sentiment.Neutral,
		"negative":    dashboard.Sentiment.Negative,
		"newVideos":   result.NewVideoCount,
		"newComments": result.NewCommentCount,
	}).Info("Channel analysed")
}

func syncSettings(c configuration.Config) usecase.SyncSettings {
	return usecase.SyncSettings{
		MaxVideos:           c.Sync.MaxVideos,
		MaxCommentsPerVideo: c.Sync.MaxCommentsPerVideo,
		WorkerSafetyFactor:  c.Sync.WorkerSafetyFactor,
		DetailsBatchSize:    c.Sync.DetailsBatchSize,
		PageInterval:        c.Sync.PageInterval,
		CommentPageInterval: c.Sync.CommentPageInterval,
		Session: pagination.Options{
			CallTimeout: c.Sync.CallTimeout,
			Retry:       retry.FromConfiguration(c.Retry),
		},
	}
}

// InitiateSnapshotStore opens the store selected by DB_VENDOR and ensures its schema
func InitiateSnapshotStore() (*persistence.SyncCacheRepository, error) {
	db, dialect, err := persistence.NewSnapshotDB()
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", configuration.C.Database.Vendor, err)
	}
	if err := persistence.EnsureSyncCacheSchema(db, dialect); err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("dialect", dialect).Info("Snapshot store connected")
	return persistence.NewSyncCacheRepository(db, dialect)
}

// InitiateScopeLock always locks in-process and adds redis when reachable
func InitiateScopeLock(ctx context.Context) repository.IScopeLock {
	local := cache.NewLocalScopeLock()
	redisCfg := configuration.C.RedisClient
	if redisCfg.Host == "" {
		return local
	}
	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", redisCfg.Host, redisCfg.Port),
		redisCfg.Username,
		redisCfg.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - scope lock is process local")
		return local
	}
	return cache.NewChainScopeLock(local, cache.NewRedisScopeLock(redisClient, configuration.C.Sync.LockTTL))
}

// InitiateSinks wires every reachable result sink. The MySQL history also
// serves trend queries.
func InitiateSinks(ctx context.Context) ([]repository.ISyncResultSink, repository.IAnalysisHistory, func()) {
	var (
		sinks   []repository.ISyncResultSink
		history repository.IAnalysisHistory
		closers []func()
	)

	if configuration.C.Database.MySql.Name != "" {
		gormDB, err := persistence.NewRepositories()
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("MySQL not available - continuing without analysis history")
		} else {
			repo := persistence.NewAnalysisRepository(gormDB)
			if err := repo.Migrate(); err != nil {
				logger.GetLogger().WithField("error", err).Error("failed migrating sync_results")
			}
			sinks = append(sinks, repo)
			history = repo
		}
	}

	mongoCfg := configuration.C.Database.Mongo
	if mongoCfg.Host != "" {
		mongoDb, err := persistence.NewMongoDb(mongoCfg.Host, mongoCfg.Port, mongoCfg.User, mongoCfg.Password, mongoCfg.Name)
		if err == nil {
			err = mongoDb.Ping(ctx, nil)
		}
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without Mongo archive")
		} else {
			logger.GetLogger().Info("MongoDB connected successfully")
			sinks = append(sinks, persistence.NewSyncResultMongoRepository(mongoDb, mongoCfg.Name))
			closers = append(closers, func() { _ = mongoDb.Disconnect(context.Background()) })
		}
	}

	if ps := configuration.C.Pubsub; ps.ProjectID != "" && ps.Topic != "" {
		client, err := pubsub.NewPubSub(ctx, ps.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without publishing")
		} else {
			publisher := pubsub.NewSyncResultPublisher(client, ps.Topic)
			sinks = append(sinks, publisher)
			closers = append(closers, func() {
				publisher.Stop()
				_ = client.Close()
			})
		}
	}

	if sb := configuration.C.ServiceBus; sb.Namespace != "" && sb.Queue != "" {
		client, err := servicebus.NewServiceBus(ctx, sb.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus features")
		} else {
			sinks = append(sinks, servicebus.NewSyncResultSender(client, sb.Queue))
			closers = append(closers, func() { _ = client.Close(context.Background()) })
		}
	}

	return sinks, history, func() {
		for _, c := range closers {
			c()
		}
	}
}
