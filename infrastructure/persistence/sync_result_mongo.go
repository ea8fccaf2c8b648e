package persistence

import (
	"context"
	"time"

	"channel-insight/domain/model"
	"channel-insight/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type syncResultDocument struct {
	CycleID      string               `bson:"cycle_id"`
	OwnerID      string               `bson:"owner_id"`
	ChannelID    string               `bson:"channel_id"`
	ChannelTitle string               `bson:"channel_title"`
	Subscribers  int64                `bson:"subscribers"`
	Mode         string               `bson:"mode"`
	Stats        model.AggregateStats `bson:"stats"`
	NewVideos    int                  `bson:"new_videos"`
	NewComments  int                  `bson:"new_comments"`
	TopVideoIDs  []string             `bson:"top_video_ids"`
	StartedAt    time.Time            `bson:"started_at"`
	CompletedAt  time.Time            `bson:"completed_at"`
	ElapsedMs    int64                `bson:"elapsed_ms"`
}

func toDocument(r *model.SyncResult) syncResultDocument {
	doc := syncResultDocument{
		CycleID:      r.CycleID,
		OwnerID:      r.OwnerID,
		ChannelID:    r.Channel.ID,
		ChannelTitle: r.Channel.Title,
		Subscribers:  r.Channel.SubscriberCount,
		Mode:         string(r.Mode),
		Stats:        r.Stats,
		NewVideos:    r.NewVideoCount,
		NewComments:  r.NewCommentCount,
		StartedAt:    r.StartedAt.UTC(),
		CompletedAt:  r.CompletedAt.UTC(),
		ElapsedMs:    r.Elapsed.Milliseconds(),
	}
	for i, v := range r.Videos {
		if i == 10 {
			break
		}
		doc.TopVideoIDs = append(doc.TopVideoIDs, v.ID)
	}
	return doc
}

func (d syncResultDocument) toResult() model.SyncResult {
	return model.SyncResult{
		CycleID:         d.CycleID,
		OwnerID:         d.OwnerID,
		Mode:            model.SyncMode(d.Mode),
		Channel:         model.ChannelInfo{ID: d.ChannelID, Title: d.ChannelTitle, SubscriberCount: d.Subscribers},
		Stats:           d.Stats,
		NewVideoCount:   d.NewVideos,
		NewCommentCount: d.NewComments,
		StartedAt:       d.StartedAt,
		CompletedAt:     d.CompletedAt,
		Elapsed:         time.Duration(d.ElapsedMs) * time.Millisecond,
	}
}

// SyncResultMongoRepository archives cycle summaries in a mongo collection
type SyncResultMongoRepository struct {
	collection *mongo.Collection
}

func NewSyncResultMongoRepository(client *mongo.Client, database string) *SyncResultMongoRepository {
	return &SyncResultMongoRepository{collection: client.Database(database).Collection("sync_results")}
}

func (r *SyncResultMongoRepository) Record(ctx context.Context, result *model.SyncResult) error {
	_, err := r.collection.InsertOne(ctx, toDocument(result))
	return err
}

func (r *SyncResultMongoRepository) ListResults(ctx context.Context, ownerID, channelID string, since time.Time) ([]model.SyncResult, error) {
	filter := bson.D{
		{Key: "owner_id", Value: ownerID},
		{Key: "channel_id", Value: channelID},
		{Key: "completed_at", Value: bson.D{{Key: "$gte", Value: since.UTC()}}},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "completed_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	var out []model.SyncResult
	for cursor.Next(ctx) {
		var doc syncResultDocument
		if err := cursor.Decode(&doc); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding")
			continue
		}
		out = append(out, doc.toResult())
	}
	return out, cursor.Err()
}
