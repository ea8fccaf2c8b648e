package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"channel-insight/domain/dto"
	"channel-insight/domain/model"
	"channel-insight/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// SyncResultPublisher publishes a SyncResultEvent per finished cycle
type SyncResultPublisher struct {
	client    *pubsub.Client
	topicName string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

func NewSyncResultPublisher(client *pubsub.Client, topicName string) *SyncResultPublisher {
	return &SyncResultPublisher{client: client, topicName: topicName}
}

// ensureTopic creates the topic if it doesn't exist
func (p *SyncResultPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.client.Topic(p.topicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
			if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
				p.err = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.err
}

func (p *SyncResultPublisher) Record(ctx context.Context, result *model.SyncResult) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(dto.NewSyncResultEvent(result))
	if err != nil {
		return err
	}
	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"owner_id":   result.OwnerID,
			"channel_id": result.Channel.ID,
			"mode":       string(result.Mode),
		},
	}

	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("cycleId", result.CycleID).Info("Sync result published")
	return nil
}

// Stop flushes pending messages
func (p *SyncResultPublisher) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
