package servicebus

import (
	"context"
	"encoding/json"

	"channel-insight/domain/dto"
	"channel-insight/domain/model"
	"channel-insight/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// SyncResultSender sends a SyncResultEvent per finished cycle to a queue
type SyncResultSender struct {
	queue     string
	newSender func(queue string) (messageSender, error)
}

func NewSyncResultSender(client *azservicebus.Client, queue string) *SyncResultSender {
	return &SyncResultSender{
		queue: queue,
		newSender: func(queue string) (messageSender, error) {
			return client.NewSender(queue, nil)
		},
	}
}

func (s *SyncResultSender) Record(ctx context.Context, result *model.SyncResult) error {
	sender, err := s.newSender(s.queue)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}()

	body, err := json.Marshal(dto.NewSyncResultEvent(result))
	if err != nil {
		return err
	}
	contentType := "application/json"
	messageID := result.CycleID
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		MessageID:   &messageID,
		ApplicationProperties: map[string]any{
			"owner_id":   result.OwnerID,
			"channel_id": result.Channel.ID,
			"mode":       string(result.Mode),
		},
	}
	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
