package pubsub

import (
	"context"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

func NewPubSub(ctx context.Context, projectID string, opts ...option.ClientOption) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID, opts...)
}
