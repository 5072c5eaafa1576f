package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// TopicMetadataKey carries the destination subject for messages produced by
// handlers; see TopicPublisher.
const TopicMetadataKey = "topic"

// NewJSONMessage marshals payload and stamps topic and correlation id metadata.
func NewJSONMessage(ctx context.Context, topic string, payload any) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(TopicMetadataKey, topic)

	correlationID := attr.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	middleware.SetCorrelationID(correlationID, msg)
	msg.SetContext(ctx)
	return msg, nil
}

// PublishJSON marshals payload and publishes it on topic.
func PublishJSON(ctx context.Context, pub message.Publisher, topic string, payload any) error {
	msg, err := NewJSONMessage(ctx, topic, payload)
	if err != nil {
		return err
	}
	if err := pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// TopicPublisher routes each message to the subject named in its metadata,
// falling back to the topic passed to Publish.
type TopicPublisher struct {
	message.Publisher
}

func (p TopicPublisher) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		dest := msg.Metadata.Get(TopicMetadataKey)
		if dest == "" {
			dest = topic
		}
		if err := p.Publisher.Publish(dest, msg); err != nil {
			return err
		}
	}
	return nil
}
