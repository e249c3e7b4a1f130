package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSub publishes ArtifactEvent/CompletionEvent messages to a Cloud
// Pub/Sub topic. Grounded on the teacher's internal/publisher/pubsub, but
// rewritten against the v1 pubsub.Topic/Publish/PublishResult API rather
// than the teacher's v2 Publisher client, and without the OTel trace
// propagation the teacher's leaf publish call carries — this notification
// has no distributed trace to propagate.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSub opens topicID on client, creating a PubSub notifier bound to it.
func NewPubSub(client *pubsub.Client, topicID string) (*PubSub, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicID == "" {
		return nil, fmt.Errorf("topic id is required")
	}
	return &PubSub{client: client, topic: client.Topic(topicID)}, nil
}

// NotifyArtifact publishes one message per saved artifact.
func (p *PubSub) NotifyArtifact(ctx context.Context, evt ArtifactEvent) error {
	return p.publish(ctx, "artifact", evt)
}

// NotifyCompletion publishes the single end-of-run message.
func (p *PubSub) NotifyCompletion(ctx context.Context, evt CompletionEvent) error {
	return p.publish(ctx, "completion", evt)
}

func (p *PubSub) publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": eventType},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}

// Close stops the topic and closes the client.
func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

var _ Notifier = (*PubSub)(nil)
var _ Notifier = Noop{}
