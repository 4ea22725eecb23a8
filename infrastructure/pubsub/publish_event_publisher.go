package pubsub

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// NewPubSub returns nil, nil when no project is configured.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, nil
	}
	return pubsub.NewClient(ctx, projectID)
}

// EventPublisher forwards publish events to a Cloud Pub/Sub topic for
// downstream consumers.
type EventPublisher struct {
	PubSubClient *pubsub.Client
	topicName    string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

var _ repository.IPublishNotifier = (*EventPublisher)(nil)

func NewEventPublisher(client *pubsub.Client, topicName string) *EventPublisher {
	return &EventPublisher{PubSubClient: client, topicName: topicName}
}

// ensureTopic creates the topic on first use when it doesn't exist.
func (p *EventPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.PubSubClient.Topic(p.topicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
			if topic, err = p.PubSubClient.CreateTopic(ctx, p.topicName); err != nil {
				p.err = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.err
}

func (p *EventPublisher) NotifyPublishEvent(ctx context.Context, evt model.PublishEvent) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":     evt.Type,
			"platform": string(evt.Result.Platform),
			"postId":   evt.PostID,
			"success":  strconv.FormatBool(evt.Result.Success),
		},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).Debug("Publish event forwarded")
	return nil
}

// Stop flushes buffered messages.
func (p *EventPublisher) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
