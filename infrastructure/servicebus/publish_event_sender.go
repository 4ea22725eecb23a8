package servicebus

import (
	"context"
	"encoding/json"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus authenticates with the default Azure credential chain. It
// returns nil, nil when no namespace is configured.
func NewServiceBus(namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

// EventSender pushes publish events onto a Service Bus queue.
type EventSender struct {
	AzservicebusClient *azservicebus.Client
	queue              string
}

var _ repository.IPublishNotifier = (*EventSender)(nil)

func NewEventSender(client *azservicebus.Client, queue string) *EventSender {
	return &EventSender{AzservicebusClient: client, queue: queue}
}

func (s *EventSender) NotifyPublishEvent(ctx context.Context, evt model.PublishEvent) error {
	msg, err := buildMessage(evt)
	if err != nil {
		return err
	}
	sender, err := s.AzservicebusClient.NewSender(s.queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, context.Background())

	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

func buildMessage(evt model.PublishEvent) (*azservicebus.Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	contentType := "application/json"
	subject := evt.Type
	// one session per post keeps a post's events ordered for consumers
	sessionID := evt.PostID
	return &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		SessionID:   &sessionID,
		ApplicationProperties: map[string]any{
			"platform": string(evt.Result.Platform),
			"success":  evt.Result.Success,
			"userId":   evt.UserID,
		},
	}, nil
}
