package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"truebalance/internal/domain/notification"
)

// topicSender is the subset of *messaging.Client the Client uses.
type topicSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Client implements notification.Messenger using Firebase Cloud Messaging
type Client struct {
	msgClient topicSender
}

var _ notification.Messenger = (*Client)(nil)

// NewClient initializes a Firebase app and returns an FCM client.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &Client{msgClient: msgClient}, nil
}

// SendToTopic publishes a notification to every device subscribed to topic.
func (c *Client) SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := c.msgClient.Send(ctx, msg); err != nil {
		if messaging.IsInvalidArgument(err) {
			return fmt.Errorf("invalid topic %q: %w", topic, err)
		}
		return fmt.Errorf("failed to send FCM message: %w", err)
	}
	return nil
}
