package notification

import (
	"context"

	"github.com/sirupsen/logrus"

	"truebalance/internal/shared/messages"
)

// Categories carried in the data payload's "route" key.
const (
	CategoryAccounts = "accounts"
	CategoryGeneral  = "general"
)

// Service sends best-effort user notifications. Delivery failures are logged
// and never returned to the sync path.
type Service struct {
	messenger Messenger
	messages  *messages.Messages
	logger    logrus.FieldLogger
}

// NewService creates a notification service. A nil messenger disables delivery.
func NewService(messenger Messenger, msgs *messages.Messages, logger logrus.FieldLogger) *Service {
	if msgs == nil {
		msgs = messages.Default()
	}
	return &Service{messenger: messenger, messages: msgs, logger: logger}
}

// SendReconnectRequired tells the user their bank connection must be renewed.
func (s *Service) SendReconnectRequired(ctx context.Context, userID string) {
	text := s.messages.ReconnectRequired
	s.send(ctx, userID, text.Title, text.Body, CategoryAccounts)
}

// SendSyncComplete reports newly synced transactions. Nothing is sent when
// inserted is zero.
func (s *Service) SendSyncComplete(ctx context.Context, userID string, inserted int) {
	if inserted <= 0 {
		return
	}
	s.send(ctx, userID, s.messages.SyncComplete.Title, s.messages.SyncCompleteBody(inserted), CategoryGeneral)
}

func (s *Service) send(ctx context.Context, userID, title, body, category string) {
	if s == nil || s.messenger == nil {
		return
	}

	topic := UserTopic(userID)
	data := map[string]string{"route": category}

	if err := s.messenger.SendToTopic(ctx, topic, title, body, data); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"category": category,
		}).Warn("Failed to send notification")
		return
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "category": category}).Debug("Notification sent")
}
