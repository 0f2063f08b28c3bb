package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	got *messaging.Message
	err error
}

func (f *fakeSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	f.got = message
	if f.err != nil {
		return "", f.err
	}
	return "projects/p/messages/1", nil
}

func TestClient_SendToTopic(t *testing.T) {
	sender := &fakeSender{}
	client := &Client{msgClient: sender}

	err := client.SendToTopic(context.Background(), "user-42", "Title", "Body", map[string]string{"route": "accounts"})
	require.NoError(t, err)

	require.NotNil(t, sender.got)
	assert.Equal(t, "user-42", sender.got.Topic)
	assert.Empty(t, sender.got.Token)
	assert.Equal(t, "Title", sender.got.Notification.Title)
	assert.Equal(t, "accounts", sender.got.Data["route"])
}

func TestClient_SendToTopic_Error(t *testing.T) {
	sendErr := errors.New("unavailable")
	client := &Client{msgClient: &fakeSender{err: sendErr}}

	err := client.SendToTopic(context.Background(), "user-42", "t", "b", nil)
	assert.ErrorIs(t, err, sendErr)
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), "/nonexistent/firebase.json")
	assert.Error(t, err)
}
