package messages

import (
	"encoding/json"
	"fmt"
	"os"
)

type MessageText struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Messages holds the user-facing push notification texts. SyncComplete.Body
// is a format string taking the number of new transactions.
type Messages struct {
	SyncComplete      MessageText `json:"sync_complete"`
	ReconnectRequired MessageText `json:"reconnect_required"`
}

// Default returns the built-in English texts.
func Default() *Messages {
	return &Messages{
		SyncComplete: MessageText{
			Title: "Accounts updated",
			Body:  "%d new transactions synced",
		},
		ReconnectRequired: MessageText{
			Title: "Bank connection expired",
			Body:  "Please reconnect your bank to keep your balances up to date",
		},
	}
}

// Load reads overrides from a JSON file on top of Default. An empty path
// returns the defaults.
func Load(path string) (*Messages, error) {
	msgs := Default()
	if path == "" {
		return msgs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}
	if err := json.Unmarshal(data, msgs); err != nil {
		return nil, fmt.Errorf("failed to parse messages file: %w", err)
	}
	return msgs, nil
}

// SyncCompleteBody renders SyncComplete.Body for n new transactions.
func (m *Messages) SyncCompleteBody(n int) string {
	return fmt.Sprintf(m.SyncComplete.Body, n)
}
