package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budgethero/internal/store"
)

// ChangeMessage announces that one collection of one user changed. Consumers
// re-read the collection; the message carries no record data.
type ChangeMessage struct {
	UserID     string           `json:"user_id"`
	Collection store.Collection `json:"collection"`
	// Origin is the publishing instance, so it can skip its own broadcasts.
	Origin    string    `json:"origin,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(userID string, c store.Collection, origin string) *ChangeMessage {
	return &ChangeMessage{
		UserID:     userID,
		Collection: c,
		Origin:     origin,
		Timestamp:  time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("change message without user_id")
	}
	if !msg.Collection.Valid() {
		return nil, fmt.Errorf("unknown collection %q", msg.Collection)
	}
	return &msg, nil
}
