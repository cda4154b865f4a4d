package queue

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/textqueue/internal/domain"
)

// QueuedMessage is the broker payload pointing at a stored message.
type QueuedMessage struct {
	MessageID string          `json:"messageId"`
	ImportID  string          `json:"importId,omitempty"`
	Priority  domain.Priority `json:"priority"`
}

func NewQueuedMessage(m *domain.Message) QueuedMessage {
	msg := QueuedMessage{
		MessageID: m.ID,
		Priority:  m.Priority,
	}
	if m.ImportID != nil {
		msg.ImportID = *m.ImportID
	}
	return msg
}

func (m QueuedMessage) Validate() error {
	if strings.TrimSpace(m.MessageID) == "" {
		return fmt.Errorf("messageId is required")
	}
	if !m.Priority.IsValid() {
		return fmt.Errorf("invalid priority %d", m.Priority)
	}
	return nil
}
