package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Priority orders delivery in the downstream queue; higher is sent first.
type Priority int

const (
	PriorityTaster  Priority = 0
	PriorityLead    Priority = 1
	PriorityContact Priority = 2
)

func (p Priority) String() string { return strconv.Itoa(int(p)) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityTaster, PriorityLead, PriorityContact:
		return true
	}
	return false
}

// Message is a finalized outbound SMS record ready for submission.
type Message struct {
	ID              string
	ImportID        *string
	FromNumber      string
	ToNumbers       []string
	Text            string
	Status          Status
	ExternalID      string
	ExternalType    string
	Priority        Priority
	AttemptCount    int
	QueuedAt        time.Time
	LastAttemptedAt *time.Time
	FailedAt        *time.Time
}

// Recipient returns the single destination number.
func (m *Message) Recipient() string {
	if m == nil || len(m.ToNumbers) == 0 {
		return ""
	}
	return m.ToNumbers[0]
}

func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if strings.TrimSpace(m.FromNumber) == "" {
		return fmt.Errorf("%w: from number is required", ErrValidation)
	}
	if len(m.ToNumbers) != 1 {
		return fmt.Errorf("%w: exactly one recipient is required (got %d)", ErrValidation, len(m.ToNumbers))
	}
	if strings.TrimSpace(m.ToNumbers[0]) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, m.Status)
	}
	if !m.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %d", ErrValidation, m.Priority)
	}
	return nil
}
