package repository

import (
	"time"

	"github.com/kursadbilgin/textqueue/internal/domain"
)

// MessageModel is the persistence model for the messages table.
type MessageModel struct {
	ID              string          `gorm:"type:uuid;primaryKey"`
	ImportID        *string         `gorm:"type:uuid"`
	FromNumber      string          `gorm:"type:varchar(32);not null"`
	ToNumbers       []string        `gorm:"type:jsonb;serializer:json;not null"`
	Text            string          `gorm:"type:text;not null"`
	MessageStatus   domain.Status   `gorm:"column:message_status;type:varchar(20);not null"`
	SfID            string          `gorm:"column:sf_id;type:varchar(64)"`
	SfType          string          `gorm:"column:sf_type;type:varchar(32)"`
	Priority        domain.Priority `gorm:"type:smallint;not null"`
	AttemptCount    int             `gorm:"not null;default:0"`
	QueuedAt        time.Time       `gorm:"type:timestamptz;not null"`
	LastAttemptedAt *time.Time      `gorm:"type:timestamptz"`
	FailedAt        *time.Time      `gorm:"type:timestamptz"`
}

func (MessageModel) TableName() string {
	return "messages"
}

// ImportModel is the persistence model for imports.
type ImportModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	FileName   string `gorm:"type:varchar(255);not null"`
	Checksum   string `gorm:"type:char(64);not null"`
	TotalCount int    `gorm:"not null"`
	ErrorCount int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
}

func (ImportModel) TableName() string {
	return "imports"
}

func messageModelFromDomain(m *domain.Message) *MessageModel {
	if m == nil {
		return nil
	}

	return &MessageModel{
		ID:              m.ID,
		ImportID:        m.ImportID,
		FromNumber:      m.FromNumber,
		ToNumbers:       append([]string(nil), m.ToNumbers...),
		Text:            m.Text,
		MessageStatus:   m.Status,
		SfID:            m.ExternalID,
		SfType:          m.ExternalType,
		Priority:        m.Priority,
		AttemptCount:    m.AttemptCount,
		QueuedAt:        m.QueuedAt,
		LastAttemptedAt: m.LastAttemptedAt,
		FailedAt:        m.FailedAt,
	}
}

func messageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}

	return &domain.Message{
		ID:              m.ID,
		ImportID:        m.ImportID,
		FromNumber:      m.FromNumber,
		ToNumbers:       append([]string(nil), m.ToNumbers...),
		Text:            m.Text,
		Status:          m.MessageStatus,
		ExternalID:      m.SfID,
		ExternalType:    m.SfType,
		Priority:        m.Priority,
		AttemptCount:    m.AttemptCount,
		QueuedAt:        m.QueuedAt,
		LastAttemptedAt: m.LastAttemptedAt,
		FailedAt:        m.FailedAt,
	}
}

func importModelFromDomain(i *domain.Import) *ImportModel {
	if i == nil {
		return nil
	}

	return &ImportModel{
		ID:         i.ID,
		FileName:   i.FileName,
		Checksum:   i.Checksum,
		TotalCount: i.TotalCount,
		ErrorCount: i.ErrorCount,
		CreatedAt:  i.CreatedAt,
	}
}

func importModelToDomain(m *ImportModel) *domain.Import {
	if m == nil {
		return nil
	}

	return &domain.Import{
		ID:         m.ID,
		FileName:   m.FileName,
		Checksum:   m.Checksum,
		TotalCount: m.TotalCount,
		ErrorCount: m.ErrorCount,
		CreatedAt:  m.CreatedAt,
	}
}
