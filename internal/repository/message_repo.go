package repository

import (
	"context"

	"github.com/kursadbilgin/textqueue/internal/domain"
	"gorm.io/gorm"
)

const insertChunkSize = 100

type StatusCount struct {
	Status domain.Status `gorm:"column:message_status"`
	Count  int64         `gorm:"column:count"`
}

type MessageRepository interface {
	CreateBatch(ctx context.Context, messages []*domain.Message) error
	CountByStatus(ctx context.Context, statuses ...domain.Status) ([]StatusCount, error)
}

type GormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) *GormMessageRepo {
	return &GormMessageRepo{db: db}
}

// CreateBatch bulk inserts messages in source order.
func (r *GormMessageRepo) CreateBatch(ctx context.Context, messages []*domain.Message) error {
	models := make([]MessageModel, 0, len(messages))
	modelIndexes := make([]int, 0, len(messages))
	for i, m := range messages {
		model := messageModelFromDomain(m)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, insertChunkSize).Error; err != nil {
		return err
	}

	for i := range models {
		idx := modelIndexes[i]
		*messages[idx] = *messageModelToDomain(&models[i])
	}

	return nil
}

// CountByStatus groups stored messages by status, limited to statuses when given.
func (r *GormMessageRepo) CountByStatus(ctx context.Context, statuses ...domain.Status) ([]StatusCount, error) {
	query := r.db.WithContext(ctx).Model(&MessageModel{})
	if len(statuses) > 0 {
		query = query.Where("message_status IN ?", statuses)
	}

	var counts []StatusCount
	err := query.
		Select("message_status, COUNT(*) as count").
		Group("message_status").
		Order("message_status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
