package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/textqueue/internal/domain"
	"gorm.io/gorm"
)

type ImportRepository interface {
	// Create stores the import row and its messages in one transaction.
	Create(ctx context.Context, imp *domain.Import, messages []*domain.Message) error
	GetLatestByChecksum(ctx context.Context, checksum string) (*domain.Import, error)
}

type GormImportRepo struct {
	db *gorm.DB
}

func NewGormImportRepo(db *gorm.DB) *GormImportRepo {
	return &GormImportRepo{db: db}
}

func (r *GormImportRepo) Create(ctx context.Context, imp *domain.Import, messages []*domain.Message) error {
	model := importModelFromDomain(imp)
	if model == nil {
		return domain.ErrValidation
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return NewGormMessageRepo(tx).CreateBatch(ctx, messages)
	})
	if err != nil {
		return err
	}

	*imp = *importModelToDomain(model)
	return nil
}

func (r *GormImportRepo) GetLatestByChecksum(ctx context.Context, checksum string) (*domain.Import, error) {
	var model ImportModel
	err := r.db.WithContext(ctx).
		Where("checksum = ?", checksum).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return importModelToDomain(&model), nil
}
