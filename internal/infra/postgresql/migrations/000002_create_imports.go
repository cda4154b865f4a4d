package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/textqueue/internal/repository"
	"gorm.io/gorm"
)

func createImportsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_imports",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ImportModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_imports_checksum ON imports (checksum, created_at DESC)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ImportModel{})
		},
	}
}
