package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func addMessagesSalesforceIndex() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_add_messages_sf_index",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_sf_id ON messages (sf_type, sf_id) WHERE sf_id <> ''`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_messages_sf_id`).Error
		},
	}
}
