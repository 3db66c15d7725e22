package database

import (
	"errors"
	"time"

	"github.com/yarnscape/backend/internal/patterns"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationCanonicalizeSaveRecordIDs = "2026-08-12_canonicalize_save_record_ids"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationCanonicalizeSaveRecordIDs, apply: canonicalizeSaveRecordIDs},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// canonicalizeSaveRecordIDs rewrites legacy save rows, whose primary key was
// a bare generated id, to the composite user-pattern form every current write
// uses. When a user already holds a canonical row for the same pattern the
// legacy duplicate is dropped.
func canonicalizeSaveRecordIDs(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var legacy []patterns.SaveRecord
		if err := tx.
			Where("save_id <> (user_id || '-' || pattern_id)").
			Find(&legacy).Error; err != nil {
			return err
		}
		for _, row := range legacy {
			canonicalID := row.UserID + "-" + row.PatternID

			var existing patterns.SaveRecord
			err := tx.Where("save_id = ?", canonicalID).Take(&existing).Error
			switch {
			case err == nil:
				// A canonical row already exists; the legacy one is redundant.
			case errors.Is(err, gorm.ErrRecordNotFound):
				replacement := row
				replacement.SaveID = canonicalID
				if err := tx.Create(&replacement).Error; err != nil {
					return err
				}
			default:
				return err
			}

			if err := tx.Where("save_id = ?", row.SaveID).Delete(&patterns.SaveRecord{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
