package database

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/yarnscape/backend/internal/patterns"
	"gorm.io/gorm"
)

func newMigrationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:yarnscape_migrations_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&patterns.SaveRecord{}, &migrationRecord{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func TestCanonicalizeSaveRecordIDsRewritesLegacyRows(t *testing.T) {
	db := newMigrationTestDB(t)

	legacy := patterns.SaveRecord{
		SaveID:    "random-generated-id",
		UserID:    "user-1",
		PatternID: "pattern-1",
		Title:     "Granny Square Blanket",
		Craft:     patterns.CraftCrochet,
		Skill:     patterns.SkillBeginner,
	}
	if err := db.Create(&legacy).Error; err != nil {
		t.Fatalf("failed to seed legacy row: %v", err)
	}

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rows []patterns.SaveRecord
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("failed to load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row after migration, got %d", len(rows))
	}
	if rows[0].SaveID != "user-1-pattern-1" {
		t.Fatalf("expected canonical id, got %q", rows[0].SaveID)
	}
	if rows[0].Title != "Granny Square Blanket" {
		t.Fatalf("expected snapshot preserved, got %q", rows[0].Title)
	}
}

func TestCanonicalizeSaveRecordIDsDropsLegacyDuplicates(t *testing.T) {
	db := newMigrationTestDB(t)

	canonical := patterns.SaveRecord{
		SaveID:    "user-1-pattern-1",
		UserID:    "user-1",
		PatternID: "pattern-1",
		Title:     "Current Snapshot",
		Craft:     patterns.CraftCrochet,
		Skill:     patterns.SkillBeginner,
	}
	legacy := patterns.SaveRecord{
		SaveID:    "older-random-id",
		UserID:    "user-1",
		PatternID: "pattern-1",
		Title:     "Stale Snapshot",
		Craft:     patterns.CraftCrochet,
		Skill:     patterns.SkillBeginner,
	}
	if err := db.Create(&canonical).Error; err != nil {
		t.Fatalf("failed to seed canonical row: %v", err)
	}
	if err := db.Create(&legacy).Error; err != nil {
		t.Fatalf("failed to seed legacy row: %v", err)
	}

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rows []patterns.SaveRecord
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("failed to load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected duplicate dropped, got %d rows", len(rows))
	}
	if rows[0].Title != "Current Snapshot" {
		t.Fatalf("expected canonical row kept, got %q", rows[0].Title)
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	db := newMigrationTestDB(t)

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}

	var count int64
	if err := db.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count migration records: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one migration record, got %d", count)
	}
}
