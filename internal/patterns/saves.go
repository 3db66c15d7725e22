package patterns

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opSavePattern   = "patterns.save"
	opUnsavePattern = "patterns.unsave"
	opListSaved     = "patterns.list_saved"
	opIsSaved       = "patterns.is_saved"
)

// SavePattern bookmarks a published pattern for the user, snapshotting its
// display fields. The record key is the deterministic composite of user and
// pattern, so repeating the action replaces the earlier bookmark instead of
// accumulating duplicates.
func (s *Service) SavePattern(ctx context.Context, userID UserID, publishedID PatternID) (SaveRecord, error) {
	source, err := s.GetPublished(ctx, userID, publishedID)
	if err != nil {
		return SaveRecord{}, err
	}

	record := SaveRecord{
		SaveID:         SaveRecordID(userID, publishedID),
		UserID:         userID.String(),
		PatternID:      publishedID.String(),
		Title:          source.Title,
		Author:         source.Author,
		Craft:          source.Craft,
		Skill:          source.Skill,
		Sections:       source.Sections,
		Tags:           source.Tags,
		Materials:      source.Materials,
		CoverImageURL:  source.CoverImageURL,
		SavedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opSavePattern, "upsert_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", publishedID.String()))
		return SaveRecord{}, newServiceError(opSavePattern, "upsert_failed", err)
	}
	return record, nil
}

// UnsavePattern removes the bookmark. Deletion targets the composite key and
// the (userID, patternID) pair in one statement, so rows written before the
// key form was canonicalized are removed too.
func (s *Service) UnsavePattern(ctx context.Context, userID UserID, patternID PatternID) error {
	err := s.db.WithContext(ctx).
		Where("save_id = ? OR (user_id = ? AND pattern_id = ?)",
			SaveRecordID(userID, patternID), userID.String(), patternID.String()).
		Delete(&SaveRecord{}).Error
	if err != nil {
		s.logError(opUnsavePattern, "delete_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", patternID.String()))
		return newServiceError(opUnsavePattern, "delete_failed", err)
	}
	return nil
}

// ListSaved returns the user's bookmarks, most recent first.
func (s *Service) ListSaved(ctx context.Context, userID UserID) ([]SaveRecord, error) {
	var records []SaveRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("saved_at_s DESC").
		Find(&records).Error; err != nil {
		s.logError(opListSaved, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opListSaved, "query_failed", err)
	}
	return records, nil
}

// IsSaved reports whether any bookmark exists for the pair. Record presence
// is the only authority; no flag on the pattern is consulted.
func (s *Service) IsSaved(ctx context.Context, userID UserID, patternID PatternID) (bool, error) {
	var record SaveRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND pattern_id = ?", userID.String(), patternID.String()).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		s.logError(opIsSaved, "query_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", patternID.String()))
		return false, newServiceError(opIsSaved, "query_failed", err)
	}
	return true, nil
}
