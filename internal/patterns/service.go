package patterns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrPatternNotFound indicates the requested pattern does not exist or
	// is not visible to the acting user.
	ErrPatternNotFound = errors.New("patterns: pattern not found")
	// ErrAuthorRequired indicates a publish attempt without an author name.
	ErrAuthorRequired = errors.New("patterns: author name is required")
	// ErrAgreementRequired indicates a publish attempt without the copyright agreement.
	ErrAgreementRequired = errors.New("patterns: copyright agreement is required")
)

// ServiceError carries an operation/reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew    = "patterns.service.new"
	opCreatePattern = "patterns.create"
	opUpdatePattern = "patterns.update"
	opDeletePattern = "patterns.delete"
	opListPatterns  = "patterns.list"
	opGetPattern    = "patterns.get"
	opPublish       = "patterns.publish"
	opUnpublish     = "patterns.unpublish"
	opListPublished = "patterns.list_published"
	opGetPublished  = "patterns.get_published"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ProjectPurger removes tracking projects that reference a pattern. The
// tracking service implements it; pattern deletion runs the purge inside its
// own transaction so the draft and its ledger entries go together or not at
// all.
type ProjectPurger interface {
	DeleteForPattern(tx *gorm.DB, userID UserID, patternID PatternID) error
}

// ServiceConfig describes the dependencies for the pattern service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Purger     ProjectPurger
	Logger     *zap.Logger
}

// Service owns draft patterns, their published copies, and save records.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	purger     ProjectPurger
	logger     *zap.Logger
}

// NewService constructs the pattern service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		purger:     cfg.Purger,
		logger:     logger,
	}, nil
}

// CreatePattern validates the draft and stores it as an unpublished pattern
// owned by the acting user.
func (s *Service) CreatePattern(ctx context.Context, userID UserID, draft Draft) (Pattern, error) {
	if err := draft.Validate(); err != nil {
		return Pattern{}, newServiceError(opCreatePattern, "invalid_draft", err)
	}

	patternID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreatePattern, "id_generation_failed", err, zap.String("user_id", userID.String()))
		return Pattern{}, newServiceError(opCreatePattern, "id_generation_failed", err)
	}

	now := s.clock().UTC().Unix()
	record := Pattern{
		PatternID:        patternID,
		UserID:           userID.String(),
		Title:            strings.TrimSpace(draft.Title),
		Craft:            draft.Craft,
		Skill:            draft.Skill,
		Sections:         draft.Sections,
		Tags:             draft.Tags,
		Materials:        draft.Materials,
		Published:        false,
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreatePattern, "insert_failed", err, zap.String("user_id", userID.String()))
		return Pattern{}, newServiceError(opCreatePattern, "insert_failed", err)
	}
	return record, nil
}

// UpdatePattern replaces the whole draft document. Editing always resets the
// published flag; the live copy, if any, keeps serving the old content until
// the pattern is published again.
func (s *Service) UpdatePattern(ctx context.Context, userID UserID, patternID PatternID, draft Draft) (Pattern, error) {
	if err := draft.Validate(); err != nil {
		return Pattern{}, newServiceError(opUpdatePattern, "invalid_draft", err)
	}

	existing, err := s.ownedPattern(ctx, userID, patternID, opUpdatePattern)
	if err != nil {
		return Pattern{}, err
	}

	existing.Title = strings.TrimSpace(draft.Title)
	existing.Craft = draft.Craft
	existing.Skill = draft.Skill
	existing.Sections = draft.Sections
	existing.Tags = draft.Tags
	existing.Materials = draft.Materials
	existing.Published = false
	existing.UpdatedAtSeconds = s.clock().UTC().Unix()

	if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
		s.logError(opUpdatePattern, "save_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", patternID.String()))
		return Pattern{}, newServiceError(opUpdatePattern, "save_failed", err)
	}
	return existing, nil
}

// DeletePattern removes the draft and cascades to every tracking project the
// deleting user holds for it. Both deletes share one transaction so a
// failure leaves no half-removed state.
func (s *Service) DeletePattern(ctx context.Context, userID UserID, patternID PatternID) error {
	if _, err := s.ownedPattern(ctx, userID, patternID, opDeletePattern); err != nil {
		return err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("user_id = ? AND pattern_id = ?", userID.String(), patternID.String()).
			Delete(&Pattern{}).Error; err != nil {
			return newServiceError(opDeletePattern, "delete_failed", err)
		}
		if s.purger != nil {
			if err := s.purger.DeleteForPattern(tx, userID, patternID); err != nil {
				return newServiceError(opDeletePattern, "cascade_failed", err)
			}
		}
		return nil
	})
	if txErr != nil {
		s.logError(opDeletePattern, "transaction_failed", txErr,
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", patternID.String()))
		return txErr
	}
	return nil
}

// ListPatterns returns every draft owned by the user, most recently updated
// first.
func (s *Service) ListPatterns(ctx context.Context, userID UserID) ([]Pattern, error) {
	var records []Pattern
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("updated_at_s DESC").
		Find(&records).Error; err != nil {
		s.logError(opListPatterns, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opListPatterns, "query_failed", err)
	}
	return records, nil
}

// GetPattern returns a draft the user owns.
func (s *Service) GetPattern(ctx context.Context, userID UserID, patternID PatternID) (Pattern, error) {
	return s.ownedPattern(ctx, userID, patternID, opGetPattern)
}

// PublishRequest carries the publish-screen inputs.
type PublishRequest struct {
	Author        string
	CoverImageURL string
	Agreed        bool
}

// PublishPattern copies the draft into the public listing. The source
// behavior writes the draft's published flag as false in the same flow that
// creates the live copy; that inconsistency is kept, and the existence of
// the published row is what makes the pattern live. The update and the
// insert share one transaction.
func (s *Service) PublishPattern(ctx context.Context, userID UserID, patternID PatternID, request PublishRequest) (PublishedPattern, error) {
	if strings.TrimSpace(request.Author) == "" {
		return PublishedPattern{}, newServiceError(opPublish, "missing_author", ErrAuthorRequired)
	}
	if !request.Agreed {
		return PublishedPattern{}, newServiceError(opPublish, "agreement_required", ErrAgreementRequired)
	}

	draft, err := s.ownedPattern(ctx, userID, patternID, opPublish)
	if err != nil {
		return PublishedPattern{}, err
	}

	publishedID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opPublish, "id_generation_failed", err, zap.String("pattern_id", patternID.String()))
		return PublishedPattern{}, newServiceError(opPublish, "id_generation_failed", err)
	}

	mirror := PublishedPattern{
		PublishedID:        publishedID,
		SourcePatternID:    draft.PatternID,
		UserID:             draft.UserID,
		Title:              draft.Title,
		Craft:              draft.Craft,
		Skill:              draft.Skill,
		Sections:           draft.Sections,
		Tags:               draft.Tags,
		Materials:          draft.Materials,
		Author:             strings.TrimSpace(request.Author),
		CoverImageURL:      strings.TrimSpace(request.CoverImageURL),
		PublishedAtSeconds: s.clock().UTC().Unix(),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		draft.Published = false
		draft.UpdatedAtSeconds = s.clock().UTC().Unix()
		if err := tx.Save(&draft).Error; err != nil {
			return newServiceError(opPublish, "draft_update_failed", err)
		}
		if err := tx.Create(&mirror).Error; err != nil {
			return newServiceError(opPublish, "copy_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opPublish, "transaction_failed", txErr,
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", patternID.String()))
		return PublishedPattern{}, txErr
	}
	return mirror, nil
}

// UnpublishPattern deletes the public copies of a pattern and clears the
// draft's published flag, in one transaction.
func (s *Service) UnpublishPattern(ctx context.Context, userID UserID, patternID PatternID) error {
	draft, err := s.ownedPattern(ctx, userID, patternID, opUnpublish)
	if err != nil {
		return err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("source_pattern_id = ?", patternID.String()).
			Delete(&PublishedPattern{}).Error; err != nil {
			return newServiceError(opUnpublish, "copy_delete_failed", err)
		}
		draft.Published = false
		draft.UpdatedAtSeconds = s.clock().UTC().Unix()
		if err := tx.Save(&draft).Error; err != nil {
			return newServiceError(opUnpublish, "draft_update_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opUnpublish, "transaction_failed", txErr,
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", patternID.String()))
		return txErr
	}
	return nil
}

// ListPublished returns the full public listing, newest first. Filtering
// happens in memory via FilterLibrary; there is no server-side pushdown
// beyond the published-only fetch.
func (s *Service) ListPublished(ctx context.Context) ([]PublishedPattern, error) {
	var records []PublishedPattern
	if err := s.db.WithContext(ctx).
		Order("published_at_s DESC").
		Find(&records).Error; err != nil {
		s.logError(opListPublished, "query_failed", err)
		return nil, newServiceError(opListPublished, "query_failed", err)
	}
	return records, nil
}

// GetPublished fetches one public pattern by its listing id. When the listing
// row is gone (unpublished after the user saved it), the caller's save record
// still carries a usable snapshot, so the lookup falls back to it.
func (s *Service) GetPublished(ctx context.Context, userID UserID, publishedID PatternID) (PublishedPattern, error) {
	var record PublishedPattern
	err := s.db.WithContext(ctx).
		Where("published_id = ?", publishedID.String()).
		Take(&record).Error
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError(opGetPublished, "query_failed", err, zap.String("published_id", publishedID.String()))
		return PublishedPattern{}, newServiceError(opGetPublished, "query_failed", err)
	}

	var saved SaveRecord
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND pattern_id = ?", userID.String(), publishedID.String()).
		Take(&saved).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PublishedPattern{}, newServiceError(opGetPublished, "not_found", ErrPatternNotFound)
	}
	if err != nil {
		s.logError(opGetPublished, "save_lookup_failed", err, zap.String("published_id", publishedID.String()))
		return PublishedPattern{}, newServiceError(opGetPublished, "save_lookup_failed", err)
	}

	return PublishedPattern{
		PublishedID:   saved.PatternID,
		UserID:        saved.UserID,
		Title:         saved.Title,
		Craft:         saved.Craft,
		Skill:         saved.Skill,
		Sections:      saved.Sections,
		Tags:          saved.Tags,
		Materials:     saved.Materials,
		Author:        saved.Author,
		CoverImageURL: saved.CoverImageURL,
	}, nil
}

func (s *Service) ownedPattern(ctx context.Context, userID UserID, patternID PatternID, operation string) (Pattern, error) {
	var record Pattern
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND pattern_id = ?", userID.String(), patternID.String()).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Pattern{}, newServiceError(operation, "not_found", ErrPatternNotFound)
	}
	if err != nil {
		s.logError(operation, "query_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", patternID.String()))
		return Pattern{}, newServiceError(operation, "query_failed", err)
	}
	return record, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("patterns service error", attrs...)
}
