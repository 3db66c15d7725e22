package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yarnscape/backend/internal/patterns"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrAlreadyCompleted indicates a start or complete attempt against a
	// pair whose project reached the terminal completed state.
	ErrAlreadyCompleted = errors.New("tracking: already completed tracking this pattern")
	// ErrProjectNotFound indicates the requested project does not exist or
	// belongs to another user.
	ErrProjectNotFound = errors.New("tracking: project not found")
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
	opServiceNew   = "tracking.service.new"
	opStart        = "tracking.start"
	opSaveProgress = "tracking.save_progress"
	opComplete     = "tracking.complete"
	opList         = "tracking.list"
	opGet          = "tracking.get"
	opTranscript   = "tracking.append_transcript"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies for the tracking service.
type ServiceConfig struct {
	Database    *gorm.DB
	Clock       func() time.Time
	IDProvider  patterns.IDProvider
	Transcriber Transcriber
	Logger      *zap.Logger
}

// Service owns the per-user, per-pattern progress ledger.
type Service struct {
	db          *gorm.DB
	clock       func() time.Time
	idProvider  patterns.IDProvider
	transcriber Transcriber
	logger      *zap.Logger
}

// NewService constructs the tracking service. Transcriber may be nil; the
// transcript feature then reports itself unavailable instead of failing.
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
		db:          cfg.Database,
		clock:       clock,
		idProvider:  cfg.IDProvider,
		transcriber: cfg.Transcriber,
		logger:      logger,
	}, nil
}

// StartOutcome reports what Start did for the pair.
type StartOutcome struct {
	Project Project
	Resumed bool
}

// Start begins or resumes tracking for a (user, pattern) pair. A completed
// project blocks the pair for good; an in-progress one is returned as-is so
// repeated invocations are an idempotent resume. Only when no project exists
// is a new one created, snapshotting the pattern's current fields. The check
// and the insert share a transaction, which keeps sequential invocations
// at-most-once; a racing double invocation is not guarded beyond that.
func (s *Service) Start(ctx context.Context, userID patterns.UserID, patternID patterns.PatternID, snapshot Snapshot) (StartOutcome, error) {
	var outcome StartOutcome
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Project
		err := tx.
			Where("user_id = ? AND pattern_id = ?", userID.String(), patternID.String()).
			Take(&existing).Error
		if err == nil {
			if existing.Completed {
				return newServiceError(opStart, "already_completed", ErrAlreadyCompleted)
			}
			outcome = StartOutcome{Project: existing, Resumed: true}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opStart, "query_failed", err)
		}

		projectID, err := s.idProvider.NewID()
		if err != nil {
			return newServiceError(opStart, "id_generation_failed", err)
		}

		now := s.clock().UTC().Unix()
		record := Project{
			ProjectID:         projectID,
			UserID:            userID.String(),
			PatternID:         patternID.String(),
			Title:             snapshot.Title,
			Craft:             snapshot.Craft,
			Skill:             snapshot.Skill,
			Author:            snapshot.Author,
			Sections:          snapshot.Sections,
			Tags:              snapshot.Tags,
			Materials:         snapshot.Materials,
			Goal:              "",
			TimeSpentHours:    0,
			LastRowIndex:      0,
			Completed:         false,
			CreatedAtSeconds:  now,
			LastEditedSeconds: now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return newServiceError(opStart, "insert_failed", err)
		}
		outcome = StartOutcome{Project: record, Resumed: false}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrAlreadyCompleted) {
			s.logError(opStart, "transaction_failed", txErr,
				zap.String("user_id", userID.String()),
				zap.String("pattern_id", patternID.String()))
		}
		return StartOutcome{}, txErr
	}
	return outcome, nil
}

// SaveProgress writes the full progress payload back in one operation and
// stamps lastEdited. Last writer wins; there is no concurrency check.
func (s *Service) SaveProgress(ctx context.Context, userID patterns.UserID, projectID ProjectID, progress Progress) (Project, error) {
	if err := progress.Validate(); err != nil {
		return Project{}, newServiceError(opSaveProgress, "invalid_progress", err)
	}

	record, err := s.ownedProject(ctx, userID, projectID, opSaveProgress)
	if err != nil {
		return Project{}, err
	}

	record.Goal = progress.Goal
	record.TimeSpentHours = progress.TimeSpentHours
	record.LastRowIndex = progress.LastRowIndex
	record.Notes = progress.Notes
	record.PatternPhotos = progress.PatternPhotos
	record.LastEditedSeconds = s.clock().UTC().Unix()

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opSaveProgress, "save_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("project_id", projectID.String()))
		return Project{}, newServiceError(opSaveProgress, "save_failed", err)
	}
	return record, nil
}

// Complete marks the project finished. The flag is monotonic: completing an
// already-completed project is rejected and no transition back exists.
func (s *Service) Complete(ctx context.Context, userID patterns.UserID, projectID ProjectID) (Project, error) {
	record, err := s.ownedProject(ctx, userID, projectID, opComplete)
	if err != nil {
		return Project{}, err
	}
	if record.Completed {
		return Project{}, newServiceError(opComplete, "already_completed", ErrAlreadyCompleted)
	}

	record.Completed = true
	record.LastEditedSeconds = s.clock().UTC().Unix()
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opComplete, "save_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("project_id", projectID.String()))
		return Project{}, newServiceError(opComplete, "save_failed", err)
	}
	return record, nil
}

// List returns the user's projects, most recently edited first.
func (s *Service) List(ctx context.Context, userID patterns.UserID) ([]Project, error) {
	var records []Project
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("last_edited_s DESC").
		Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return records, nil
}

// Get returns one project the user owns.
func (s *Service) Get(ctx context.Context, userID patterns.UserID, projectID ProjectID) (Project, error) {
	return s.ownedProject(ctx, userID, projectID, opGet)
}

// DeleteForPattern removes every project the user holds for the pattern.
// It runs inside the caller's transaction; the pattern service invokes it
// while deleting a draft so the cascade shares the delete's atomicity.
func (s *Service) DeleteForPattern(tx *gorm.DB, userID patterns.UserID, patternID patterns.PatternID) error {
	return tx.
		Where("user_id = ? AND pattern_id = ?", userID.String(), patternID.String()).
		Delete(&Project{}).Error
}

func (s *Service) ownedProject(ctx context.Context, userID patterns.UserID, projectID ProjectID, operation string) (Project, error) {
	var record Project
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID.String(), projectID.String()).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Project{}, newServiceError(operation, "not_found", ErrProjectNotFound)
	}
	if err != nil {
		s.logError(operation, "query_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("project_id", projectID.String()))
		return Project{}, newServiceError(operation, "query_failed", err)
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
	s.loggerOrDefault().Error("tracking service error", attrs...)
}
