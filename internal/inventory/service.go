package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yarnscape/backend/internal/patterns"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrItemNotFound indicates the requested entry does not exist or
	// belongs to another user.
	ErrItemNotFound = errors.New("inventory: item not found")
	// ErrQuantityBelowZero indicates a decrement that would take the owned
	// count negative.
	ErrQuantityBelowZero = errors.New("inventory: quantity cannot go below zero")
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
	opServiceNew = "inventory.service.new"
	opAddYarn    = "inventory.add_yarn"
	opAddTool    = "inventory.add_tool"
	opListYarn   = "inventory.list_yarn"
	opListTools  = "inventory.list_tools"
	opAdjustYarn = "inventory.adjust_yarn"
	opAdjustTool = "inventory.adjust_tool"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies for the inventory service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider patterns.IDProvider
	Logger     *zap.Logger
}

// Service owns the per-user yarn stash and tool collection.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider patterns.IDProvider
	logger     *zap.Logger
}

// NewService constructs the inventory service.
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
		logger:     logger,
	}, nil
}

// AddYarn validates the draft and stores a new stash entry for the user.
func (s *Service) AddYarn(ctx context.Context, draft YarnDraft) (Yarn, error) {
	if err := draft.Validate(); err != nil {
		return Yarn{}, newServiceError(opAddYarn, "invalid_draft", err)
	}

	yarnID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddYarn, "id_generation_failed", err, zap.String("user_id", draft.UserID.String()))
		return Yarn{}, newServiceError(opAddYarn, "id_generation_failed", err)
	}

	record := Yarn{
		YarnID:          yarnID,
		UserID:          draft.UserID.String(),
		Name:            strings.TrimSpace(draft.Name),
		FiberType:       strings.TrimSpace(draft.FiberType),
		Colour:          strings.TrimSpace(draft.Colour),
		Quantity:        draft.Quantity,
		CreatedAtSecond: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opAddYarn, "insert_failed", err, zap.String("user_id", draft.UserID.String()))
		return Yarn{}, newServiceError(opAddYarn, "insert_failed", err)
	}
	return record, nil
}

// AddTool validates the draft and stores a new tool entry for the user.
func (s *Service) AddTool(ctx context.Context, draft ToolDraft) (Tool, error) {
	if err := draft.Validate(); err != nil {
		return Tool{}, newServiceError(opAddTool, "invalid_draft", err)
	}

	toolID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddTool, "id_generation_failed", err, zap.String("user_id", draft.UserID.String()))
		return Tool{}, newServiceError(opAddTool, "id_generation_failed", err)
	}

	record := Tool{
		ToolID:          toolID,
		UserID:          draft.UserID.String(),
		Name:            strings.TrimSpace(draft.Name),
		ToolType:        strings.TrimSpace(draft.ToolType),
		Quantity:        draft.Quantity,
		CreatedAtSecond: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opAddTool, "insert_failed", err, zap.String("user_id", draft.UserID.String()))
		return Tool{}, newServiceError(opAddTool, "insert_failed", err)
	}
	return record, nil
}

// ListYarn returns the user's stash, newest first.
func (s *Service) ListYarn(ctx context.Context, userID patterns.UserID) ([]Yarn, error) {
	var records []Yarn
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("created_at_s DESC").
		Find(&records).Error; err != nil {
		s.logError(opListYarn, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opListYarn, "query_failed", err)
	}
	return records, nil
}

// ListTools returns the user's tool collection, newest first.
func (s *Service) ListTools(ctx context.Context, userID patterns.UserID) ([]Tool, error) {
	var records []Tool
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("created_at_s DESC").
		Find(&records).Error; err != nil {
		s.logError(opListTools, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opListTools, "query_failed", err)
	}
	return records, nil
}

// AdjustYarnQuantity applies a signed delta to a stash entry and returns the
// stored record. A decrement below zero is rejected and the row is unchanged.
// The read and the write share a transaction.
func (s *Service) AdjustYarnQuantity(ctx context.Context, userID patterns.UserID, yarnID string, delta int) (Yarn, error) {
	var record Yarn
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("user_id = ? AND yarn_id = ?", userID.String(), yarnID).
			Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opAdjustYarn, "not_found", ErrItemNotFound)
		}
		if err != nil {
			return newServiceError(opAdjustYarn, "query_failed", err)
		}
		next := record.Quantity + delta
		if next < 0 {
			return newServiceError(opAdjustYarn, "below_zero", ErrQuantityBelowZero)
		}
		record.Quantity = next
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opAdjustYarn, "save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrQuantityBelowZero) && !errors.Is(txErr, ErrItemNotFound) {
			s.logError(opAdjustYarn, "transaction_failed", txErr,
				zap.String("user_id", userID.String()),
				zap.String("yarn_id", yarnID))
		}
		return Yarn{}, txErr
	}
	return record, nil
}

// AdjustToolQuantity applies a signed delta to a tool entry and returns the
// stored record. A decrement below zero is rejected and the row is unchanged.
func (s *Service) AdjustToolQuantity(ctx context.Context, userID patterns.UserID, toolID string, delta int) (Tool, error) {
	var record Tool
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("user_id = ? AND tool_id = ?", userID.String(), toolID).
			Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opAdjustTool, "not_found", ErrItemNotFound)
		}
		if err != nil {
			return newServiceError(opAdjustTool, "query_failed", err)
		}
		next := record.Quantity + delta
		if next < 0 {
			return newServiceError(opAdjustTool, "below_zero", ErrQuantityBelowZero)
		}
		record.Quantity = next
		if err := tx.Save(&record).Error; err != nil {
			return newServiceError(opAdjustTool, "save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrQuantityBelowZero) && !errors.Is(txErr, ErrItemNotFound) {
			s.logError(opAdjustTool, "transaction_failed", txErr,
				zap.String("user_id", userID.String()),
				zap.String("tool_id", toolID))
		}
		return Tool{}, txErr
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
	s.loggerOrDefault().Error("inventory service error", attrs...)
}
