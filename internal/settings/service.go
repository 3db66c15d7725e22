package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/yarnscape/backend/internal/patterns"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Theme selects the display palette.
type Theme string

// TextSize selects the pattern text scale.
type TextSize string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"

	TextSmall  TextSize = "small"
	TextMedium TextSize = "medium"
	TextLarge  TextSize = "large"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// UserSettings is the per-user preference record. Missing rows read back as
// the defaults; the row is created on first write.
type UserSettings struct {
	UserID           string   `gorm:"column:user_id;primaryKey;size:190;not null" json:"userId"`
	Theme            Theme    `gorm:"column:theme;size:16;not null" json:"theme"`
	TextSize         TextSize `gorm:"column:text_size;size:16;not null" json:"textSize"`
	UpdatedAtSeconds int64    `gorm:"column:updated_at_s;not null" json:"updatedAt"`
}

// TableName exposes the table backing user preferences.
func (UserSettings) TableName() string {
	return "user_settings"
}

func defaults(userID patterns.UserID) UserSettings {
	return UserSettings{
		UserID:   userID.String(),
		Theme:    ThemeLight,
		TextSize: TextMedium,
	}
}

// Update carries the preference fields to write. Both are required; the
// handler fills absent fields from the current record before calling.
type Update struct {
	Theme    Theme
	TextSize TextSize
}

// Validate rejects unknown enum values.
func (u Update) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Theme,
			validation.Required,
			validation.In(ThemeLight, ThemeDark).Error("theme must be light or dark")),
		validation.Field(&u.TextSize,
			validation.Required,
			validation.In(TextSmall, TextMedium, TextLarge).Error("text size must be small, medium or large")),
	)
}

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
	opServiceNew = "settings.service.new"
	opGet        = "settings.get"
	opUpdate     = "settings.update"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies for the settings service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service owns the per-user display preferences.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the settings service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Get returns the user's preferences, or the defaults when no row exists.
func (s *Service) Get(ctx context.Context, userID patterns.UserID) (UserSettings, error) {
	var record UserSettings
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaults(userID), nil
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("user_id", userID.String()))
		return UserSettings{}, newServiceError(opGet, "query_failed", err)
	}
	return record, nil
}

// UpdateSettings writes the preference record, creating it on first use.
func (s *Service) UpdateSettings(ctx context.Context, userID patterns.UserID, update Update) (UserSettings, error) {
	if err := update.Validate(); err != nil {
		return UserSettings{}, newServiceError(opUpdate, "invalid_update", err)
	}

	record := UserSettings{
		UserID:           userID.String(),
		Theme:            update.Theme,
		TextSize:         update.TextSize,
		UpdatedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opUpdate, "save_failed", err, zap.String("user_id", userID.String()))
		return UserSettings{}, newServiceError(opUpdate, "save_failed", err)
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
	s.loggerOrDefault().Error("settings service error", attrs...)
}
