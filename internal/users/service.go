package users

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/yarnscape/backend/internal/auth"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var (
	// ErrEmailTaken indicates a sign-up attempt with an already-registered email.
	ErrEmailTaken = errors.New("users: an account with this email already exists")
	// ErrInvalidCredentials indicates a sign-in attempt with an unknown email
	// or a wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("users: invalid email or password")
	// ErrAccountNotFound indicates a lookup for a missing account id.
	ErrAccountNotFound = errors.New("users: account not found")
	// ErrTermsNotAccepted indicates a sign-up attempt without the terms checkbox.
	ErrTermsNotAccepted = errors.New("users: the terms and conditions must be accepted")
	// ErrPasswordMismatch indicates the password confirmation differs.
	ErrPasswordMismatch = errors.New("users: passwords do not match")
)

// ServiceConfig describes the dependencies for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// IDProvider issues identifiers for new accounts.
type IDProvider interface {
	NewID() (string, error)
}

// Service manages credential-backed user accounts.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider IDProvider
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("users: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
	}, nil
}

// SignUpRequest carries the sign-up form fields.
type SignUpRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	AcceptedTerms   bool
}

// Validate applies the sign-up rules before any write: well-formed email,
// password strength, matching confirmation, and the terms checkbox.
func (r SignUpRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.By(validatePasswordStrength)),
	); err != nil {
		return err
	}
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if !r.AcceptedTerms {
		return ErrTermsNotAccepted
	}
	return nil
}

func validatePasswordStrength(value interface{}) error {
	password, _ := value.(string)
	if len(password) < minPasswordLength {
		return fmt.Errorf("must be at least %d characters", minPasswordLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return errors.New("must contain at least one letter and one digit")
	}
	return nil
}

// SignUp creates a new account. The email must not already be registered.
func (s *Service) SignUp(ctx context.Context, request SignUpRequest) (Account, error) {
	if err := request.Validate(); err != nil {
		return Account{}, err
	}

	email := normalizeEmail(request.Email)
	var existing Account
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return Account{}, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, err
	}

	accountID, err := s.idProvider.NewID()
	if err != nil {
		return Account{}, err
	}
	hash, err := auth.HashPassword(request.Password)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		AccountID:    accountID,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return Account{}, err
	}
	return account, nil
}

// SignIn verifies the credentials and returns the matching account.
func (s *Service) SignIn(ctx context.Context, email, password string) (Account, error) {
	var account Account
	err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	return account, nil
}

// GetByID returns the account for a validated session subject.
func (s *Service) GetByID(ctx context.Context, accountID string) (Account, error) {
	var account Account
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}
