package patterns

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/datatypes"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("patterns: invalid user id")
	// ErrInvalidPatternID indicates that a pattern identifier is empty or exceeds storage bounds.
	ErrInvalidPatternID = errors.New("patterns: invalid pattern id")
)

// UserID represents a validated user identifier.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserID, maxIdentifierLength)
	}
	return UserID(trimmed), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// PatternID represents a validated pattern identifier. It addresses draft
// patterns and published copies alike; the two live in separate tables.
type PatternID string

// NewPatternID validates raw input and returns a PatternID.
func NewPatternID(rawInput string) (PatternID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPatternID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidPatternID, maxIdentifierLength)
	}
	return PatternID(trimmed), nil
}

// String returns the underlying string identifier.
func (id PatternID) String() string {
	return string(id)
}

// CraftType enumerates the supported pattern crafts.
type CraftType string

const (
	CraftCrochet  CraftType = "crochet"
	CraftKnitting CraftType = "knitting"
)

// SkillLevel enumerates the supported pattern difficulty ratings.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Section is one ordered step of a pattern. Sections have no identity of
// their own; they are addressed by position in the owning pattern.
type Section struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
	PhotoURL     string `json:"photoUrl,omitempty"`
}

// Pattern models a user-owned draft pattern. Edits replace the whole
// document; the published flag alone does not make a pattern publicly
// visible, a PublishedPattern row does.
type Pattern struct {
	PatternID        string                       `gorm:"column:pattern_id;primaryKey;size:190;not null"`
	UserID           string                       `gorm:"column:user_id;size:190;not null;index:idx_patterns_user"`
	Title            string                       `gorm:"column:title;size:320;not null"`
	Craft            CraftType                    `gorm:"column:craft;size:32;not null"`
	Skill            SkillLevel                   `gorm:"column:skill_level;size:32;not null"`
	Sections         datatypes.JSONSlice[Section] `gorm:"column:sections"`
	Tags             datatypes.JSONSlice[string]  `gorm:"column:tags"`
	Materials        datatypes.JSONSlice[string]  `gorm:"column:materials"`
	Published        bool                         `gorm:"column:published;not null;default:false"`
	CreatedAtSeconds int64                        `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64                        `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Pattern) TableName() string {
	return "patterns"
}

// PublishedPattern is the public copy of a pattern created at publish time.
// It has its own identity and lifecycle; edits to the source draft do not
// propagate here.
type PublishedPattern struct {
	PublishedID        string                       `gorm:"column:published_id;primaryKey;size:190;not null"`
	SourcePatternID    string                       `gorm:"column:source_pattern_id;size:190;not null;index:idx_published_source"`
	UserID             string                       `gorm:"column:user_id;size:190;not null"`
	Title              string                       `gorm:"column:title;size:320;not null"`
	Craft              CraftType                    `gorm:"column:craft;size:32;not null"`
	Skill              SkillLevel                   `gorm:"column:skill_level;size:32;not null"`
	Sections           datatypes.JSONSlice[Section] `gorm:"column:sections"`
	Tags               datatypes.JSONSlice[string]  `gorm:"column:tags"`
	Materials          datatypes.JSONSlice[string]  `gorm:"column:materials"`
	Author             string                       `gorm:"column:author;size:320;not null"`
	CoverImageURL      string                       `gorm:"column:cover_image_url;size:512"`
	PublishedAtSeconds int64                        `gorm:"column:published_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (PublishedPattern) TableName() string {
	return "published_patterns"
}

// SaveRecord is a per-user bookmark of a published pattern. Its presence is
// the sole source of truth for "saved"; display fields are a snapshot taken
// at save time and may go stale.
type SaveRecord struct {
	SaveID         string                       `gorm:"column:save_id;primaryKey;size:381;not null"`
	UserID         string                       `gorm:"column:user_id;size:190;not null;index:idx_saves_user_pattern,priority:1"`
	PatternID      string                       `gorm:"column:pattern_id;size:190;not null;index:idx_saves_user_pattern,priority:2"`
	Title          string                       `gorm:"column:title;size:320;not null"`
	Author         string                       `gorm:"column:author;size:320"`
	Craft          CraftType                    `gorm:"column:craft;size:32;not null"`
	Skill          SkillLevel                   `gorm:"column:skill_level;size:32;not null"`
	Sections       datatypes.JSONSlice[Section] `gorm:"column:sections"`
	Tags           datatypes.JSONSlice[string]  `gorm:"column:tags"`
	Materials      datatypes.JSONSlice[string]  `gorm:"column:materials"`
	CoverImageURL  string                       `gorm:"column:cover_image_url;size:512"`
	SavedAtSeconds int64                        `gorm:"column:saved_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (SaveRecord) TableName() string {
	return "saved_patterns"
}

// SaveRecordID derives the deterministic composite key for a save record.
// Every write path uses this form; query-match deletion still covers rows
// created before the key was canonicalized.
func SaveRecordID(userID UserID, patternID PatternID) string {
	return userID.String() + "-" + patternID.String()
}

// Draft carries the fields a caller supplies when creating or replacing a
// pattern. Tags and materials arrive already split; the handler owns the
// comma-separated input format.
type Draft struct {
	Title     string
	Craft     CraftType
	Skill     SkillLevel
	Sections  []Section
	Tags      []string
	Materials []string
}

// Validate rejects drafts whose title or section fields are blank after
// trimming. Tags and materials are optional.
func (d Draft) Validate() error {
	if err := validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required.Error("title is required"), validation.By(notBlank)),
		validation.Field(&d.Craft, validation.Required, validation.In(CraftCrochet, CraftKnitting)),
		validation.Field(&d.Skill, validation.Required, validation.In(SkillBeginner, SkillIntermediate, SkillAdvanced)),
		validation.Field(&d.Sections, validation.Required.Error("at least one section is required")),
	); err != nil {
		return err
	}
	for index, section := range d.Sections {
		if strings.TrimSpace(section.Title) == "" || strings.TrimSpace(section.Instructions) == "" {
			return fmt.Errorf("section %d: title and instructions are required", index+1)
		}
	}
	return nil
}

func notBlank(value interface{}) error {
	text, _ := value.(string)
	if strings.TrimSpace(text) == "" {
		return errors.New("must not be blank")
	}
	return nil
}
