package tracking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yarnscape/backend/internal/patterns"
	"gorm.io/datatypes"
)

const maxIdentifierLength = 190

// ErrInvalidProjectID indicates that a project identifier is empty or exceeds storage bounds.
var ErrInvalidProjectID = errors.New("tracking: invalid project id")

// ProjectID represents a validated tracking project identifier.
type ProjectID string

// NewProjectID validates raw input and returns a ProjectID.
func NewProjectID(rawInput string) (ProjectID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidProjectID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidProjectID, maxIdentifierLength)
	}
	return ProjectID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ProjectID) String() string {
	return string(id)
}

// Project is a per-user progress ledger for one pattern. The pattern fields
// are a snapshot taken when tracking started; later edits to the source do
// not propagate. Progress saves replace the whole record, last writer wins.
type Project struct {
	ProjectID         string                                `gorm:"column:project_id;primaryKey;size:190;not null"`
	UserID            string                                `gorm:"column:user_id;size:190;not null;index:idx_projects_user_pattern,priority:1"`
	PatternID         string                                `gorm:"column:pattern_id;size:190;not null;index:idx_projects_user_pattern,priority:2"`
	Title             string                                `gorm:"column:title;size:320;not null"`
	Craft             patterns.CraftType                    `gorm:"column:craft;size:32;not null"`
	Skill             patterns.SkillLevel                   `gorm:"column:skill_level;size:32;not null"`
	Author            string                                `gorm:"column:author;size:320"`
	Sections          datatypes.JSONSlice[patterns.Section] `gorm:"column:sections"`
	Tags              datatypes.JSONSlice[string]           `gorm:"column:tags"`
	Materials         datatypes.JSONSlice[string]           `gorm:"column:materials"`
	Goal              string                                `gorm:"column:goal;size:512;not null;default:''"`
	TimeSpentHours    float64                               `gorm:"column:time_spent_hours;not null;default:0"`
	LastRowIndex      int                                   `gorm:"column:last_row_index;not null;default:0"`
	Notes             datatypes.JSONSlice[string]           `gorm:"column:notes"`
	PatternPhotos     datatypes.JSONSlice[string]           `gorm:"column:pattern_photos"`
	Completed         bool                                  `gorm:"column:completed;not null;default:false"`
	CreatedAtSeconds  int64                                 `gorm:"column:created_at_s;not null"`
	LastEditedSeconds int64                                 `gorm:"column:last_edited_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Project) TableName() string {
	return "tracking_projects"
}

// Snapshot carries the pattern fields copied into a new project. Callers
// build it from whichever collection they tracked from: a draft, a published
// copy, or a save record.
type Snapshot struct {
	Title     string
	Craft     patterns.CraftType
	Skill     patterns.SkillLevel
	Author    string
	Sections  []patterns.Section
	Tags      []string
	Materials []string
}

// Progress carries the full set of mutable fields written by a progress
// save. There is no partial-field update.
type Progress struct {
	Goal           string
	TimeSpentHours float64
	LastRowIndex   int
	Notes          []string
	PatternPhotos  []string
}

// Validate rejects progress payloads that would corrupt the ledger.
func (p Progress) Validate() error {
	if p.TimeSpentHours < 0 {
		return errors.New("time spent must not be negative")
	}
	if p.LastRowIndex < 0 {
		return errors.New("row index must not be negative")
	}
	return nil
}
