package inventory

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/yarnscape/backend/internal/patterns"
)

// Yarn is a stash entry: a yarn the user owns, with how many skeins remain.
type Yarn struct {
	YarnID          string `gorm:"column:yarn_id;primaryKey;size:190;not null" json:"id"`
	UserID          string `gorm:"column:user_id;size:190;not null;index:idx_yarn_user" json:"userId"`
	Name            string `gorm:"column:name;size:255;not null" json:"name"`
	FiberType       string `gorm:"column:fiber_type;size:255" json:"type"`
	Colour          string `gorm:"column:colour;size:255" json:"colour"`
	Quantity        int    `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAtSecond int64  `gorm:"column:created_at_s;not null" json:"createdAt"`
}

// TableName exposes the table backing yarn stash entries.
func (Yarn) TableName() string {
	return "inventory_yarn"
}

// Tool is a hooks-and-needles entry with an owned count.
type Tool struct {
	ToolID          string `gorm:"column:tool_id;primaryKey;size:190;not null" json:"id"`
	UserID          string `gorm:"column:user_id;size:190;not null;index:idx_tool_user" json:"userId"`
	Name            string `gorm:"column:name;size:255;not null" json:"name"`
	ToolType        string `gorm:"column:tool_type;size:255" json:"type"`
	Quantity        int    `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAtSecond int64  `gorm:"column:created_at_s;not null" json:"createdAt"`
}

// TableName exposes the table backing tool entries.
func (Tool) TableName() string {
	return "inventory_tools"
}

// YarnDraft carries the fields of a new stash entry prior to persistence.
type YarnDraft struct {
	UserID    patterns.UserID
	Name      string
	FiberType string
	Colour    string
	Quantity  int
}

// Validate rejects unusable stash entries before any write.
func (d YarnDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required.Error("yarn name must not be blank")),
		validation.Field(&d.Quantity, validation.Min(0).Error("quantity must not be negative")),
	)
}

// ToolDraft carries the fields of a new tool entry prior to persistence.
type ToolDraft struct {
	UserID   patterns.UserID
	Name     string
	ToolType string
	Quantity int
}

// Validate rejects unusable tool entries before any write.
func (d ToolDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required.Error("tool name must not be blank")),
		validation.Field(&d.Quantity, validation.Min(0).Error("quantity must not be negative")),
	)
}
