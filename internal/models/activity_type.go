package models

import (
	"time"
)

// StandardActivityType is a sport in the shared taxonomy. Official entries
// are seeded at startup; unknown provider sports are auto-created with
// Category "Other" and IsOfficial=false.
type StandardActivityType struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"uniqueIndex;size:64;not null"`
	Category     string `gorm:"size:64;not null"`
	DisplayName  string `gorm:"size:128;not null"`
	Icon         string `gorm:"size:64"`
	Color        string `gorm:"size:32"`
	Description  string `gorm:"size:255"`
	IsOfficial   bool   `gorm:"not null;default:false"`
	DisplayOrder int    `gorm:"not null;default:999"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExtendedActivityType is a user-defined refinement of a standard sport
// ("Trail Run" on base "Run"). Rows are soft-deactivated, never removed,
// so existing activity references keep resolving.
type ExtendedActivityType struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	BaseSportType string `gorm:"size:64;not null;index"`
	CustomName    string `gorm:"uniqueIndex;size:128;not null"`
	Description   string `gorm:"size:255"`
	IconOverride  string `gorm:"size:64"`
	ColorClass    string `gorm:"size:32"`
	DisplayOrder  int    `gorm:"not null;default:0"`
	IsActive      bool   `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the table name for StandardActivityType
func (StandardActivityType) TableName() string {
	return "standard_activity_types"
}

// TableName overrides the table name for ExtendedActivityType
func (ExtendedActivityType) TableName() string {
	return "extended_activity_types"
}
