package models

import (
	"time"
)

// Match types for planned activities
const (
	MatchManual = "manual"
	MatchAuto   = "auto"
)

// PlannedActivity is one planned workout on a user's day. SortOrder is dense
// (0..n-1) within (UserID, DayDate). MatchedActivityID links the plan to the
// recorded activity that fulfilled it; an activity can match at most one plan.
type PlannedActivity struct {
	ID                uint64 `gorm:"primaryKey;autoIncrement"`
	UserID            uint64 `gorm:"not null;index:idx_user_plan_day"`
	DayDate           string `gorm:"type:char(10);not null;index:idx_user_plan_day"`
	SportType         string `gorm:"size:64;not null"`
	ExtendedTypeID    *uint64
	PlannedDistance   *float64
	PlannedDuration   *int
	Notes             string `gorm:"type:text"`
	SortOrder         int    `gorm:"not null;default:0"`
	MatchedActivityID *uint64 `gorm:"uniqueIndex"`
	MatchType         string  `gorm:"size:16"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName overrides the table name for PlannedActivity
func (PlannedActivity) TableName() string {
	return "planned_activities"
}
