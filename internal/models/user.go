package models

import (
	"time"
)

// User roles
const (
	RoleAthlete = "athlete"
	RoleCoach   = "coach"
)

// User represents an account, either an athlete or a coach
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Name         string `gorm:"size:255;not null"`
	Role         string `gorm:"size:16;not null;default:athlete"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a server-side login session, keyed by an opaque cookie token.
// ViewingUserID holds a coach's currently selected athlete.
type Session struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement"`
	Token         string  `gorm:"uniqueIndex;type:char(36);not null"`
	UserID        uint64  `gorm:"not null;index"`
	ViewingUserID *uint64 `gorm:""`
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// TableName overrides the table name for Session
func (Session) TableName() string {
	return "sessions"
}
