package models

import (
	"time"
)

// Relationship statuses
const (
	RelationshipPending  = "pending"
	RelationshipActive   = "active"
	RelationshipInactive = "inactive"
)

// Invitation statuses
const (
	InvitationPending   = "pending"
	InvitationUsed      = "used"
	InvitationExpired   = "expired"
	InvitationCancelled = "cancelled"
)

// CoachAthleteRelationship links a coach to an athlete. While the coach has
// no account yet the row is keyed by CoachEmail; registration resolves it to
// CoachID. Exactly one of CoachID/CoachEmail is set.
type CoachAthleteRelationship struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	CoachID    *uint64 `gorm:"index:idx_coach_athlete"`
	CoachEmail *string `gorm:"size:255;index"`
	AthleteID  uint64  `gorm:"not null;index:idx_coach_athlete"`
	Status     string  `gorm:"size:16;not null;default:pending"`
	InvitedAt  time.Time
	AcceptedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Invitation is a single-use registration token sent to an email address.
type Invitation struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Token        string `gorm:"uniqueIndex;size:64;not null"`
	InviterID    uint64 `gorm:"not null;index"`
	InvitedEmail string `gorm:"size:255;not null;index"`
	InvitedRole  string `gorm:"size:16;not null"`
	Status       string `gorm:"size:16;not null;default:pending"`
	ExpiresAt    time.Time
	UsedAt       *time.Time
	UsedByUserID *uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the table name for CoachAthleteRelationship
func (CoachAthleteRelationship) TableName() string {
	return "coach_athlete_relationships"
}

// TableName overrides the table name for Invitation
func (Invitation) TableName() string {
	return "invitations"
}
