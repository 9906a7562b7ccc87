package models

import (
	"time"
)

// Activity is a recorded workout, imported from the provider or entered
// manually. Annotation columns (Feeling*, CoachComment) are user-owned and
// never written by sync.
type Activity struct {
	ID                 uint64 `gorm:"primaryKey;autoIncrement"`
	UserID             uint64 `gorm:"not null;index;index:idx_user_external,unique"`
	ExternalID         *int64 `gorm:"index:idx_user_external,unique"`
	SportType          string `gorm:"size:64;not null;index"`
	ExtendedTypeID     *uint64
	Name               string `gorm:"size:255;not null"`
	Description        string `gorm:"type:text"`
	StartDate          time.Time
	StartDateLocal     time.Time
	DayDate            string `gorm:"type:char(10);not null;index"`
	Timezone           string `gorm:"size:64"`
	ElapsedTime        int
	MovingTime         int
	Distance           float64
	TotalElevationGain float64
	AverageSpeed       float64
	MaxSpeed           float64
	AverageHeartrate   *float64
	MaxHeartrate       *float64
	Calories           *float64
	Trainer            bool
	Commute            bool
	Manual             bool
	DeviceName         string `gorm:"size:255"`
	StartLatlng        JSON   `gorm:"type:json"`
	EndLatlng          JSON   `gorm:"type:json"`
	SplitsMetric       JSON   `gorm:"type:json"`
	Laps               JSON   `gorm:"type:json"`
	FeelingBeforeText  string `gorm:"type:text"`
	FeelingBeforePain  *int
	FeelingDuringText  string `gorm:"type:text"`
	FeelingDuringPain  *int
	FeelingAfterText   string `gorm:"type:text"`
	FeelingAfterPain   *int
	CoachComment       string `gorm:"type:text"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Day holds the per-date annotations for a user, created lazily on the
// first write to a date.
type Day struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	UserID       uint64 `gorm:"not null;index:idx_user_day,unique"`
	Date         string `gorm:"type:char(10);not null;index:idx_user_day,unique"`
	FeelingText  string `gorm:"type:text"`
	FeelingPain  *int
	CoachComment string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProviderToken is an athlete's OAuth token set for the external activity
// provider. One row per user.
type ProviderToken struct {
	ID                  uint64 `gorm:"primaryKey;autoIncrement"`
	UserID              uint64 `gorm:"uniqueIndex;not null"`
	AccessToken         string `gorm:"size:255;not null" json:"-"`
	RefreshToken        string `gorm:"size:255;not null" json:"-"`
	ExpiresAt           int64  `gorm:"not null"`
	ProviderAthleteID   int64
	ProviderAthleteName string `gorm:"size:255"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName overrides the table name for Activity
func (Activity) TableName() string {
	return "activities"
}

// TableName overrides the table name for Day
func (Day) TableName() string {
	return "days"
}

// TableName overrides the table name for ProviderToken
func (ProviderToken) TableName() string {
	return "provider_tokens"
}
