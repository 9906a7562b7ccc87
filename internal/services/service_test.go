package services_test

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stridelog/stridelog/internal/database"
	"github.com/stridelog/stridelog/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if err := database.SeedStandardTypes(db); err != nil {
		t.Fatalf("Failed to seed activity types: %v", err)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test " + role,
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return &user
}

func createAthlete(t *testing.T, db *gorm.DB, email string) *models.User {
	return createUser(t, db, email, models.RoleAthlete)
}

func createCoach(t *testing.T, db *gorm.DB, email string) *models.User {
	return createUser(t, db, email, models.RoleCoach)
}

func createActivity(t *testing.T, db *gorm.DB, userID uint64, dayDate string) *models.Activity {
	t.Helper()

	start, err := time.Parse("2006-01-02", dayDate)
	if err != nil {
		t.Fatalf("Bad day date %q: %v", dayDate, err)
	}
	act := models.Activity{
		UserID:         userID,
		SportType:      "Run",
		Name:           "Morning Run",
		StartDate:      start.UTC(),
		StartDateLocal: start,
		DayDate:        dayDate,
		MovingTime:     1800,
		Distance:       5000,
		Manual:         true,
	}
	if err := db.Create(&act).Error; err != nil {
		t.Fatalf("Failed to create activity: %v", err)
	}
	return &act
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
