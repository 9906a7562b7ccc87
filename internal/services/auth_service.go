package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/types"
)

// RegisterInput is the payload for account creation. Registration is
// invitation-only: Token must reference a live invitation for Email.
type RegisterInput struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates a user from a pending invitation. The invitation is
// consumed and any relationships waiting on the invited email are resolved
// to the new user id, all in one transaction.
func Register(db *gorm.DB, in RegisterInput, sessionTTL time.Duration) (*models.User, *models.Session, *types.AppError) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, nil, types.Validation("email is required", "email")
	}
	if len(in.Password) < 8 {
		return nil, nil, types.Validation("password must be at least 8 characters", "password")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, nil, types.Validation("name is required", "name")
	}
	if in.Token == "" {
		return nil, nil, types.Validation("invitation token is required", "token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, types.Persistence(err)
	}

	var user models.User
	var appErr *types.AppError

	err = db.Transaction(func(tx *gorm.DB) error {
		inv, invErr := consumableInvitation(tx, in.Token, email)
		if invErr != nil {
			appErr = invErr
			return invErr
		}

		var existing models.User
		if err := tx.Where("email = ?", email).First(&existing).Error; err == nil {
			appErr = types.Conflict("an account with this email already exists")
			return appErr
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user = models.User{
			Email:        email,
			PasswordHash: string(hash),
			Name:         strings.TrimSpace(in.Name),
			Role:         inv.InvitedRole,
			IsActive:     true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		inv.Status = models.InvitationUsed
		inv.UsedAt = &now
		inv.UsedByUserID = &user.ID
		if err := tx.Save(inv).Error; err != nil {
			return err
		}

		// A registering coach may have pending relationships keyed by email
		// from athletes who invited them before the account existed.
		if user.Role == models.RoleCoach {
			if err := tx.Model(&models.CoachAthleteRelationship{}).
				Where("coach_email = ? AND coach_id IS NULL", email).
				Updates(map[string]interface{}{"coach_id": user.ID, "coach_email": nil}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if appErr != nil {
			return nil, nil, appErr
		}
		return nil, nil, types.Persistence(err)
	}

	sess, sessErr := CreateSession(db, user.ID, sessionTTL)
	if sessErr != nil {
		return nil, nil, sessErr
	}

	log.Printf("Registered %s account for user %d", user.Role, user.ID)
	return &user, sess, nil
}

// Login verifies credentials and opens a new session.
func Login(db *gorm.DB, email, password string, sessionTTL time.Duration) (*models.User, *models.Session, *types.AppError) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := db.Where("email = ? AND is_active = ?", email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, types.Authorization("invalid email or password")
		}
		return nil, nil, types.Persistence(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, types.Authorization("invalid email or password")
	}

	sess, sessErr := CreateSession(db, user.ID, sessionTTL)
	if sessErr != nil {
		return nil, nil, sessErr
	}
	return &user, sess, nil
}

// CreateSession opens a session row with a fresh opaque token.
func CreateSession(db *gorm.DB, userID uint64, ttl time.Duration) (*models.Session, *types.AppError) {
	sess := models.Session{
		Token:     uuid.New().String(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := db.Create(&sess).Error; err != nil {
		return nil, types.Persistence(err)
	}
	return &sess, nil
}

// ValidateSession resolves a cookie token to its session and user. Expired
// sessions are treated as absent.
func ValidateSession(db *gorm.DB, token string) (*models.Session, *models.User, *types.AppError) {
	if token == "" {
		return nil, nil, types.Authorization("authentication required")
	}

	var sess models.Session
	if err := db.Where("token = ?", token).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, types.Authorization("authentication required")
		}
		return nil, nil, types.Persistence(err)
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		return nil, nil, types.Authorization("session expired")
	}

	var user models.User
	if err := db.Where("id = ? AND is_active = ?", sess.UserID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, types.Authorization("authentication required")
		}
		return nil, nil, types.Persistence(err)
	}

	return &sess, &user, nil
}

// Logout removes the session row; the cookie becomes inert.
func Logout(db *gorm.DB, token string) *types.AppError {
	if err := db.Where("token = ?", token).Delete(&models.Session{}).Error; err != nil {
		return types.Persistence(err)
	}
	return nil
}
