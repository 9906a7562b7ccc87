package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/types"
)

// invitationTTL is how long an invitation token stays redeemable.
const invitationTTL = 30 * 24 * time.Hour

// InvitationView is an invitation as listed to its sender.
type InvitationView struct {
	ID           uint64     `json:"id"`
	Token        string     `json:"token"`
	InvitedEmail string     `json:"invited_email"`
	InvitedRole  string     `json:"invited_role"`
	Status       string     `json:"status"`
	Expired      bool       `json:"expired"`
	ExpiresAt    time.Time  `json:"expires_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreateInvitation issues a registration token for an email address.
func CreateInvitation(db *gorm.DB, inviter *models.User, email, role string) (*models.Invitation, *types.AppError) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, types.Validation("a valid email is required", "email")
	}
	if role != models.RoleAthlete && role != models.RoleCoach {
		return nil, types.Validation("role must be athlete or coach", "role")
	}
	if email == inviter.Email {
		return nil, types.Validation("you cannot invite yourself", "email")
	}

	var inv models.Invitation
	var appErr *types.AppError

	err := db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.Where("email = ?", email).First(&existing).Error; err == nil {
			appErr = types.Conflict("a user with this email is already registered")
			return appErr
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var live models.Invitation
		err := tx.Where("invited_email = ? AND status = ? AND expires_at > ?",
			email, models.InvitationPending, time.Now().UTC()).First(&live).Error
		if err == nil {
			appErr = types.Conflict("a pending invitation for this email already exists")
			return appErr
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		inv = models.Invitation{
			Token:        uuid.New().String(),
			InviterID:    inviter.ID,
			InvitedEmail: email,
			InvitedRole:  role,
			Status:       models.InvitationPending,
			ExpiresAt:    time.Now().UTC().Add(invitationTTL),
		}
		return tx.Create(&inv).Error
	})
	if err != nil {
		if appErr != nil {
			return nil, appErr
		}
		return nil, types.Persistence(err)
	}

	return &inv, nil
}

// ValidateInvitation checks a token for redeemability without consuming it.
func ValidateInvitation(db *gorm.DB, token string) (*models.Invitation, *types.AppError) {
	return consumableInvitation(db, token, "")
}

// consumableInvitation loads a pending, unexpired invitation. When email is
// non-empty it must match the invited address. Lapsed invitations are marked
// expired on the way out.
func consumableInvitation(db *gorm.DB, token, email string) (*models.Invitation, *types.AppError) {
	var inv models.Invitation
	if err := db.Where("token = ?", token).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("invitation not found")
		}
		return nil, types.Persistence(err)
	}

	if inv.Status != models.InvitationPending {
		return nil, types.Validation("invitation is no longer valid", "token")
	}
	if time.Now().UTC().After(inv.ExpiresAt) {
		db.Model(&inv).Update("status", models.InvitationExpired)
		return nil, types.Validation("invitation has expired", "token")
	}
	if email != "" && inv.InvitedEmail != email {
		return nil, types.Validation("invitation was issued for a different email", "email")
	}

	return &inv, nil
}

// CancelInvitation withdraws a pending invitation. Only the inviter may
// cancel it.
func CancelInvitation(db *gorm.DB, inviterID, invitationID uint64) *types.AppError {
	var inv models.Invitation
	if err := db.Where("id = ?", invitationID).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NotFound("invitation not found")
		}
		return types.Persistence(err)
	}
	if inv.InviterID != inviterID {
		return types.Authorization("you can only cancel invitations you sent")
	}
	if inv.Status != models.InvitationPending {
		return types.Validation("only pending invitations can be cancelled", "status")
	}

	if err := db.Model(&inv).Update("status", models.InvitationCancelled).Error; err != nil {
		return types.Persistence(err)
	}
	return nil
}

// ListInvitations returns the invitations a user has sent, newest first.
func ListInvitations(db *gorm.DB, inviterID uint64) ([]InvitationView, *types.AppError) {
	var invs []models.Invitation
	if err := db.Where("inviter_id = ?", inviterID).Order("created_at DESC").Find(&invs).Error; err != nil {
		return nil, types.Persistence(err)
	}

	now := time.Now().UTC()
	views := make([]InvitationView, 0, len(invs))
	for _, inv := range invs {
		views = append(views, InvitationView{
			ID:           inv.ID,
			Token:        inv.Token,
			InvitedEmail: inv.InvitedEmail,
			InvitedRole:  inv.InvitedRole,
			Status:       inv.Status,
			Expired:      inv.Status == models.InvitationPending && now.After(inv.ExpiresAt),
			ExpiresAt:    inv.ExpiresAt,
			UsedAt:       inv.UsedAt,
			CreatedAt:    inv.CreatedAt,
		})
	}
	return views, nil
}
