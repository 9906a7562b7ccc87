package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/types"
)

// AthleteView is an athlete row as listed to their coach.
type AthleteView struct {
	ID            uint64     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	ActivityCount int64      `json:"activity_count"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`
}

// CoachView is a coach row as listed to their athlete. For pending
// email-keyed invites Name is empty and Email is the invited address.
type CoachView struct {
	ID        *uint64   `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	InvitedAt time.Time `json:"invited_at"`
}

// EffectiveUserID resolves which user's data this request operates on.
// Athletes always act on their own data. A coach acts on the athlete
// selected in the session when that relationship is still active; a stale
// selection is cleared and rejected in the same call.
func EffectiveUserID(db *gorm.DB, sess *models.Session, user *models.User) (uint64, *types.AppError) {
	if user.Role != models.RoleCoach {
		return user.ID, nil
	}
	if sess.ViewingUserID == nil {
		return user.ID, nil
	}

	athleteID := *sess.ViewingUserID
	active, err := hasActiveRelationship(db, user.ID, athleteID)
	if err != nil {
		return 0, types.Persistence(err)
	}
	if !active {
		// Stale selection: the athlete revoked access after it was set.
		if err := db.Model(&models.Session{}).Where("id = ?", sess.ID).
			Update("viewing_user_id", nil).Error; err != nil {
			return 0, types.Persistence(err)
		}
		sess.ViewingUserID = nil
		return 0, types.Authorization("access to this athlete has been revoked")
	}

	return athleteID, nil
}

func hasActiveRelationship(db *gorm.DB, coachID, athleteID uint64) (bool, error) {
	var count int64
	err := db.Model(&models.CoachAthleteRelationship{}).
		Where("coach_id = ? AND athlete_id = ? AND status = ?", coachID, athleteID, models.RelationshipActive).
		Count(&count).Error
	return count > 0, err
}

// SetViewingUser selects an athlete for a coach session after re-validating
// the relationship.
func SetViewingUser(db *gorm.DB, sess *models.Session, user *models.User, athleteID uint64) *types.AppError {
	if user.Role != models.RoleCoach {
		return types.Authorization("only coaches can switch the viewed athlete")
	}

	active, err := hasActiveRelationship(db, user.ID, athleteID)
	if err != nil {
		return types.Persistence(err)
	}
	if !active {
		return types.Authorization("no active relationship with this athlete")
	}

	if err := db.Model(&models.Session{}).Where("id = ?", sess.ID).
		Update("viewing_user_id", athleteID).Error; err != nil {
		return types.Persistence(err)
	}
	sess.ViewingUserID = &athleteID
	return nil
}

// ClearViewingUser returns a coach session to its own scope.
func ClearViewingUser(db *gorm.DB, sess *models.Session) *types.AppError {
	if err := db.Model(&models.Session{}).Where("id = ?", sess.ID).
		Update("viewing_user_id", nil).Error; err != nil {
		return types.Persistence(err)
	}
	sess.ViewingUserID = nil
	return nil
}

// InviteCoach creates a pending relationship from an athlete to a coach,
// keyed by user id when the coach is registered and by email otherwise.
// An inactive prior relationship is reactivated to pending instead of
// inserting a second row.
func InviteCoach(db *gorm.DB, athlete *models.User, coachEmail string) (*models.CoachAthleteRelationship, *types.AppError) {
	if athlete.Role != models.RoleAthlete {
		return nil, types.Authorization("only athletes can invite coaches")
	}
	coachEmail = strings.ToLower(strings.TrimSpace(coachEmail))
	if coachEmail == "" || !strings.Contains(coachEmail, "@") {
		return nil, types.Validation("a valid coach email is required", "coach_email")
	}
	if coachEmail == athlete.Email {
		return nil, types.Validation("you cannot invite yourself as coach", "coach_email")
	}

	var rel models.CoachAthleteRelationship
	var appErr *types.AppError

	err := db.Transaction(func(tx *gorm.DB) error {
		var coach models.User
		var coachID *uint64
		err := tx.Where("email = ? AND is_active = ?", coachEmail, true).First(&coach).Error
		switch {
		case err == nil:
			if coach.Role != models.RoleCoach {
				appErr = types.Validation("this user is not a coach", "coach_email")
				return appErr
			}
			coachID = &coach.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			coachID = nil
		default:
			return err
		}

		// Look for any prior row under either key.
		var existing models.CoachAthleteRelationship
		q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("athlete_id = ?", athlete.ID)
		if coachID != nil {
			q = q.Where("coach_id = ? OR coach_email = ?", *coachID, coachEmail)
		} else {
			q = q.Where("coach_email = ?", coachEmail)
		}
		err = q.First(&existing).Error

		switch {
		case err == nil:
			if existing.Status != models.RelationshipInactive {
				appErr = types.Conflict("a relationship with this coach already exists")
				return appErr
			}
			// Removed relationships can be re-invited.
			existing.Status = models.RelationshipPending
			existing.CoachID = coachID
			existing.InvitedAt = time.Now().UTC()
			existing.AcceptedAt = nil
			if coachID == nil {
				existing.CoachEmail = &coachEmail
			} else {
				existing.CoachEmail = nil
			}
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			rel = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			rel = models.CoachAthleteRelationship{
				CoachID:   coachID,
				AthleteID: athlete.ID,
				Status:    models.RelationshipPending,
				InvitedAt: time.Now().UTC(),
			}
			if coachID == nil {
				rel.CoachEmail = &coachEmail
			}
			return tx.Create(&rel).Error
		default:
			return err
		}
	})
	if err != nil {
		if appErr != nil {
			return nil, appErr
		}
		return nil, types.Persistence(err)
	}

	return &rel, nil
}

// AcceptRelationship activates a pending relationship; the coach accepts a
// specific athlete's invite.
func AcceptRelationship(db *gorm.DB, coach *models.User, athleteID uint64) *types.AppError {
	if coach.Role != models.RoleCoach {
		return types.Authorization("only coaches can accept athlete invites")
	}

	var appErr *types.AppError
	err := db.Transaction(func(tx *gorm.DB) error {
		var rel models.CoachAthleteRelationship
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("coach_id = ? AND athlete_id = ? AND status = ?", coach.ID, athleteID, models.RelationshipPending).
			First(&rel).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				appErr = types.NotFound("no pending invite from this athlete")
				return appErr
			}
			return err
		}

		now := time.Now().UTC()
		rel.Status = models.RelationshipActive
		rel.AcceptedAt = &now
		return tx.Save(&rel).Error
	})
	if err != nil {
		if appErr != nil {
			return appErr
		}
		return types.Persistence(err)
	}
	return nil
}

// RejectRelationship declines a pending invite; the row goes inactive so the
// athlete may re-invite later.
func RejectRelationship(db *gorm.DB, coach *models.User, athleteID uint64) *types.AppError {
	if coach.Role != models.RoleCoach {
		return types.Authorization("only coaches can reject athlete invites")
	}

	res := db.Model(&models.CoachAthleteRelationship{}).
		Where("coach_id = ? AND athlete_id = ? AND status = ?", coach.ID, athleteID, models.RelationshipPending).
		Update("status", models.RelationshipInactive)
	if res.Error != nil {
		return types.Persistence(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("no pending invite from this athlete")
	}
	return nil
}

// RemoveCoach revokes a coach's access. The row is kept as inactive, which
// also invalidates any session still viewing the athlete.
func RemoveCoach(db *gorm.DB, athlete *models.User, coachID uint64) *types.AppError {
	if athlete.Role != models.RoleAthlete {
		return types.Authorization("only athletes can remove coaches")
	}

	res := db.Model(&models.CoachAthleteRelationship{}).
		Where("coach_id = ? AND athlete_id = ? AND status IN ?", coachID, athlete.ID,
			[]string{models.RelationshipPending, models.RelationshipActive}).
		Update("status", models.RelationshipInactive)
	if res.Error != nil {
		return types.Persistence(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("no relationship with this coach")
	}
	return nil
}

// ListAthletes returns a coach's active athletes with their activity counts.
func ListAthletes(db *gorm.DB, coach *models.User) ([]AthleteView, *types.AppError) {
	if coach.Role != models.RoleCoach {
		return nil, types.Authorization("only coaches have an athlete list")
	}

	var rels []models.CoachAthleteRelationship
	if err := db.Where("coach_id = ? AND status = ?", coach.ID, models.RelationshipActive).
		Find(&rels).Error; err != nil {
		return nil, types.Persistence(err)
	}

	views := make([]AthleteView, 0, len(rels))
	for _, rel := range rels {
		var athlete models.User
		if err := db.Where("id = ?", rel.AthleteID).First(&athlete).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, types.Persistence(err)
		}
		var count int64
		if err := db.Model(&models.Activity{}).Where("user_id = ?", athlete.ID).Count(&count).Error; err != nil {
			return nil, types.Persistence(err)
		}
		views = append(views, AthleteView{
			ID:            athlete.ID,
			Name:          athlete.Name,
			Email:         athlete.Email,
			ActivityCount: count,
			AcceptedAt:    rel.AcceptedAt,
		})
	}
	return views, nil
}

// ListCoaches returns an athlete's coach relationships, including pending
// email-keyed invites.
func ListCoaches(db *gorm.DB, athlete *models.User) ([]CoachView, *types.AppError) {
	if athlete.Role != models.RoleAthlete {
		return nil, types.Authorization("only athletes have a coach list")
	}

	var rels []models.CoachAthleteRelationship
	if err := db.Where("athlete_id = ? AND status IN ?", athlete.ID,
		[]string{models.RelationshipPending, models.RelationshipActive}).
		Order("invited_at DESC").Find(&rels).Error; err != nil {
		return nil, types.Persistence(err)
	}

	views := make([]CoachView, 0, len(rels))
	for _, rel := range rels {
		view := CoachView{
			ID:        rel.CoachID,
			Status:    rel.Status,
			InvitedAt: rel.InvitedAt,
		}
		if rel.CoachID != nil {
			var coach models.User
			if err := db.Where("id = ?", *rel.CoachID).First(&coach).Error; err == nil {
				view.Name = coach.Name
				view.Email = coach.Email
			}
		} else if rel.CoachEmail != nil {
			view.Email = *rel.CoachEmail
		}
		views = append(views, view)
	}
	return views, nil
}

// ListPendingInvites returns the athletes whose invites await this coach.
func ListPendingInvites(db *gorm.DB, coach *models.User) ([]AthleteView, *types.AppError) {
	if coach.Role != models.RoleCoach {
		return nil, types.Authorization("only coaches have pending invites")
	}

	var rels []models.CoachAthleteRelationship
	if err := db.Where("coach_id = ? AND status = ?", coach.ID, models.RelationshipPending).
		Order("invited_at DESC").Find(&rels).Error; err != nil {
		return nil, types.Persistence(err)
	}

	views := make([]AthleteView, 0, len(rels))
	for _, rel := range rels {
		var athlete models.User
		if err := db.Where("id = ?", rel.AthleteID).First(&athlete).Error; err != nil {
			continue
		}
		views = append(views, AthleteView{ID: athlete.ID, Name: athlete.Name, Email: athlete.Email})
	}
	return views, nil
}
