package services

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/types"
)

// DayInput is the role-split annotation patch for a day.
type DayInput struct {
	FeelingText  *string `json:"feeling_text"`
	FeelingPain  *int    `json:"feeling_pain"`
	CoachComment *string `json:"coach_comment"`
}

// DayView is a day's annotations together with its activities.
type DayView struct {
	Date         string            `json:"date"`
	FeelingText  string            `json:"feeling_text,omitempty"`
	FeelingPain  *int              `json:"feeling_pain,omitempty"`
	CoachComment string            `json:"coach_comment,omitempty"`
	Activities   []models.Activity `json:"activities"`
}

// GetDay returns the date's annotations and activities for the effective
// user. A date with no Day row yet is returned empty, not as an error.
func GetDay(db *gorm.DB, userID uint64, date string) (*DayView, *types.AppError) {
	if !validDayDate(date) {
		return nil, types.Validation("date must be YYYY-MM-DD", "date")
	}

	view := &DayView{Date: date, Activities: []models.Activity{}}

	var day models.Day
	err := db.Where("user_id = ? AND date = ?", userID, date).First(&day).Error
	switch {
	case err == nil:
		view.FeelingText = day.FeelingText
		view.FeelingPain = day.FeelingPain
		view.CoachComment = day.CoachComment
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fine, the day has no annotations yet
	default:
		return nil, types.Persistence(err)
	}

	if err := db.Where("user_id = ? AND day_date = ?", userID, date).
		Order("start_date_local ASC").Find(&view.Activities).Error; err != nil {
		return nil, types.Persistence(err)
	}

	return view, nil
}

// UpsertDay writes day annotations with the same role split as activity
// annotations, creating the row on first write.
func UpsertDay(db *gorm.DB, actor *models.User, userID uint64, date string, in DayInput) (*models.Day, *types.AppError) {
	if !validDayDate(date) {
		return nil, types.Validation("date must be YYYY-MM-DD", "date")
	}
	if !validPain(in.FeelingPain) {
		return nil, types.Validation("pain values must be between 0 and 10", "feeling_pain")
	}
	if (in.FeelingText != nil || in.FeelingPain != nil) && actor.Role != models.RoleAthlete {
		return nil, types.Authorization("only the athlete can record feelings")
	}
	if in.CoachComment != nil && actor.Role != models.RoleCoach {
		return nil, types.Authorization("only a coach can leave coach comments")
	}
	if actor.Role == models.RoleAthlete && actor.ID != userID {
		return nil, types.Authorization("athletes can only annotate their own days")
	}

	var day models.Day
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND date = ?", userID, date).First(&day).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			day = models.Day{UserID: userID, Date: date}
			if err := tx.Create(&day).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.FeelingText != nil {
			updates["feeling_text"] = *in.FeelingText
		}
		if in.FeelingPain != nil {
			updates["feeling_pain"] = *in.FeelingPain
		}
		if in.CoachComment != nil {
			updates["coach_comment"] = *in.CoachComment
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&day).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", day.ID).First(&day).Error
	})
	if err != nil {
		return nil, types.Persistence(err)
	}
	return &day, nil
}
