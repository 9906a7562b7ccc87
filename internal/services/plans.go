package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/types"
)

// PlanInput is the payload for creating or patching a planned activity.
// Pointer fields distinguish "absent" from "set to zero".
type PlanInput struct {
	DayDate         string   `json:"day_date"`
	SportType       string   `json:"sport_type"`
	ExtendedTypeID  *uint64  `json:"extended_type_id"`
	PlannedDistance *float64 `json:"planned_distance"`
	PlannedDuration *int     `json:"planned_duration"`
	Notes           *string  `json:"notes"`
}

// PlanView is a planned activity with its display metadata and, when
// matched, a summary of the fulfilling activity.
type PlanView struct {
	ID                uint64   `json:"id"`
	DayDate           string   `json:"day_date"`
	SportType         string   `json:"sport_type"`
	SportDisplayName  string   `json:"sport_display_name"`
	ExtendedTypeID    *uint64  `json:"extended_type_id,omitempty"`
	ExtendedTypeName  string   `json:"extended_type_name,omitempty"`
	ColorClass        string   `json:"color_class,omitempty"`
	PlannedDistance   *float64 `json:"planned_distance,omitempty"`
	PlannedDuration   *int     `json:"planned_duration,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	SortOrder         int      `json:"sort_order"`
	MatchedActivityID *uint64  `json:"matched_activity_id,omitempty"`
	MatchType         string   `json:"match_type,omitempty"`
	MatchedActivity   *MatchedActivitySummary `json:"matched_activity,omitempty"`
}

// MatchedActivitySummary is the slice of a recorded activity shown inline on
// a matched plan.
type MatchedActivitySummary struct {
	ID         uint64  `json:"id"`
	Name       string  `json:"name"`
	SportType  string  `json:"sport_type"`
	Distance   float64 `json:"distance"`
	MovingTime int     `json:"moving_time"`
}

func validDayDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// nextSortOrder computes the append position for a day, locking the day's
// rows so concurrent inserts cannot take the same slot.
func nextSortOrder(tx *gorm.DB, userID uint64, dayDate string) (int, error) {
	var maxOrder sql.NullInt64
	err := tx.Model(&models.PlannedActivity{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND day_date = ?", userID, dayDate).
		Select("MAX(sort_order)").
		Scan(&maxOrder).Error
	if err != nil {
		return 0, err
	}
	if !maxOrder.Valid {
		return 0, nil
	}
	return int(maxOrder.Int64) + 1, nil
}

// resolvePlanType enforces type consistency: an extended type must belong to
// the given base sport, or the base sport is derived from the extended type
// when omitted.
func resolvePlanType(tx *gorm.DB, sportType string, extendedTypeID *uint64) (string, *types.AppError) {
	if extendedTypeID == nil {
		if sportType == "" {
			return "", types.Validation("sport_type is required", "sport_type")
		}
		var count int64
		if err := tx.Model(&models.StandardActivityType{}).Where("name = ?", sportType).Count(&count).Error; err != nil {
			return "", types.Persistence(err)
		}
		if count == 0 {
			return "", types.Validation("unknown sport type", "sport_type")
		}
		return sportType, nil
	}

	var ext models.ExtendedActivityType
	if err := tx.Where("id = ? AND is_active = ?", *extendedTypeID, true).First(&ext).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", types.Validation("unknown extended type", "extended_type_id")
		}
		return "", types.Persistence(err)
	}
	if sportType != "" && sportType != ext.BaseSportType {
		return "", types.Validation("extended type does not belong to this sport", "extended_type_id")
	}
	return ext.BaseSportType, nil
}

// CreatePlan appends a planned activity to the end of the day's order.
func CreatePlan(db *gorm.DB, userID uint64, in PlanInput) (*models.PlannedActivity, *types.AppError) {
	if !validDayDate(in.DayDate) {
		return nil, types.Validation("day_date must be YYYY-MM-DD", "day_date")
	}

	var plan models.PlannedActivity
	var appErr *types.AppError

	err := db.Transaction(func(tx *gorm.DB) error {
		sport, typeErr := resolvePlanType(tx, in.SportType, in.ExtendedTypeID)
		if typeErr != nil {
			appErr = typeErr
			return typeErr
		}

		next, err := nextSortOrder(tx, userID, in.DayDate)
		if err != nil {
			return err
		}

		plan = models.PlannedActivity{
			UserID:          userID,
			DayDate:         in.DayDate,
			SportType:       sport,
			ExtendedTypeID:  in.ExtendedTypeID,
			PlannedDistance: in.PlannedDistance,
			PlannedDuration: in.PlannedDuration,
			SortOrder:       next,
		}
		if in.Notes != nil {
			plan.Notes = *in.Notes
		}
		return tx.Create(&plan).Error
	})
	if err != nil {
		if appErr != nil {
			return nil, appErr
		}
		return nil, types.Persistence(err)
	}

	return &plan, nil
}

// UpdatePlan applies a partial patch. Moving a plan to another day sends it
// to the end of that day's order.
func UpdatePlan(db *gorm.DB, userID, planID uint64, in PlanInput) (*models.PlannedActivity, *types.AppError) {
	var plan models.PlannedActivity
	var appErr *types.AppError

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", planID, userID).First(&plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				appErr = types.NotFound("planned activity not found")
				return appErr
			}
			return err
		}

		updates := map[string]interface{}{}

		if in.SportType != "" || in.ExtendedTypeID != nil {
			sportIn := in.SportType
			extIn := in.ExtendedTypeID
			if extIn == nil {
				// Changing the base sport alone detaches any extended type.
				updates["extended_type_id"] = nil
			}
			sport, typeErr := resolvePlanType(tx, sportIn, extIn)
			if typeErr != nil {
				appErr = typeErr
				return typeErr
			}
			updates["sport_type"] = sport
			if extIn != nil {
				updates["extended_type_id"] = *extIn
			}
		}

		if in.DayDate != "" && in.DayDate != plan.DayDate {
			if !validDayDate(in.DayDate) {
				appErr = types.Validation("day_date must be YYYY-MM-DD", "day_date")
				return appErr
			}
			if plan.MatchedActivityID != nil {
				appErr = types.Conflict("unmatch the activity before moving the plan to another day")
				return appErr
			}
			next, err := nextSortOrder(tx, userID, in.DayDate)
			if err != nil {
				return err
			}
			updates["day_date"] = in.DayDate
			updates["sort_order"] = next
		}

		if in.PlannedDistance != nil {
			updates["planned_distance"] = *in.PlannedDistance
		}
		if in.PlannedDuration != nil {
			updates["planned_duration"] = *in.PlannedDuration
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}

		if len(updates) == 0 {
			return nil
		}
		oldDay, oldOrder := plan.DayDate, plan.SortOrder
		if err := tx.Model(&plan).Updates(updates).Error; err != nil {
			return err
		}
		// Close the ordering gap left behind by a day move.
		if newDay, moved := updates["day_date"]; moved && newDay != oldDay {
			if err := tx.Model(&models.PlannedActivity{}).
				Where("user_id = ? AND day_date = ? AND sort_order > ?", userID, oldDay, oldOrder).
				Update("sort_order", gorm.Expr("sort_order - 1")).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", plan.ID).First(&plan).Error
	})
	if err != nil {
		if appErr != nil {
			return nil, appErr
		}
		return nil, types.Persistence(err)
	}

	return &plan, nil
}

// SetMatch links a plan to a recorded activity. Both rows must belong to the
// same user and fall on the same date, and the activity must not already
// fulfill another plan.
func SetMatch(db *gorm.DB, userID, planID, activityID uint64) *types.AppError {
	var appErr *types.AppError

	err := db.Transaction(func(tx *gorm.DB) error {
		var plan models.PlannedActivity
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", planID, userID).First(&plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				appErr = types.NotFound("planned activity not found")
				return appErr
			}
			return err
		}

		var act models.Activity
		if err := tx.Where("id = ? AND user_id = ?", activityID, userID).First(&act).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				appErr = types.NotFound("activity not found")
				return appErr
			}
			return err
		}

		if act.DayDate != plan.DayDate {
			appErr = types.Validation("activity and plan are on different days", "activity_id")
			return appErr
		}

		var taken int64
		if err := tx.Model(&models.PlannedActivity{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("matched_activity_id = ? AND id <> ?", activityID, planID).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			appErr = types.Conflict("this activity already fulfills another plan")
			return appErr
		}

		return tx.Model(&plan).Updates(map[string]interface{}{
			"matched_activity_id": activityID,
			"match_type":          models.MatchManual,
		}).Error
	})
	if err != nil {
		if appErr != nil {
			return appErr
		}
		return types.Persistence(err)
	}
	return nil
}

// ClearMatch unlinks a plan from its matched activity.
func ClearMatch(db *gorm.DB, userID, planID uint64) *types.AppError {
	res := db.Model(&models.PlannedActivity{}).
		Where("id = ? AND user_id = ?", planID, userID).
		Updates(map[string]interface{}{"matched_activity_id": nil, "match_type": ""})
	if res.Error != nil {
		return types.Persistence(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("planned activity not found")
	}
	return nil
}

// DeletePlan removes a planned activity and closes the ordering gap it
// leaves behind.
func DeletePlan(db *gorm.DB, userID, planID uint64) *types.AppError {
	var appErr *types.AppError

	err := db.Transaction(func(tx *gorm.DB) error {
		var plan models.PlannedActivity
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", planID, userID).First(&plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				appErr = types.NotFound("planned activity not found")
				return appErr
			}
			return err
		}

		if err := tx.Delete(&plan).Error; err != nil {
			return err
		}

		return tx.Model(&models.PlannedActivity{}).
			Where("user_id = ? AND day_date = ? AND sort_order > ?", userID, plan.DayDate, plan.SortOrder).
			Update("sort_order", gorm.Expr("sort_order - 1")).Error
	})
	if err != nil {
		if appErr != nil {
			return appErr
		}
		return types.Persistence(err)
	}
	return nil
}

// DuplicatePlan copies a plan onto each target date. Copies never carry the
// match and are appended to each day's order.
func DuplicatePlan(db *gorm.DB, userID, planID uint64, targetDates []string) ([]models.PlannedActivity, *types.AppError) {
	if len(targetDates) == 0 {
		return nil, types.Validation("at least one target date is required", "target_dates")
	}
	for _, d := range targetDates {
		if !validDayDate(d) {
			return nil, types.Validation(fmt.Sprintf("invalid target date %q", d), "target_dates")
		}
	}

	var copies []models.PlannedActivity
	var appErr *types.AppError

	err := db.Transaction(func(tx *gorm.DB) error {
		var src models.PlannedActivity
		if err := tx.Where("id = ? AND user_id = ?", planID, userID).First(&src).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				appErr = types.NotFound("planned activity not found")
				return appErr
			}
			return err
		}

		for _, date := range targetDates {
			next, err := nextSortOrder(tx, userID, date)
			if err != nil {
				return err
			}

			cp := models.PlannedActivity{
				UserID:          userID,
				DayDate:         date,
				SportType:       src.SportType,
				ExtendedTypeID:  src.ExtendedTypeID,
				PlannedDistance: src.PlannedDistance,
				PlannedDuration: src.PlannedDuration,
				Notes:           src.Notes,
				SortOrder:       next,
			}
			if err := tx.Create(&cp).Error; err != nil {
				return err
			}
			copies = append(copies, cp)
		}
		return nil
	})
	if err != nil {
		if appErr != nil {
			return nil, appErr
		}
		return nil, types.Persistence(err)
	}

	return copies, nil
}

// ReorderPlans renumbers a day's plans to the given id order. The id set
// must equal the day's current plan set exactly, so the result is always a
// dense permutation.
func ReorderPlans(db *gorm.DB, userID uint64, dayDate string, orderedIDs []uint64) *types.AppError {
	if !validDayDate(dayDate) {
		return types.Validation("day_date must be YYYY-MM-DD", "day_date")
	}

	var appErr *types.AppError
	err := db.Transaction(func(tx *gorm.DB) error {
		var current []models.PlannedActivity
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND day_date = ?", userID, dayDate).
			Find(&current).Error; err != nil {
			return err
		}

		if len(current) != len(orderedIDs) {
			appErr = types.Validation("ordered ids must cover every plan on the day exactly once", "ordered_ids")
			return appErr
		}
		existing := make(map[uint64]bool, len(current))
		for _, p := range current {
			existing[p.ID] = true
		}
		seen := make(map[uint64]bool, len(orderedIDs))
		for _, id := range orderedIDs {
			if !existing[id] || seen[id] {
				appErr = types.Validation("ordered ids must cover every plan on the day exactly once", "ordered_ids")
				return appErr
			}
			seen[id] = true
		}

		for pos, id := range orderedIDs {
			if err := tx.Model(&models.PlannedActivity{}).
				Where("id = ?", id).Update("sort_order", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if appErr != nil {
			return appErr
		}
		return types.Persistence(err)
	}
	return nil
}

// ListPlans returns a date range of plans (both bounds inclusive) in day and
// sort order, decorated with display metadata.
func ListPlans(db *gorm.DB, userID uint64, startDate, endDate string) ([]PlanView, *types.AppError) {
	if !validDayDate(startDate) || !validDayDate(endDate) {
		return nil, types.Validation("start and end dates must be YYYY-MM-DD", "date")
	}

	var plans []models.PlannedActivity
	if err := db.Where("user_id = ? AND day_date BETWEEN ? AND ?", userID, startDate, endDate).
		Order("day_date ASC, sort_order ASC").Find(&plans).Error; err != nil {
		return nil, types.Persistence(err)
	}

	views := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		view := PlanView{
			ID:                p.ID,
			DayDate:           p.DayDate,
			SportType:         p.SportType,
			SportDisplayName:  p.SportType,
			ExtendedTypeID:    p.ExtendedTypeID,
			PlannedDistance:   p.PlannedDistance,
			PlannedDuration:   p.PlannedDuration,
			Notes:             p.Notes,
			SortOrder:         p.SortOrder,
			MatchedActivityID: p.MatchedActivityID,
			MatchType:         p.MatchType,
		}

		var std models.StandardActivityType
		if err := db.Where("name = ?", p.SportType).First(&std).Error; err == nil {
			view.SportDisplayName = std.DisplayName
			view.ColorClass = std.Color
		}
		if p.ExtendedTypeID != nil {
			var ext models.ExtendedActivityType
			if err := db.Where("id = ?", *p.ExtendedTypeID).First(&ext).Error; err == nil {
				view.ExtendedTypeName = ext.CustomName
				if ext.ColorClass != "" {
					view.ColorClass = ext.ColorClass
				}
			}
		}
		if p.MatchedActivityID != nil {
			var act models.Activity
			if err := db.Where("id = ?", *p.MatchedActivityID).First(&act).Error; err == nil {
				view.MatchedActivity = &MatchedActivitySummary{
					ID:         act.ID,
					Name:       act.Name,
					SportType:  act.SportType,
					Distance:   act.Distance,
					MovingTime: act.MovingTime,
				}
			}
		}
		views = append(views, view)
	}
	return views, nil
}
