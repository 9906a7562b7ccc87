package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/hints"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/types"
)

// ActivityFilter narrows an activity listing.
type ActivityFilter struct {
	StartDate string
	EndDate   string
	SportType string
	Search    string
	Limit     int
	Offset    int
}

// ActivityStats are the aggregate totals for a user's filtered activities.
type ActivityStats struct {
	Count              int64    `json:"count"`
	TotalDistance      float64  `json:"total_distance"`
	TotalMovingTime    int64    `json:"total_moving_time"`
	TotalElevationGain float64  `json:"total_elevation_gain"`
	AverageDistance    float64  `json:"average_distance"`
	AveragePain        *float64 `json:"average_pain,omitempty"`
}

// ManualActivityInput is the payload for user-entered activities.
type ManualActivityInput struct {
	Name           string   `json:"name"`
	SportType      string   `json:"sport_type"`
	ExtendedTypeID *uint64  `json:"extended_type_id"`
	StartDateLocal string   `json:"start_date_local"`
	ElapsedTime    int      `json:"elapsed_time"`
	MovingTime     int      `json:"moving_time"`
	Distance       float64  `json:"distance"`
	Description    string   `json:"description"`
	Calories       *float64 `json:"calories"`
}

// AnnotationInput is the role-split annotation patch for an activity.
// Feeling fields are athlete-owned, CoachComment is coach-owned.
type AnnotationInput struct {
	FeelingBeforeText *string `json:"feeling_before_text"`
	FeelingBeforePain *int    `json:"feeling_before_pain"`
	FeelingDuringText *string `json:"feeling_during_text"`
	FeelingDuringPain *int    `json:"feeling_during_pain"`
	FeelingAfterText  *string `json:"feeling_after_text"`
	FeelingAfterPain  *int    `json:"feeling_after_pain"`
	CoachComment      *string `json:"coach_comment"`
}

func (in *AnnotationInput) hasFeelingFields() bool {
	return in.FeelingBeforeText != nil || in.FeelingBeforePain != nil ||
		in.FeelingDuringText != nil || in.FeelingDuringPain != nil ||
		in.FeelingAfterText != nil || in.FeelingAfterPain != nil
}

func validPain(p *int) bool {
	return p == nil || (*p >= 0 && *p <= 10)
}

// ListActivities returns the effective user's activities, newest first.
func ListActivities(db *gorm.DB, userID uint64, f ActivityFilter) ([]models.Activity, int64, *types.AppError) {
	q := db.Model(&models.Activity{}).Where("user_id = ?", userID)
	// The day-range scan is the hot query; steer MySQL onto the date index.
	if db.Dialector.Name() == "mysql" {
		q = q.Clauses(hints.UseIndex("idx_activities_day_date"))
	}

	if f.StartDate != "" {
		q = q.Where("day_date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		q = q.Where("day_date <= ?", f.EndDate)
	}
	if f.SportType != "" {
		q = q.Where("sport_type = ?", f.SportType)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, types.Persistence(err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var acts []models.Activity
	if err := q.Order("start_date_local DESC").Limit(limit).Offset(f.Offset).Find(&acts).Error; err != nil {
		return nil, 0, types.Persistence(err)
	}
	return acts, total, nil
}

// GetActivity fetches one activity scoped to the effective user.
func GetActivity(db *gorm.DB, userID, activityID uint64) (*models.Activity, *types.AppError) {
	var act models.Activity
	if err := db.Where("id = ? AND user_id = ?", activityID, userID).First(&act).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("activity not found")
		}
		return nil, types.Persistence(err)
	}
	return &act, nil
}

// CreateManualActivity stores a user-entered activity. It has no external
// id, so sync never touches it.
func CreateManualActivity(db *gorm.DB, userID uint64, in ManualActivityInput) (*models.Activity, *types.AppError) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, types.Validation("name is required", "name")
	}
	start, err := time.Parse("2006-01-02T15:04:05", in.StartDateLocal)
	if err != nil {
		if start, err = time.Parse("2006-01-02", in.StartDateLocal); err != nil {
			return nil, types.Validation("start_date_local must be YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS", "start_date_local")
		}
	}

	var act models.Activity
	var appErr *types.AppError

	txErr := db.Transaction(func(tx *gorm.DB) error {
		sport, typeErr := resolvePlanType(tx, in.SportType, in.ExtendedTypeID)
		if typeErr != nil {
			appErr = typeErr
			return typeErr
		}

		act = models.Activity{
			UserID:         userID,
			SportType:      sport,
			ExtendedTypeID: in.ExtendedTypeID,
			Name:           strings.TrimSpace(in.Name),
			Description:    in.Description,
			StartDate:      start.UTC(),
			StartDateLocal: start,
			DayDate:        start.Format("2006-01-02"),
			ElapsedTime:    in.ElapsedTime,
			MovingTime:     in.MovingTime,
			Distance:       in.Distance,
			Calories:       in.Calories,
			Manual:         true,
		}
		return tx.Create(&act).Error
	})
	if txErr != nil {
		if appErr != nil {
			return nil, appErr
		}
		return nil, types.Persistence(txErr)
	}
	return &act, nil
}

// UpdateAnnotations applies a role-split annotation patch. The actor is the
// logged-in user; userID is the effective (data-owning) user.
func UpdateAnnotations(db *gorm.DB, actor *models.User, userID, activityID uint64, in AnnotationInput) (*models.Activity, *types.AppError) {
	if !validPain(in.FeelingBeforePain) || !validPain(in.FeelingDuringPain) || !validPain(in.FeelingAfterPain) {
		return nil, types.Validation("pain values must be between 0 and 10", "pain")
	}

	if in.hasFeelingFields() && actor.Role != models.RoleAthlete {
		return nil, types.Authorization("only the athlete can record feelings")
	}
	if in.CoachComment != nil && actor.Role != models.RoleCoach {
		return nil, types.Authorization("only a coach can leave coach comments")
	}
	if actor.Role == models.RoleAthlete && actor.ID != userID {
		return nil, types.Authorization("athletes can only annotate their own activities")
	}

	var act models.Activity
	if err := db.Where("id = ? AND user_id = ?", activityID, userID).First(&act).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("activity not found")
		}
		return nil, types.Persistence(err)
	}

	updates := map[string]interface{}{}
	if in.FeelingBeforeText != nil {
		updates["feeling_before_text"] = *in.FeelingBeforeText
	}
	if in.FeelingBeforePain != nil {
		updates["feeling_before_pain"] = *in.FeelingBeforePain
	}
	if in.FeelingDuringText != nil {
		updates["feeling_during_text"] = *in.FeelingDuringText
	}
	if in.FeelingDuringPain != nil {
		updates["feeling_during_pain"] = *in.FeelingDuringPain
	}
	if in.FeelingAfterText != nil {
		updates["feeling_after_text"] = *in.FeelingAfterText
	}
	if in.FeelingAfterPain != nil {
		updates["feeling_after_pain"] = *in.FeelingAfterPain
	}
	if in.CoachComment != nil {
		updates["coach_comment"] = *in.CoachComment
	}

	if len(updates) == 0 {
		return &act, nil
	}
	if err := db.Model(&act).Updates(updates).Error; err != nil {
		return nil, types.Persistence(err)
	}
	if err := db.Where("id = ?", act.ID).First(&act).Error; err != nil {
		return nil, types.Persistence(err)
	}
	return &act, nil
}

// DeleteActivity removes an activity and clears any plan match pointing at it.
func DeleteActivity(db *gorm.DB, userID, activityID uint64) *types.AppError {
	var appErr *types.AppError
	err := db.Transaction(func(tx *gorm.DB) error {
		var act models.Activity
		if err := tx.Where("id = ? AND user_id = ?", activityID, userID).First(&act).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				appErr = types.NotFound("activity not found")
				return appErr
			}
			return err
		}

		if err := tx.Model(&models.PlannedActivity{}).
			Where("matched_activity_id = ?", act.ID).
			Updates(map[string]interface{}{"matched_activity_id": nil, "match_type": ""}).Error; err != nil {
			return err
		}

		return tx.Delete(&act).Error
	})
	if err != nil {
		if appErr != nil {
			return appErr
		}
		return types.Persistence(err)
	}
	return nil
}

// GetActivityStats aggregates totals over the filtered activity set.
func GetActivityStats(db *gorm.DB, userID uint64, f ActivityFilter) (*ActivityStats, *types.AppError) {
	q := db.Model(&models.Activity{}).Where("user_id = ?", userID)
	if f.StartDate != "" {
		q = q.Where("day_date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		q = q.Where("day_date <= ?", f.EndDate)
	}
	if f.SportType != "" {
		q = q.Where("sport_type = ?", f.SportType)
	}

	type row struct {
		Count              int64
		TotalDistance      float64
		TotalMovingTime    int64
		TotalElevationGain float64
		AveragePain        *float64
	}
	var r row
	err := q.Select(
		"COUNT(*) AS count, " +
			"COALESCE(SUM(distance), 0) AS total_distance, " +
			"COALESCE(SUM(moving_time), 0) AS total_moving_time, " +
			"COALESCE(SUM(total_elevation_gain), 0) AS total_elevation_gain, " +
			"AVG(feeling_after_pain) AS average_pain").
		Scan(&r).Error
	if err != nil {
		return nil, types.Persistence(err)
	}

	stats := &ActivityStats{
		Count:              r.Count,
		TotalDistance:      r.TotalDistance,
		TotalMovingTime:    r.TotalMovingTime,
		TotalElevationGain: r.TotalElevationGain,
		AveragePain:        r.AveragePain,
	}
	if r.Count > 0 {
		stats.AverageDistance = r.TotalDistance / float64(r.Count)
	}
	return stats, nil
}
