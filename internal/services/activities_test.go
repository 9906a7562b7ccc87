package services_test

import (
	"testing"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/types"
)

func TestCreateManualActivity(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")

	act, appErr := services.CreateManualActivity(db, athlete.ID, services.ManualActivityInput{
		Name:           "Track Intervals",
		SportType:      "Run",
		StartDateLocal: "2026-03-02T18:30:00",
		MovingTime:     2400,
		Distance:       8000,
	})
	if appErr != nil {
		t.Fatalf("CreateManualActivity failed: %v", appErr)
	}
	if !act.Manual {
		t.Error("Expected the activity flagged manual")
	}
	if act.ExternalID != nil {
		t.Error("Expected no external id on a manual activity")
	}
	if act.DayDate != "2026-03-02" {
		t.Errorf("Expected day date 2026-03-02, got %q", act.DayDate)
	}

	// Date-only form works too
	act, appErr = services.CreateManualActivity(db, athlete.ID, services.ManualActivityInput{
		Name:           "Easy Spin",
		SportType:      "Ride",
		StartDateLocal: "2026-03-03",
	})
	if appErr != nil {
		t.Fatalf("CreateManualActivity with date-only failed: %v", appErr)
	}
	if act.DayDate != "2026-03-03" {
		t.Errorf("Expected day date 2026-03-03, got %q", act.DayDate)
	}

	cases := []services.ManualActivityInput{
		{SportType: "Run", StartDateLocal: "2026-03-02"},
		{Name: "X", SportType: "Run", StartDateLocal: "yesterday"},
		{Name: "X", SportType: "Juggling", StartDateLocal: "2026-03-02"},
	}
	for i, in := range cases {
		if _, appErr := services.CreateManualActivity(db, athlete.ID, in); appErr == nil || appErr.Kind != types.ErrValidation {
			t.Errorf("Case %d: expected validation error, got %v", i, appErr)
		}
	}
}

func TestUpdateAnnotationsRoleSplit(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	coach := createCoach(t, db, "coach@example.com")
	act := createActivity(t, db, athlete.ID, "2026-03-02")

	// The athlete records feelings on their own activity
	updated, appErr := services.UpdateAnnotations(db, athlete, athlete.ID, act.ID, services.AnnotationInput{
		FeelingAfterText: strPtr("tired but good"),
		FeelingAfterPain: intPtr(3),
	})
	if appErr != nil {
		t.Fatalf("Athlete annotation failed: %v", appErr)
	}
	if updated.FeelingAfterText != "tired but good" || updated.FeelingAfterPain == nil || *updated.FeelingAfterPain != 3 {
		t.Errorf("Expected feelings stored, got %+v", updated)
	}

	// A coach cannot write feelings
	_, appErr = services.UpdateAnnotations(db, coach, athlete.ID, act.ID, services.AnnotationInput{
		FeelingDuringText: strPtr("hijacked"),
	})
	if appErr == nil || appErr.Kind != types.ErrAuthorization {
		t.Errorf("Expected authorization error for coach feelings, got %v", appErr)
	}

	// An athlete cannot write the coach comment
	_, appErr = services.UpdateAnnotations(db, athlete, athlete.ID, act.ID, services.AnnotationInput{
		CoachComment: strPtr("self-coaching"),
	})
	if appErr == nil || appErr.Kind != types.ErrAuthorization {
		t.Errorf("Expected authorization error for athlete coach comment, got %v", appErr)
	}

	// The coach writes the coach comment
	updated, appErr = services.UpdateAnnotations(db, coach, athlete.ID, act.ID, services.AnnotationInput{
		CoachComment: strPtr("good pacing"),
	})
	if appErr != nil {
		t.Fatalf("Coach comment failed: %v", appErr)
	}
	if updated.CoachComment != "good pacing" {
		t.Errorf("Expected coach comment stored, got %q", updated.CoachComment)
	}
	if updated.FeelingAfterText != "tired but good" {
		t.Error("Expected the athlete's feelings untouched by the coach write")
	}
}

func TestUpdateAnnotationsValidation(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	other := createAthlete(t, db, "other@example.com")
	act := createActivity(t, db, athlete.ID, "2026-03-02")

	_, appErr := services.UpdateAnnotations(db, athlete, athlete.ID, act.ID, services.AnnotationInput{
		FeelingAfterPain: intPtr(11),
	})
	if appErr == nil || appErr.Kind != types.ErrValidation {
		t.Errorf("Expected validation error for pain > 10, got %v", appErr)
	}

	_, appErr = services.UpdateAnnotations(db, other, athlete.ID, act.ID, services.AnnotationInput{
		FeelingAfterPain: intPtr(2),
	})
	if appErr == nil || appErr.Kind != types.ErrAuthorization {
		t.Errorf("Expected authorization error annotating another athlete's data, got %v", appErr)
	}
}

func TestListActivitiesFiltering(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	other := createAthlete(t, db, "other@example.com")

	createActivity(t, db, athlete.ID, "2026-03-01")
	createActivity(t, db, athlete.ID, "2026-03-02")
	ride := createActivity(t, db, athlete.ID, "2026-03-03")
	db.Model(ride).Updates(map[string]interface{}{"sport_type": "Ride", "name": "Hill Repeats"})
	createActivity(t, db, other.ID, "2026-03-02")

	acts, total, appErr := services.ListActivities(db, athlete.ID, services.ActivityFilter{})
	if appErr != nil {
		t.Fatalf("ListActivities failed: %v", appErr)
	}
	if total != 3 || len(acts) != 3 {
		t.Errorf("Expected 3 activities for the athlete, got %d (total %d)", len(acts), total)
	}

	_, total, _ = services.ListActivities(db, athlete.ID, services.ActivityFilter{StartDate: "2026-03-02", EndDate: "2026-03-02"})
	if total != 1 {
		t.Errorf("Expected 1 activity in the date range, got %d", total)
	}

	_, total, _ = services.ListActivities(db, athlete.ID, services.ActivityFilter{SportType: "Ride"})
	if total != 1 {
		t.Errorf("Expected 1 ride, got %d", total)
	}

	_, total, _ = services.ListActivities(db, athlete.ID, services.ActivityFilter{Search: "hill"})
	if total != 1 {
		t.Errorf("Expected 1 search hit, got %d", total)
	}
}

func TestDeleteActivityClearsMatch(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	act := createActivity(t, db, athlete.ID, "2026-03-02")
	plan := createPlan(t, db, athlete.ID, "2026-03-02")

	services.SetMatch(db, athlete.ID, plan.ID, act.ID)
	if appErr := services.DeleteActivity(db, athlete.ID, act.ID); appErr != nil {
		t.Fatalf("DeleteActivity failed: %v", appErr)
	}

	var stored models.PlannedActivity
	db.Where("id = ?", plan.ID).First(&stored)
	if stored.MatchedActivityID != nil || stored.MatchType != "" {
		t.Error("Expected the plan's match cleared when the activity was deleted")
	}
}

func TestGetActivityStats(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")

	a := createActivity(t, db, athlete.ID, "2026-03-01")
	b := createActivity(t, db, athlete.ID, "2026-03-02")
	db.Model(a).Update("feeling_after_pain", 2)
	db.Model(b).Update("feeling_after_pain", 4)

	stats, appErr := services.GetActivityStats(db, athlete.ID, services.ActivityFilter{})
	if appErr != nil {
		t.Fatalf("GetActivityStats failed: %v", appErr)
	}
	if stats.Count != 2 {
		t.Errorf("Expected count 2, got %d", stats.Count)
	}
	if stats.TotalDistance != 10000 {
		t.Errorf("Expected total distance 10000, got %v", stats.TotalDistance)
	}
	if stats.AverageDistance != 5000 {
		t.Errorf("Expected average distance 5000, got %v", stats.AverageDistance)
	}
	if stats.AveragePain == nil || *stats.AveragePain != 3 {
		t.Errorf("Expected average pain 3, got %v", stats.AveragePain)
	}

	stats, _ = services.GetActivityStats(db, athlete.ID, services.ActivityFilter{StartDate: "2026-03-02"})
	if stats.Count != 1 || stats.TotalDistance != 5000 {
		t.Errorf("Expected filtered stats over one activity, got %+v", stats)
	}
}
