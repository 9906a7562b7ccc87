package services_test

import (
	"testing"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/types"
)

func TestInviteCoachRegistered(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	coach := createCoach(t, db, "coach@example.com")

	rel, appErr := services.InviteCoach(db, athlete, "coach@example.com")
	if appErr != nil {
		t.Fatalf("InviteCoach failed: %v", appErr)
	}
	if rel.CoachID == nil || *rel.CoachID != coach.ID {
		t.Error("Expected the relationship keyed by the coach's user id")
	}
	if rel.CoachEmail != nil {
		t.Error("Expected no coach_email for a registered coach")
	}
	if rel.Status != models.RelationshipPending {
		t.Errorf("Expected status %q, got %q", models.RelationshipPending, rel.Status)
	}

	// A second invite while one exists is a conflict
	if _, appErr := services.InviteCoach(db, athlete, "coach@example.com"); appErr == nil || appErr.Kind != types.ErrConflict {
		t.Errorf("Expected conflict on duplicate invite, got %v", appErr)
	}
}

func TestInviteCoachValidation(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	coach := createCoach(t, db, "coach@example.com")
	otherAthlete := createAthlete(t, db, "friend@example.com")

	if _, appErr := services.InviteCoach(db, coach, "someone@example.com"); appErr == nil || appErr.Kind != types.ErrAuthorization {
		t.Errorf("Expected authorization error when a coach invites, got %v", appErr)
	}
	if _, appErr := services.InviteCoach(db, athlete, "athlete@example.com"); appErr == nil || appErr.Kind != types.ErrValidation {
		t.Errorf("Expected validation error on self-invite, got %v", appErr)
	}
	if _, appErr := services.InviteCoach(db, athlete, "not-an-email"); appErr == nil || appErr.Kind != types.ErrValidation {
		t.Errorf("Expected validation error on bad email, got %v", appErr)
	}
	if _, appErr := services.InviteCoach(db, athlete, otherAthlete.Email); appErr == nil || appErr.Kind != types.ErrValidation {
		t.Errorf("Expected validation error inviting a non-coach, got %v", appErr)
	}
}

func TestInviteCoachReactivatesInactive(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	coach := createCoach(t, db, "coach@example.com")

	first, appErr := services.InviteCoach(db, athlete, coach.Email)
	if appErr != nil {
		t.Fatalf("InviteCoach failed: %v", appErr)
	}
	if appErr := services.RejectRelationship(db, coach, athlete.ID); appErr != nil {
		t.Fatalf("RejectRelationship failed: %v", appErr)
	}

	second, appErr := services.InviteCoach(db, athlete, coach.Email)
	if appErr != nil {
		t.Fatalf("Re-invite after rejection failed: %v", appErr)
	}
	if second.ID != first.ID {
		t.Error("Expected the inactive row to be reactivated, not a new row inserted")
	}
	if second.Status != models.RelationshipPending {
		t.Errorf("Expected reactivated status %q, got %q", models.RelationshipPending, second.Status)
	}
	if second.AcceptedAt != nil {
		t.Error("Expected accepted_at cleared on re-invite")
	}

	var count int64
	db.Model(&models.CoachAthleteRelationship{}).
		Where("athlete_id = ?", athlete.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected a single relationship row, got %d", count)
	}
}

func TestAcceptRelationship(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	coach := createCoach(t, db, "coach@example.com")

	if appErr := services.AcceptRelationship(db, coach, athlete.ID); appErr == nil || appErr.Kind != types.ErrNotFound {
		t.Errorf("Expected not found accepting with no invite, got %v", appErr)
	}

	services.InviteCoach(db, athlete, coach.Email)
	if appErr := services.AcceptRelationship(db, coach, athlete.ID); appErr != nil {
		t.Fatalf("AcceptRelationship failed: %v", appErr)
	}

	var rel models.CoachAthleteRelationship
	db.Where("coach_id = ? AND athlete_id = ?", coach.ID, athlete.ID).First(&rel)
	if rel.Status != models.RelationshipActive {
		t.Errorf("Expected status %q, got %q", models.RelationshipActive, rel.Status)
	}
	if rel.AcceptedAt == nil {
		t.Error("Expected accepted_at to be set")
	}
}

func TestEffectiveUserIDScoping(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	coach := createCoach(t, db, "coach@example.com")

	athleteSess, _ := services.CreateSession(db, athlete.ID, testSessionTTL)
	coachSess, _ := services.CreateSession(db, coach.ID, testSessionTTL)

	// An athlete always acts on their own data
	id, appErr := services.EffectiveUserID(db, athleteSess, athlete)
	if appErr != nil || id != athlete.ID {
		t.Errorf("Expected athlete's own id %d, got %d (%v)", athlete.ID, id, appErr)
	}

	// A coach with no selection acts on their own data
	id, appErr = services.EffectiveUserID(db, coachSess, coach)
	if appErr != nil || id != coach.ID {
		t.Errorf("Expected coach's own id %d, got %d (%v)", coach.ID, id, appErr)
	}

	// Selecting an athlete requires an active relationship
	if appErr := services.SetViewingUser(db, coachSess, coach, athlete.ID); appErr == nil || appErr.Kind != types.ErrAuthorization {
		t.Errorf("Expected authorization error selecting without a relationship, got %v", appErr)
	}

	services.InviteCoach(db, athlete, coach.Email)
	services.AcceptRelationship(db, coach, athlete.ID)

	if appErr := services.SetViewingUser(db, coachSess, coach, athlete.ID); appErr != nil {
		t.Fatalf("SetViewingUser failed: %v", appErr)
	}
	id, appErr = services.EffectiveUserID(db, coachSess, coach)
	if appErr != nil || id != athlete.ID {
		t.Errorf("Expected viewed athlete id %d, got %d (%v)", athlete.ID, id, appErr)
	}
}

func TestEffectiveUserIDStaleSelection(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	coach := createCoach(t, db, "coach@example.com")
	coachSess, _ := services.CreateSession(db, coach.ID, testSessionTTL)

	services.InviteCoach(db, athlete, coach.Email)
	services.AcceptRelationship(db, coach, athlete.ID)
	services.SetViewingUser(db, coachSess, coach, athlete.ID)

	// The athlete revokes access while the coach's selection is still set
	if appErr := services.RemoveCoach(db, athlete, coach.ID); appErr != nil {
		t.Fatalf("RemoveCoach failed: %v", appErr)
	}

	_, appErr := services.EffectiveUserID(db, coachSess, coach)
	if appErr == nil || appErr.Kind != types.ErrAuthorization {
		t.Fatalf("Expected authorization error for a revoked selection, got %v", appErr)
	}
	if coachSess.ViewingUserID != nil {
		t.Error("Expected the stale selection cleared in memory")
	}

	var stored models.Session
	db.Where("id = ?", coachSess.ID).First(&stored)
	if stored.ViewingUserID != nil {
		t.Error("Expected the stale selection cleared in the database")
	}

	// After clearing, the coach falls back to their own scope
	id, appErr := services.EffectiveUserID(db, coachSess, coach)
	if appErr != nil || id != coach.ID {
		t.Errorf("Expected fallback to coach's own id, got %d (%v)", id, appErr)
	}
}

func TestListAthletesAndCoaches(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")
	coach := createCoach(t, db, "coach@example.com")

	services.InviteCoach(db, athlete, coach.Email)

	// Pending invite shows for the coach, not in the active list
	pending, appErr := services.ListPendingInvites(db, coach)
	if appErr != nil {
		t.Fatalf("ListPendingInvites failed: %v", appErr)
	}
	if len(pending) != 1 || pending[0].ID != athlete.ID {
		t.Errorf("Expected one pending invite from the athlete, got %+v", pending)
	}
	active, _ := services.ListAthletes(db, coach)
	if len(active) != 0 {
		t.Errorf("Expected no active athletes yet, got %+v", active)
	}

	services.AcceptRelationship(db, coach, athlete.ID)
	createActivity(t, db, athlete.ID, "2026-03-02")
	createActivity(t, db, athlete.ID, "2026-03-03")

	active, appErr = services.ListAthletes(db, coach)
	if appErr != nil {
		t.Fatalf("ListAthletes failed: %v", appErr)
	}
	if len(active) != 1 || active[0].ActivityCount != 2 {
		t.Errorf("Expected one athlete with 2 activities, got %+v", active)
	}

	coaches, appErr := services.ListCoaches(db, athlete)
	if appErr != nil {
		t.Fatalf("ListCoaches failed: %v", appErr)
	}
	if len(coaches) != 1 || coaches[0].Status != models.RelationshipActive || coaches[0].Email != coach.Email {
		t.Errorf("Expected one active coach, got %+v", coaches)
	}

	// Unregistered coach invites list with the invited email
	services.InviteCoach(db, athlete, "future@example.com")
	coaches, _ = services.ListCoaches(db, athlete)
	if len(coaches) != 2 {
		t.Fatalf("Expected two coach rows, got %d", len(coaches))
	}
	foundEmail := false
	for _, c := range coaches {
		if c.Email == "future@example.com" && c.ID == nil {
			foundEmail = true
		}
	}
	if !foundEmail {
		t.Error("Expected the email-keyed invite in the coach list")
	}
}
