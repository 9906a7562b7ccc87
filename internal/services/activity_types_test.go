package services_test

import (
	"testing"

	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/types"
)

func TestListStandardTypesSeeded(t *testing.T) {
	db := setupTestDB(t)

	list, appErr := services.ListStandardTypes(db)
	if appErr != nil {
		t.Fatalf("ListStandardTypes failed: %v", appErr)
	}
	if len(list) == 0 {
		t.Fatal("Expected the seeded taxonomy to be non-empty")
	}
	for _, st := range list {
		if !st.IsOfficial {
			t.Errorf("Expected only official seeded types, got %+v", st)
		}
	}

	grouped, appErr := services.ListStandardTypesGrouped(db)
	if appErr != nil {
		t.Fatalf("ListStandardTypesGrouped failed: %v", appErr)
	}
	total := 0
	for _, g := range grouped {
		total += len(g)
	}
	if total != len(list) {
		t.Errorf("Expected grouping to preserve all %d types, got %d", len(list), total)
	}
}

func TestExtendedTypeLifecycle(t *testing.T) {
	db := setupTestDB(t)

	if _, appErr := services.CreateExtendedType(db, services.ExtendedTypeInput{BaseSportType: "Quidditch", CustomName: "Seeker Drills"}); appErr == nil || appErr.Kind != types.ErrValidation {
		t.Errorf("Expected validation error for unknown base sport, got %v", appErr)
	}

	ext, appErr := services.CreateExtendedType(db, services.ExtendedTypeInput{
		BaseSportType: "Run",
		CustomName:    "Tempo Run",
		ColorClass:    strPtr("amber"),
	})
	if appErr != nil {
		t.Fatalf("CreateExtendedType failed: %v", appErr)
	}

	if _, appErr := services.CreateExtendedType(db, services.ExtendedTypeInput{BaseSportType: "Ride", CustomName: "Tempo Run"}); appErr == nil || appErr.Kind != types.ErrConflict {
		t.Errorf("Expected conflict for duplicate name, got %v", appErr)
	}

	updated, appErr := services.UpdateExtendedType(db, ext.ID, services.ExtendedTypeInput{Description: strPtr("threshold work")})
	if appErr != nil {
		t.Fatalf("UpdateExtendedType failed: %v", appErr)
	}
	if updated.Description != "threshold work" || updated.ColorClass != "amber" {
		t.Errorf("Expected a partial patch, got %+v", updated)
	}

	if appErr := services.DeactivateExtendedType(db, ext.ID); appErr != nil {
		t.Fatalf("DeactivateExtendedType failed: %v", appErr)
	}
	// Deactivated types leave the listing and reject further edits
	grouped, _ := services.ListExtendedTypes(db)
	if len(grouped["Run"]) != 0 {
		t.Error("Expected the deactivated type hidden from the listing")
	}
	if _, appErr := services.UpdateExtendedType(db, ext.ID, services.ExtendedTypeInput{CustomName: "Renamed"}); appErr == nil || appErr.Kind != types.ErrNotFound {
		t.Errorf("Expected not found editing a deactivated type, got %v", appErr)
	}
	if appErr := services.DeactivateExtendedType(db, ext.ID); appErr == nil || appErr.Kind != types.ErrNotFound {
		t.Errorf("Expected not found deactivating twice, got %v", appErr)
	}

	restored, appErr := services.RestoreExtendedType(db, ext.ID)
	if appErr != nil {
		t.Fatalf("RestoreExtendedType failed: %v", appErr)
	}
	if !restored.IsActive {
		t.Error("Expected the type active again")
	}
	grouped, _ = services.ListExtendedTypes(db)
	if len(grouped["Run"]) != 1 {
		t.Error("Expected the restored type back in the listing")
	}
}

func TestDeactivatedTypeKeepsResolvingReferences(t *testing.T) {
	db := setupTestDB(t)
	athlete := createAthlete(t, db, "athlete@example.com")

	ext, _ := services.CreateExtendedType(db, services.ExtendedTypeInput{BaseSportType: "Run", CustomName: "Fartlek"})
	plan, appErr := services.CreatePlan(db, athlete.ID, services.PlanInput{DayDate: "2026-03-02", ExtendedTypeID: &ext.ID})
	if appErr != nil {
		t.Fatalf("CreatePlan failed: %v", appErr)
	}

	services.DeactivateExtendedType(db, ext.ID)

	// Existing references still render their metadata
	views, appErr := services.ListPlans(db, athlete.ID, "2026-03-02", "2026-03-02")
	if appErr != nil {
		t.Fatalf("ListPlans failed: %v", appErr)
	}
	if len(views) != 1 || views[0].ID != plan.ID {
		t.Fatalf("Expected the plan listed, got %+v", views)
	}
	if views[0].ExtendedTypeName != "Fartlek" {
		t.Errorf("Expected the inactive type's name to keep resolving, got %q", views[0].ExtendedTypeName)
	}

	// New plans cannot reference the deactivated type
	if _, appErr := services.CreatePlan(db, athlete.ID, services.PlanInput{DayDate: "2026-03-03", ExtendedTypeID: &ext.ID}); appErr == nil || appErr.Kind != types.ErrValidation {
		t.Errorf("Expected validation error referencing a deactivated type, got %v", appErr)
	}
}
