package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stridelog/stridelog/internal/database"
	"github.com/stridelog/stridelog/internal/handlers"
	"github.com/stridelog/stridelog/internal/middleware"
	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/types"
)

func testErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		code = appErr.Status()
		message = appErr.Message
		errorType = string(appErr.Kind)
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  code,
		"message": message,
		"ok":      false,
		"type":    errorType,
	})
}

// setupTestApp builds a fiber app over an in-memory SQLite database with the
// routes under test wired the same way the server wires them.
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
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

	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	api := app.Group("/api")

	requireUser := middleware.RequireUser(db)
	requireCoach := middleware.RequireCoach(db)

	authHandler := &handlers.AuthHandler{DB: db, SessionTTL: time.Hour}
	planHandler := &handlers.PlanHandler{DB: db}
	accessHandler := &handlers.AccessHandler{DB: db}

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/status", requireUser, authHandler.Status)
	auth.Get("/invitation/:token", authHandler.ValidateInvitation)

	plan := api.Group("/plan", requireUser)
	plan.Get("/", planHandler.List)
	plan.Post("/", planHandler.Create)
	plan.Post("/reorder", planHandler.Reorder)
	plan.Post("/:id/duplicate", planHandler.Duplicate)

	api.Get("/athletes", requireCoach, accessHandler.Athletes)

	return app, db
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

func sessionCookie(t *testing.T, db *gorm.DB, userID uint64) *http.Cookie {
	t.Helper()
	sess, appErr := services.CreateSession(db, userID, time.Hour)
	if appErr != nil {
		t.Fatalf("Failed to create session: %v", appErr)
	}
	return &http.Cookie{Name: middleware.SessionCookie, Value: sess.Token}
}

func jsonRequest(method, target string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func jsonID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return result
}

func TestRegisterLoginFlow(t *testing.T) {
	app, db := setupTestApp(t)

	inviter := createUser(t, db, "admin@example.com", models.RoleCoach)
	inv := models.Invitation{
		Token:        uuid.New().String(),
		InviterID:    inviter.ID,
		InvitedEmail: "newathlete@example.com",
		InvitedRole:  models.RoleAthlete,
		Status:       models.InvitationPending,
		ExpiresAt:    time.Now().UTC().Add(24 * time.Hour),
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("Failed to create invitation: %v", err)
	}

	// The invitation token validates before use
	resp, err := app.Test(httptest.NewRequest("GET", "/api/auth/invitation/"+inv.Token, nil))
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 validating the token, got %d", resp.StatusCode)
	}

	// Register with the token
	resp, err = app.Test(jsonRequest("POST", "/api/auth/register", map[string]interface{}{
		"token":    inv.Token,
		"email":    "newathlete@example.com",
		"password": "longenough",
		"name":     "New Athlete",
	}))
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("Expected a session cookie on registration")
	}
	if !cookie.HttpOnly {
		t.Error("Expected the session cookie to be HTTP-only")
	}

	// The cookie authenticates the status route
	req := httptest.NewRequest("GET", "/api/auth/status", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	result := decodeBody(t, resp)
	user, _ := result["user"].(map[string]interface{})
	if user == nil || user["email"] != "newathlete@example.com" || user["role"] != models.RoleAthlete {
		t.Errorf("Unexpected status payload: %v", result)
	}

	// Logout invalidates the session
	req = jsonRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(cookie)
	if resp, err = app.Test(req); err != nil || resp.StatusCode != 200 {
		t.Fatalf("Logout failed: %v (status %d)", err, resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/auth/status", nil)
	req.AddCookie(cookie)
	resp, _ = app.Test(req)
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403 after logout, got %d", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	app, db := setupTestApp(t)
	createUser(t, db, "athlete@example.com", models.RoleAthlete)

	resp, err := app.Test(jsonRequest("POST", "/api/auth/login", map[string]string{
		"email":    "athlete@example.com",
		"password": "wrong",
	}))
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403, got %d", resp.StatusCode)
	}
	result := decodeBody(t, resp)
	if result["type"] != "authorization" {
		t.Errorf("Expected authorization error type, got %v", result["type"])
	}
}

func TestAuthenticationRequired(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/plan/?start_date=2026-03-01&end_date=2026-03-31", nil))
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403 without a session, got %d", resp.StatusCode)
	}
}

func TestCoachRouteRoleGating(t *testing.T) {
	app, db := setupTestApp(t)
	athlete := createUser(t, db, "athlete@example.com", models.RoleAthlete)
	coach := createUser(t, db, "coach@example.com", models.RoleCoach)

	req := httptest.NewRequest("GET", "/api/athletes", nil)
	req.AddCookie(sessionCookie(t, db, athlete.ID))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403 for an athlete on a coach route, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/athletes", nil)
	req.AddCookie(sessionCookie(t, db, coach.ID))
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 for a coach, got %d", resp.StatusCode)
	}
}

func TestPlanReorderAcceptsStringIDs(t *testing.T) {
	app, db := setupTestApp(t)
	athlete := createUser(t, db, "athlete@example.com", models.RoleAthlete)
	cookie := sessionCookie(t, db, athlete.ID)

	p0, appErr := services.CreatePlan(db, athlete.ID, services.PlanInput{DayDate: "2026-03-02", SportType: "Run"})
	if appErr != nil {
		t.Fatalf("CreatePlan failed: %v", appErr)
	}
	p1, appErr := services.CreatePlan(db, athlete.ID, services.PlanInput{DayDate: "2026-03-02", SportType: "Swim"})
	if appErr != nil {
		t.Fatalf("CreatePlan failed: %v", appErr)
	}

	// Ids arrive as a mix of JSON strings and numbers
	body := []byte(`{"day_date":"2026-03-02","ordered_ids":["` +
		jsonID(p1.ID) + `",` + jsonID(p0.ID) + `]}`)
	req := httptest.NewRequest("POST", "/api/plan/reorder", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var plans []models.PlannedActivity
	db.Where("user_id = ? AND day_date = ?", athlete.ID, "2026-03-02").
		Order("sort_order ASC").Find(&plans)
	if plans[0].ID != p1.ID || plans[1].ID != p0.ID {
		t.Errorf("Expected order [%d %d], got [%d %d]", p1.ID, p0.ID, plans[0].ID, plans[1].ID)
	}
}

func TestPlanDuplicateAcceptsSingleDate(t *testing.T) {
	app, db := setupTestApp(t)
	athlete := createUser(t, db, "athlete@example.com", models.RoleAthlete)
	cookie := sessionCookie(t, db, athlete.ID)

	plan, appErr := services.CreatePlan(db, athlete.ID, services.PlanInput{DayDate: "2026-03-02", SportType: "Run"})
	if appErr != nil {
		t.Fatalf("CreatePlan failed: %v", appErr)
	}

	// A bare string works where an array is also accepted
	req := jsonRequest("POST", "/api/plan/"+jsonID(plan.ID)+"/duplicate", map[string]interface{}{
		"target_dates": "2026-03-09",
	})
	req.AddCookie(cookie)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}
	result := decodeBody(t, resp)
	if result["count"] != float64(1) {
		t.Errorf("Expected one copy, got %v", result["count"])
	}
}
