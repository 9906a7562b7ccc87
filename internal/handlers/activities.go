package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/middleware"
	"github.com/stridelog/stridelog/internal/provider"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/utils"
)

// ActivityHandler handles activity routes
type ActivityHandler struct {
	DB  *gorm.DB
	API provider.API
}

func activityFilter(c *fiber.Ctx) services.ActivityFilter {
	return services.ActivityFilter{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		SportType: c.Query("sport_type"),
		Search:    c.Query("search"),
		Limit:     c.QueryInt("limit"),
		Offset:    c.QueryInt("offset"),
	}
}

// List handles GET /api/activities
// @Summary List activities
// @Description List the effective user's activities, newest first
// @Tags Activities
// @Produce json
// @Param start_date query string false "Inclusive lower day bound (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive upper day bound (YYYY-MM-DD)"
// @Param sport_type query string false "Filter by sport"
// @Param search query string false "Substring match on name and description"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /activities [get]
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	acts, total, appErr := services.ListActivities(h.DB, userID, activityFilter(c))
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count":      len(acts),
		"total":      total,
		"activities": acts,
	})
}

// Get handles GET /api/activities/:id
// @Summary Get one activity
// @Tags Activities
// @Produce json
// @Param id path int true "Activity ID"
// @Success 200 {object} models.Activity
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	act, appErr := services.GetActivity(h.DB, userID, id)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(act)
}

// Create handles POST /api/activities
// @Summary Create a manual activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param body body services.ManualActivityInput true "Activity payload"
// @Success 201 {object} models.Activity
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /activities [post]
func (h *ActivityHandler) Create(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)

	var in services.ManualActivityInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	act, appErr := services.CreateManualActivity(h.DB, user.ID, in)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusCreated).JSON(act)
}

// Update handles PUT /api/activities/:id
// @Summary Annotate an activity
// @Description Apply the role-split annotation patch: feelings for the athlete, coach comment for the coach
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path int true "Activity ID"
// @Param body body services.AnnotationInput true "Annotation patch"
// @Success 200 {object} models.Activity
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /activities/{id} [put]
func (h *ActivityHandler) Update(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	var in services.AnnotationInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	actor := middleware.UserFromCtx(c)
	act, appErr := services.UpdateAnnotations(h.DB, actor, userID, id, in)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(act)
}

// Delete handles DELETE /api/activities/:id
// @Summary Delete an activity
// @Tags Activities
// @Produce json
// @Param id path int true "Activity ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	if appErr := services.DeleteActivity(h.DB, user.ID, id); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Stats handles GET /api/activities/stats
// @Summary Aggregate activity stats
// @Tags Activities
// @Produce json
// @Param start_date query string false "Inclusive lower day bound (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive upper day bound (YYYY-MM-DD)"
// @Param sport_type query string false "Filter by sport"
// @Success 200 {object} services.ActivityStats
// @Router /activities/stats [get]
func (h *ActivityHandler) Stats(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	stats, appErr := services.GetActivityStats(h.DB, userID, activityFilter(c))
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

// Sync handles POST /api/activities/sync
// @Summary Import recent provider activities
// @Description Fetch a page from the provider and upsert it; annotations are never overwritten
// @Tags Activities
// @Produce json
// @Param limit query int false "Page size (max 200)"
// @Param after query string false "Only activities after this date (YYYY-MM-DD)"
// @Success 200 {object} services.SyncResult
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /activities/sync [post]
func (h *ActivityHandler) Sync(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)

	opts := services.SyncOptions{Limit: c.QueryInt("limit")}
	if after := c.Query("after"); after != "" {
		t, err := time.Parse("2006-01-02", after)
		if err != nil {
			return utils.ErrorResponse(c, "after must be YYYY-MM-DD", fiber.StatusBadRequest, "validation")
		}
		opts.After = &t
	}

	result, appErr := services.Sync(c.Context(), h.DB, h.API, user.ID, opts)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// SyncOne handles POST /api/activities/:id/sync
// @Summary Refresh one activity from the provider detail endpoint
// @Tags Activities
// @Produce json
// @Param id path int true "Activity ID"
// @Success 200 {object} models.Activity
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /activities/{id}/sync [post]
func (h *ActivityHandler) SyncOne(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	act, appErr := services.SyncOne(c.Context(), h.DB, h.API, user.ID, id)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(act)
}
