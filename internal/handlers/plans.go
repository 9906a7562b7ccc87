package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/types"
	"github.com/stridelog/stridelog/internal/utils"
)

// PlanHandler handles planned-activity routes
type PlanHandler struct {
	DB *gorm.DB
}

// List handles GET /api/plan
// @Summary List planned activities
// @Description A date range of plans in day and sort order with display metadata
// @Tags Plan
// @Produce json
// @Param start_date query string true "Inclusive start (YYYY-MM-DD)"
// @Param end_date query string true "Inclusive end (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /plan [get]
func (h *PlanHandler) List(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	plans, appErr := services.ListPlans(h.DB, userID, c.Query("start_date"), c.Query("end_date"))
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.CollectionResponse(c, "planned_activities", plans, len(plans))
}

// Create handles POST /api/plan
// @Summary Create a planned activity
// @Tags Plan
// @Accept json
// @Produce json
// @Param body body services.PlanInput true "Plan payload"
// @Success 201 {object} models.PlannedActivity
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /plan [post]
func (h *PlanHandler) Create(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	var in services.PlanInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	plan, appErr := services.CreatePlan(h.DB, userID, in)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

// Update handles PUT /api/plan/:id
// @Summary Patch a planned activity
// @Tags Plan
// @Accept json
// @Produce json
// @Param id path int true "Plan ID"
// @Param body body services.PlanInput true "Partial plan patch"
// @Success 200 {object} models.PlannedActivity
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /plan/{id} [put]
func (h *PlanHandler) Update(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	var in services.PlanInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	plan, appErr := services.UpdatePlan(h.DB, userID, id, in)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(plan)
}

// Delete handles DELETE /api/plan/:id
// @Summary Delete a planned activity
// @Tags Plan
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /plan/{id} [delete]
func (h *PlanHandler) Delete(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	if appErr := services.DeletePlan(h.DB, userID, id); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Duplicate handles POST /api/plan/:id/duplicate
// @Summary Duplicate a plan onto other dates
// @Description Copies never carry the match and are appended to each target day's order. target_dates accepts a string or an array.
// @Tags Plan
// @Accept json
// @Produce json
// @Param id path int true "Plan ID"
// @Param body body object true "Target dates"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /plan/{id}/duplicate [post]
func (h *PlanHandler) Duplicate(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	var in struct {
		TargetDates types.FlexList[string] `json:"target_dates"`
	}
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	copies, appErr := services.DuplicatePlan(h.DB, userID, id, in.TargetDates.Slice())
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"count":              len(copies),
		"planned_activities": copies,
	})
}

// Match handles POST /api/plan/:id/match/:activityID
// @Summary Match a plan to a recorded activity
// @Description Same user, same day, and the activity must not already fulfill another plan
// @Tags Plan
// @Produce json
// @Param id path int true "Plan ID"
// @Param activityID path int true "Activity ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /plan/{id}/match/{activityID} [post]
func (h *PlanHandler) Match(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	activityID, appErr := paramID(c, "activityID")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	if appErr := services.SetMatch(h.DB, userID, id, activityID); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Unmatch handles DELETE /api/plan/:id/match
// @Summary Clear a plan's match
// @Tags Plan
// @Produce json
// @Param id path int true "Plan ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /plan/{id}/match [delete]
func (h *PlanHandler) Unmatch(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	if appErr := services.ClearMatch(h.DB, userID, id); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Reorder handles POST /api/plan/reorder
// @Summary Reorder a day's plans
// @Description ordered_ids must cover the day's plans exactly once; ids may arrive as numbers or strings
// @Tags Plan
// @Accept json
// @Produce json
// @Param body body object true "Day date and ordered plan ids"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /plan/reorder [post]
func (h *PlanHandler) Reorder(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	var in struct {
		DayDate    string             `json:"day_date"`
		OrderedIDs []types.FlexUint64 `json:"ordered_ids"`
	}
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	ids := make([]uint64, len(in.OrderedIDs))
	for i, id := range in.OrderedIDs {
		ids[i] = id.Uint64()
	}

	if appErr := services.ReorderPlans(h.DB, userID, in.DayDate, ids); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, int64(len(ids)))
}
