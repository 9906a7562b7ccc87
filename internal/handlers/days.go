package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/middleware"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/utils"
)

// DayHandler handles day annotation routes
type DayHandler struct {
	DB *gorm.DB
}

// Get handles GET /api/days/:date
// @Summary Get a day
// @Description The date's annotations plus its activities for the effective user
// @Tags Days
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} services.DayView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /days/{date} [get]
func (h *DayHandler) Get(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	view, appErr := services.GetDay(h.DB, userID, c.Params("date"))
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// Put handles PUT /api/days/:date
// @Summary Annotate a day
// @Description Role-split patch: feelings for the athlete, coach comment for the coach. Creates the day row on first write.
// @Tags Days
// @Accept json
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param body body services.DayInput true "Day annotation patch"
// @Success 200 {object} models.Day
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /days/{date} [put]
func (h *DayHandler) Put(c *fiber.Ctx) error {
	userID, appErr := effectiveUserID(c, h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	var in services.DayInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	actor := middleware.UserFromCtx(c)
	day, appErr := services.UpsertDay(h.DB, actor, userID, c.Params("date"), in)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(day)
}
