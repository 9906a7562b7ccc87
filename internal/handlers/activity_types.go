package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/utils"
)

// TypeHandler handles activity taxonomy routes
type TypeHandler struct {
	DB *gorm.DB
}

// Standard handles GET /api/types/standard
// @Summary List standard activity types
// @Tags Types
// @Produce json
// @Param grouped query bool false "Group by category"
// @Success 200 {object} map[string]interface{}
// @Router /types/standard [get]
func (h *TypeHandler) Standard(c *fiber.Ctx) error {
	if c.QueryBool("grouped") {
		grouped, appErr := services.ListStandardTypesGrouped(h.DB)
		if appErr != nil {
			return utils.AppErrorResponse(c, appErr)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"categories": grouped})
	}

	list, appErr := services.ListStandardTypes(h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.CollectionResponse(c, "types", list, len(list))
}

// Extended handles GET /api/types/extended
// @Summary List extended activity types grouped by base sport
// @Tags Types
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /types/extended [get]
func (h *TypeHandler) Extended(c *fiber.Ctx) error {
	grouped, appErr := services.ListExtendedTypes(h.DB)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"types": grouped})
}

// CreateExtended handles POST /api/types/extended
// @Summary Create an extended activity type
// @Tags Types
// @Accept json
// @Produce json
// @Param body body services.ExtendedTypeInput true "Extended type payload"
// @Success 201 {object} models.ExtendedActivityType
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /types/extended [post]
func (h *TypeHandler) CreateExtended(c *fiber.Ctx) error {
	var in services.ExtendedTypeInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	ext, appErr := services.CreateExtendedType(h.DB, in)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusCreated).JSON(ext)
}

// UpdateExtended handles PUT /api/types/extended/:id
// @Summary Patch an extended activity type
// @Tags Types
// @Accept json
// @Produce json
// @Param id path int true "Extended type ID"
// @Param body body services.ExtendedTypeInput true "Partial patch"
// @Success 200 {object} models.ExtendedActivityType
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /types/extended/{id} [put]
func (h *TypeHandler) UpdateExtended(c *fiber.Ctx) error {
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	var in services.ExtendedTypeInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	ext, appErr := services.UpdateExtendedType(h.DB, id, in)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(ext)
}

// DeleteExtended handles DELETE /api/types/extended/:id
// @Summary Deactivate an extended activity type
// @Description Soft delete; existing references keep resolving
// @Tags Types
// @Produce json
// @Param id path int true "Extended type ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /types/extended/{id} [delete]
func (h *TypeHandler) DeleteExtended(c *fiber.Ctx) error {
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	if appErr := services.DeactivateExtendedType(h.DB, id); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// RestoreExtended handles POST /api/types/extended/:id/restore
// @Summary Restore a deactivated extended activity type
// @Tags Types
// @Produce json
// @Param id path int true "Extended type ID"
// @Success 200 {object} models.ExtendedActivityType
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /types/extended/{id}/restore [post]
func (h *TypeHandler) RestoreExtended(c *fiber.Ctx) error {
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	ext, appErr := services.RestoreExtendedType(h.DB, id)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(ext)
}
