package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/middleware"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/types"
)

// effectiveUserID resolves the data-owning user for the request: the athlete
// themselves, or a coach's validated viewing selection.
func effectiveUserID(c *fiber.Ctx, db *gorm.DB) (uint64, *types.AppError) {
	sess := middleware.SessionFromCtx(c)
	user := middleware.UserFromCtx(c)
	if sess == nil || user == nil {
		return 0, types.Authorization("authentication required")
	}
	return services.EffectiveUserID(db, sess, user)
}

// paramID parses a numeric path parameter.
func paramID(c *fiber.Ctx, name string) (uint64, *types.AppError) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, types.Validation("invalid "+name, name)
	}
	return id, nil
}
