package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/types"
)

// SessionCookie is the login cookie name.
const SessionCookie = "stridelog_session"

// RequireUser validates the session cookie and stores the session and user
// in the request context for handlers.
func RequireUser(db *gorm.DB) fiber.Handler {
	return authorize(db, "")
}

// RequireCoach validates the session and additionally requires the coach role.
func RequireCoach(db *gorm.DB) fiber.Handler {
	return authorize(db, models.RoleCoach)
}

// RequireAthlete validates the session and additionally requires the athlete role.
func RequireAthlete(db *gorm.DB) fiber.Handler {
	return authorize(db, models.RoleAthlete)
}

func authorize(db *gorm.DB, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return types.Authorization("authentication required")
		}

		sess, user, appErr := services.ValidateSession(db, token)
		if appErr != nil {
			return appErr
		}
		if role != "" && user.Role != role {
			return types.Authorization("insufficient role for this operation")
		}

		c.Locals("session", sess)
		c.Locals("user", user)

		return c.Next()
	}
}

// SessionFromCtx returns the validated session stored by RequireUser.
func SessionFromCtx(c *fiber.Ctx) *models.Session {
	sess, _ := c.Locals("session").(*models.Session)
	return sess
}

// UserFromCtx returns the authenticated user stored by RequireUser.
func UserFromCtx(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}
