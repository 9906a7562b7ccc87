package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/middleware"
	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/utils"
)

// AuthHandler handles registration, login and session routes
type AuthHandler struct {
	DB         *gorm.DB
	SessionTTL time.Duration
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, sess *models.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

func userPayload(user *models.User) fiber.Map {
	return fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
	}
}

// Register handles POST /api/auth/register
// @Summary Register a new account
// @Description Create an account from a pending invitation token and open a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Registration payload"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	user, sess, appErr := services.Register(h.DB, in, h.SessionTTL)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	h.setSessionCookie(c, sess)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": userPayload(user)})
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Verify credentials and open a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body object true "Email and password"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	user, sess, appErr := services.Login(h.DB, in.Email, in.Password, h.SessionTTL)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	h.setSessionCookie(c, sess)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user": userPayload(user)})
}

// Logout handles POST /api/auth/logout
// @Summary Log out
// @Description Invalidate the current session
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(middleware.SessionCookie)
	if token != "" {
		if appErr := services.Logout(h.DB, token); appErr != nil {
			return utils.AppErrorResponse(c, appErr)
		}
	}
	c.ClearCookie(middleware.SessionCookie)
	return utils.MutationSuccessResponse(c, 1)
}

// Status handles GET /api/auth/status
// @Summary Session status
// @Description Report the authenticated user and any viewing selection
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /auth/status [get]
func (h *AuthHandler) Status(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	sess := middleware.SessionFromCtx(c)

	payload := fiber.Map{"user": userPayload(user)}
	if sess.ViewingUserID != nil {
		payload["viewing_user_id"] = *sess.ViewingUserID
	}
	return c.Status(fiber.StatusOK).JSON(payload)
}

// ValidateInvitation handles GET /api/auth/invitation/:token
// @Summary Check an invitation token
// @Description Report whether an invitation token is redeemable and for which email and role
// @Tags Auth
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /auth/invitation/{token} [get]
func (h *AuthHandler) ValidateInvitation(c *fiber.Ctx) error {
	inv, appErr := services.ValidateInvitation(h.DB, c.Params("token"))
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"invited_email": inv.InvitedEmail,
		"invited_role":  inv.InvitedRole,
		"expires_at":    inv.ExpiresAt,
	})
}
