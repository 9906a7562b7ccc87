package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/middleware"
	"github.com/stridelog/stridelog/internal/provider"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/utils"
)

// ProviderHandler handles the OAuth link to the activity provider
type ProviderHandler struct {
	DB          *gorm.DB
	Client      *provider.Client
	API         provider.API
	RedirectURL string
}

// Connect handles GET /api/provider/connect
// @Summary Start the provider OAuth flow
// @Description Redirect the browser to the provider's authorization page
// @Tags Provider
// @Success 302
// @Router /provider/connect [get]
func (h *ProviderHandler) Connect(c *fiber.Ctx) error {
	state := uuid.New().String()
	c.Cookie(&fiber.Cookie{
		Name:     "provider_oauth_state",
		Value:    state,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
	return c.Redirect(h.Client.AuthorizeURL(h.RedirectURL, state), fiber.StatusFound)
}

// Callback handles GET /api/provider/callback
// @Summary Complete the provider OAuth flow
// @Description Exchange the authorization code and store the token set
// @Tags Provider
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "OAuth state"
// @Success 200 {object} services.ProviderStatusResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /provider/callback [get]
func (h *ProviderHandler) Callback(c *fiber.Ctx) error {
	if c.Query("state") == "" || c.Query("state") != c.Cookies("provider_oauth_state") {
		return utils.ErrorResponse(c, "OAuth state mismatch", fiber.StatusBadRequest, "validation")
	}
	c.ClearCookie("provider_oauth_state")

	user := middleware.UserFromCtx(c)
	tok, appErr := services.ConnectProvider(c.Context(), h.DB, h.API, user.ID, c.Query("code"))
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"connected":    true,
		"athlete_id":   tok.ProviderAthleteID,
		"athlete_name": tok.ProviderAthleteName,
	})
}

// Status handles GET /api/provider/status
// @Summary Provider connection status
// @Tags Provider
// @Produce json
// @Success 200 {object} services.ProviderStatusResult
// @Router /provider/status [get]
func (h *ProviderHandler) Status(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	status, appErr := services.GetProviderStatus(h.DB, user.ID)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}

// Disconnect handles DELETE /api/provider
// @Summary Disconnect from the provider
// @Description Drop the stored token set; imported activities are kept
// @Tags Provider
// @Produce json
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /provider [delete]
func (h *ProviderHandler) Disconnect(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	if appErr := services.DisconnectProvider(h.DB, user.ID); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// AthleteStats handles GET /api/provider/stats
// @Summary Provider aggregate totals
// @Description Pass through the provider's aggregate stats for the connected athlete
// @Tags Provider
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /provider/stats [get]
func (h *ProviderHandler) AthleteStats(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	stats, appErr := services.GetAthleteStats(c.Context(), h.DB, h.API, user.ID)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
