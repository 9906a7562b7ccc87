package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/middleware"
	"github.com/stridelog/stridelog/internal/services"
	"github.com/stridelog/stridelog/internal/utils"
)

// AccessHandler handles coach/athlete sharing and invitation routes
type AccessHandler struct {
	DB *gorm.DB
}

// Athletes handles GET /api/athletes
// @Summary List a coach's active athletes
// @Tags Access
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /athletes [get]
func (h *AccessHandler) Athletes(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	athletes, appErr := services.ListAthletes(h.DB, user)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.CollectionResponse(c, "athletes", athletes, len(athletes))
}

// PendingInvites handles GET /api/athletes/pending
// @Summary List athletes whose invites await this coach
// @Tags Access
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /athletes/pending [get]
func (h *AccessHandler) PendingInvites(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	invites, appErr := services.ListPendingInvites(h.DB, user)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.CollectionResponse(c, "athletes", invites, len(invites))
}

// SetView handles POST /api/view/:athleteID
// @Summary Select the athlete a coach is viewing
// @Tags Access
// @Produce json
// @Param athleteID path int true "Athlete ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /view/{athleteID} [post]
func (h *AccessHandler) SetView(c *fiber.Ctx) error {
	athleteID, appErr := paramID(c, "athleteID")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	sess := middleware.SessionFromCtx(c)
	user := middleware.UserFromCtx(c)
	if appErr := services.SetViewingUser(h.DB, sess, user, athleteID); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// ClearView handles DELETE /api/view
// @Summary Return a coach session to its own scope
// @Tags Access
// @Produce json
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /view [delete]
func (h *AccessHandler) ClearView(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	if appErr := services.ClearViewingUser(h.DB, sess); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Coaches handles GET /api/coaches
// @Summary List an athlete's coach relationships
// @Tags Access
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /coaches [get]
func (h *AccessHandler) Coaches(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	coaches, appErr := services.ListCoaches(h.DB, user)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.CollectionResponse(c, "coaches", coaches, len(coaches))
}

// InviteCoach handles POST /api/coaches/invite
// @Summary Invite a coach by email
// @Description Keyed by user id when the coach is registered, by email otherwise
// @Tags Access
// @Accept json
// @Produce json
// @Param body body object true "Coach email"
// @Success 201 {object} models.CoachAthleteRelationship
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /coaches/invite [post]
func (h *AccessHandler) InviteCoach(c *fiber.Ctx) error {
	var in struct {
		CoachEmail string `json:"coach_email"`
	}
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	user := middleware.UserFromCtx(c)
	rel, appErr := services.InviteCoach(h.DB, user, in.CoachEmail)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusCreated).JSON(rel)
}

// Accept handles POST /api/coaches/accept/:athleteID
// @Summary Accept an athlete's invite
// @Tags Access
// @Produce json
// @Param athleteID path int true "Athlete ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /coaches/accept/{athleteID} [post]
func (h *AccessHandler) Accept(c *fiber.Ctx) error {
	athleteID, appErr := paramID(c, "athleteID")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	user := middleware.UserFromCtx(c)
	if appErr := services.AcceptRelationship(h.DB, user, athleteID); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Reject handles POST /api/coaches/reject/:athleteID
// @Summary Decline an athlete's invite
// @Tags Access
// @Produce json
// @Param athleteID path int true "Athlete ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /coaches/reject/{athleteID} [post]
func (h *AccessHandler) Reject(c *fiber.Ctx) error {
	athleteID, appErr := paramID(c, "athleteID")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	user := middleware.UserFromCtx(c)
	if appErr := services.RejectRelationship(h.DB, user, athleteID); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// RemoveCoach handles DELETE /api/coaches/:coachID
// @Summary Revoke a coach's access
// @Description The relationship goes inactive; any session still viewing the athlete loses access
// @Tags Access
// @Produce json
// @Param coachID path int true "Coach ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /coaches/{coachID} [delete]
func (h *AccessHandler) RemoveCoach(c *fiber.Ctx) error {
	coachID, appErr := paramID(c, "coachID")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	user := middleware.UserFromCtx(c)
	if appErr := services.RemoveCoach(h.DB, user, coachID); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Invitations handles GET /api/invitations
// @Summary List invitations this user has sent
// @Tags Access
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /invitations [get]
func (h *AccessHandler) Invitations(c *fiber.Ctx) error {
	user := middleware.UserFromCtx(c)
	invs, appErr := services.ListInvitations(h.DB, user.ID)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.CollectionResponse(c, "invitations", invs, len(invs))
}

// CreateInvitation handles POST /api/invitations
// @Summary Send a registration invitation
// @Tags Access
// @Accept json
// @Produce json
// @Param body body object true "Email and role"
// @Success 201 {object} models.Invitation
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /invitations [post]
func (h *AccessHandler) CreateInvitation(c *fiber.Ctx) error {
	var in struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := c.BodyParser(&in); err != nil {
		return utils.ErrorResponse(c, "invalid JSON body", fiber.StatusBadRequest, "validation")
	}

	user := middleware.UserFromCtx(c)
	inv, appErr := services.CreateInvitation(h.DB, user, in.Email, in.Role)
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

// CancelInvitation handles DELETE /api/invitations/:id
// @Summary Cancel a pending invitation
// @Tags Access
// @Produce json
// @Param id path int true "Invitation ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /invitations/{id} [delete]
func (h *AccessHandler) CancelInvitation(c *fiber.Ctx) error {
	id, appErr := paramID(c, "id")
	if appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}

	user := middleware.UserFromCtx(c)
	if appErr := services.CancelInvitation(h.DB, user.ID, id); appErr != nil {
		return utils.AppErrorResponse(c, appErr)
	}
	return utils.MutationSuccessResponse(c, 1)
}
