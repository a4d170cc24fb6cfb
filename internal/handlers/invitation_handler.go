package handlers

import (
	"net/http"
	"time"

	"eventra_backend/internal/dto"
	"eventra_backend/internal/middleware"
	"eventra_backend/internal/models"
	"eventra_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type InvitationHandler struct {
	*BaseHandler
	invitationService services.InvitationService
}

func NewInvitationHandler(base *BaseHandler, invitationService services.InvitationService) *InvitationHandler {
	return &InvitationHandler{BaseHandler: base, invitationService: invitationService}
}

func (h *InvitationHandler) RegisterRoutes(r *gin.RouterGroup) {
	eventInvitations := r.Group("/events/:id/invitations")
	eventInvitations.Use(middleware.AuthMiddleware())
	{
		eventInvitations.POST("", h.Invite)
		eventInvitations.GET("", h.ListByEvent)
	}

	invitations := r.Group("/invitations")
	invitations.Use(middleware.AuthMiddleware())
	{
		invitations.POST("/:token/accept", h.Accept)
		invitations.POST("/:token/decline", h.Decline)
	}
}

func (h *InvitationHandler) Invite(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.CreateInvitationRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	invitation, err := h.invitationService.Invite(userID, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toInvitationResponse(invitation))
}

func (h *InvitationHandler) ListByEvent(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	invitations, err := h.invitationService.ListByEvent(userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	out := make([]dto.InvitationResponse, 0, len(invitations))
	for i := range invitations {
		out = append(out, toInvitationResponse(&invitations[i]))
	}
	c.JSON(http.StatusOK, gin.H{"invitations": out})
}

func (h *InvitationHandler) Accept(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	invitation, err := h.invitationService.Accept(c.Param("token"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInvitationResponse(invitation))
}

func (h *InvitationHandler) Decline(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}
	invitation, err := h.invitationService.Decline(c.Param("token"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInvitationResponse(invitation))
}

func toInvitationResponse(inv *models.Invitation) dto.InvitationResponse {
	return dto.InvitationResponse{
		ID:        inv.ID,
		EventID:   inv.EventID,
		Email:     inv.Email,
		Role:      inv.Role,
		Status:    string(inv.Status),
		ExpiresAt: inv.ExpiresAt.Format(time.RFC3339),
	}
}
