package handlers

import (
	"net/http"

	"eventra_backend/internal/dto"
	"eventra_backend/internal/middleware"
	"eventra_backend/internal/models"
	"eventra_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	*BaseHandler
	eventService services.EventService
}

func NewEventHandler(base *BaseHandler, eventService services.EventService) *EventHandler {
	return &EventHandler{BaseHandler: base, eventService: eventService}
}

func (h *EventHandler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/events")

	// Public browse of published events.
	events.GET("", h.List)

	protected := events.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("", middleware.RequireRoles(models.UserRoleOrganizer, models.UserRoleAdmin), h.Create)
		protected.GET("/my", h.ListMine)
		protected.GET("/:id", h.GetByID)
		protected.PUT("/:id", h.Update)
		protected.DELETE("/:id", h.Delete)
		protected.GET("/:id/members", h.ListMembers)
		protected.DELETE("/:id/members/:userId", h.RemoveMember)
	}
}

func (h *EventHandler) Create(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.CreateEventRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	event, err := h.eventService.Create(userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) GetByID(c *gin.Context) {
	event, err := h.eventService.GetByID(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) List(c *gin.Context) {
	var query dto.EventListQuery
	if !h.BindAndValidateQuery(c, &query) {
		return
	}
	offset, limit := ParsePagination(c)
	events, total, err := h.eventService.List(&query, offset, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": total})
}

func (h *EventHandler) ListMine(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	offset, limit := ParsePagination(c)
	events, total, err := h.eventService.ListMine(userID, offset, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": total})
}

func (h *EventHandler) Update(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateEventRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	event, err := h.eventService.Update(userID, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Delete(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	if err := h.eventService.Delete(userID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

func (h *EventHandler) ListMembers(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	members, err := h.eventService.ListMembers(userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *EventHandler) RemoveMember(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	if err := h.eventService.RemoveMember(userID, c.Param("id"), c.Param("userId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
