package handlers

import (
	"net/http"

	"eventra_backend/internal/middleware"
	"eventra_backend/internal/models"
	"eventra_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	*BaseHandler
	userService services.UserService
}

func NewUserHandler(base *BaseHandler, userService services.UserService) *UserHandler {
	return &UserHandler{BaseHandler: base, userService: userService}
}

func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me", h.Me)
		users.PUT("/me", h.UpdateProfile)
	}

	admin := r.Group("/admin/users")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.GET("", h.List)
		admin.POST("/:id/suspend", h.Suspend)
		admin.POST("/:id/reinstate", h.Reinstate)
	}
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	user, err := h.userService.GetByID(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateProfileRequest struct {
	FullName    string `json:"full_name" validate:"omitempty,min=2,max=120"`
	CompanyName string `json:"company_name" validate:"max=120"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateProfile(userID, req.FullName, req.CompanyName)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) List(c *gin.Context) {
	offset, limit := ParsePagination(c)
	users, total, err := h.userService.List(c.Query("role"), offset, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total})
}

func (h *UserHandler) Suspend(c *gin.Context) {
	if err := h.userService.Suspend(c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User suspended"})
}

func (h *UserHandler) Reinstate(c *gin.Context) {
	if err := h.userService.Reinstate(c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User reinstated"})
}
