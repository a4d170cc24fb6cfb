package handlers

import (
	"net/http"
	"strconv"

	"eventra_backend/internal/dto"
	"eventra_backend/internal/middleware"
	"eventra_backend/internal/models"
	"eventra_backend/internal/services"
	"eventra_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type LegalHandler struct {
	*BaseHandler
	legalService services.LegalService
}

func NewLegalHandler(base *BaseHandler, legalService services.LegalService) *LegalHandler {
	return &LegalHandler{BaseHandler: base, legalService: legalService}
}

func (h *LegalHandler) RegisterRoutes(r *gin.RouterGroup) {
	legal := r.Group("/legal")
	{
		legal.GET("/:slug", h.Latest)
		legal.GET("/:slug/versions", h.ListVersions)
		legal.GET("/:slug/versions/:version", h.Version)
	}

	admin := r.Group("/admin/legal")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.PUT("/:slug", h.Publish)
	}
}

func (h *LegalHandler) Latest(c *gin.Context) {
	doc, err := h.legalService.Latest(c.Param("slug"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *LegalHandler) ListVersions(c *gin.Context) {
	docs, err := h.legalService.ListVersions(c.Param("slug"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": docs})
}

func (h *LegalHandler) Version(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("version must be an integer"))
		return
	}
	doc, err := h.legalService.Version(c.Param("slug"), version)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *LegalHandler) Publish(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.UpsertLegalDocumentRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	doc, err := h.legalService.Publish(adminID, c.Param("slug"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}
