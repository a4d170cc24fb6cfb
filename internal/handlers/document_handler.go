package handlers

import (
	"net/http"

	"eventra_backend/internal/middleware"
	"eventra_backend/internal/services"
	"eventra_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	*BaseHandler
	documentService services.DocumentService
}

func NewDocumentHandler(base *BaseHandler, documentService services.DocumentService) *DocumentHandler {
	return &DocumentHandler{BaseHandler: base, documentService: documentService}
}

func (h *DocumentHandler) RegisterRoutes(r *gin.RouterGroup) {
	eventDocs := r.Group("/events/:id/documents")
	eventDocs.Use(middleware.AuthMiddleware())
	{
		eventDocs.POST("", h.Upload)
		eventDocs.GET("", h.ListByEvent)
	}

	docs := r.Group("/documents")
	docs.Use(middleware.AuthMiddleware())
	{
		docs.GET("/:id/download", h.Download)
		docs.PUT("/:id/share", h.Share)
		docs.PUT("/:id/unshare", h.Unshare)
		docs.DELETE("/:id", h.Delete)
	}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("A multipart 'file' field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.HandleServiceError(c, apperrors.InternalError(err))
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	doc, err := h.documentService.Upload(c.Request.Context(), userID, c.Param("id"),
		fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) ListByEvent(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	docs, err := h.documentService.ListByEvent(userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	url, err := h.documentService.DownloadURL(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *DocumentHandler) Share(c *gin.Context) {
	h.setShared(c, true)
}

func (h *DocumentHandler) Unshare(c *gin.Context) {
	h.setShared(c, false)
}

func (h *DocumentHandler) setShared(c *gin.Context, shared bool) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	doc, err := h.documentService.SetShared(userID, c.Param("id"), shared)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	if err := h.documentService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
