package handlers

import (
	"net/http"

	"eventra_backend/internal/dto"
	"eventra_backend/internal/middleware"
	"eventra_backend/internal/models"
	"eventra_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type TestimonialHandler struct {
	*BaseHandler
	testimonialService services.TestimonialService
}

func NewTestimonialHandler(base *BaseHandler, testimonialService services.TestimonialService) *TestimonialHandler {
	return &TestimonialHandler{BaseHandler: base, testimonialService: testimonialService}
}

func (h *TestimonialHandler) RegisterRoutes(r *gin.RouterGroup) {
	testimonials := r.Group("/testimonials")

	// Public: approved testimonials and rating summaries.
	testimonials.GET("/user/:userId", h.ListBySubject)
	testimonials.GET("/user/:userId/summary", h.Summary)

	testimonials.POST("", middleware.AuthMiddleware(), h.Create)

	admin := r.Group("/admin/testimonials")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.GET("/pending", h.ListPending)
		admin.POST("/:id/moderate", h.Moderate)
	}
}

func (h *TestimonialHandler) Create(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.CreateTestimonialRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	testimonial, err := h.testimonialService.Create(userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, testimonial)
}

func (h *TestimonialHandler) ListBySubject(c *gin.Context) {
	testimonials, err := h.testimonialService.ListBySubject(c.Param("userId"), false)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"testimonials": testimonials})
}

func (h *TestimonialHandler) Summary(c *gin.Context) {
	summary, err := h.testimonialService.Summary(c.Param("userId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *TestimonialHandler) ListPending(c *gin.Context) {
	offset, limit := ParsePagination(c)
	testimonials, total, err := h.testimonialService.ListPending(offset, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"testimonials": testimonials, "total": total})
}

func (h *TestimonialHandler) Moderate(c *gin.Context) {
	moderatorID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.ModerateTestimonialRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	if err := h.testimonialService.Moderate(moderatorID, c.Param("id"), &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Testimonial moderated"})
}
