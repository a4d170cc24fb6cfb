package handlers

import (
	"net/http"

	"eventra_backend/internal/dto"
	"eventra_backend/internal/middleware"
	"eventra_backend/internal/models"
	"eventra_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	*BaseHandler
	subscriptionService services.SubscriptionService
}

func NewSubscriptionHandler(base *BaseHandler, subscriptionService services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:         base,
		subscriptionService: subscriptionService,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(r *gin.RouterGroup) {
	subscriptions := r.Group("/subscriptions")

	// Public: catalog and pricing are visible before signup.
	subscriptions.GET("/tiers", h.GetTiers)
	subscriptions.GET("/pricing", h.GetPricing)
	subscriptions.POST("/pricing/calculate", h.CalculatePricing)
	subscriptions.POST("/promotional/validate", h.ValidatePromo)

	protected := subscriptions.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("", h.ListSubscriptions)
		protected.POST("", h.Subscribe)
		protected.POST("/trial/start", h.StartTrial)
		protected.POST("/:id/upgrade", h.Upgrade)
		protected.POST("/:id/downgrade", h.Downgrade)
		protected.POST("/:id/cancel", h.Cancel)
		protected.GET("/billing/history", h.BillingHistory)
		protected.POST("/payments/:paymentId/retry", h.RetryPayment)
	}
}

// GetTiers godoc
// @Summary Tier catalog
// @Description Lists the subscription tiers with prices, features and limits
// @Tags subscriptions
// @Produce json
// @Success 200 {array} billing.TierInfo
// @Router /subscriptions/tiers [get]
func (h *SubscriptionHandler) GetTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": h.subscriptionService.ListTiers()})
}

// GetPricing godoc
// @Summary Price quote (query params)
// @Tags subscriptions
// @Produce json
// @Param tier query string true "Tier id"
// @Param billing_cycle query string true "monthly, yearly or 2year"
// @Param promotional_code query string false "Promo code"
// @Success 200 {object} billing.PricingInfo
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /subscriptions/pricing [get]
func (h *SubscriptionHandler) GetPricing(c *gin.Context) {
	var req dto.PricingRequest
	if !h.BindAndValidateQuery(c, &req) {
		return
	}
	h.respondPricing(c, &req)
}

// CalculatePricing godoc
// @Summary Price quote (JSON body)
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body dto.PricingRequest true "Pricing request"
// @Success 200 {object} billing.PricingInfo
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /subscriptions/pricing/calculate [post]
func (h *SubscriptionHandler) CalculatePricing(c *gin.Context) {
	var req dto.PricingRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	h.respondPricing(c, &req)
}

func (h *SubscriptionHandler) respondPricing(c *gin.Context, req *dto.PricingRequest) {
	info, err := h.subscriptionService.ComputePricing(req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PricingResponse{
		Tier:            string(info.Tier),
		BillingCycle:    string(info.BillingCycle),
		TotalPrice:      info.BasePrice,
		DiscountApplied: info.DiscountApplied,
		FinalPrice:      info.FinalPrice,
		Savings:         info.Savings,
	})
}

// ValidatePromo godoc
// @Summary Validate a promotional code against a tier
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body dto.ValidatePromoRequest true "Code and tier"
// @Success 200 {object} dto.ValidatePromoResponse
// @Router /subscriptions/promotional/validate [post]
func (h *SubscriptionHandler) ValidatePromo(c *gin.Context) {
	var req dto.ValidatePromoRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.subscriptionService.ValidatePromo(&req))
}

// ListSubscriptions godoc
// @Summary List the current user's subscriptions, newest first
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.SubscriptionResponse
// @Router /subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	subs, err := h.subscriptionService.ListSubscriptions(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	out := make([]dto.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, toSubscriptionResponse(&subs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}

// StartTrial godoc
// @Summary Start a 14-day trial on a paid tier
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.StartTrialRequest true "Tier"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /subscriptions/trial/start [post]
func (h *SubscriptionHandler) StartTrial(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.StartTrialRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	sub, err := h.subscriptionService.StartTrial(userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSubscriptionResponse(sub))
}

// Subscribe godoc
// @Summary Open a paid subscription
// @Description Charges the computed price and activates the subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubscribeRequest true "Tier, cycle, optional promo"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 402 {object} apperrors.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.SubscribeRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	sub, err := h.subscriptionService.Subscribe(c.Request.Context(), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSubscriptionResponse(sub))
}

// Upgrade godoc
// @Summary Upgrade to a higher tier immediately
// @Description Charges the prorated difference for the unused part of the period
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription id"
// @Param request body dto.ChangeTierRequest true "Target tier"
// @Success 200 {object} dto.UpgradeResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /subscriptions/{id}/upgrade [post]
func (h *SubscriptionHandler) Upgrade(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.ChangeTierRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	sub, proration, err := h.subscriptionService.Upgrade(c.Request.Context(), userID, c.Param("id"), req.NewTier)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UpgradeResponse{
		Subscription:    toSubscriptionResponse(sub),
		ProrationAmount: proration,
	})
}

// Downgrade godoc
// @Summary Schedule a downgrade for the next billing cycle
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription id"
// @Param request body dto.ChangeTierRequest true "Target tier"
// @Success 200 {object} dto.DowngradeResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /subscriptions/{id}/downgrade [post]
func (h *SubscriptionHandler) Downgrade(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.ChangeTierRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	sub, lost, err := h.subscriptionService.Downgrade(userID, c.Param("id"), req.NewTier)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	resp := dto.DowngradeResponse{
		Subscription: toSubscriptionResponse(sub),
		FeaturesLost: lost,
	}
	if sub.PendingTierAt != nil {
		resp.EffectiveAt = *sub.PendingTierAt
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary Cancel a subscription
// @Description Access continues until the end of the paid period
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription id"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /subscriptions/{id}/cancel [post]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	sub, err := h.subscriptionService.Cancel(userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSubscriptionResponse(sub))
}

// BillingHistory godoc
// @Summary Payment transaction history, newest first
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {array} models.PaymentTransaction
// @Router /subscriptions/billing/history [get]
func (h *SubscriptionHandler) BillingHistory(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	offset, limit := ParsePagination(c)
	history, total, err := h.subscriptionService.BillingHistory(userID, offset, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": history, "total": total})
}

// RetryPayment godoc
// @Summary Retry a failed payment inside the grace period
// @Description User-initiated; capped at 3 attempts per failed payment
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment id"
// @Success 200 {object} dto.RetryPaymentResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /subscriptions/payments/{paymentId}/retry [post]
func (h *SubscriptionHandler) RetryPayment(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	result, err := h.subscriptionService.RetryPayment(c.Request.Context(), userID, c.Param("paymentId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func toSubscriptionResponse(sub *models.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		ID:              sub.ID,
		Tier:            sub.Tier,
		Status:          string(sub.Status),
		BillingCycle:    sub.BillingCycle,
		Price:           sub.Price,
		StartDate:       sub.StartDate,
		EndDate:         sub.EndDate,
		TrialEndDate:    sub.TrialEndDate,
		PromotionalCode: sub.PromotionalCode,
		PendingTier:     sub.PendingTier,
		PendingTierAt:   sub.PendingTierAt,
	}
}
