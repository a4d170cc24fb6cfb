package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eventra_backend/internal/billing"
	"eventra_backend/internal/dto"
	"eventra_backend/internal/logger"
	"eventra_backend/internal/models"
	"eventra_backend/internal/payments"
	"eventra_backend/internal/pkg/email"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"
)

// BillingConfig carries the tunable billing windows.
type BillingConfig struct {
	TrialDays       int
	GracePeriodDays int
	MaxRetries      int
}

type SubscriptionService interface {
	ListTiers() []*billing.TierInfo
	ComputePricing(req *dto.PricingRequest) (*billing.PricingInfo, error)
	ValidatePromo(req *dto.ValidatePromoRequest) *dto.ValidatePromoResponse

	StartTrial(userID string, req *dto.StartTrialRequest) (*models.Subscription, error)
	Subscribe(ctx context.Context, userID string, req *dto.SubscribeRequest) (*models.Subscription, error)
	Upgrade(ctx context.Context, userID, subscriptionID, newTier string) (*models.Subscription, float64, error)
	Downgrade(userID, subscriptionID, newTier string) (*models.Subscription, []string, error)
	Cancel(userID, subscriptionID string) (*models.Subscription, error)

	ListSubscriptions(userID string) ([]models.Subscription, error)
	BillingHistory(userID string, offset, limit int) ([]models.PaymentTransaction, int64, error)
	RetryPayment(ctx context.Context, userID, paymentID string) (*dto.RetryPaymentResponse, error)
}

type SubscriptionServiceImpl struct {
	subRepo     repositories.SubscriptionRepository
	userRepo    repositories.UserRepository
	processor   payments.Processor
	emailSender email.Sender
	cfg         BillingConfig
}

func NewSubscriptionService(
	subRepo repositories.SubscriptionRepository,
	userRepo repositories.UserRepository,
	processor payments.Processor,
	emailSender email.Sender,
	cfg BillingConfig,
) SubscriptionService {
	return &SubscriptionServiceImpl{
		subRepo:     subRepo,
		userRepo:    userRepo,
		processor:   processor,
		emailSender: emailSender,
		cfg:         cfg,
	}
}

// ListTiers returns the catalog in ranking order.
func (s *SubscriptionServiceImpl) ListTiers() []*billing.TierInfo {
	tiers := make([]*billing.TierInfo, 0, len(billing.TierOrder))
	for _, id := range billing.TierOrder {
		if t, ok := billing.GetTier(id); ok {
			tiers = append(tiers, t)
		}
	}
	return tiers
}

// ComputePricing computes the price for a tier and cycle, applying a
// promotional code when one is supplied. An invalid promo code fails the
// whole computation so the client never shows a price that will not be
// charged.
func (s *SubscriptionServiceImpl) ComputePricing(req *dto.PricingRequest) (*billing.PricingInfo, error) {
	tier := billing.TierID(req.Tier)
	cycle := billing.Cycle(req.BillingCycle)

	var discount *billing.Discount
	if req.PromotionalCode != "" {
		promo, reason := s.resolvePromo(req.PromotionalCode, tier)
		if reason != "" {
			return nil, apperrors.ErrPromoCodeInvalid.WithDetails(reason)
		}
		discount = &billing.Discount{
			Type:  billing.DiscountType(promo.DiscountType),
			Value: promo.DiscountValue,
		}
	}

	info, err := billing.ComputePrice(tier, cycle, discount)
	if err != nil {
		switch {
		case apperrors.Is(err, billing.ErrUnknownTier):
			return nil, apperrors.ErrUnknownTier
		case apperrors.Is(err, billing.ErrUnknownCycle):
			return nil, apperrors.ErrUnknownBillingCycle
		}
		return nil, apperrors.InternalError(err)
	}
	return info, nil
}

// ValidatePromo checks a code against a tier without computing a price.
// The response always carries valid=false with a reason rather than an
// error, so the checkout form can show inline feedback.
func (s *SubscriptionServiceImpl) ValidatePromo(req *dto.ValidatePromoRequest) *dto.ValidatePromoResponse {
	promo, reason := s.resolvePromo(req.Code, billing.TierID(req.Tier))
	if reason != "" {
		return &dto.ValidatePromoResponse{Valid: false, Reason: reason}
	}
	return &dto.ValidatePromoResponse{
		Valid:         true,
		DiscountType:  promo.DiscountType,
		DiscountValue: promo.DiscountValue,
	}
}

// resolvePromo loads and checks a promotional code. It returns the code
// on success, or an empty struct plus a human-readable rejection reason.
func (s *SubscriptionServiceImpl) resolvePromo(code string, tier billing.TierID) (*models.PromotionalCode, string) {
	promo, err := s.subRepo.FindPromoCode(code)
	if err != nil {
		return nil, "code does not exist"
	}
	if !promo.IsActive {
		return nil, "code is no longer active"
	}
	if time.Now().After(promo.ExpiresAt) {
		return nil, "code has expired"
	}
	if promo.UsageLimit > 0 && promo.UsageCount >= promo.UsageLimit {
		return nil, "code has reached its usage limit"
	}
	if len(promo.EligibleTiers) > 0 {
		var eligible []string
		if err := json.Unmarshal(promo.EligibleTiers, &eligible); err != nil {
			logger.WithError(err).Error("malformed eligible_tiers on promo code", "code", code)
			return nil, "code is not valid"
		}
		found := false
		for _, t := range eligible {
			if billing.TierID(t) == tier {
				found = true
				break
			}
		}
		if !found {
			return nil, "code is not valid for the selected tier"
		}
	}
	return promo, ""
}

// StartTrial opens a 14-day trial on a paid tier. One trial per user,
// ever, regardless of tier.
func (s *SubscriptionServiceImpl) StartTrial(userID string, req *dto.StartTrialRequest) (*models.Subscription, error) {
	tier := billing.TierID(req.Tier)
	info, ok := billing.GetTier(tier)
	if !ok {
		return nil, apperrors.ErrUnknownTier
	}
	if !info.TrialEligible {
		return nil, apperrors.ErrTierNotTrialEligible
	}

	used, err := s.subRepo.HasUsedTrial(userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if used {
		return nil, apperrors.ErrTrialAlreadyUsed
	}

	if current, err := s.subRepo.FindCurrentByUser(userID); err == nil && current.IsCurrent(time.Now()) {
		return nil, apperrors.ErrTrialAlreadyUsed
	}

	now := time.Now()
	trialEnd := now.AddDate(0, 0, s.cfg.TrialDays)
	sub := &models.Subscription{
		UserID:       userID,
		Tier:         string(tier),
		Status:       models.SubscriptionStatusTrial,
		BillingCycle: string(billing.CycleMonthly),
		Price:        0,
		StartDate:    now,
		TrialEndDate: &trialEnd,
	}
	if err := s.subRepo.Create(sub); err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.notifyTrialStarted(userID, info.Name, trialEnd)
	return sub, nil
}

// Subscribe charges the user and opens a paid subscription. A running
// trial on any tier is superseded; an already active paid subscription
// must go through upgrade/downgrade instead.
func (s *SubscriptionServiceImpl) Subscribe(ctx context.Context, userID string, req *dto.SubscribeRequest) (*models.Subscription, error) {
	tier := billing.TierID(req.Tier)
	if tier == billing.TierEssential {
		return nil, apperrors.ErrFreeTierNotSubscribable
	}

	pricing, err := s.ComputePricing(&dto.PricingRequest{
		Tier:            req.Tier,
		BillingCycle:    req.BillingCycle,
		PromotionalCode: req.PromotionalCode,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	current, err := s.subRepo.FindCurrentByUser(userID)
	if err != nil && !apperrors.Is(err, repositories.ErrSubscriptionNotFound) {
		return nil, apperrors.InternalError(err)
	}
	var trial *models.Subscription
	if current != nil && current.IsCurrent(now) {
		switch current.Status {
		case models.SubscriptionStatusActive:
			return nil, apperrors.ErrInvalidOperation("subscription",
				"An active subscription already exists, use upgrade or downgrade")
		case models.SubscriptionStatusTrial:
			// Converting a trial: it stays live until the charge clears.
			trial = current
		}
	}

	endDate := billing.PeriodEnd(now, billing.Cycle(req.BillingCycle))
	sub := &models.Subscription{
		UserID:       userID,
		Tier:         string(tier),
		Status:       models.SubscriptionStatusInactive,
		BillingCycle: req.BillingCycle,
		Price:        pricing.FinalPrice,
		StartDate:    now,
		EndDate:      &endDate,
	}
	if req.PromotionalCode != "" {
		sub.PromotionalCode = &req.PromotionalCode
	}
	if err := s.subRepo.Create(sub); err != nil {
		return nil, apperrors.InternalError(err)
	}

	payment, err := s.charge(ctx, sub, pricing.FinalPrice, "subscription",
		fmt.Sprintf("%s plan, %s billing", tier, req.BillingCycle))
	if err != nil {
		return nil, err
	}

	if trial != nil {
		// Paid for: the new record takes over, the trial is closed out.
		// The charge already went through, so a lost race here must not
		// fail the subscription; the worker expires stragglers anyway.
		trial.Status = models.SubscriptionStatusExpired
		trial.EndDate = &now
		if err := s.subRepo.UpdateVersioned(trial, trial.Version); err != nil {
			logger.WithError(err).Error("failed to close out converted trial",
				"subscription_id", trial.ID, "user_id", userID)
		}
	}

	sub.Status = models.SubscriptionStatusActive
	if err := s.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
		return nil, s.mapVersionError(err)
	}

	if req.PromotionalCode != "" {
		if err := s.subRepo.IncrementPromoUsage(req.PromotionalCode); err != nil {
			logger.WithError(err).Error("failed to increment promo usage",
				"code", req.PromotionalCode, "payment_id", payment.ID)
		}
	}

	return sub, nil
}

// Upgrade moves an active subscription to a higher tier immediately,
// charging the prorated difference for the unused part of the current
// period.
func (s *SubscriptionServiceImpl) Upgrade(ctx context.Context, userID, subscriptionID, newTier string) (*models.Subscription, float64, error) {
	sub, err := s.ownedSubscription(userID, subscriptionID)
	if err != nil {
		return nil, 0, err
	}

	target := billing.TierID(newTier)
	if _, ok := billing.GetTier(target); !ok {
		return nil, 0, apperrors.ErrUnknownTier
	}
	if err := s.requireChangeable(sub); err != nil {
		return nil, 0, err
	}
	if billing.Rank(target) <= billing.Rank(billing.TierID(sub.Tier)) {
		return nil, 0, apperrors.ErrNotAnUpgrade
	}

	now := time.Now()
	var periodEnd time.Time
	if sub.EndDate != nil {
		periodEnd = *sub.EndDate
	} else {
		periodEnd = billing.PeriodEnd(sub.StartDate, billing.Cycle(sub.BillingCycle))
	}

	proration, err := billing.Proration(now, sub.StartDate, periodEnd,
		billing.TierID(sub.Tier), target, billing.Cycle(sub.BillingCycle))
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}

	oldTier := sub.Tier
	if proration > 0 {
		if _, err := s.charge(ctx, sub, proration, "proration",
			fmt.Sprintf("upgrade %s to %s", oldTier, newTier)); err != nil {
			return nil, 0, err
		}
	}

	sub.Tier = newTier
	// Switching up clears any scheduled downgrade.
	sub.PendingTier = nil
	sub.PendingTierAt = nil
	if err := s.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
		return nil, 0, s.mapVersionError(err)
	}

	s.notifySubscriptionChanged(userID, oldTier, newTier, now, proration)
	return sub, proration, nil
}

// Downgrade schedules a move to a lower tier at the end of the current
// billing period. The user keeps what they paid for until then; no
// refund and no immediate change.
func (s *SubscriptionServiceImpl) Downgrade(userID, subscriptionID, newTier string) (*models.Subscription, []string, error) {
	sub, err := s.ownedSubscription(userID, subscriptionID)
	if err != nil {
		return nil, nil, err
	}

	target := billing.TierID(newTier)
	targetInfo, ok := billing.GetTier(target)
	if !ok {
		return nil, nil, apperrors.ErrUnknownTier
	}
	if err := s.requireChangeable(sub); err != nil {
		return nil, nil, err
	}
	if billing.Rank(target) >= billing.Rank(billing.TierID(sub.Tier)) {
		return nil, nil, apperrors.ErrNotADowngrade
	}

	var effectiveAt time.Time
	if sub.EndDate != nil {
		effectiveAt = *sub.EndDate
	} else {
		effectiveAt = billing.PeriodEnd(sub.StartDate, billing.Cycle(sub.BillingCycle))
	}

	sub.PendingTier = &newTier
	sub.PendingTierAt = &effectiveAt
	if err := s.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
		return nil, nil, s.mapVersionError(err)
	}

	lost := featuresLost(billing.TierID(sub.Tier), targetInfo)
	s.notifySubscriptionChanged(userID, sub.Tier, newTier, effectiveAt, 0)
	return sub, lost, nil
}

// Cancel stops renewal. An active subscription keeps its features until
// the paid period ends; a trial ends immediately.
func (s *SubscriptionServiceImpl) Cancel(userID, subscriptionID string) (*models.Subscription, error) {
	sub, err := s.ownedSubscription(userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch sub.Status {
	case models.SubscriptionStatusActive:
		sub.Status = models.SubscriptionStatusCancelled
		sub.PendingTier = nil
		sub.PendingTierAt = nil
	case models.SubscriptionStatusTrial:
		sub.Status = models.SubscriptionStatusCancelled
		sub.EndDate = &now
	case models.SubscriptionStatusCancelled:
		return nil, apperrors.ErrSubscriptionCancelled
	default:
		return nil, apperrors.ErrSubscriptionNotActive
	}

	if err := s.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
		return nil, s.mapVersionError(err)
	}
	return sub, nil
}

func (s *SubscriptionServiceImpl) ListSubscriptions(userID string) ([]models.Subscription, error) {
	subs, err := s.subRepo.FindAllByUser(userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return subs, nil
}

func (s *SubscriptionServiceImpl) BillingHistory(userID string, offset, limit int) ([]models.PaymentTransaction, int64, error) {
	history, total, err := s.subRepo.FindPaymentsByUser(userID, offset, limit)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}
	return history, total, nil
}

// RetryPayment re-attempts a failed charge inside the grace period.
// Attempts are capped; after the cap or the grace window the
// subscription is left for the worker to expire.
func (s *SubscriptionServiceImpl) RetryPayment(ctx context.Context, userID, paymentID string) (*dto.RetryPaymentResponse, error) {
	payment, err := s.subRepo.FindPaymentByID(paymentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if payment.UserID != userID {
		return nil, apperrors.ErrInsufficientPermissions
	}
	if payment.Status != models.PaymentStatusFailed {
		return nil, apperrors.ErrInvalidStatus("payment", "Only failed payments can be retried")
	}

	fp, err := s.subRepo.FindFailedPayment(paymentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrFailedPaymentGone) {
			// Provider failures mark the payment failed without opening a
			// retry window, so there is nothing to retry.
			return nil, apperrors.ErrInvalidStatus("payment", "This payment cannot be retried")
		}
		return nil, apperrors.InternalError(err)
	}

	now := time.Now()
	if !fp.InGracePeriod(now) {
		return nil, apperrors.ErrGracePeriodEnded
	}
	if fp.RetryAttempts >= s.cfg.MaxRetries {
		return nil, apperrors.ErrRetryLimitReached
	}

	result, chargeErr := s.processor.Charge(ctx, &payments.ChargeRequest{
		UserID:         userID,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		Description:    "payment retry",
		IdempotencyKey: fmt.Sprintf("%s-retry-%d", payment.ID, fp.RetryAttempts+1),
	})

	fp.RetryAttempts++

	if chargeErr != nil {
		fp.FailureCount++
		if err := s.subRepo.UpdateFailedPayment(fp); err != nil {
			return nil, apperrors.InternalError(err)
		}
		if !payments.IsDecline(chargeErr) {
			return nil, apperrors.ErrPaymentProviderError.WithError(chargeErr)
		}
		return &dto.RetryPaymentResponse{
			Success:           false,
			PaymentID:         payment.ID,
			RemainingAttempts: s.cfg.MaxRetries - fp.RetryAttempts,
		}, nil
	}

	// Recovered: settle the payment, drop the failure record, and bring
	// the subscription back.
	payment.ProviderRef = result.ProviderRef
	payment.Status = models.PaymentStatusPaid
	payment.PaidAt = &now
	if err := s.subRepo.MarkPaymentPaid(payment); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.subRepo.DeleteFailedPayment(paymentID); err != nil {
		logger.WithError(err).Error("failed to delete failed payment record", "payment_id", paymentID)
	}

	if sub, err := s.subRepo.FindByID(payment.SubscriptionID); err == nil {
		if sub.Status == models.SubscriptionStatusInactive || sub.Status == models.SubscriptionStatusExpired {
			sub.Status = models.SubscriptionStatusActive
			if err := s.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
				logger.WithError(err).Error("failed to reactivate subscription", "subscription_id", sub.ID)
			}
		}
	}

	return &dto.RetryPaymentResponse{
		Success:           true,
		PaymentID:         payment.ID,
		RemainingAttempts: s.cfg.MaxRetries - fp.RetryAttempts,
	}, nil
}

// charge runs a card charge and records the transaction. On a decline it
// opens the failed-payment window and returns ErrPaymentDeclined.
func (s *SubscriptionServiceImpl) charge(ctx context.Context, sub *models.Subscription, amount float64, kind, description string) (*models.PaymentTransaction, error) {
	payment := &models.PaymentTransaction{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Amount:         amount,
		Currency:       "USD",
		Kind:           kind,
		Status:         models.PaymentStatusPending,
	}
	if err := s.subRepo.CreatePayment(payment); err != nil {
		return nil, apperrors.InternalError(err)
	}

	result, err := s.processor.Charge(ctx, &payments.ChargeRequest{
		UserID:         sub.UserID,
		Amount:         amount,
		Currency:       "USD",
		Description:    description,
		IdempotencyKey: payment.ID,
	})
	if err != nil {
		now := time.Now()
		_ = s.subRepo.UpdatePaymentStatus(payment.ID, models.PaymentStatusFailed, nil)

		if !payments.IsDecline(err) {
			return nil, apperrors.ErrPaymentProviderError.WithError(err)
		}

		fp := &models.FailedPayment{
			PaymentID:      payment.ID,
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			FailureCount:   1,
			GracePeriodEnd: now.AddDate(0, 0, s.cfg.GracePeriodDays),
		}
		if createErr := s.subRepo.CreateFailedPayment(fp); createErr != nil {
			logger.WithError(createErr).Error("failed to record failed payment", "payment_id", payment.ID)
		}
		s.notifyPaymentFailed(sub, amount, fp)
		return nil, apperrors.ErrPaymentDeclined.WithError(err)
	}

	now := time.Now()
	payment.ProviderRef = result.ProviderRef
	payment.Status = models.PaymentStatusPaid
	payment.PaidAt = &now
	if err := s.subRepo.MarkPaymentPaid(payment); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return payment, nil
}

func (s *SubscriptionServiceImpl) ownedSubscription(userID, subscriptionID string) (*models.Subscription, error) {
	sub, err := s.subRepo.FindByID(subscriptionID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrSubscriptionNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if sub.UserID != userID {
		return nil, apperrors.ErrInsufficientPermissions
	}
	return sub, nil
}

// requireChangeable enforces which statuses allow a tier change.
func (s *SubscriptionServiceImpl) requireChangeable(sub *models.Subscription) error {
	switch sub.Status {
	case models.SubscriptionStatusActive:
		return nil
	case models.SubscriptionStatusCancelled:
		return apperrors.ErrSubscriptionCancelled
	default:
		return apperrors.ErrSubscriptionNotActive
	}
}

func (s *SubscriptionServiceImpl) mapVersionError(err error) error {
	if apperrors.Is(err, repositories.ErrStaleSubscription) {
		return apperrors.ErrVersionConflict
	}
	if apperrors.Is(err, repositories.ErrSubscriptionNotFound) {
		return apperrors.ErrNotFound(err)
	}
	return apperrors.InternalError(err)
}

// featuresLost lists the features present on the current tier that the
// target tier lacks.
func featuresLost(from billing.TierID, to *billing.TierInfo) []string {
	fromInfo, ok := billing.GetTier(from)
	if !ok {
		return nil
	}
	keep := make(map[string]bool, len(to.Features))
	for _, f := range to.Features {
		keep[f] = true
	}
	var lost []string
	for _, f := range fromInfo.Features {
		if !keep[f] {
			lost = append(lost, f)
		}
	}
	return lost
}

// Email notifications are best effort: billing state is already
// persisted when they go out.

func (s *SubscriptionServiceImpl) notifyTrialStarted(userID, tierName string, trialEnd time.Time) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return
	}
	if err := s.emailSender.SendTrialStarted(user.Email, user.FullName, tierName,
		trialEnd.Format("January 2, 2006")); err != nil {
		logger.WithError(err).Warn("failed to send trial started email", "user_id", userID)
	}
}

func (s *SubscriptionServiceImpl) notifySubscriptionChanged(userID, oldTier, newTier string, effectiveAt time.Time, proration float64) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return
	}
	data := email.SubscriptionChangeData{
		TemplateData: email.TemplateData{UserName: user.FullName},
		OldTier:      oldTier,
		NewTier:      newTier,
		EffectiveAt:  effectiveAt.Format("January 2, 2006"),
		Proration:    proration,
	}
	if err := s.emailSender.SendSubscriptionChanged(user.Email, data); err != nil {
		logger.WithError(err).Warn("failed to send subscription change email", "user_id", userID)
	}
}

func (s *SubscriptionServiceImpl) notifyPaymentFailed(sub *models.Subscription, amount float64, fp *models.FailedPayment) {
	user, err := s.userRepo.FindByID(sub.UserID)
	if err != nil {
		return
	}
	tierName := sub.Tier
	if info, ok := billing.GetTier(billing.TierID(sub.Tier)); ok {
		tierName = info.Name
	}
	data := email.PaymentFailedData{
		TemplateData:   email.TemplateData{UserName: user.FullName},
		TierName:       tierName,
		Amount:         amount,
		GracePeriodEnd: fp.GracePeriodEnd.Format("January 2, 2006"),
		AttemptsLeft:   s.cfg.MaxRetries - fp.RetryAttempts,
	}
	if err := s.emailSender.SendPaymentFailed(user.Email, data); err != nil {
		logger.WithError(err).Warn("failed to send payment failed email", "user_id", sub.UserID)
	}
}
