package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"eventra_backend/internal/billing"
	"eventra_backend/internal/dto"
	"eventra_backend/internal/models"
	"eventra_backend/internal/payments"
	"eventra_backend/internal/pkg/email"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// --- in-memory fakes ---

type fakeSubRepo struct {
	seq      int
	subs     map[string]*models.Subscription
	order    []string
	promos   map[string]*models.PromotionalCode
	payments map[string]*models.PaymentTransaction
	payOrder []string
	failed   map[string]*models.FailedPayment
	// staleNext fails the next UpdateVersioned, simulating a lost race.
	staleNext bool
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{
		subs:     map[string]*models.Subscription{},
		promos:   map[string]*models.PromotionalCode{},
		payments: map[string]*models.PaymentTransaction{},
		failed:   map[string]*models.FailedPayment{},
	}
}

func (r *fakeSubRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakeSubRepo) Create(sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = r.nextID("sub")
	}
	clone := *sub
	r.subs[sub.ID] = &clone
	r.order = append(r.order, sub.ID)
	return nil
}

func (r *fakeSubRepo) FindByID(id string) (*models.Subscription, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, repositories.ErrSubscriptionNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *fakeSubRepo) FindCurrentByUser(userID string) (*models.Subscription, error) {
	for i := len(r.order) - 1; i >= 0; i-- {
		s := r.subs[r.order[i]]
		if s.UserID != userID {
			continue
		}
		switch s.Status {
		case models.SubscriptionStatusTrial, models.SubscriptionStatusActive, models.SubscriptionStatusCancelled:
			clone := *s
			return &clone, nil
		}
	}
	return nil, repositories.ErrSubscriptionNotFound
}

func (r *fakeSubRepo) FindAllByUser(userID string) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, id := range r.order {
		if r.subs[id].UserID == userID {
			out = append(out, *r.subs[id])
		}
	}
	return out, nil
}

func (r *fakeSubRepo) UpdateVersioned(sub *models.Subscription, expectedVersion int) error {
	if r.staleNext {
		r.staleNext = false
		return repositories.ErrStaleSubscription
	}
	stored, ok := r.subs[sub.ID]
	if !ok {
		return repositories.ErrSubscriptionNotFound
	}
	if stored.Version != expectedVersion {
		return repositories.ErrStaleSubscription
	}
	clone := *sub
	clone.Version = expectedVersion + 1
	r.subs[sub.ID] = &clone
	sub.Version = clone.Version
	return nil
}

func (r *fakeSubRepo) HasUsedTrial(userID string) (bool, error) {
	for _, s := range r.subs {
		if s.UserID == userID && s.TrialEndDate != nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSubRepo) FindExpiredTrials(time.Time) ([]models.Subscription, error)     { return nil, nil }
func (r *fakeSubRepo) FindExpiredActive(time.Time) ([]models.Subscription, error)     { return nil, nil }
func (r *fakeSubRepo) FindDuePendingChanges(time.Time) ([]models.Subscription, error) { return nil, nil }
func (r *fakeSubRepo) FindTrialsEndingBy(time.Time, time.Time) ([]models.Subscription, error) {
	return nil, nil
}

func (r *fakeSubRepo) CreatePromoCode(code *models.PromotionalCode) error {
	if code.ID == "" {
		code.ID = r.nextID("promo")
	}
	r.promos[code.Code] = code
	return nil
}

func (r *fakeSubRepo) FindPromoCode(code string) (*models.PromotionalCode, error) {
	p, ok := r.promos[code]
	if !ok {
		return nil, repositories.ErrPromoCodeNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeSubRepo) IncrementPromoUsage(code string) error {
	p, ok := r.promos[code]
	if !ok {
		return repositories.ErrPromoCodeNotFound
	}
	p.UsageCount++
	return nil
}

func (r *fakeSubRepo) CreatePayment(p *models.PaymentTransaction) error {
	if p.ID == "" {
		p.ID = r.nextID("pay")
	}
	clone := *p
	r.payments[p.ID] = &clone
	r.payOrder = append(r.payOrder, p.ID)
	return nil
}

func (r *fakeSubRepo) FindPaymentByID(id string) (*models.PaymentTransaction, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeSubRepo) FindPaymentsByUser(userID string, offset, limit int) ([]models.PaymentTransaction, int64, error) {
	var out []models.PaymentTransaction
	for _, id := range r.payOrder {
		if r.payments[id].UserID == userID {
			out = append(out, *r.payments[id])
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSubRepo) UpdatePaymentStatus(id string, status models.PaymentStatus, paidAt *time.Time) error {
	p, ok := r.payments[id]
	if !ok {
		return repositories.ErrPaymentNotFound
	}
	p.Status = status
	p.PaidAt = paidAt
	return nil
}

func (r *fakeSubRepo) MarkPaymentPaid(payment *models.PaymentTransaction) error {
	p, ok := r.payments[payment.ID]
	if !ok {
		return repositories.ErrPaymentNotFound
	}
	p.Status = payment.Status
	p.ProviderRef = payment.ProviderRef
	p.PaidAt = payment.PaidAt
	return nil
}

func (r *fakeSubRepo) CreateFailedPayment(fp *models.FailedPayment) error {
	if fp.ID == "" {
		fp.ID = r.nextID("fp")
	}
	clone := *fp
	r.failed[fp.PaymentID] = &clone
	return nil
}

func (r *fakeSubRepo) FindFailedPayment(paymentID string) (*models.FailedPayment, error) {
	fp, ok := r.failed[paymentID]
	if !ok {
		return nil, repositories.ErrFailedPaymentGone
	}
	clone := *fp
	return &clone, nil
}

func (r *fakeSubRepo) UpdateFailedPayment(fp *models.FailedPayment) error {
	if _, ok := r.failed[fp.PaymentID]; !ok {
		return repositories.ErrFailedPaymentGone
	}
	clone := *fp
	r.failed[fp.PaymentID] = &clone
	return nil
}

func (r *fakeSubRepo) DeleteFailedPayment(paymentID string) error {
	delete(r.failed, paymentID)
	return nil
}

func (r *fakeSubRepo) FindExpiredGracePeriods(time.Time) ([]models.FailedPayment, error) {
	return nil, nil
}

func (r *fakeSubRepo) FindGracePeriodsEndingBy(time.Time, time.Time) ([]models.FailedPayment, error) {
	return nil, nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(u *models.User) error { r.users[u.ID] = u; return nil }
func (r *fakeUserRepo) FindByID(id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}
func (r *fakeUserRepo) FindByEmail(string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}
func (r *fakeUserRepo) FindByVerificationToken(string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}
func (r *fakeUserRepo) Update(*models.User) error                         { return nil }
func (r *fakeUserRepo) UpdateStatus(string, models.UserStatus) error      { return nil }
func (r *fakeUserRepo) MarkVerified(string) error                         { return nil }
func (r *fakeUserRepo) CountByRole(models.UserRole) (int64, error)        { return 0, nil }
func (r *fakeUserRepo) List(models.UserRole, int, int) ([]models.User, int64, error) {
	return nil, 0, nil
}

type noopSender struct{}

func (noopSender) Send(*email.Email) error                                       { return nil }
func (noopSender) SendVerification(string, string, string) error                 { return nil }
func (noopSender) SendInvitation(string, email.InvitationData) error             { return nil }
func (noopSender) SendTrialStarted(string, string, string, string) error         { return nil }
func (noopSender) SendTrialEndingSoon(string, string, string, int) error         { return nil }
func (noopSender) SendPaymentFailed(string, email.PaymentFailedData) error       { return nil }
func (noopSender) SendSubscriptionChanged(string, email.SubscriptionChangeData) error {
	return nil
}
func (noopSender) SendNotification(string, string, string) error { return nil }

// scriptedProcessor returns queued errors in order, then succeeds.
type scriptedProcessor struct {
	errs    []error
	charges []payments.ChargeRequest
}

func (p *scriptedProcessor) Charge(_ context.Context, req *payments.ChargeRequest) (*payments.ChargeResult, error) {
	p.charges = append(p.charges, *req)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &payments.ChargeResult{ProviderRef: "ch_test"}, nil
}

func newTestService(repo *fakeSubRepo, proc *scriptedProcessor) SubscriptionService {
	user := &models.User{Email: "user@test.com", FullName: "Test User"}
	user.ID = "user-1"
	return NewSubscriptionService(repo, newFakeUserRepo(user), proc, noopSender{}, BillingConfig{
		TrialDays:       14,
		GracePeriodDays: 7,
		MaxRetries:      3,
	})
}

func seedPromo(repo *fakeSubRepo, code *models.PromotionalCode) {
	if code.ExpiresAt.IsZero() {
		code.ExpiresAt = time.Now().Add(24 * time.Hour)
	}
	_ = repo.CreatePromoCode(code)
}

// --- pricing & promos ---

func TestComputePricing_PercentagePromo(t *testing.T) {
	repo := newFakeSubRepo()
	seedPromo(repo, &models.PromotionalCode{
		Code: "WELCOME10", DiscountType: "percentage", DiscountValue: 10,
		UsageLimit: 100, IsActive: true,
	})
	svc := newTestService(repo, &scriptedProcessor{})

	info, err := svc.ComputePricing(&dto.PricingRequest{
		Tier: "showcase", BillingCycle: "yearly", PromotionalCode: "WELCOME10",
	})
	require.NoError(t, err)
	assert.Equal(t, 299.0, info.BasePrice)
	assert.Equal(t, 29.9, info.DiscountApplied)
	assert.Equal(t, 269.1, info.FinalPrice)
	// Savings against 12 months at 29/month.
	assert.Equal(t, 78.9, info.Savings)
}

func TestComputePricing_ExpiredPromoFailsWholeComputation(t *testing.T) {
	repo := newFakeSubRepo()
	seedPromo(repo, &models.PromotionalCode{
		Code: "OLD", DiscountType: "fixed", DiscountValue: 5,
		ExpiresAt: time.Now().Add(-time.Hour), UsageLimit: 100, IsActive: true,
	})
	svc := newTestService(repo, &scriptedProcessor{})

	_, err := svc.ComputePricing(&dto.PricingRequest{
		Tier: "showcase", BillingCycle: "monthly", PromotionalCode: "OLD",
	})
	assert.True(t, errors.Is(err, apperrors.ErrPromoCodeInvalid))
}

func TestComputePricing_UnknownTierAndCycle(t *testing.T) {
	svc := newTestService(newFakeSubRepo(), &scriptedProcessor{})

	_, err := svc.ComputePricing(&dto.PricingRequest{Tier: "platinum", BillingCycle: "monthly"})
	assert.True(t, errors.Is(err, apperrors.ErrUnknownTier))

	_, err = svc.ComputePricing(&dto.PricingRequest{Tier: "showcase", BillingCycle: "weekly"})
	assert.True(t, errors.Is(err, apperrors.ErrUnknownBillingCycle))
}

func TestValidatePromo_Reasons(t *testing.T) {
	repo := newFakeSubRepo()
	seedPromo(repo, &models.PromotionalCode{
		Code: "SPENT", DiscountType: "percentage", DiscountValue: 20,
		UsageLimit: 5, UsageCount: 5, IsActive: true,
	})
	seedPromo(repo, &models.PromotionalCode{
		Code: "SPOTONLY", DiscountType: "fixed", DiscountValue: 50,
		UsageLimit: 100, IsActive: true,
		EligibleTiers: datatypes.JSON(`["spotlight"]`),
	})
	svc := newTestService(repo, &scriptedProcessor{})

	res := svc.ValidatePromo(&dto.ValidatePromoRequest{Code: "NOPE", Tier: "showcase"})
	assert.False(t, res.Valid)

	res = svc.ValidatePromo(&dto.ValidatePromoRequest{Code: "SPENT", Tier: "showcase"})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "usage limit")

	res = svc.ValidatePromo(&dto.ValidatePromoRequest{Code: "SPOTONLY", Tier: "showcase"})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "not valid for the selected tier")

	res = svc.ValidatePromo(&dto.ValidatePromoRequest{Code: "SPOTONLY", Tier: "spotlight"})
	assert.True(t, res.Valid)
	assert.Equal(t, "fixed", res.DiscountType)
	assert.Equal(t, 50.0, res.DiscountValue)
}

// --- trials ---

func TestStartTrial_OncePerUserEver(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})

	sub, err := svc.StartTrial("user-1", &dto.StartTrialRequest{Tier: "showcase"})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusTrial, sub.Status)
	require.NotNil(t, sub.TrialEndDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), *sub.TrialEndDate, time.Minute)

	// Cancel it, then try again on another tier: still rejected.
	_, err = svc.Cancel("user-1", sub.ID)
	require.NoError(t, err)

	_, err = svc.StartTrial("user-1", &dto.StartTrialRequest{Tier: "spotlight"})
	assert.True(t, errors.Is(err, apperrors.ErrTrialAlreadyUsed))
}

func TestStartTrial_EssentialNotEligible(t *testing.T) {
	svc := newTestService(newFakeSubRepo(), &scriptedProcessor{})

	_, err := svc.StartTrial("user-1", &dto.StartTrialRequest{Tier: "essential"})
	assert.True(t, errors.Is(err, apperrors.ErrTierNotTrialEligible))
}

// --- subscribe ---

func TestSubscribe_ChargesAndActivates(t *testing.T) {
	repo := newFakeSubRepo()
	proc := &scriptedProcessor{}
	svc := newTestService(repo, proc)

	sub, err := svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "showcase", BillingCycle: "yearly",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, 299.0, sub.Price)
	require.NotNil(t, sub.EndDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 12, 0), *sub.EndDate, time.Minute)

	require.Len(t, proc.charges, 1)
	assert.Equal(t, 299.0, proc.charges[0].Amount)
	assert.NotEmpty(t, proc.charges[0].IdempotencyKey)

	// The settled charge carries the processor's reference.
	require.Len(t, repo.payOrder, 1)
	stored := repo.payments[repo.payOrder[0]]
	assert.Equal(t, models.PaymentStatusPaid, stored.Status)
	assert.Equal(t, "ch_test", stored.ProviderRef)
	assert.NotNil(t, stored.PaidAt)
}

func TestSubscribe_EssentialRejected(t *testing.T) {
	svc := newTestService(newFakeSubRepo(), &scriptedProcessor{})

	_, err := svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "essential", BillingCycle: "monthly",
	})
	assert.True(t, errors.Is(err, apperrors.ErrFreeTierNotSubscribable))
}

func TestSubscribe_SupersedesRunningTrial(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})

	trial, err := svc.StartTrial("user-1", &dto.StartTrialRequest{Tier: "showcase"})
	require.NoError(t, err)

	paid, err := svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "spotlight", BillingCycle: "monthly",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, paid.Status)

	stored, err := repo.FindByID(trial.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusExpired, stored.Status)
}

func TestSubscribe_DeclinedConversionKeepsTrial(t *testing.T) {
	repo := newFakeSubRepo()
	proc := &scriptedProcessor{errs: []error{payments.ErrCardDeclined}}
	svc := newTestService(repo, proc)

	trial, err := svc.StartTrial("user-1", &dto.StartTrialRequest{Tier: "showcase"})
	require.NoError(t, err)

	_, err = svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "spotlight", BillingCycle: "monthly",
	})
	assert.True(t, errors.Is(err, apperrors.ErrPaymentDeclined))

	// The trial survives the failed conversion untouched.
	stored, err := repo.FindByID(trial.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusTrial, stored.Status)
	assert.Nil(t, stored.EndDate)
	require.NotNil(t, stored.TrialEndDate)
	assert.True(t, stored.IsCurrent(time.Now()))

	// A provider outage must not burn the trial either.
	proc.errs = []error{errors.New("gateway timeout")}
	_, err = svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "spotlight", BillingCycle: "monthly",
	})
	assert.True(t, errors.Is(err, apperrors.ErrPaymentProviderError))

	stored, err = repo.FindByID(trial.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusTrial, stored.Status)
}

func TestSubscribe_ActiveSubscriptionMustUseTierChange(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})

	_, err := svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "showcase", BillingCycle: "monthly",
	})
	require.NoError(t, err)

	_, err = svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "spotlight", BillingCycle: "monthly",
	})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "upgrade or downgrade")
}

func TestSubscribe_DeclineOpensGracePeriod(t *testing.T) {
	repo := newFakeSubRepo()
	proc := &scriptedProcessor{errs: []error{payments.ErrCardDeclined}}
	svc := newTestService(repo, proc)

	_, err := svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "showcase", BillingCycle: "monthly",
	})
	assert.True(t, errors.Is(err, apperrors.ErrPaymentDeclined))

	require.Len(t, repo.payOrder, 1)
	payment := repo.payments[repo.payOrder[0]]
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	fp, err := repo.FindFailedPayment(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fp.FailureCount)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), fp.GracePeriodEnd, time.Minute)
}

func TestSubscribe_ProviderErrorIsNotADecline(t *testing.T) {
	repo := newFakeSubRepo()
	proc := &scriptedProcessor{errs: []error{errors.New("connection reset")}}
	svc := newTestService(repo, proc)

	_, err := svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "showcase", BillingCycle: "monthly",
	})
	assert.True(t, errors.Is(err, apperrors.ErrPaymentProviderError))
	assert.Empty(t, repo.failed)
}

func TestSubscribe_IncrementsPromoUsage(t *testing.T) {
	repo := newFakeSubRepo()
	seedPromo(repo, &models.PromotionalCode{
		Code: "WELCOME10", DiscountType: "percentage", DiscountValue: 10,
		UsageLimit: 100, IsActive: true,
	})
	svc := newTestService(repo, &scriptedProcessor{})

	sub, err := svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "showcase", BillingCycle: "monthly", PromotionalCode: "WELCOME10",
	})
	require.NoError(t, err)
	assert.Equal(t, 26.1, sub.Price)
	assert.Equal(t, 1, repo.promos["WELCOME10"].UsageCount)
}

// --- upgrade / downgrade / cancel ---

func activeSubscription(t *testing.T, repo *fakeSubRepo, svc SubscriptionService, tier, cycle string) *models.Subscription {
	t.Helper()
	sub, err := svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: tier, BillingCycle: cycle,
	})
	require.NoError(t, err)
	return sub
}

func TestUpgrade_ChargesProratedDifference(t *testing.T) {
	repo := newFakeSubRepo()
	proc := &scriptedProcessor{}
	svc := newTestService(repo, proc)

	sub := activeSubscription(t, repo, svc, "showcase", "monthly")

	// Rewind the period so exactly half of a 30-day cycle remains.
	start := time.Now().AddDate(0, 0, -15)
	end := start.AddDate(0, 0, 30)
	sub.StartDate = start
	sub.EndDate = &end
	require.NoError(t, repo.UpdateVersioned(sub, sub.Version))

	upgraded, proration, err := svc.Upgrade(context.Background(), "user-1", sub.ID, "spotlight")
	require.NoError(t, err)
	assert.Equal(t, "spotlight", upgraded.Tier)
	// Half the period remaining on a $40/month difference.
	assert.Equal(t, 20.0, proration)

	require.Len(t, proc.charges, 2)
	assert.Equal(t, 20.0, proc.charges[1].Amount)
}

func TestUpgrade_RejectsSameOrLowerTier(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})
	sub := activeSubscription(t, repo, svc, "spotlight", "monthly")

	_, _, err := svc.Upgrade(context.Background(), "user-1", sub.ID, "spotlight")
	assert.True(t, errors.Is(err, apperrors.ErrNotAnUpgrade))

	_, _, err = svc.Upgrade(context.Background(), "user-1", sub.ID, "showcase")
	assert.True(t, errors.Is(err, apperrors.ErrNotAnUpgrade))
}

func TestUpgrade_ClearsScheduledDowngrade(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})
	sub := activeSubscription(t, repo, svc, "spotlight", "monthly")

	_, _, err := svc.Downgrade("user-1", sub.ID, "showcase")
	require.NoError(t, err)

	stored, _ := repo.FindByID(sub.ID)
	require.NotNil(t, stored.PendingTier)

	// Move down first so an upgrade is possible again.
	stored.Tier = "showcase"
	require.NoError(t, repo.UpdateVersioned(stored, stored.Version))

	upgraded, _, err := svc.Upgrade(context.Background(), "user-1", sub.ID, "spotlight")
	require.NoError(t, err)
	assert.Nil(t, upgraded.PendingTier)
	assert.Nil(t, upgraded.PendingTierAt)
}

func TestDowngrade_TakesEffectNextCycle(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})
	sub := activeSubscription(t, repo, svc, "spotlight", "monthly")

	scheduled, lost, err := svc.Downgrade("user-1", sub.ID, "showcase")
	require.NoError(t, err)

	// Tier unchanged until the worker applies the pending change.
	assert.Equal(t, "spotlight", scheduled.Tier)
	require.NotNil(t, scheduled.PendingTier)
	assert.Equal(t, "showcase", *scheduled.PendingTier)
	require.NotNil(t, scheduled.PendingTierAt)
	assert.Equal(t, sub.EndDate.Unix(), scheduled.PendingTierAt.Unix())

	assert.ElementsMatch(t, []string{"priority_placement", "analytics", "dedicated_support"}, lost)
}

func TestDowngrade_RejectsSameOrHigherTier(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})
	sub := activeSubscription(t, repo, svc, "showcase", "monthly")

	_, _, err := svc.Downgrade("user-1", sub.ID, "spotlight")
	assert.True(t, errors.Is(err, apperrors.ErrNotADowngrade))
}

func TestTierChange_OwnershipEnforced(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})
	sub := activeSubscription(t, repo, svc, "showcase", "monthly")

	_, _, err := svc.Upgrade(context.Background(), "someone-else", sub.ID, "spotlight")
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientPermissions))
}

func TestCancel_ActiveKeepsPaidPeriod(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})
	sub := activeSubscription(t, repo, svc, "showcase", "yearly")
	paidUntil := *sub.EndDate

	cancelled, err := svc.Cancel("user-1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.EndDate)
	assert.Equal(t, paidUntil.Unix(), cancelled.EndDate.Unix())

	// A second cancel is rejected.
	_, err = svc.Cancel("user-1", sub.ID)
	assert.True(t, errors.Is(err, apperrors.ErrSubscriptionCancelled))
}

func TestCancel_TrialEndsImmediately(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})

	trial, err := svc.StartTrial("user-1", &dto.StartTrialRequest{Tier: "showcase"})
	require.NoError(t, err)

	cancelled, err := svc.Cancel("user-1", trial.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.EndDate)
	assert.WithinDuration(t, time.Now(), *cancelled.EndDate, time.Minute)
}

func TestTierChange_VersionConflict(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})
	sub := activeSubscription(t, repo, svc, "showcase", "monthly")

	// A concurrent writer sneaks in between the service's read and write.
	repo.staleNext = true
	_, _, err := svc.Downgrade("user-1", sub.ID, "essential")
	assert.True(t, errors.Is(err, apperrors.ErrVersionConflict))
}

// --- retry ---

func seedFailedPayment(repo *fakeSubRepo, subID string, attempts int, graceEnd time.Time) *models.PaymentTransaction {
	payment := &models.PaymentTransaction{
		UserID:         "user-1",
		SubscriptionID: subID,
		Amount:         29,
		Currency:       "USD",
		Kind:           "subscription",
		Status:         models.PaymentStatusFailed,
	}
	_ = repo.CreatePayment(payment)
	_ = repo.CreateFailedPayment(&models.FailedPayment{
		PaymentID:      payment.ID,
		SubscriptionID: subID,
		UserID:         "user-1",
		FailureCount:   attempts + 1,
		RetryAttempts:  attempts,
		GracePeriodEnd: graceEnd,
	})
	return payment
}

func TestRetryPayment_SuccessReactivatesSubscription(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})

	sub := &models.Subscription{
		UserID: "user-1", Tier: "showcase",
		Status: models.SubscriptionStatusInactive, BillingCycle: "monthly",
	}
	require.NoError(t, repo.Create(sub))
	payment := seedFailedPayment(repo, sub.ID, 1, time.Now().Add(48*time.Hour))

	res, err := svc.RetryPayment(context.Background(), "user-1", payment.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.RemainingAttempts)

	stored, _ := repo.FindByID(sub.ID)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)

	_, err = repo.FindFailedPayment(payment.ID)
	assert.Error(t, err)

	paid, _ := repo.FindPaymentByID(payment.ID)
	assert.Equal(t, models.PaymentStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
}

func TestRetryPayment_DeclineCountsAttempt(t *testing.T) {
	repo := newFakeSubRepo()
	proc := &scriptedProcessor{errs: []error{payments.ErrInsufficientFunds}}
	svc := newTestService(repo, proc)

	sub := &models.Subscription{UserID: "user-1", Tier: "showcase", Status: models.SubscriptionStatusInactive}
	require.NoError(t, repo.Create(sub))
	payment := seedFailedPayment(repo, sub.ID, 0, time.Now().Add(48*time.Hour))

	res, err := svc.RetryPayment(context.Background(), "user-1", payment.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.RemainingAttempts)

	fp, _ := repo.FindFailedPayment(payment.ID)
	assert.Equal(t, 1, fp.RetryAttempts)
	assert.Equal(t, 2, fp.FailureCount)
}

func TestRetryPayment_CapEnforcedEvenInsideGrace(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})

	sub := &models.Subscription{UserID: "user-1", Tier: "showcase", Status: models.SubscriptionStatusInactive}
	require.NoError(t, repo.Create(sub))
	payment := seedFailedPayment(repo, sub.ID, 3, time.Now().Add(48*time.Hour))

	_, err := svc.RetryPayment(context.Background(), "user-1", payment.ID)
	assert.True(t, errors.Is(err, apperrors.ErrRetryLimitReached))
}

func TestRetryPayment_GracePeriodEnded(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})

	sub := &models.Subscription{UserID: "user-1", Tier: "showcase", Status: models.SubscriptionStatusInactive}
	require.NoError(t, repo.Create(sub))
	payment := seedFailedPayment(repo, sub.ID, 1, time.Now().Add(-time.Hour))

	_, err := svc.RetryPayment(context.Background(), "user-1", payment.ID)
	assert.True(t, errors.Is(err, apperrors.ErrGracePeriodEnded))
}

func TestRetryPayment_IdempotencyKeyPerAttempt(t *testing.T) {
	repo := newFakeSubRepo()
	proc := &scriptedProcessor{errs: []error{payments.ErrCardDeclined}}
	svc := newTestService(repo, proc)

	sub := &models.Subscription{UserID: "user-1", Tier: "showcase", Status: models.SubscriptionStatusInactive}
	require.NoError(t, repo.Create(sub))
	payment := seedFailedPayment(repo, sub.ID, 0, time.Now().Add(48*time.Hour))

	_, err := svc.RetryPayment(context.Background(), "user-1", payment.ID)
	require.NoError(t, err)
	_, err = svc.RetryPayment(context.Background(), "user-1", payment.ID)
	require.NoError(t, err)

	require.Len(t, proc.charges, 2)
	assert.Equal(t, payment.ID+"-retry-1", proc.charges[0].IdempotencyKey)
	assert.Equal(t, payment.ID+"-retry-2", proc.charges[1].IdempotencyKey)
	assert.NotEqual(t, proc.charges[0].IdempotencyKey, proc.charges[1].IdempotencyKey)
}

func TestRetryPayment_OnlyOwnerAndOnlyFailed(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &scriptedProcessor{})

	sub := &models.Subscription{UserID: "user-1", Tier: "showcase", Status: models.SubscriptionStatusActive}
	require.NoError(t, repo.Create(sub))
	payment := seedFailedPayment(repo, sub.ID, 0, time.Now().Add(48*time.Hour))

	_, err := svc.RetryPayment(context.Background(), "someone-else", payment.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientPermissions))

	now := time.Now()
	require.NoError(t, repo.UpdatePaymentStatus(payment.ID, models.PaymentStatusPaid, &now))
	_, err = svc.RetryPayment(context.Background(), "user-1", payment.ID)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeInvalidStatus, appErr.Code)
}

func TestRetryPayment_NoRetryWindowIsClientError(t *testing.T) {
	repo := newFakeSubRepo()
	proc := &scriptedProcessor{errs: []error{errors.New("connection reset")}}
	svc := newTestService(repo, proc)

	// A provider failure marks the payment failed without opening a
	// retry window.
	_, err := svc.Subscribe(context.Background(), "user-1", &dto.SubscribeRequest{
		Tier: "showcase", BillingCycle: "monthly",
	})
	require.True(t, errors.Is(err, apperrors.ErrPaymentProviderError))

	require.Len(t, repo.payOrder, 1)
	paymentID := repo.payOrder[0]
	assert.Equal(t, models.PaymentStatusFailed, repo.payments[paymentID].Status)

	_, err = svc.RetryPayment(context.Background(), "user-1", paymentID)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeInvalidStatus, appErr.Code)
	assert.Equal(t, 400, appErr.HTTPCode)
}

func TestListTiers_RankingOrder(t *testing.T) {
	svc := newTestService(newFakeSubRepo(), &scriptedProcessor{})

	tiers := svc.ListTiers()
	require.Len(t, tiers, 3)
	assert.Equal(t, billing.TierEssential, tiers[0].ID)
	assert.Equal(t, billing.TierShowcase, tiers[1].ID)
	assert.Equal(t, billing.TierSpotlight, tiers[2].ID)
}
