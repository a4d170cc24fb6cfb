package workers

import (
	"testing"
	"time"

	"eventra_backend/internal/models"
	"eventra_backend/internal/pkg/email"
	"eventra_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSubRepo embeds the interface so only the methods a sweep touches
// need implementing; anything else panics with a nil dereference.
type stubSubRepo struct {
	repositories.SubscriptionRepository
	subs     map[string]*models.Subscription
	payments map[string]*models.PaymentTransaction
	failed   map[string]*models.FailedPayment
}

func newStubSubRepo() *stubSubRepo {
	return &stubSubRepo{
		subs:     map[string]*models.Subscription{},
		payments: map[string]*models.PaymentTransaction{},
		failed:   map[string]*models.FailedPayment{},
	}
}

func (r *stubSubRepo) FindByID(id string) (*models.Subscription, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, repositories.ErrSubscriptionNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *stubSubRepo) FindTrialsEndingBy(now, cutoff time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range r.subs {
		if s.Status == models.SubscriptionStatusTrial && s.TrialEndDate != nil &&
			s.TrialEndDate.After(now) && !s.TrialEndDate.After(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubSubRepo) UpdateVersioned(sub *models.Subscription, expectedVersion int) error {
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

func (r *stubSubRepo) FindPaymentByID(id string) (*models.PaymentTransaction, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubSubRepo) FindGracePeriodsEndingBy(now, cutoff time.Time) ([]models.FailedPayment, error) {
	var out []models.FailedPayment
	for _, fp := range r.failed {
		if fp.GracePeriodEnd.After(now) && !fp.GracePeriodEnd.After(cutoff) {
			out = append(out, *fp)
		}
	}
	return out, nil
}

func (r *stubSubRepo) UpdateFailedPayment(fp *models.FailedPayment) error {
	if _, ok := r.failed[fp.PaymentID]; !ok {
		return repositories.ErrFailedPaymentGone
	}
	clone := *fp
	r.failed[fp.PaymentID] = &clone
	return nil
}

type stubUserRepo struct {
	repositories.UserRepository
	users map[string]*models.User
}

func (r *stubUserRepo) FindByID(id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

type trialNotice struct {
	to       string
	tierName string
	daysLeft int
}

// recordingSender captures the notices a sweep sends.
type recordingSender struct {
	trialNotices []trialNotice
	dunning      []email.PaymentFailedData
}

func (s *recordingSender) Send(*email.Email) error                           { return nil }
func (s *recordingSender) SendVerification(string, string, string) error     { return nil }
func (s *recordingSender) SendInvitation(string, email.InvitationData) error { return nil }
func (s *recordingSender) SendTrialStarted(string, string, string, string) error {
	return nil
}
func (s *recordingSender) SendTrialEndingSoon(to, _, tierName string, daysLeft int) error {
	s.trialNotices = append(s.trialNotices, trialNotice{to: to, tierName: tierName, daysLeft: daysLeft})
	return nil
}
func (s *recordingSender) SendPaymentFailed(_ string, data email.PaymentFailedData) error {
	s.dunning = append(s.dunning, data)
	return nil
}
func (s *recordingSender) SendSubscriptionChanged(string, email.SubscriptionChangeData) error {
	return nil
}
func (s *recordingSender) SendNotification(string, string, string) error { return nil }

func noticeWorker(repo *stubSubRepo, sender *recordingSender) *SubscriptionWorker {
	user := &models.User{Email: "user@test.com", FullName: "Test User"}
	user.ID = "user-1"
	return &SubscriptionWorker{
		subRepo:     repo,
		userRepo:    &stubUserRepo{users: map[string]*models.User{"user-1": user}},
		emailSender: sender,
		maxRetries:  3,
	}
}

func TestNotifyTrialsEnding_OncePerConfiguredDay(t *testing.T) {
	repo := newStubSubRepo()
	sender := &recordingSender{}
	w := noticeWorker(repo, sender)

	now := time.Now()
	trialEnd := now.Add(44 * time.Hour) // a bit under 2 days
	sub := &models.Subscription{
		UserID:       "user-1",
		Tier:         "showcase",
		Status:       models.SubscriptionStatusTrial,
		TrialEndDate: &trialEnd,
	}
	sub.ID = "sub-1"
	repo.subs[sub.ID] = sub

	w.notifyTrialsEnding(now)
	require.Len(t, sender.trialNotices, 1)
	assert.Equal(t, "user@test.com", sender.trialNotices[0].to)
	assert.Equal(t, "Showcase", sender.trialNotices[0].tierName)
	assert.Equal(t, 2, sender.trialNotices[0].daysLeft)

	// The hourly sweep must not re-send within the same day bucket.
	w.notifyTrialsEnding(now.Add(time.Hour))
	assert.Len(t, sender.trialNotices, 1)

	// The next configured day fires once more.
	w.notifyTrialsEnding(trialEnd.Add(-20 * time.Hour))
	require.Len(t, sender.trialNotices, 2)
	assert.Equal(t, 1, sender.trialNotices[1].daysLeft)

	w.notifyTrialsEnding(trialEnd.Add(-19 * time.Hour))
	assert.Len(t, sender.trialNotices, 2)
}

func TestSendDunningNotices_RecordsSentDays(t *testing.T) {
	repo := newStubSubRepo()
	sender := &recordingSender{}
	w := noticeWorker(repo, sender)

	now := time.Now()
	sub := &models.Subscription{UserID: "user-1", Tier: "spotlight", Status: models.SubscriptionStatusInactive}
	sub.ID = "sub-1"
	repo.subs[sub.ID] = sub

	payment := &models.PaymentTransaction{
		UserID: "user-1", SubscriptionID: "sub-1",
		Amount: 69, Status: models.PaymentStatusFailed,
	}
	payment.ID = "pay-1"
	repo.payments[payment.ID] = payment

	fp := &models.FailedPayment{
		PaymentID:      "pay-1",
		SubscriptionID: "sub-1",
		UserID:         "user-1",
		FailureCount:   1,
		RetryAttempts:  1,
		GracePeriodEnd: now.Add(44 * time.Hour),
	}
	fp.ID = "fp-1"
	repo.failed[fp.PaymentID] = fp

	w.sendDunningNotices(now)
	require.Len(t, sender.dunning, 1)
	assert.Equal(t, "Spotlight", sender.dunning[0].TierName)
	assert.Equal(t, 69.0, sender.dunning[0].Amount)
	assert.Equal(t, 2, sender.dunning[0].AttemptsLeft)

	// The notice day is persisted so the next sweep skips it.
	stored := repo.failed["pay-1"]
	assert.JSONEq(t, `[3]`, string(stored.NotificationSentDays))

	w.sendDunningNotices(now.Add(time.Hour))
	assert.Len(t, sender.dunning, 1)
}

func TestDueNoticeDay_Buckets(t *testing.T) {
	// The tightest bucket covering the time left fires first.
	day, ok := dueNoticeDay([]int{5, 3, 1}, 4, nil)
	require.True(t, ok)
	assert.Equal(t, 5, day)

	// A sent bucket is skipped until the next one is due.
	sent := recordNoticeDay(nil, 5)
	_, ok = dueNoticeDay([]int{5, 3, 1}, 4, sent)
	assert.False(t, ok)

	day, ok = dueNoticeDay([]int{5, 3, 1}, 3, sent)
	require.True(t, ok)
	assert.Equal(t, 3, day)
}
