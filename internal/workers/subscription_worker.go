package workers

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"eventra_backend/internal/billing"
	"eventra_backend/internal/logger"
	"eventra_backend/internal/models"
	"eventra_backend/internal/pkg/email"
	"eventra_backend/internal/repositories"

	"gorm.io/datatypes"
)

const workerName = "subscription_worker"

// Days before the deadline on which a notice goes out. Each day fires
// at most once per subscription or failed payment.
var (
	trialNoticeDays = []int{3, 1}
	graceNoticeDays = []int{5, 3, 1}
)

// SubscriptionWorker runs the periodic lifecycle sweeps: trial expiry,
// paid-period expiry, pending downgrades, grace-period enforcement,
// trial-ending and dunning notices, and housekeeping of invitations
// and refresh tokens.
type SubscriptionWorker struct {
	subRepo        repositories.SubscriptionRepository
	invitationRepo repositories.InvitationRepository
	tokenRepo      repositories.RefreshTokenRepository
	userRepo       repositories.UserRepository
	emailSender    email.Sender
	maxRetries     int
	interval       time.Duration
}

func NewSubscriptionWorker(
	subRepo repositories.SubscriptionRepository,
	invitationRepo repositories.InvitationRepository,
	tokenRepo repositories.RefreshTokenRepository,
	userRepo repositories.UserRepository,
	emailSender email.Sender,
	maxRetries int,
	interval time.Duration,
) *SubscriptionWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SubscriptionWorker{
		subRepo:        subRepo,
		invitationRepo: invitationRepo,
		tokenRepo:      tokenRepo,
		userRepo:       userRepo,
		emailSender:    emailSender,
		maxRetries:     maxRetries,
		interval:       interval,
	}
}

// Run blocks until ctx is cancelled. One sweep runs immediately on
// start so a restarted process does not wait a full interval.
func (w *SubscriptionWorker) Run(ctx context.Context) {
	logger.Info("Subscription worker started", "interval", w.interval.String())

	w.sweep(time.Now())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Subscription worker stopped")
			return
		case now := <-ticker.C:
			w.sweep(now)
		}
	}
}

func (w *SubscriptionWorker) sweep(now time.Time) {
	w.expireTrials(now)
	w.expireFinishedPeriods(now)
	w.applyPendingChanges(now)
	w.enforceGracePeriods(now)
	w.notifyTrialsEnding(now)
	w.sendDunningNotices(now)
	w.expireInvitations(now)
	w.purgeRefreshTokens()
}

func (w *SubscriptionWorker) expireTrials(now time.Time) {
	trials, err := w.subRepo.FindExpiredTrials(now)
	if err != nil {
		logger.WorkerLog(workerName, "find expired trials", err)
		return
	}
	for i := range trials {
		sub := &trials[i]
		sub.Status = models.SubscriptionStatusExpired
		end := now
		sub.EndDate = &end
		if err := w.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
			logger.WorkerLog(workerName, "expire trial "+sub.ID, err)
			continue
		}
		logger.Info("Trial expired", "subscription_id", sub.ID, "user_id", sub.UserID)
	}
}

func (w *SubscriptionWorker) expireFinishedPeriods(now time.Time) {
	subs, err := w.subRepo.FindExpiredActive(now)
	if err != nil {
		logger.WorkerLog(workerName, "find expired subscriptions", err)
		return
	}
	for i := range subs {
		sub := &subs[i]
		sub.Status = models.SubscriptionStatusExpired
		if err := w.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
			logger.WorkerLog(workerName, "expire subscription "+sub.ID, err)
			continue
		}
		logger.Info("Subscription expired", "subscription_id", sub.ID, "user_id", sub.UserID)
	}
}

// applyPendingChanges swaps in the scheduled downgrade tier once the
// current cycle has ended.
func (w *SubscriptionWorker) applyPendingChanges(now time.Time) {
	subs, err := w.subRepo.FindDuePendingChanges(now)
	if err != nil {
		logger.WorkerLog(workerName, "find pending tier changes", err)
		return
	}
	for i := range subs {
		sub := &subs[i]
		if sub.PendingTier == nil {
			continue
		}
		oldTier := sub.Tier
		sub.Tier = *sub.PendingTier
		sub.PendingTier = nil
		sub.PendingTierAt = nil
		if err := w.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
			logger.WorkerLog(workerName, "apply pending change "+sub.ID, err)
			continue
		}
		logger.Info("Pending tier change applied",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"from", oldTier,
			"to", sub.Tier,
		)
	}
}

// enforceGracePeriods expires subscriptions whose failed payment was
// never recovered within the grace window.
func (w *SubscriptionWorker) enforceGracePeriods(now time.Time) {
	failed, err := w.subRepo.FindExpiredGracePeriods(now)
	if err != nil {
		logger.WorkerLog(workerName, "find expired grace periods", err)
		return
	}
	for i := range failed {
		fp := &failed[i]
		sub, err := w.subRepo.FindByID(fp.SubscriptionID)
		if err != nil {
			logger.WorkerLog(workerName, "load subscription "+fp.SubscriptionID, err)
			continue
		}
		if sub.Status != models.SubscriptionStatusExpired {
			sub.Status = models.SubscriptionStatusExpired
			end := now
			sub.EndDate = &end
			if err := w.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
				logger.WorkerLog(workerName, "expire after grace "+sub.ID, err)
				continue
			}
		}
		if err := w.subRepo.DeleteFailedPayment(fp.PaymentID); err != nil {
			logger.WorkerLog(workerName, "delete failed payment "+fp.PaymentID, err)
			continue
		}
		logger.Info("Grace period ended, subscription expired",
			"subscription_id", fp.SubscriptionID,
			"user_id", fp.UserID,
		)
	}
}

// notifyTrialsEnding emails users whose trial ends within the largest
// configured notice day, once per configured day.
func (w *SubscriptionWorker) notifyTrialsEnding(now time.Time) {
	cutoff := now.AddDate(0, 0, trialNoticeDays[0])
	trials, err := w.subRepo.FindTrialsEndingBy(now, cutoff)
	if err != nil {
		logger.WorkerLog(workerName, "find ending trials", err)
		return
	}
	for i := range trials {
		sub := &trials[i]
		if sub.TrialEndDate == nil {
			continue
		}
		daysLeft := daysUntil(now, *sub.TrialEndDate)
		day, ok := dueNoticeDay(trialNoticeDays, daysLeft, sub.NotificationSentDays)
		if !ok {
			continue
		}
		user, err := w.userRepo.FindByID(sub.UserID)
		if err != nil {
			logger.WorkerLog(workerName, "load user "+sub.UserID, err)
			continue
		}
		tierName := sub.Tier
		if info, found := billing.GetTier(billing.TierID(sub.Tier)); found {
			tierName = info.Name
		}
		if err := w.emailSender.SendTrialEndingSoon(user.Email, user.FullName, tierName, daysLeft); err != nil {
			logger.WorkerLog(workerName, "send trial ending notice "+sub.ID, err)
			continue
		}
		sub.NotificationSentDays = recordNoticeDay(sub.NotificationSentDays, day)
		if err := w.subRepo.UpdateVersioned(sub, sub.Version); err != nil {
			logger.WorkerLog(workerName, "record trial notice "+sub.ID, err)
			continue
		}
		logger.Info("Trial ending notice sent",
			"subscription_id", sub.ID, "user_id", sub.UserID, "days_left", daysLeft)
	}
}

// sendDunningNotices reminds users with an open failed-payment window
// as the grace period runs down, once per configured day.
func (w *SubscriptionWorker) sendDunningNotices(now time.Time) {
	cutoff := now.AddDate(0, 0, graceNoticeDays[0])
	failed, err := w.subRepo.FindGracePeriodsEndingBy(now, cutoff)
	if err != nil {
		logger.WorkerLog(workerName, "find running grace periods", err)
		return
	}
	for i := range failed {
		fp := &failed[i]
		daysLeft := daysUntil(now, fp.GracePeriodEnd)
		day, ok := dueNoticeDay(graceNoticeDays, daysLeft, fp.NotificationSentDays)
		if !ok {
			continue
		}
		user, err := w.userRepo.FindByID(fp.UserID)
		if err != nil {
			logger.WorkerLog(workerName, "load user "+fp.UserID, err)
			continue
		}
		sub, err := w.subRepo.FindByID(fp.SubscriptionID)
		if err != nil {
			logger.WorkerLog(workerName, "load subscription "+fp.SubscriptionID, err)
			continue
		}
		payment, err := w.subRepo.FindPaymentByID(fp.PaymentID)
		if err != nil {
			logger.WorkerLog(workerName, "load payment "+fp.PaymentID, err)
			continue
		}
		tierName := sub.Tier
		if info, found := billing.GetTier(billing.TierID(sub.Tier)); found {
			tierName = info.Name
		}
		data := email.PaymentFailedData{
			TemplateData:   email.TemplateData{UserName: user.FullName},
			TierName:       tierName,
			Amount:         payment.Amount,
			GracePeriodEnd: fp.GracePeriodEnd.Format("January 2, 2006"),
			AttemptsLeft:   w.maxRetries - fp.RetryAttempts,
		}
		if err := w.emailSender.SendPaymentFailed(user.Email, data); err != nil {
			logger.WorkerLog(workerName, "send dunning notice "+fp.PaymentID, err)
			continue
		}
		fp.NotificationSentDays = recordNoticeDay(fp.NotificationSentDays, day)
		if err := w.subRepo.UpdateFailedPayment(fp); err != nil {
			logger.WorkerLog(workerName, "record dunning notice "+fp.PaymentID, err)
			continue
		}
		logger.Info("Dunning notice sent",
			"payment_id", fp.PaymentID, "user_id", fp.UserID, "days_left", daysLeft)
	}
}

func (w *SubscriptionWorker) expireInvitations(now time.Time) {
	n, err := w.invitationRepo.ExpirePending(now)
	if err != nil {
		logger.WorkerLog(workerName, "expire invitations", err)
		return
	}
	if n > 0 {
		logger.Info("Expired stale invitations", "count", n)
	}
}

func (w *SubscriptionWorker) purgeRefreshTokens() {
	n, err := w.tokenRepo.DeleteExpired()
	if err != nil {
		logger.WorkerLog(workerName, "purge refresh tokens", err)
		return
	}
	if n > 0 {
		logger.Info("Purged expired refresh tokens", "count", n)
	}
}

func daysUntil(now, deadline time.Time) int {
	days := int(math.Ceil(deadline.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// dueNoticeDay returns the tightest configured day bucket covering
// daysLeft, unless that bucket was already sent. Buckets skipped while
// the worker was down are not replayed. noticeDays must be descending.
func dueNoticeDay(noticeDays []int, daysLeft int, sent datatypes.JSON) (int, bool) {
	due := 0
	found := false
	for _, d := range noticeDays {
		if daysLeft <= d {
			due = d
			found = true
		}
	}
	if !found || decodeNoticeDays(sent)[due] {
		return 0, false
	}
	return due, true
}

func decodeNoticeDays(raw datatypes.JSON) map[int]bool {
	set := map[int]bool{}
	if len(raw) == 0 {
		return set
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return set
	}
	for _, d := range days {
		set[d] = true
	}
	return set
}

func recordNoticeDay(raw datatypes.JSON, day int) datatypes.JSON {
	set := decodeNoticeDays(raw)
	set[day] = true
	days := make([]int, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(days)))
	out, err := json.Marshal(days)
	if err != nil {
		return raw
	}
	return datatypes.JSON(out)
}
