package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"eventra_backend/internal/dto"
	"eventra_backend/internal/models"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvitationRepo struct {
	seq         int
	invitations map[string]*models.Invitation // by id
	byToken     map[string]string
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{
		invitations: map[string]*models.Invitation{},
		byToken:     map[string]string{},
	}
}

func (r *fakeInvitationRepo) Create(inv *models.Invitation) error {
	r.seq++
	if inv.ID == "" {
		inv.ID = fmt.Sprintf("inv-%d", r.seq)
	}
	clone := *inv
	r.invitations[inv.ID] = &clone
	r.byToken[inv.Token] = inv.ID
	return nil
}

func (r *fakeInvitationRepo) FindByToken(token string) (*models.Invitation, error) {
	id, ok := r.byToken[token]
	if !ok {
		return nil, repositories.ErrInvitationNotFound
	}
	clone := *r.invitations[id]
	return &clone, nil
}

func (r *fakeInvitationRepo) FindPending(eventID, email string) (*models.Invitation, error) {
	for _, inv := range r.invitations {
		if inv.EventID == eventID && inv.Email == email && inv.Status == models.InvitationStatusPending {
			clone := *inv
			return &clone, nil
		}
	}
	return nil, repositories.ErrInvitationNotFound
}

func (r *fakeInvitationRepo) ListByEvent(eventID string) ([]models.Invitation, error) {
	var out []models.Invitation
	for _, inv := range r.invitations {
		if inv.EventID == eventID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) UpdateStatus(id string, status models.InvitationStatus) error {
	inv, ok := r.invitations[id]
	if !ok {
		return repositories.ErrInvitationNotFound
	}
	inv.Status = status
	return nil
}

func (r *fakeInvitationRepo) Reissue(id, token, role string, expiresAt time.Time) error {
	inv, ok := r.invitations[id]
	if !ok || inv.Status != models.InvitationStatusPending {
		return repositories.ErrInvitationNotFound
	}
	delete(r.byToken, inv.Token)
	inv.Token = token
	inv.Role = role
	inv.ExpiresAt = expiresAt
	r.byToken[token] = id
	return nil
}

func (r *fakeInvitationRepo) ExpirePending(now time.Time) (int64, error) {
	var n int64
	for _, inv := range r.invitations {
		if inv.Status == models.InvitationStatusPending && inv.IsExpired(now) {
			inv.Status = models.InvitationStatusExpired
			n++
		}
	}
	return n, nil
}

type invitationFixture struct {
	svc       InvitationService
	invRepo   *fakeInvitationRepo
	eventRepo *fakeEventRepo
	subRepo   *fakeSubRepo
	event     *models.Event
}

func newInvitationFixture(t *testing.T) *invitationFixture {
	t.Helper()
	invRepo := newFakeInvitationRepo()
	eventRepo := newFakeEventRepo()
	subRepo := newFakeSubRepo()

	organizer := &models.User{Email: "organizer@test.com", FullName: "Org Anizer"}
	organizer.ID = "user-1"
	invitee := &models.User{Email: "invitee@test.com", FullName: "In Vitee"}
	invitee.ID = "user-2"

	event := &models.Event{OrganizerID: "user-1", Title: "Gala", Status: models.EventStatusPublished}
	require.NoError(t, eventRepo.Create(event))

	svc := NewInvitationService(invRepo, eventRepo, newFakeUserRepo(organizer, invitee), subRepo, noopSender{})
	return &invitationFixture{svc: svc, invRepo: invRepo, eventRepo: eventRepo, subRepo: subRepo, event: event}
}

func TestInvite_OnlyOrganizer(t *testing.T) {
	f := newInvitationFixture(t)

	_, err := f.svc.Invite("user-2", f.event.ID, &dto.CreateInvitationRequest{
		Email: "friend@test.com", Role: "viewer",
	})
	assert.True(t, errors.Is(err, apperrors.ErrNotEventOwner))
}

func TestInvite_TeamLimitByTier(t *testing.T) {
	f := newInvitationFixture(t)

	// Essential allows two team members; fill the roster.
	for i := 0; i < 2; i++ {
		require.NoError(t, f.eventRepo.AddMember(&models.EventMember{
			EventID: f.event.ID, UserID: fmt.Sprintf("member-%d", i), Role: "vendor",
		}))
	}

	_, err := f.svc.Invite("user-1", f.event.ID, &dto.CreateInvitationRequest{
		Email: "onemore@test.com", Role: "viewer",
	})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "Team member limit")

	// A showcase subscription lifts the cap to ten.
	require.NoError(t, f.subRepo.Create(&models.Subscription{
		UserID: "user-1", Tier: "showcase", Status: models.SubscriptionStatusActive,
	}))
	_, err = f.svc.Invite("user-1", f.event.ID, &dto.CreateInvitationRequest{
		Email: "onemore@test.com", Role: "viewer",
	})
	assert.NoError(t, err)
}

func TestInvite_ReinviteReissuesToken(t *testing.T) {
	f := newInvitationFixture(t)

	first, err := f.svc.Invite("user-1", f.event.ID, &dto.CreateInvitationRequest{
		Email: "friend@test.com", Role: "vendor",
	})
	require.NoError(t, err)

	second, err := f.svc.Invite("user-1", f.event.ID, &dto.CreateInvitationRequest{
		Email: "friend@test.com", Role: "viewer",
	})
	require.NoError(t, err)

	// Same row, fresh token and updated role; no second invitation.
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, "viewer", second.Role)
	assert.Equal(t, models.InvitationStatusPending, second.Status)

	all, err := f.invRepo.ListByEvent(f.event.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)

	// The old token no longer resolves; the new one does.
	_, err = f.svc.Accept(first.Token, "user-2")
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)

	accepted, err := f.svc.Accept(second.Token, "user-2")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusAccepted, accepted.Status)
}

func TestAccept_AddsMemberOnce(t *testing.T) {
	f := newInvitationFixture(t)

	inv, err := f.svc.Invite("user-1", f.event.ID, &dto.CreateInvitationRequest{
		Email: "invitee@test.com", Role: "coordinator",
	})
	require.NoError(t, err)

	accepted, err := f.svc.Accept(inv.Token, "user-2")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusAccepted, accepted.Status)

	member, err := f.eventRepo.FindMember(f.event.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "coordinator", member.Role)

	// A second use of the same token is rejected.
	_, err = f.svc.Accept(inv.Token, "user-2")
	assert.True(t, errors.Is(err, apperrors.ErrInvitationAlreadyHandled))
}

func TestDecline_OneShot(t *testing.T) {
	f := newInvitationFixture(t)

	inv, err := f.svc.Invite("user-1", f.event.ID, &dto.CreateInvitationRequest{
		Email: "invitee@test.com", Role: "viewer",
	})
	require.NoError(t, err)

	declined, err := f.svc.Decline(inv.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusDeclined, declined.Status)

	_, err = f.svc.Accept(inv.Token, "user-2")
	assert.True(t, errors.Is(err, apperrors.ErrInvitationAlreadyHandled))
}

func TestAccept_ExpiredInvitation(t *testing.T) {
	f := newInvitationFixture(t)

	inv, err := f.svc.Invite("user-1", f.event.ID, &dto.CreateInvitationRequest{
		Email: "invitee@test.com", Role: "viewer",
	})
	require.NoError(t, err)

	// Age the invitation past its TTL.
	f.invRepo.invitations[inv.ID].ExpiresAt = time.Now().Add(-time.Hour)

	_, err = f.svc.Accept(inv.Token, "user-2")
	assert.True(t, errors.Is(err, apperrors.ErrInvitationExpired))

	stored, _ := f.invRepo.FindByToken(inv.Token)
	assert.Equal(t, models.InvitationStatusExpired, stored.Status)
}

func TestInvite_UnknownToken(t *testing.T) {
	f := newInvitationFixture(t)

	_, err := f.svc.Accept("no-such-token", "user-2")
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
