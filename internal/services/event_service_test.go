package services

import (
	"errors"
	"fmt"
	"testing"

	"eventra_backend/internal/dto"
	"eventra_backend/internal/models"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepo struct {
	seq    int
	events map[string]*models.Event
	order  []string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[string]*models.Event{}}
}

func (r *fakeEventRepo) Create(event *models.Event) error {
	r.seq++
	if event.ID == "" {
		event.ID = fmt.Sprintf("event-%d", r.seq)
	}
	clone := *event
	r.events[event.ID] = &clone
	r.order = append(r.order, event.ID)
	return nil
}

func (r *fakeEventRepo) FindByID(id string) (*models.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *fakeEventRepo) List(filter repositories.EventFilter, offset, limit int) ([]models.Event, int64, error) {
	var out []models.Event
	for _, id := range r.order {
		e := r.events[id]
		if filter.OrganizerID != "" && e.OrganizerID != filter.OrganizerID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.City != "" && e.City != filter.City {
			continue
		}
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (r *fakeEventRepo) Update(event *models.Event) error {
	if _, ok := r.events[event.ID]; !ok {
		return repositories.ErrEventNotFound
	}
	clone := *event
	r.events[event.ID] = &clone
	return nil
}

func (r *fakeEventRepo) UpdateStatus(id string, status models.EventStatus) error {
	e, ok := r.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.Status = status
	return nil
}

func (r *fakeEventRepo) Delete(id string) error {
	if _, ok := r.events[id]; !ok {
		return repositories.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) IncrementViews(id string) error {
	if e, ok := r.events[id]; ok {
		e.Views++
	}
	return nil
}

func (r *fakeEventRepo) CountActiveByOrganizer(organizerID string) (int64, error) {
	var n int64
	for _, e := range r.events {
		if e.OrganizerID != organizerID {
			continue
		}
		if e.Status == models.EventStatusDraft || e.Status == models.EventStatusPublished {
			n++
		}
	}
	return n, nil
}

func (r *fakeEventRepo) AddMember(member *models.EventMember) error {
	e, ok := r.events[member.EventID]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.Members = append(e.Members, *member)
	return nil
}

func (r *fakeEventRepo) FindMember(eventID, userID string) (*models.EventMember, error) {
	e, ok := r.events[eventID]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	for i := range e.Members {
		if e.Members[i].UserID == userID {
			return &e.Members[i], nil
		}
	}
	return nil, repositories.ErrEventMemberNotFound
}

func (r *fakeEventRepo) ListMembers(eventID string) ([]models.EventMember, error) {
	e, ok := r.events[eventID]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	return e.Members, nil
}

func (r *fakeEventRepo) RemoveMember(eventID, userID string) error {
	e, ok := r.events[eventID]
	if !ok {
		return repositories.ErrEventNotFound
	}
	for i := range e.Members {
		if e.Members[i].UserID == userID {
			e.Members = append(e.Members[:i], e.Members[i+1:]...)
			return nil
		}
	}
	return repositories.ErrEventMemberNotFound
}

func newEventTestService(eventRepo *fakeEventRepo, subRepo *fakeSubRepo) EventService {
	return NewEventService(eventRepo, subRepo)
}

func TestEventCreate_EssentialTierLimit(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := newEventTestService(eventRepo, newFakeSubRepo())

	// No subscription: essential allows one active event.
	_, err := svc.Create("user-1", &dto.CreateEventRequest{Title: "Launch party", City: "Berlin"})
	require.NoError(t, err)

	_, err = svc.Create("user-1", &dto.CreateEventRequest{Title: "Second event", City: "Berlin"})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "limit")
}

func TestEventCreate_SpotlightUnlimited(t *testing.T) {
	eventRepo := newFakeEventRepo()
	subRepo := newFakeSubRepo()
	require.NoError(t, subRepo.Create(&models.Subscription{
		UserID: "user-1", Tier: "spotlight", Status: models.SubscriptionStatusActive,
	}))
	svc := newEventTestService(eventRepo, subRepo)

	for i := 0; i < 5; i++ {
		_, err := svc.Create("user-1", &dto.CreateEventRequest{
			Title: fmt.Sprintf("Event %d", i), City: "Berlin",
		})
		require.NoError(t, err)
	}
}

func TestEventCreate_CompletedEventsFreeUpTheLimit(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := newEventTestService(eventRepo, newFakeSubRepo())

	first, err := svc.Create("user-1", &dto.CreateEventRequest{Title: "First", City: "Berlin"})
	require.NoError(t, err)

	// Publish, then complete: the slot opens up again.
	published := "published"
	_, err = svc.Update("user-1", first.ID, &dto.UpdateEventRequest{Status: &published})
	require.NoError(t, err)
	completed := "completed"
	_, err = svc.Update("user-1", first.ID, &dto.UpdateEventRequest{Status: &completed})
	require.NoError(t, err)

	_, err = svc.Create("user-1", &dto.CreateEventRequest{Title: "Next", City: "Berlin"})
	assert.NoError(t, err)
}

func TestEventUpdate_LifecycleTransitions(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := newEventTestService(eventRepo, newFakeSubRepo())

	event, err := svc.Create("user-1", &dto.CreateEventRequest{Title: "Gala", City: "Berlin"})
	require.NoError(t, err)

	// draft -> completed is not a valid transition.
	completed := "completed"
	_, err = svc.Update("user-1", event.ID, &dto.UpdateEventRequest{Status: &completed})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidEventStatus))

	published := "published"
	updated, err := svc.Update("user-1", event.ID, &dto.UpdateEventRequest{Status: &published})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusPublished, updated.Status)

	// Completed events are frozen.
	_, err = svc.Update("user-1", event.ID, &dto.UpdateEventRequest{Status: &completed})
	require.NoError(t, err)
	title := "Renamed"
	_, err = svc.Update("user-1", event.ID, &dto.UpdateEventRequest{Title: &title})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidEventStatus))
}

func TestEventGetByID_DraftHiddenFromOutsiders(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := newEventTestService(eventRepo, newFakeSubRepo())

	event, err := svc.Create("user-1", &dto.CreateEventRequest{Title: "Secret", City: "Berlin"})
	require.NoError(t, err)

	_, err = svc.GetByID(event.ID, "stranger")
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)

	// The organizer still sees it.
	got, err := svc.GetByID(event.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Secret", got.Title)

	// Team members see it too.
	require.NoError(t, eventRepo.AddMember(&models.EventMember{
		EventID: event.ID, UserID: "member-1", Role: "coordinator",
	}))
	_, err = svc.GetByID(event.ID, "member-1")
	assert.NoError(t, err)
}

func TestEventDelete_PublishedBlocked(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := newEventTestService(eventRepo, newFakeSubRepo())

	event, err := svc.Create("user-1", &dto.CreateEventRequest{Title: "Expo", City: "Berlin"})
	require.NoError(t, err)
	published := "published"
	_, err = svc.Update("user-1", event.ID, &dto.UpdateEventRequest{Status: &published})
	require.NoError(t, err)

	err = svc.Delete("user-1", event.ID)
	require.Error(t, err)

	cancelledStatus := "cancelled"
	_, err = svc.Update("user-1", event.ID, &dto.UpdateEventRequest{Status: &cancelledStatus})
	require.NoError(t, err)
	assert.NoError(t, svc.Delete("user-1", event.ID))
}

func TestEventCreate_BudgetAndScheduleValidation(t *testing.T) {
	svc := newEventTestService(newFakeEventRepo(), newFakeSubRepo())

	min, max := 5000.0, 1000.0
	_, err := svc.Create("user-1", &dto.CreateEventRequest{
		Title: "Bad budget", City: "Berlin", BudgetMin: &min, BudgetMax: &max,
	})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "budget_min")
}

func TestEventUpdate_OnlyOwner(t *testing.T) {
	svc := newEventTestService(newFakeEventRepo(), newFakeSubRepo())

	event, err := svc.Create("user-1", &dto.CreateEventRequest{Title: "Mine", City: "Berlin"})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = svc.Update("intruder", event.ID, &dto.UpdateEventRequest{Title: &title})
	assert.True(t, errors.Is(err, apperrors.ErrNotEventOwner))
}
