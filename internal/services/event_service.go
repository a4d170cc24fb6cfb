package services

import (
	"encoding/json"
	"time"

	"eventra_backend/internal/billing"
	"eventra_backend/internal/dto"
	"eventra_backend/internal/models"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"

	"gorm.io/datatypes"
)

type EventService interface {
	Create(userID string, req *dto.CreateEventRequest) (*models.Event, error)
	GetByID(id string, viewerID string) (*models.Event, error)
	List(query *dto.EventListQuery, offset, limit int) ([]models.Event, int64, error)
	ListMine(userID string, offset, limit int) ([]models.Event, int64, error)
	Update(userID, eventID string, req *dto.UpdateEventRequest) (*models.Event, error)
	Delete(userID, eventID string) error
	ListMembers(userID, eventID string) ([]models.EventMember, error)
	RemoveMember(userID, eventID, memberUserID string) error
}

type EventServiceImpl struct {
	eventRepo repositories.EventRepository
	subRepo   repositories.SubscriptionRepository
}

func NewEventService(eventRepo repositories.EventRepository, subRepo repositories.SubscriptionRepository) EventService {
	return &EventServiceImpl{eventRepo: eventRepo, subRepo: subRepo}
}

// Create opens a new event in draft status. The organizer's tier caps
// how many draft or published events they can hold at once.
func (s *EventServiceImpl) Create(userID string, req *dto.CreateEventRequest) (*models.Event, error) {
	if err := s.checkEventLimit(userID); err != nil {
		return nil, err
	}
	if req.BudgetMin != nil && req.BudgetMax != nil && *req.BudgetMin > *req.BudgetMax {
		return nil, apperrors.ErrInvalidOperation("event", "budget_min cannot exceed budget_max")
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return nil, apperrors.ErrInvalidOperation("event", "event cannot end before it starts")
	}

	categories, err := json.Marshal(req.Categories)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	event := &models.Event{
		OrganizerID:    userID,
		Title:          req.Title,
		Description:    req.Description,
		EventType:      req.EventType,
		BudgetMin:      req.BudgetMin,
		BudgetMax:      req.BudgetMax,
		Currency:       currency,
		Venue:          req.Venue,
		City:           req.City,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		AllDay:         req.AllDay,
		ExpectedGuests: req.ExpectedGuests,
		Categories:     datatypes.JSON(categories),
		Status:         models.EventStatusDraft,
	}
	if err := s.eventRepo.Create(event); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return event, nil
}

func (s *EventServiceImpl) GetByID(id string, viewerID string) (*models.Event, error) {
	event, err := s.eventRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrEventNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	// Draft events are visible to the organizer and team only.
	if event.Status == models.EventStatusDraft && !s.canView(event, viewerID) {
		return nil, apperrors.ErrNotFound(repositories.ErrEventNotFound)
	}

	if viewerID != event.OrganizerID {
		_ = s.eventRepo.IncrementViews(id)
	}
	return event, nil
}

func (s *EventServiceImpl) List(query *dto.EventListQuery, offset, limit int) ([]models.Event, int64, error) {
	filter := repositories.EventFilter{
		City:      query.City,
		EventType: query.EventType,
		Status:    models.EventStatus(query.Status),
	}
	// The public listing never exposes drafts.
	if filter.Status == "" || filter.Status == models.EventStatusDraft {
		filter.Status = models.EventStatusPublished
	}
	events, total, err := s.eventRepo.List(filter, offset, limit)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}
	return events, total, nil
}

func (s *EventServiceImpl) ListMine(userID string, offset, limit int) ([]models.Event, int64, error) {
	events, total, err := s.eventRepo.List(repositories.EventFilter{OrganizerID: userID}, offset, limit)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}
	return events, total, nil
}

func (s *EventServiceImpl) Update(userID, eventID string, req *dto.UpdateEventRequest) (*models.Event, error) {
	event, err := s.ownedEvent(userID, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == models.EventStatusCompleted || event.Status == models.EventStatusCancelled {
		return nil, apperrors.ErrInvalidEventStatus
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.EventType != nil {
		event.EventType = *req.EventType
	}
	if req.BudgetMin != nil {
		event.BudgetMin = req.BudgetMin
	}
	if req.BudgetMax != nil {
		event.BudgetMax = req.BudgetMax
	}
	if req.Venue != nil {
		event.Venue = req.Venue
	}
	if req.City != nil {
		event.City = *req.City
	}
	if req.StartsAt != nil {
		event.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		event.EndsAt = req.EndsAt
	}
	if req.AllDay != nil {
		event.AllDay = *req.AllDay
	}
	if req.ExpectedGuests != nil {
		event.ExpectedGuests = req.ExpectedGuests
	}
	if req.Categories != nil {
		categories, err := json.Marshal(req.Categories)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		event.Categories = datatypes.JSON(categories)
	}
	if req.Status != nil {
		next := models.EventStatus(*req.Status)
		if !validEventTransition(event.Status, next) {
			return nil, apperrors.ErrInvalidEventStatus
		}
		event.Status = next
	}

	if event.BudgetMin != nil && event.BudgetMax != nil && *event.BudgetMin > *event.BudgetMax {
		return nil, apperrors.ErrInvalidOperation("event", "budget_min cannot exceed budget_max")
	}
	if event.StartsAt != nil && event.EndsAt != nil && event.EndsAt.Before(*event.StartsAt) {
		return nil, apperrors.ErrInvalidOperation("event", "event cannot end before it starts")
	}

	if err := s.eventRepo.Update(event); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return event, nil
}

func (s *EventServiceImpl) Delete(userID, eventID string) error {
	event, err := s.ownedEvent(userID, eventID)
	if err != nil {
		return err
	}
	if event.Status == models.EventStatusPublished {
		return apperrors.ErrInvalidStatus("event", "Published events must be cancelled before deletion")
	}
	if err := s.eventRepo.Delete(eventID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *EventServiceImpl) ListMembers(userID, eventID string) ([]models.EventMember, error) {
	event, err := s.eventRepo.FindByID(eventID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrEventNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if !s.canView(event, userID) {
		return nil, apperrors.ErrInsufficientPermissions
	}
	members, err := s.eventRepo.ListMembers(eventID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return members, nil
}

func (s *EventServiceImpl) RemoveMember(userID, eventID, memberUserID string) error {
	if _, err := s.ownedEvent(userID, eventID); err != nil {
		return err
	}
	if err := s.eventRepo.RemoveMember(eventID, memberUserID); err != nil {
		if apperrors.Is(err, repositories.ErrEventMemberNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *EventServiceImpl) ownedEvent(userID, eventID string) (*models.Event, error) {
	event, err := s.eventRepo.FindByID(eventID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrEventNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if event.OrganizerID != userID {
		return nil, apperrors.ErrNotEventOwner
	}
	return event, nil
}

func (s *EventServiceImpl) canView(event *models.Event, viewerID string) bool {
	if viewerID == "" {
		return false
	}
	if event.OrganizerID == viewerID {
		return true
	}
	for _, m := range event.Members {
		if m.UserID == viewerID {
			return true
		}
	}
	return false
}

// checkEventLimit enforces the active_events limit of the organizer's
// current tier. Users without any subscription record fall back to the
// essential tier limits.
func (s *EventServiceImpl) checkEventLimit(userID string) error {
	tier := billing.TierEssential
	if sub, err := s.subRepo.FindCurrentByUser(userID); err == nil && sub.IsCurrent(time.Now()) {
		tier = billing.TierID(sub.Tier)
	}

	info, ok := billing.GetTier(tier)
	if !ok {
		info = billing.Tiers[billing.TierEssential]
	}
	limit := info.Limits["active_events"]
	if limit < 0 {
		return nil // unlimited
	}

	count, err := s.eventRepo.CountActiveByOrganizer(userID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if count >= int64(limit) {
		return apperrors.ErrInvalidOperation("event",
			"Active event limit reached for the current subscription tier")
	}
	return nil
}

// validEventTransition encodes the event lifecycle: draft can publish
// or cancel, published can complete or cancel, terminal states stay.
func validEventTransition(from, to models.EventStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case models.EventStatusDraft:
		return to == models.EventStatusPublished || to == models.EventStatusCancelled
	case models.EventStatusPublished:
		return to == models.EventStatusCompleted || to == models.EventStatusCancelled
	}
	return false
}
