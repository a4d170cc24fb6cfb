package repositories

import (
	"errors"
	"time"

	"eventra_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrEventMemberNotFound = errors.New("event member not found")
)

type EventFilter struct {
	OrganizerID string
	City        string
	EventType   string
	Status      models.EventStatus
}

type EventRepository interface {
	Create(event *models.Event) error
	FindByID(id string) (*models.Event, error)
	List(filter EventFilter, offset, limit int) ([]models.Event, int64, error)
	Update(event *models.Event) error
	UpdateStatus(id string, status models.EventStatus) error
	Delete(id string) error
	IncrementViews(id string) error
	CountActiveByOrganizer(organizerID string) (int64, error)

	AddMember(member *models.EventMember) error
	FindMember(eventID, userID string) (*models.EventMember, error)
	ListMembers(eventID string) ([]models.EventMember, error)
	RemoveMember(eventID, userID string) error
}

type EventRepositoryImpl struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &EventRepositoryImpl{db: db}
}

func (r *EventRepositoryImpl) Create(event *models.Event) error {
	return r.db.Create(event).Error
}

func (r *EventRepositoryImpl) FindByID(id string) (*models.Event, error) {
	var event models.Event
	err := r.db.Preload("Members").First(&event, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) List(filter EventFilter, offset, limit int) ([]models.Event, int64, error) {
	var events []models.Event
	var total int64

	query := r.db.Model(&models.Event{})
	if filter.OrganizerID != "" {
		query = query.Where("organizer_id = ?", filter.OrganizerID)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&events).Error
	return events, total, err
}

func (r *EventRepositoryImpl) Update(event *models.Event) error {
	result := r.db.Model(event).Updates(map[string]interface{}{
		"title":           event.Title,
		"description":     event.Description,
		"event_type":      event.EventType,
		"budget_min":      event.BudgetMin,
		"budget_max":      event.BudgetMax,
		"venue":           event.Venue,
		"city":            event.City,
		"starts_at":       event.StartsAt,
		"ends_at":         event.EndsAt,
		"all_day":         event.AllDay,
		"expected_guests": event.ExpectedGuests,
		"categories":      event.Categories,
		"status":          event.Status,
		"updated_at":      time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *EventRepositoryImpl) UpdateStatus(id string, status models.EventStatus) error {
	result := r.db.Model(&models.Event{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *EventRepositoryImpl) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Event{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *EventRepositoryImpl) IncrementViews(id string) error {
	return r.db.Model(&models.Event{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

func (r *EventRepositoryImpl) CountActiveByOrganizer(organizerID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Event{}).
		Where("organizer_id = ? AND status IN ?", organizerID,
			[]models.EventStatus{models.EventStatusDraft, models.EventStatusPublished}).
		Count(&count).Error
	return count, err
}

func (r *EventRepositoryImpl) AddMember(member *models.EventMember) error {
	return r.db.Create(member).Error
}

func (r *EventRepositoryImpl) FindMember(eventID, userID string) (*models.EventMember, error) {
	var member models.EventMember
	err := r.db.Where("event_id = ? AND user_id = ?", eventID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *EventRepositoryImpl) ListMembers(eventID string) ([]models.EventMember, error) {
	var members []models.EventMember
	err := r.db.Where("event_id = ?", eventID).Find(&members).Error
	return members, err
}

func (r *EventRepositoryImpl) RemoveMember(eventID, userID string) error {
	result := r.db.Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&models.EventMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventMemberNotFound
	}
	return nil
}
