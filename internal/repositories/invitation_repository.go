package repositories

import (
	"errors"
	"time"

	"eventra_backend/internal/models"

	"gorm.io/gorm"
)

var ErrInvitationNotFound = errors.New("invitation not found")

type InvitationRepository interface {
	Create(invitation *models.Invitation) error
	FindByToken(token string) (*models.Invitation, error)
	FindPending(eventID, email string) (*models.Invitation, error)
	ListByEvent(eventID string) ([]models.Invitation, error)
	UpdateStatus(id string, status models.InvitationStatus) error
	// Reissue rotates the token, role and expiry of a pending invitation.
	Reissue(id, token, role string, expiresAt time.Time) error
	ExpirePending(now time.Time) (int64, error)
}

type InvitationRepositoryImpl struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &InvitationRepositoryImpl{db: db}
}

func (r *InvitationRepositoryImpl) Create(invitation *models.Invitation) error {
	return r.db.Create(invitation).Error
}

func (r *InvitationRepositoryImpl) FindByToken(token string) (*models.Invitation, error) {
	var inv models.Invitation
	err := r.db.Where("token = ?", token).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepositoryImpl) FindPending(eventID, email string) (*models.Invitation, error) {
	var inv models.Invitation
	err := r.db.Where("event_id = ? AND email = ? AND status = ?",
		eventID, email, models.InvitationStatusPending).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepositoryImpl) ListByEvent(eventID string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := r.db.Where("event_id = ?", eventID).Order("created_at DESC").Find(&invitations).Error
	return invitations, err
}

func (r *InvitationRepositoryImpl) UpdateStatus(id string, status models.InvitationStatus) error {
	result := r.db.Model(&models.Invitation{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

func (r *InvitationRepositoryImpl) Reissue(id, token, role string, expiresAt time.Time) error {
	result := r.db.Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Updates(map[string]interface{}{
			"token":      token,
			"role":       role,
			"expires_at": expiresAt,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

func (r *InvitationRepositoryImpl) ExpirePending(now time.Time) (int64, error) {
	result := r.db.Model(&models.Invitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationStatusPending, now).
		Updates(map[string]interface{}{
			"status":     models.InvitationStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
