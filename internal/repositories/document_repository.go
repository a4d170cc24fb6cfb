package repositories

import (
	"errors"

	"eventra_backend/internal/models"

	"gorm.io/gorm"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository interface {
	Create(document *models.Document) error
	FindByID(id string) (*models.Document, error)
	ListByEvent(eventID string) ([]models.Document, error)
	SetShared(id string, shared bool) error
	Delete(id string) error
}

type DocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &DocumentRepositoryImpl{db: db}
}

func (r *DocumentRepositoryImpl) Create(document *models.Document) error {
	return r.db.Create(document).Error
}

func (r *DocumentRepositoryImpl) FindByID(id string) (*models.Document, error) {
	var doc models.Document
	err := r.db.First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepositoryImpl) ListByEvent(eventID string) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.Where("event_id = ?", eventID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (r *DocumentRepositoryImpl) SetShared(id string, shared bool) error {
	result := r.db.Model(&models.Document{}).Where("id = ?", id).Update("shared", shared)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepositoryImpl) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Document{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
