package repositories

import (
	"errors"

	"eventra_backend/internal/models"

	"gorm.io/gorm"
)

var ErrLegalDocumentNotFound = errors.New("legal document not found")

type LegalRepository interface {
	Create(doc *models.LegalDocument) error
	FindLatest(slug string) (*models.LegalDocument, error)
	FindVersion(slug string, version int) (*models.LegalDocument, error)
	ListVersions(slug string) ([]models.LegalDocument, error)
	NextVersion(slug string) (int, error)
}

type LegalRepositoryImpl struct {
	db *gorm.DB
}

func NewLegalRepository(db *gorm.DB) LegalRepository {
	return &LegalRepositoryImpl{db: db}
}

func (r *LegalRepositoryImpl) Create(doc *models.LegalDocument) error {
	return r.db.Create(doc).Error
}

func (r *LegalRepositoryImpl) FindLatest(slug string) (*models.LegalDocument, error) {
	var doc models.LegalDocument
	err := r.db.Where("slug = ?", slug).Order("version DESC").First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLegalDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *LegalRepositoryImpl) FindVersion(slug string, version int) (*models.LegalDocument, error) {
	var doc models.LegalDocument
	err := r.db.Where("slug = ? AND version = ?", slug, version).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLegalDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *LegalRepositoryImpl) ListVersions(slug string) ([]models.LegalDocument, error) {
	var docs []models.LegalDocument
	err := r.db.Where("slug = ?", slug).Order("version DESC").Find(&docs).Error
	return docs, err
}

func (r *LegalRepositoryImpl) NextVersion(slug string) (int, error) {
	var max int
	err := r.db.Model(&models.LegalDocument{}).
		Where("slug = ?", slug).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	return max + 1, err
}
