package services

import (
	"time"

	"eventra_backend/internal/dto"
	"eventra_backend/internal/models"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"
)

type LegalService interface {
	Latest(slug string) (*models.LegalDocument, error)
	Version(slug string, version int) (*models.LegalDocument, error)
	ListVersions(slug string) ([]models.LegalDocument, error)
	Publish(adminID, slug string, req *dto.UpsertLegalDocumentRequest) (*models.LegalDocument, error)
}

type LegalServiceImpl struct {
	legalRepo repositories.LegalRepository
}

func NewLegalService(legalRepo repositories.LegalRepository) LegalService {
	return &LegalServiceImpl{legalRepo: legalRepo}
}

func (s *LegalServiceImpl) Latest(slug string) (*models.LegalDocument, error) {
	doc, err := s.legalRepo.FindLatest(slug)
	if err != nil {
		if apperrors.Is(err, repositories.ErrLegalDocumentNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return doc, nil
}

func (s *LegalServiceImpl) Version(slug string, version int) (*models.LegalDocument, error) {
	doc, err := s.legalRepo.FindVersion(slug, version)
	if err != nil {
		if apperrors.Is(err, repositories.ErrLegalDocumentNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return doc, nil
}

func (s *LegalServiceImpl) ListVersions(slug string) ([]models.LegalDocument, error) {
	docs, err := s.legalRepo.ListVersions(slug)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return docs, nil
}

// Publish stores a new immutable version of a legal page. Existing
// versions are never edited; readers can always fetch the text they
// originally agreed to.
func (s *LegalServiceImpl) Publish(adminID, slug string, req *dto.UpsertLegalDocumentRequest) (*models.LegalDocument, error) {
	version, err := s.legalRepo.NextVersion(slug)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	effectiveAt := time.Now()
	if req.EffectiveAt != nil {
		effectiveAt = *req.EffectiveAt
	}

	doc := &models.LegalDocument{
		Slug:        slug,
		Version:     version,
		Title:       req.Title,
		Body:        req.Body,
		EffectiveAt: effectiveAt,
		UpdatedBy:   adminID,
	}
	if err := s.legalRepo.Create(doc); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return doc, nil
}
