package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"eventra_backend/internal/models"
	"eventra_backend/internal/repositories"
	"eventra_backend/internal/storage"
	"eventra_backend/pkg/apperrors"

	"github.com/google/uuid"
)

// signedURLTTL bounds how long a generated download link stays valid.
const signedURLTTL = 15 * time.Minute

type UploadLimits struct {
	MaxSize      int64
	AllowedTypes []string
}

type DocumentService interface {
	Upload(ctx context.Context, userID, eventID, fileName, contentType string, size int64, reader io.Reader) (*models.Document, error)
	ListByEvent(userID, eventID string) ([]models.Document, error)
	DownloadURL(ctx context.Context, userID, documentID string) (string, error)
	SetShared(userID, documentID string, shared bool) (*models.Document, error)
	Delete(ctx context.Context, userID, documentID string) error
}

type DocumentServiceImpl struct {
	documentRepo repositories.DocumentRepository
	eventRepo    repositories.EventRepository
	store        storage.Storage
	limits       UploadLimits
}

func NewDocumentService(
	documentRepo repositories.DocumentRepository,
	eventRepo repositories.EventRepository,
	store storage.Storage,
	limits UploadLimits,
) DocumentService {
	return &DocumentServiceImpl{
		documentRepo: documentRepo,
		eventRepo:    eventRepo,
		store:        store,
		limits:       limits,
	}
}

// Upload stores an event document. Only the organizer and team members
// can upload; size and MIME type are checked before anything touches
// the storage backend.
func (s *DocumentServiceImpl) Upload(ctx context.Context, userID, eventID, fileName, contentType string, size int64, reader io.Reader) (*models.Document, error) {
	event, err := s.memberEvent(userID, eventID)
	if err != nil {
		return nil, err
	}

	if s.limits.MaxSize > 0 && size > s.limits.MaxSize {
		return nil, apperrors.ErrFileTooLarge
	}
	if !s.typeAllowed(contentType) {
		return nil, apperrors.ErrInvalidFileType
	}

	// Storage path is generated, never derived from the client filename.
	storagePath := fmt.Sprintf("events/%s/%s%s", event.ID, uuid.NewString(), filepath.Ext(fileName))

	if err := s.store.Save(ctx, storagePath, reader, contentType); err != nil {
		return nil, apperrors.InternalError(err)
	}

	doc := &models.Document{
		EventID:     eventID,
		OwnerID:     userID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		StoragePath: storagePath,
	}
	if err := s.documentRepo.Create(doc); err != nil {
		_ = s.store.Delete(ctx, storagePath)
		return nil, apperrors.InternalError(err)
	}
	return doc, nil
}

func (s *DocumentServiceImpl) ListByEvent(userID, eventID string) ([]models.Document, error) {
	if _, err := s.memberEvent(userID, eventID); err != nil {
		return nil, err
	}
	docs, err := s.documentRepo.ListByEvent(eventID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return docs, nil
}

// DownloadURL returns a short-lived signed link. Non-shared documents
// are only reachable by their owner; shared ones by the whole team.
func (s *DocumentServiceImpl) DownloadURL(ctx context.Context, userID, documentID string) (string, error) {
	doc, err := s.documentRepo.FindByID(documentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrDocumentNotFound) {
			return "", apperrors.ErrNotFound(err)
		}
		return "", apperrors.InternalError(err)
	}

	if doc.OwnerID != userID {
		if !doc.Shared {
			return "", apperrors.ErrInsufficientPermissions
		}
		if _, err := s.memberEvent(userID, doc.EventID); err != nil {
			return "", err
		}
	}

	url, err := s.store.SignedURL(ctx, doc.StoragePath, signedURLTTL)
	if err != nil {
		return "", apperrors.InternalError(err)
	}
	return url, nil
}

func (s *DocumentServiceImpl) SetShared(userID, documentID string, shared bool) (*models.Document, error) {
	doc, err := s.ownedDocument(userID, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.documentRepo.SetShared(documentID, shared); err != nil {
		return nil, apperrors.InternalError(err)
	}
	doc.Shared = shared
	return doc, nil
}

func (s *DocumentServiceImpl) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.ownedDocument(userID, documentID)
	if err != nil {
		return err
	}
	if err := s.documentRepo.Delete(documentID); err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *DocumentServiceImpl) ownedDocument(userID, documentID string) (*models.Document, error) {
	doc, err := s.documentRepo.FindByID(documentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrDocumentNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if doc.OwnerID != userID {
		return nil, apperrors.ErrInsufficientPermissions
	}
	return doc, nil
}

// memberEvent loads the event and verifies the user is the organizer or
// a team member.
func (s *DocumentServiceImpl) memberEvent(userID, eventID string) (*models.Event, error) {
	event, err := s.eventRepo.FindByID(eventID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrEventNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if event.OrganizerID == userID {
		return event, nil
	}
	for _, m := range event.Members {
		if m.UserID == userID {
			return event, nil
		}
	}
	return nil, apperrors.ErrInsufficientPermissions
}

func (s *DocumentServiceImpl) typeAllowed(contentType string) bool {
	if len(s.limits.AllowedTypes) == 0 {
		return true
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, t := range s.limits.AllowedTypes {
		if contentType == strings.ToLower(t) {
			return true
		}
	}
	return false
}
