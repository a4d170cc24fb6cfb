package services

import (
	"eventra_backend/internal/dto"
	"eventra_backend/internal/models"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"
)

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

type TestimonialService interface {
	Create(authorID string, req *dto.CreateTestimonialRequest) (*models.Testimonial, error)
	ListBySubject(subjectID string, includeUnmoderated bool) ([]models.Testimonial, error)
	ListPending(offset, limit int) ([]models.Testimonial, int64, error)
	Moderate(moderatorID, testimonialID string, req *dto.ModerateTestimonialRequest) error
	Summary(subjectID string) (*RatingSummary, error)
}

type TestimonialServiceImpl struct {
	testimonialRepo repositories.TestimonialRepository
	userRepo        repositories.UserRepository
}

func NewTestimonialService(testimonialRepo repositories.TestimonialRepository, userRepo repositories.UserRepository) TestimonialService {
	return &TestimonialServiceImpl{testimonialRepo: testimonialRepo, userRepo: userRepo}
}

// Create submits a testimonial for moderation. It stays invisible to
// the public until an admin approves it.
func (s *TestimonialServiceImpl) Create(authorID string, req *dto.CreateTestimonialRequest) (*models.Testimonial, error) {
	if authorID == req.SubjectID {
		return nil, apperrors.ErrInvalidOperation("testimonial", "You cannot review yourself")
	}
	if _, err := s.userRepo.FindByID(req.SubjectID); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	t := &models.Testimonial{
		AuthorID:  authorID,
		SubjectID: req.SubjectID,
		Rating:    req.Rating,
		Body:      req.Body,
		Status:    models.TestimonialStatusPending,
	}
	if err := s.testimonialRepo.Create(t); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return t, nil
}

func (s *TestimonialServiceImpl) ListBySubject(subjectID string, includeUnmoderated bool) ([]models.Testimonial, error) {
	testimonials, err := s.testimonialRepo.ListBySubject(subjectID, !includeUnmoderated)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return testimonials, nil
}

func (s *TestimonialServiceImpl) ListPending(offset, limit int) ([]models.Testimonial, int64, error) {
	testimonials, total, err := s.testimonialRepo.ListPending(offset, limit)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}
	return testimonials, total, nil
}

// Moderate settles a pending testimonial. Moderation is one-shot: a
// second decision on the same record is rejected.
func (s *TestimonialServiceImpl) Moderate(moderatorID, testimonialID string, req *dto.ModerateTestimonialRequest) error {
	t, err := s.testimonialRepo.FindByID(testimonialID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrTestimonialNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	if t.Status != models.TestimonialStatusPending {
		return apperrors.ErrTestimonialAlreadyModerated
	}

	err = s.testimonialRepo.Moderate(testimonialID, models.TestimonialStatus(req.Decision), moderatorID, req.RejectReason)
	if err != nil {
		if apperrors.Is(err, repositories.ErrTestimonialNotFound) {
			// Raced with another moderator.
			return apperrors.ErrTestimonialAlreadyModerated
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *TestimonialServiceImpl) Summary(subjectID string) (*RatingSummary, error) {
	avg, count, err := s.testimonialRepo.AverageRating(subjectID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &RatingSummary{Average: avg, Count: count}, nil
}
