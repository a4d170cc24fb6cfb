package repositories

import (
	"errors"
	"time"

	"eventra_backend/internal/models"

	"gorm.io/gorm"
)

var ErrTestimonialNotFound = errors.New("testimonial not found")

type TestimonialRepository interface {
	Create(testimonial *models.Testimonial) error
	FindByID(id string) (*models.Testimonial, error)
	ListBySubject(subjectID string, onlyApproved bool) ([]models.Testimonial, error)
	ListPending(offset, limit int) ([]models.Testimonial, int64, error)
	Moderate(id string, status models.TestimonialStatus, moderatorID, reason string) error
	AverageRating(subjectID string) (float64, int64, error)
}

type TestimonialRepositoryImpl struct {
	db *gorm.DB
}

func NewTestimonialRepository(db *gorm.DB) TestimonialRepository {
	return &TestimonialRepositoryImpl{db: db}
}

func (r *TestimonialRepositoryImpl) Create(testimonial *models.Testimonial) error {
	return r.db.Create(testimonial).Error
}

func (r *TestimonialRepositoryImpl) FindByID(id string) (*models.Testimonial, error) {
	var t models.Testimonial
	err := r.db.First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestimonialNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TestimonialRepositoryImpl) ListBySubject(subjectID string, onlyApproved bool) ([]models.Testimonial, error) {
	var testimonials []models.Testimonial
	query := r.db.Where("subject_id = ?", subjectID)
	if onlyApproved {
		query = query.Where("status = ?", models.TestimonialStatusApproved)
	}
	err := query.Order("created_at DESC").Find(&testimonials).Error
	return testimonials, err
}

func (r *TestimonialRepositoryImpl) ListPending(offset, limit int) ([]models.Testimonial, int64, error) {
	var testimonials []models.Testimonial
	var total int64

	query := r.db.Model(&models.Testimonial{}).Where("status = ?", models.TestimonialStatusPending)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at ASC").Offset(offset).Limit(limit).Find(&testimonials).Error
	return testimonials, total, err
}

func (r *TestimonialRepositoryImpl) Moderate(id string, status models.TestimonialStatus, moderatorID, reason string) error {
	now := time.Now()
	result := r.db.Model(&models.Testimonial{}).
		Where("id = ? AND status = ?", id, models.TestimonialStatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"moderated_by":  moderatorID,
			"moderated_at":  now,
			"reject_reason": reason,
			"updated_at":    now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTestimonialNotFound
	}
	return nil
}

func (r *TestimonialRepositoryImpl) AverageRating(subjectID string) (float64, int64, error) {
	var out struct {
		Avg   float64
		Count int64
	}
	err := r.db.Model(&models.Testimonial{}).
		Where("subject_id = ? AND status = ?", subjectID, models.TestimonialStatusApproved).
		Select("COALESCE(AVG(rating), 0) as avg, COUNT(*) as count").
		Scan(&out).Error
	return out.Avg, out.Count, err
}
