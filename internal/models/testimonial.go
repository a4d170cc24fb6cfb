package models

import "time"

// Testimonial holds client feedback; only approved entries are public.
type Testimonial struct {
	BaseModel
	AuthorID    string            `gorm:"not null;index"`
	SubjectID   string            `gorm:"index"` // user being reviewed, empty for platform feedback
	Rating      int               `gorm:"not null"`
	Body        string            `gorm:"not null"`
	Status      TestimonialStatus `gorm:"type:varchar(16);default:'pending'"`
	ModeratedBy *string
	ModeratedAt *time.Time
	RejectReason string
}
