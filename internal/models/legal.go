package models

import "time"

// LegalDocument is a versioned compliance page (terms, privacy, ...).
// Updates insert a new version; the latest effective one is served.
type LegalDocument struct {
	BaseModel
	Slug        string    `gorm:"not null;index:idx_legal_slug_version,unique"`
	Version     int       `gorm:"not null;index:idx_legal_slug_version,unique"`
	Title       string    `gorm:"not null"`
	Body        string    `gorm:"type:text;not null"`
	EffectiveAt time.Time `gorm:"not null"`
	UpdatedBy   string
}
