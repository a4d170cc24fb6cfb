package models

import "time"

// Invitation is a tokenized email invite to join an event team.
type Invitation struct {
	BaseModel
	EventID   string           `gorm:"not null;index"`
	Email     string           `gorm:"not null;index"`
	Role      string           `gorm:"not null"` // coordinator, vendor, viewer
	Token     string           `gorm:"uniqueIndex;not null"`
	Status    InvitationStatus `gorm:"type:varchar(16);default:'pending'"`
	InvitedBy string           `gorm:"not null"`
	ExpiresAt time.Time        `gorm:"not null"`
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}
