package models

import (
	"time"

	"gorm.io/datatypes"
)

type Event struct {
	BaseModel
	OrganizerID   string `gorm:"not null;index"`
	Title         string `gorm:"not null"`
	Description   string
	EventType     string // wedding, conference, concert, ...
	BudgetMin     *float64
	BudgetMax     *float64
	Currency      string `gorm:"default:'USD'"`
	Venue         *string
	City          string
	StartsAt      *time.Time
	EndsAt        *time.Time
	AllDay        bool
	ExpectedGuests *int
	Categories    datatypes.JSON `gorm:"type:jsonb"` // ["catering", "photography"]
	Status        EventStatus    `gorm:"type:varchar(20);default:'draft'"`
	Views         int

	// Relations
	Members     []EventMember `gorm:"foreignKey:EventID"`
	Invitations []Invitation  `gorm:"foreignKey:EventID"`
	Documents   []Document    `gorm:"foreignKey:EventID"`
}

// EventMember links a user to an event team with a role.
type EventMember struct {
	BaseModel
	EventID string `gorm:"not null;index;uniqueIndex:idx_event_user"`
	UserID  string `gorm:"not null;index;uniqueIndex:idx_event_user"`
	Role    string `gorm:"not null"` // coordinator, vendor, viewer
}
