package dto

import "time"

type CreateEventRequest struct {
	Title          string     `json:"title" validate:"required,min=3,max=200"`
	Description    string     `json:"description" validate:"max=5000"`
	EventType      string     `json:"event_type" validate:"required,max=50"`
	BudgetMin      *float64   `json:"budget_min" validate:"omitempty,min=0"`
	BudgetMax      *float64   `json:"budget_max" validate:"omitempty,min=0"`
	Currency       string     `json:"currency" validate:"omitempty,len=3"`
	Venue          *string    `json:"venue"`
	City           string     `json:"city" validate:"required,max=100"`
	StartsAt       *time.Time `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
	AllDay         bool       `json:"all_day"`
	ExpectedGuests *int       `json:"expected_guests" validate:"omitempty,min=1"`
	Categories     []string   `json:"categories" validate:"max=20"`
}

type UpdateEventRequest struct {
	Title          *string    `json:"title" validate:"omitempty,min=3,max=200"`
	Description    *string    `json:"description" validate:"omitempty,max=5000"`
	EventType      *string    `json:"event_type" validate:"omitempty,max=50"`
	BudgetMin      *float64   `json:"budget_min" validate:"omitempty,min=0"`
	BudgetMax      *float64   `json:"budget_max" validate:"omitempty,min=0"`
	Venue          *string    `json:"venue"`
	City           *string    `json:"city" validate:"omitempty,max=100"`
	StartsAt       *time.Time `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
	AllDay         *bool      `json:"all_day"`
	ExpectedGuests *int       `json:"expected_guests" validate:"omitempty,min=1"`
	Categories     []string   `json:"categories" validate:"omitempty,max=20"`
	Status         *string    `json:"status" validate:"omitempty,oneof=draft published completed cancelled"`
}

type EventListQuery struct {
	City      string `form:"city"`
	EventType string `form:"event_type"`
	Status    string `form:"status" validate:"omitempty,oneof=draft published completed cancelled"`
}
