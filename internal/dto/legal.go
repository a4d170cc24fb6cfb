package dto

import "time"

type UpsertLegalDocumentRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Body        string     `json:"body" validate:"required"`
	EffectiveAt *time.Time `json:"effective_at"`
}
