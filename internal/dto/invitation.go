package dto

type CreateInvitationRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=coordinator vendor viewer"`
}

type InvitationResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}
