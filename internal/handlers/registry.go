package handlers

import (
	"eventra_backend/internal/services"
	"eventra_backend/internal/validator"
)

// AppHandlers gathers every HTTP handler so route registration has a
// single wiring point.
type AppHandlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Event        *EventHandler
	Subscription *SubscriptionHandler
	Invitation   *InvitationHandler
	Document     *DocumentHandler
	Testimonial  *TestimonialHandler
	Legal        *LegalHandler
}

func NewAppHandlers(sc *services.ServiceContainer, v *validator.Validator) *AppHandlers {
	base := NewBaseHandler(v)
	return &AppHandlers{
		Auth:         NewAuthHandler(base, sc.AuthService),
		User:         NewUserHandler(base, sc.UserService),
		Event:        NewEventHandler(base, sc.EventService),
		Subscription: NewSubscriptionHandler(base, sc.SubscriptionService),
		Invitation:   NewInvitationHandler(base, sc.InvitationService),
		Document:     NewDocumentHandler(base, sc.DocumentService),
		Testimonial:  NewTestimonialHandler(base, sc.TestimonialService),
		Legal:        NewLegalHandler(base, sc.LegalService),
	}
}
