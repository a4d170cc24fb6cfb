package services

// ServiceContainer wires every service the handlers depend on.
type ServiceContainer struct {
	AuthService         AuthService
	UserService         UserService
	EventService        EventService
	SubscriptionService SubscriptionService
	InvitationService   InvitationService
	DocumentService     DocumentService
	TestimonialService  TestimonialService
	LegalService        LegalService
}
