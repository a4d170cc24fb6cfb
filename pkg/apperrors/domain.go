package apperrors

import (
	"net/http"
)

/*
Factories and predefined variables for the domain errors of the
marketplace: subscriptions, billing, invitations, documents,
testimonials and auth.
*/

// ErrNotFound converts a repository miss (gorm.ErrRecordNotFound and
// friends) into a 404 AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists converts a uniqueness violation into a 409.
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict is the generic 409 factory.
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation builds a 400 for business-rule violations.
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus builds a 400 for operations not allowed in the
// entity's current status.
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusBadRequest)
}

// --- Auth & account status ---

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 8 characters required.",
	http.StatusBadRequest,
)

// --- Subscriptions & billing ---

// ErrUnknownTier: the requested tier is not in the catalog.
var ErrUnknownTier = New(
	CodeValidationFailed,
	"billing",
	"Unknown subscription tier",
	http.StatusBadRequest,
)

// ErrUnknownBillingCycle: the cycle is not monthly, yearly or 2year.
var ErrUnknownBillingCycle = New(
	CodeValidationFailed,
	"billing",
	"Unknown billing cycle",
	http.StatusBadRequest,
)

var ErrTierNotTrialEligible = New(
	CodeInvalidOperation,
	"subscription",
	"The selected tier does not offer a trial",
	http.StatusBadRequest,
)

var ErrTrialAlreadyUsed = New(
	CodeInvalidOperation,
	"subscription",
	"An active subscription or trial already exists",
	http.StatusBadRequest,
)

var ErrFreeTierNotSubscribable = New(
	CodeInvalidOperation,
	"subscription",
	"The essential tier is free and cannot be subscribed to",
	http.StatusBadRequest,
)

// ErrNotAnUpgrade: the target tier must rank strictly above the
// current one. The UI disables the option; the API rejects it too.
var ErrNotAnUpgrade = New(
	CodeInvalidOperation,
	"subscription",
	"Target tier must rank above the current tier",
	http.StatusBadRequest,
)

var ErrNotADowngrade = New(
	CodeInvalidOperation,
	"subscription",
	"Target tier must rank below the current tier",
	http.StatusBadRequest,
)

var ErrSubscriptionCancelled = New(
	CodeInvalidOperation,
	"subscription",
	"Subscription is already cancelled",
	http.StatusBadRequest,
)

var ErrSubscriptionNotActive = New(
	CodeInvalidStatus,
	"subscription",
	"Subscription is not active",
	http.StatusBadRequest,
)

// ErrVersionConflict: optimistic-concurrency check failed while two
// requests raced to change the same subscription.
var ErrVersionConflict = New(
	CodeConflict,
	"subscription",
	"Subscription was modified concurrently, please retry",
	http.StatusConflict,
)

var ErrPromoCodeInvalid = New(
	CodePromoInvalid,
	"billing",
	"Promotional code is not valid for this purchase",
	http.StatusBadRequest,
)

var ErrPaymentDeclined = New(
	CodePaymentDeclined,
	"payment",
	"Payment was declined",
	http.StatusBadRequest,
)

var ErrRetryLimitReached = New(
	CodeLimitExceeded,
	"payment",
	"Maximum payment retry attempts reached",
	http.StatusBadRequest,
)

var ErrGracePeriodEnded = New(
	CodeInvalidStatus,
	"payment",
	"Grace period has ended, the subscription is expired",
	http.StatusBadRequest,
)

var ErrPaymentProviderError = New(
	CodeExternalServiceError,
	"payment",
	"Payment provider error",
	http.StatusBadGateway,
)

// --- Invitations ---

var ErrInvitationExpired = New(
	CodeInvalidStatus,
	"invitation",
	"Invitation link has expired",
	http.StatusBadRequest,
)

var ErrInvitationAlreadyHandled = New(
	CodeInvalidStatus,
	"invitation",
	"Invitation has already been accepted or declined",
	http.StatusBadRequest,
)

// --- Documents & uploads ---

var ErrFileTooLarge = New(
	CodeLimitExceeded,
	"validation",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

var ErrInvalidFileType = New(
	CodeValidationFailed,
	"validation",
	"The provided file type is not allowed",
	http.StatusUnsupportedMediaType,
)

// --- Events & testimonials ---

var ErrNotEventOwner = New(
	CodeForbidden,
	"event",
	"Only the event owner can perform this operation",
	http.StatusForbidden,
)

var ErrInvalidEventStatus = New(
	CodeInvalidStatus,
	"event",
	"Operation not allowed for the current event status",
	http.StatusConflict,
)

var ErrTestimonialAlreadyModerated = New(
	CodeInvalidStatus,
	"testimonial",
	"Testimonial has already been moderated",
	http.StatusConflict,
)
