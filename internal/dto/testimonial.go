package dto

type CreateTestimonialRequest struct {
	SubjectID string `json:"subject_id"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Body      string `json:"body" validate:"required,min=10,max=2000"`
}

type ModerateTestimonialRequest struct {
	Decision     string `json:"decision" validate:"required,oneof=approved rejected"`
	RejectReason string `json:"reject_reason" validate:"max=500"`
}
