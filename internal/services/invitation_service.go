package services

import (
	"fmt"
	"time"

	"eventra_backend/internal/billing"
	"eventra_backend/internal/dto"
	"eventra_backend/internal/logger"
	"eventra_backend/internal/models"
	"eventra_backend/internal/pkg/email"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"

	"github.com/google/uuid"
)

const invitationTTL = 7 * 24 * time.Hour

type InvitationService interface {
	Invite(userID, eventID string, req *dto.CreateInvitationRequest) (*models.Invitation, error)
	Accept(token, userID string) (*models.Invitation, error)
	Decline(token string) (*models.Invitation, error)
	ListByEvent(userID, eventID string) ([]models.Invitation, error)
}

type InvitationServiceImpl struct {
	invitationRepo repositories.InvitationRepository
	eventRepo      repositories.EventRepository
	userRepo       repositories.UserRepository
	subRepo        repositories.SubscriptionRepository
	emailSender    email.Sender
}

func NewInvitationService(
	invitationRepo repositories.InvitationRepository,
	eventRepo repositories.EventRepository,
	userRepo repositories.UserRepository,
	subRepo repositories.SubscriptionRepository,
	emailSender email.Sender,
) InvitationService {
	return &InvitationServiceImpl{
		invitationRepo: invitationRepo,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		subRepo:        subRepo,
		emailSender:    emailSender,
	}
}

// Invite sends a tokenized team invitation for an event. Only the
// organizer can invite, and the team size is capped by their tier.
// Re-inviting an email with a pending invitation reissues the token
// and expiry instead of creating a second row.
func (s *InvitationServiceImpl) Invite(userID, eventID string, req *dto.CreateInvitationRequest) (*models.Invitation, error) {
	event, err := s.eventRepo.FindByID(eventID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrEventNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if event.OrganizerID != userID {
		return nil, apperrors.ErrNotEventOwner
	}

	if err := s.checkTeamLimit(userID, event); err != nil {
		return nil, err
	}

	inviter, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	invitation, err := s.invitationRepo.FindPending(eventID, req.Email)
	if err == nil {
		invitation.Token = uuid.NewString()
		invitation.Role = req.Role
		invitation.ExpiresAt = time.Now().Add(invitationTTL)
		if err := s.invitationRepo.Reissue(invitation.ID, invitation.Token, invitation.Role, invitation.ExpiresAt); err != nil {
			return nil, apperrors.InternalError(err)
		}
	} else {
		if !apperrors.Is(err, repositories.ErrInvitationNotFound) {
			return nil, apperrors.InternalError(err)
		}
		invitation = &models.Invitation{
			EventID:   eventID,
			Email:     req.Email,
			Role:      req.Role,
			Token:     uuid.NewString(),
			Status:    models.InvitationStatusPending,
			InvitedBy: userID,
			ExpiresAt: time.Now().Add(invitationTTL),
		}
		if err := s.invitationRepo.Create(invitation); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}

	data := email.InvitationData{
		EventTitle:  event.Title,
		InviterName: inviter.FullName,
		Role:        req.Role,
		ExpiresIn:   "7 days",
	}
	data.ActionURL = fmt.Sprintf("/invitations/%s/accept", invitation.Token)
	if err := s.emailSender.SendInvitation(req.Email, data); err != nil {
		logger.WithError(err).Warn("failed to send invitation email",
			"event_id", eventID, "email", req.Email)
	}

	return invitation, nil
}

// Accept joins the invited user to the event team. The invitee must be
// logged in; the invitation email does not have to match the account
// email because contractors often forward invitations to a work inbox.
func (s *InvitationServiceImpl) Accept(token, userID string) (*models.Invitation, error) {
	invitation, err := s.resolve(token)
	if err != nil {
		return nil, err
	}

	// Joining twice is a no-op; only add the membership when missing.
	if _, err := s.eventRepo.FindMember(invitation.EventID, userID); err != nil {
		if !apperrors.Is(err, repositories.ErrEventMemberNotFound) {
			return nil, apperrors.InternalError(err)
		}
		member := &models.EventMember{
			EventID: invitation.EventID,
			UserID:  userID,
			Role:    invitation.Role,
		}
		if err := s.eventRepo.AddMember(member); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}

	if err := s.invitationRepo.UpdateStatus(invitation.ID, models.InvitationStatusAccepted); err != nil {
		return nil, apperrors.InternalError(err)
	}
	invitation.Status = models.InvitationStatusAccepted
	return invitation, nil
}

func (s *InvitationServiceImpl) Decline(token string) (*models.Invitation, error) {
	invitation, err := s.resolve(token)
	if err != nil {
		return nil, err
	}
	if err := s.invitationRepo.UpdateStatus(invitation.ID, models.InvitationStatusDeclined); err != nil {
		return nil, apperrors.InternalError(err)
	}
	invitation.Status = models.InvitationStatusDeclined
	return invitation, nil
}

func (s *InvitationServiceImpl) ListByEvent(userID, eventID string) ([]models.Invitation, error) {
	event, err := s.eventRepo.FindByID(eventID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrEventNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if event.OrganizerID != userID {
		return nil, apperrors.ErrNotEventOwner
	}

	invitations, err := s.invitationRepo.ListByEvent(eventID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return invitations, nil
}

// resolve loads a pending, unexpired invitation by token.
func (s *InvitationServiceImpl) resolve(token string) (*models.Invitation, error) {
	invitation, err := s.invitationRepo.FindByToken(token)
	if err != nil {
		if apperrors.Is(err, repositories.ErrInvitationNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if invitation.Status != models.InvitationStatusPending {
		return nil, apperrors.ErrInvitationAlreadyHandled
	}
	if invitation.IsExpired(time.Now()) {
		_ = s.invitationRepo.UpdateStatus(invitation.ID, models.InvitationStatusExpired)
		return nil, apperrors.ErrInvitationExpired
	}
	return invitation, nil
}

func (s *InvitationServiceImpl) checkTeamLimit(userID string, event *models.Event) error {
	tier := billing.TierEssential
	if sub, err := s.subRepo.FindCurrentByUser(userID); err == nil && sub.IsCurrent(time.Now()) {
		tier = billing.TierID(sub.Tier)
	}
	info, ok := billing.GetTier(tier)
	if !ok {
		info = billing.Tiers[billing.TierEssential]
	}
	limit := info.Limits["team_members"]
	if limit < 0 {
		return nil
	}
	if len(event.Members) >= limit {
		return apperrors.ErrInvalidOperation("invitation",
			"Team member limit reached for the current subscription tier")
	}
	return nil
}
