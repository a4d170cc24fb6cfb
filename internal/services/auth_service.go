package services

import (
	"time"

	"eventra_backend/internal/auth"
	"eventra_backend/internal/dto"
	"eventra_backend/internal/logger"
	"eventra_backend/internal/models"
	"eventra_backend/internal/pkg/email"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"

	"github.com/google/uuid"
)

const refreshTokenTTL = 30 * 24 * time.Hour

type AuthService interface {
	Register(req *dto.RegisterRequest) error
	Login(req *dto.LoginRequest) (*dto.AuthResponse, error)
	Refresh(refreshToken string) (*dto.AuthResponse, error)
	Logout(refreshToken string) error
	VerifyEmail(token string) error
}

type AuthServiceImpl struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	emailSender      email.Sender
}

func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	emailSender email.Sender,
) AuthService {
	return &AuthServiceImpl{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		emailSender:      emailSender,
	}
}

func (s *AuthServiceImpl) Register(req *dto.RegisterRequest) error {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return err
	}

	if _, err := s.userRepo.FindByEmail(req.Email); err == nil {
		return apperrors.ErrEmailAlreadyExists
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return apperrors.InternalError(err)
	}

	user := &models.User{
		Email:             req.Email,
		PasswordHash:      hash,
		FullName:          req.FullName,
		CompanyName:       req.CompanyName,
		Role:              models.UserRole(req.Role),
		Status:            models.UserStatusPending,
		IsVerified:        false,
		VerificationToken: uuid.NewString(),
	}

	if err := s.userRepo.Create(user); err != nil {
		if apperrors.Is(err, repositories.ErrEmailConflict) {
			return apperrors.ErrEmailAlreadyExists
		}
		return apperrors.InternalError(err)
	}

	// Verification email failure must not fail registration.
	if err := s.emailSender.SendVerification(user.Email, user.FullName, user.VerificationToken); err != nil {
		logger.WithError(err).Warn("failed to send verification email", "user_id", user.ID)
	}

	return nil
}

func (s *AuthServiceImpl) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.Status == models.UserStatusSuspended {
		return nil, apperrors.ErrInsufficientPermissions
	}

	return s.issueTokens(user)
}

func (s *AuthServiceImpl) Refresh(refreshToken string) (*dto.AuthResponse, error) {
	token, err := s.refreshTokenRepo.FindByToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	if time.Now().After(token.ExpiresAt) {
		_ = s.refreshTokenRepo.Delete(refreshToken)
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(token.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	if user.Status == models.UserStatusSuspended {
		return nil, apperrors.ErrInsufficientPermissions
	}

	// Rotate: the old refresh token is single-use.
	_ = s.refreshTokenRepo.Delete(refreshToken)

	return s.issueTokens(user)
}

func (s *AuthServiceImpl) Logout(refreshToken string) error {
	if err := s.refreshTokenRepo.Delete(refreshToken); err != nil {
		if apperrors.Is(err, repositories.ErrRefreshTokenNotFound) {
			return nil
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuthServiceImpl) VerifyEmail(token string) error {
	user, err := s.userRepo.FindByVerificationToken(token)
	if err != nil {
		return apperrors.ErrInvalidToken
	}

	if err := s.userRepo.MarkVerified(user.ID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuthServiceImpl) issueTokens(user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	refresh := &models.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.refreshTokenRepo.Create(refresh); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		UserID:       user.ID,
		Role:         string(user.Role),
	}, nil
}
