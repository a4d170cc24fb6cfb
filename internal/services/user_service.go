package services

import (
	"eventra_backend/internal/models"
	"eventra_backend/internal/repositories"
	"eventra_backend/pkg/apperrors"
)

type UserService interface {
	GetByID(id string) (*models.User, error)
	UpdateProfile(userID, fullName, companyName string) (*models.User, error)
	List(role string, offset, limit int) ([]models.User, int64, error)
	Suspend(id string) error
	Reinstate(id string) error
}

type UserServiceImpl struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &UserServiceImpl{userRepo: userRepo}
}

func (s *UserServiceImpl) GetByID(id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func (s *UserServiceImpl) UpdateProfile(userID, fullName, companyName string) (*models.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if fullName != "" {
		user.FullName = fullName
	}
	if companyName != "" {
		user.CompanyName = companyName
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func (s *UserServiceImpl) List(role string, offset, limit int) ([]models.User, int64, error) {
	users, total, err := s.userRepo.List(models.UserRole(role), offset, limit)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}
	return users, total, nil
}

func (s *UserServiceImpl) Suspend(id string) error {
	if err := s.userRepo.UpdateStatus(id, models.UserStatusSuspended); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *UserServiceImpl) Reinstate(id string) error {
	if err := s.userRepo.UpdateStatus(id, models.UserStatusActive); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	return nil
}
