package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// UserService owns user registration and profile reads.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// RegisterUserRequest contains the parameters for registering a user. The
// vehicle fields are optional; providing a vehicle model grants the driver
// capability.
type RegisterUserRequest struct {
	Name         string
	Email        string
	Phone        string
	Avatar       string
	VehicleModel string
	PlateNumber  string
	VehicleColor string
}

// RegisterUser creates a new user.
func (s *UserService) RegisterUser(ctx context.Context, req RegisterUserRequest) (*domain.User, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidUserName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Phone:     req.Phone,
		Avatar:    req.Avatar,
		CreatedAt: time.Now(),
	}
	if req.VehicleModel != "" {
		user.Driver = &domain.DriverProfile{
			VehicleModel: req.VehicleModel,
			PlateNumber:  req.PlateNumber,
			Color:        req.VehicleColor,
		}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.userRepo.GetByID(ctx, userID)
}

// GetUserByEmail retrieves a user by email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	return s.userRepo.GetByEmail(ctx, email)
}
