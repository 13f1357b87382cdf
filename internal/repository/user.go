package repository

import (
	"context"

	"carpool/internal/domain"
)

// UserRepository defines the persistence operations for users. Profile CRUD
// beyond registration belongs to the external profile store; the engine
// only reads display data and applies rating updates.
type UserRepository interface {
	// Create persists a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ApplyRating folds a new 1..5 rating into the user's running average
	// as a single incremental update.
	ApplyRating(ctx context.Context, id string, rating int) error
}
