package postgres

import (
	"context"
	"database/sql"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// NewUserRepositoryWithTx creates a user repository using a transaction.
func NewUserRepositoryWithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

// Create adds a new user. A user with any vehicle info gets the driver
// capability.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, avatar, vehicle_model, plate_number, vehicle_color,
		                   rating_average, rating_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var model, plate, color sql.NullString
	if user.Driver != nil {
		model = nullString(user.Driver.VehicleModel)
		plate = nullString(user.Driver.PlateNumber)
		color = nullString(user.Driver.Color)
	}

	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		nullString(user.Avatar),
		model,
		plate,
		color,
		user.Rating.Average,
		user.Rating.Count,
		user.CreatedAt,
	)
	return translateError(err)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := userSelect + ` WHERE id = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := userSelect + ` WHERE email = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, email))
}

// ApplyRating folds a rating into the running average in one update so
// concurrent raters never lose each other's contribution.
func (r *UserRepository) ApplyRating(ctx context.Context, id string, rating int) error {
	query := `
		UPDATE users
		SET rating_average = (rating_average * rating_count + $2) / (rating_count + 1),
		    rating_count = rating_count + 1
		WHERE id = $1
	`
	return requireRows(r.q.ExecContext(ctx, query, id, rating))
}

const userSelect = `
	SELECT id, name, email, phone, avatar, vehicle_model, plate_number, vehicle_color,
	       rating_average, rating_count, created_at
	FROM users`

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var avatar, model, plate, color sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&avatar,
		&model,
		&plate,
		&color,
		&user.Rating.Average,
		&user.Rating.Count,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	if avatar.Valid {
		user.Avatar = avatar.String
	}
	if model.Valid {
		user.Driver = &domain.DriverProfile{
			VehicleModel: model.String,
			PlateNumber:  plate.String,
			Color:        color.String,
		}
	}

	return &user, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
