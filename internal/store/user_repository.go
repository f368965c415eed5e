/**
 * @description
 * PostgreSQL repository for user accounts.
 */
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vyaparlink/directory-server/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email is already registered")
)

// UserRepository handles database operations for user accounts.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, username, password_hash, user_type, phone, is_staff, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.UserType,
		&user.Phone,
		&user.IsStaff,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user row.
func (r *UserRepository) CreateUser(ctx context.Context, email, username, passwordHash string, userType domain.UserType, phone string) (*domain.User, error) {
	query := `
		INSERT INTO users (email, username, password_hash, user_type, phone)
		VALUES (lower(btrim($1)), btrim($2), $3, $4, $5)
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, email, username, passwordHash, userType, phone))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// FindUserByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower(btrim($1))`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// FindUserByID retrieves a user by internal UUID.
func (r *UserRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, userID))
}

// UpdateProfile applies a partial profile update and returns the updated user.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, req domain.UpdateProfileRequest) (*domain.User, error) {
	query := `
		UPDATE users
		SET username = COALESCE($2, username),
			phone = COALESCE($3, phone),
			user_type = COALESCE($4, user_type),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, userID, req.Username, req.Phone, req.UserType))
}
