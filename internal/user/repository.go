package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo_api/internal/apperror"
	"todo_api/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

var ErrUsernameTaken = errors.New("username already exists")

type UserRepository struct{}

type UserRepositoryInterface interface {
	Create(ctx context.Context, q db.DBTX, user *User) error
	GetByID(ctx context.Context, q db.DBTX, id int) (*User, error)
	GetByUsername(ctx context.Context, q db.DBTX, username string) (*User, error)
}

func NewUserRepository() UserRepositoryInterface {
	return &UserRepository{}
}

// Create inserts user and fills in its ID and CreatedAt
func (r *UserRepository) Create(ctx context.Context, q db.DBTX, user *User) error {
	query := `
		INSERT INTO users (
			username, email, password, created_at
		)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	err := q.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.Password,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUsernameTaken
		}
		logrus.WithError(err).Error("Failed to create user")
		return fmt.Errorf("create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User created successfully")

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, q db.DBTX, id int) (*User, error) {
	query := `
		SELECT id, username, email, password, created_at
		FROM users
		WHERE id = $1
	`

	return scanUser(q.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, q db.DBTX, username string) (*User, error) {
	query := `
		SELECT id, username, email, password, created_at
		FROM users
		WHERE username = $1
	`

	return scanUser(q.QueryRowContext(ctx, query, username))
}

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user not found")
		}
		logrus.WithError(err).Error("Failed to scan user")
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}
