package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"todo_api/internal/apperror"
	"todo_api/internal/auth"
	"todo_api/internal/config"
	"todo_api/internal/observability"

	"github.com/sirupsen/logrus"
)

const invalidCredentials = "Invalid credentials"

type UserService struct {
	repo    UserRepositoryInterface
	db      *sql.DB
	jwtCfg  *config.JWTConfig
	metrics *observability.Metrics
}

type UserServiceInterface interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, username, password string) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	GetUserByID(ctx context.Context, id int) (*User, error)
}

func NewUserService(repo UserRepositoryInterface, db *sql.DB, jwtCfg *config.JWTConfig, metrics *observability.Metrics) UserServiceInterface {
	return &UserService{
		repo:    repo,
		db:      db,
		jwtCfg:  jwtCfg,
		metrics: metrics,
	}
}

// Register creates a user with a hashed password and issues its first token pair
func (s *UserService) Register(ctx context.Context, input RegisterInput) (resp *AuthResponse, err error) {
	defer func() { s.metrics.AuthAttempt("register", err == nil) }()

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperror.ValidationField("username", "This field may not be blank.")
	}
	if input.Password == "" {
		return nil, apperror.ValidationField("password", "This field may not be blank.")
	}

	existing, err := s.repo.GetByUsername(ctx, s.db, username)
	if err == nil && existing != nil {
		return nil, usernameTaken()
	}
	if err != nil && !apperror.IsNotFound(err) {
		return nil, apperror.Internal("Failed to create user", err)
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperror.ValidationField("password", "Ensure this field has no more than 72 bytes.")
	}
	if err != nil {
		return nil, apperror.Internal("Failed to hash password", err)
	}

	user := &User{
		Username: username,
		Email:    strings.TrimSpace(input.Email),
		Password: hashedPassword,
	}

	if err := s.repo.Create(ctx, s.db, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, usernameTaken()
		}
		return nil, apperror.Internal("Failed to create user", err)
	}

	tokens, err := auth.GenerateTokenPair(user.ID, s.jwtCfg)
	if err != nil {
		return nil, apperror.Internal("Failed to issue token", err)
	}

	return &AuthResponse{User: user, TokenPair: tokens}, nil
}

// Login validates username and password and issues a fresh token pair
func (s *UserService) Login(ctx context.Context, username, password string) (resp *AuthResponse, err error) {
	defer func() { s.metrics.AuthAttempt("login", err == nil) }()

	if username == "" || password == "" {
		return nil, apperror.Authentication(invalidCredentials)
	}

	user, err := s.repo.GetByUsername(ctx, s.db, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			logrus.WithField("username", username).Info("Login for unknown user")
			return nil, apperror.Authentication(invalidCredentials)
		}
		return nil, apperror.Internal("Failed to log in", err)
	}

	if !auth.CheckPassword(user.Password, password) {
		logrus.WithField("user_id", user.ID).Info("Login with wrong password")
		return nil, apperror.Authentication(invalidCredentials)
	}

	tokens, err := auth.GenerateTokenPair(user.ID, s.jwtCfg)
	if err != nil {
		return nil, apperror.Internal("Failed to issue token", err)
	}

	return &AuthResponse{User: user, TokenPair: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. The user must still exist.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (resp *AuthResponse, err error) {
	defer func() { s.metrics.AuthAttempt("refresh", err == nil) }()

	claims, err := auth.ValidateToken(refreshToken, s.jwtCfg.Secret)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperror.Authentication("Refresh token expired")
		}
		return nil, apperror.Authentication("Invalid refresh token")
	}
	if claims.Type != auth.RefreshToken {
		return nil, apperror.Authentication("Invalid refresh token")
	}

	user, err := s.repo.GetByID(ctx, s.db, claims.UserID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Authentication("Invalid refresh token")
		}
		return nil, apperror.Internal("Failed to refresh token", err)
	}

	tokens, err := auth.GenerateTokenPair(user.ID, s.jwtCfg)
	if err != nil {
		return nil, apperror.Internal("Failed to issue token", err)
	}

	return &AuthResponse{User: user, TokenPair: tokens}, nil
}

// GetUserByID loads the account behind an authenticated request. A token
// outliving its user is treated as invalid credentials.
func (s *UserService) GetUserByID(ctx context.Context, id int) (*User, error) {
	user, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Authentication("User not found")
		}
		return nil, apperror.Internal("Failed to load user", err)
	}
	return user, nil
}

func usernameTaken() *apperror.Error {
	return apperror.ValidationField("username", "A user with that username already exists.")
}
