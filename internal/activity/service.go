package activity

import (
	"context"
	"database/sql"

	"todo_api/internal/apperror"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

type ActivityServiceInterface interface {
	ListActivity(ctx context.Context, userID, limit int) ([]*Activity, error)
}

type ActivityService struct {
	repo ActivityRepositoryInterface
	db   *sql.DB
}

func NewActivityService(repo ActivityRepositoryInterface, db *sql.DB) ActivityServiceInterface {
	return &ActivityService{
		repo: repo,
		db:   db,
	}
}

// ListActivity returns the caller's most recent task events, newest first.
// limit outside 1..MaxListLimit is clamped.
func (s *ActivityService) ListActivity(ctx context.Context, userID, limit int) ([]*Activity, error) {
	if limit < 1 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	activities, err := s.repo.ListByUser(ctx, s.db, userID, limit)
	if err != nil {
		return nil, apperror.Internal("Failed to list activity", err)
	}
	if activities == nil {
		activities = []*Activity{}
	}

	return activities, nil
}
