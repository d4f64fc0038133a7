package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo_api/internal/db"
)

type ActivityRepository struct{}

type ActivityRepositoryInterface interface {
	Record(ctx context.Context, q db.DBTX, a *Activity) (bool, error)
	ListByUser(ctx context.Context, q db.DBTX, userID, limit int) ([]*Activity, error)
}

func NewActivityRepository() ActivityRepositoryInterface {
	return &ActivityRepository{}
}

// Record inserts a. It reports false without error when the event was
// already recorded.
func (r *ActivityRepository) Record(ctx context.Context, q db.DBTX, a *Activity) (bool, error) {
	query := `
		INSERT INTO task_activity (
			event_id, task_id, user_id, action, title, occurred_at, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id, recorded_at
	`

	err := q.QueryRowContext(ctx, query,
		a.EventID,
		a.TaskID,
		a.UserID,
		a.Action,
		a.Title,
		a.OccurredAt,
	).Scan(&a.ID, &a.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("record activity: %w", err)
	}

	return true, nil
}

// ListByUser returns the most recent activity for userID, newest first
func (r *ActivityRepository) ListByUser(ctx context.Context, q db.DBTX, userID, limit int) ([]*Activity, error) {
	query := `
		SELECT id, event_id, task_id, user_id, action, title, occurred_at, recorded_at
		FROM task_activity
		WHERE user_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`

	rows, err := q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(
			&a.ID,
			&a.EventID,
			&a.TaskID,
			&a.UserID,
			&a.Action,
			&a.Title,
			&a.OccurredAt,
			&a.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("list activity: %w", err)
		}
		activities = append(activities, &a)
	}

	return activities, rows.Err()
}
