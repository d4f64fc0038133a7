package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"todo_api/internal/apperror"
	"todo_api/internal/db"

	"github.com/sirupsen/logrus"
)

const taskColumns = `id, user_id, title, description, completed, created_at, updated_at`

type TaskRepository struct{}

// Every read and write is scoped by user_id; a task owned by someone else
// behaves exactly like a missing one.
type TaskRepositoryInterface interface {
	Create(ctx context.Context, q db.DBTX, task *Task) error
	GetByID(ctx context.Context, q db.DBTX, userID, id int) (*Task, error)
	List(ctx context.Context, q db.DBTX, userID int, opts ListOptions, limit, offset int) ([]*Task, error)
	Count(ctx context.Context, q db.DBTX, userID int, opts ListOptions) (int, error)
	Update(ctx context.Context, q db.DBTX, task *Task) error
	Delete(ctx context.Context, q db.DBTX, userID, id int) error
}

func NewTaskRepository() TaskRepositoryInterface {
	return &TaskRepository{}
}

// Create inserts task and fills in ID and timestamps
func (r *TaskRepository) Create(ctx context.Context, q db.DBTX, task *Task) error {
	query := `
		INSERT INTO tasks (
			user_id, title, description, completed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		task.UserID,
		task.Title,
		task.Description,
		task.Completed,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, q db.DBTX, userID, id int) (*Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	t, err := scanTask(q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Not found.")
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	return t, nil
}

func (r *TaskRepository) List(ctx context.Context, q db.DBTX, userID int, opts ListOptions, limit, offset int) ([]*Task, error) {
	query, args := buildListQuery(userID, opts, limit, offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*Task, 0, limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logrus.WithError(err).Error("Error scanning task row")
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepository) Count(ctx context.Context, q db.DBTX, userID int, opts ListOptions) (int, error) {
	where, args := buildFilter(userID, opts)

	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}

	return count, nil
}

// Update replaces title, description and completed, refreshing updated_at
func (r *TaskRepository) Update(ctx context.Context, q db.DBTX, task *Task) error {
	query := `
		UPDATE tasks
		SET title = $1,
		    description = $2,
		    completed = $3,
		    updated_at = NOW()
		WHERE id = $4 AND user_id = $5
		RETURNING created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		task.Title,
		task.Description,
		task.Completed,
		task.ID,
		task.UserID,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("Not found.")
		}
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, q db.DBTX, userID, id int) error {
	result, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if rowsAffected == 0 {
		return apperror.NotFound("Not found.")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.Completed,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// buildFilter returns the WHERE clause for opts. user_id is always $1.
func buildFilter(userID int, opts ListOptions) (string, []interface{}) {
	clauses := []string{"user_id = $1"}
	args := []interface{}{userID}

	if opts.Completed != nil {
		args = append(args, *opts.Completed)
		clauses = append(clauses, fmt.Sprintf("completed = $%d", len(args)))
	}

	for _, term := range opts.SearchTerms {
		args = append(args, "%"+escapeLike(term)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	return strings.Join(clauses, " AND "), args
}

func buildOrderBy(ordering []OrderField) string {
	if len(ordering) == 0 {
		ordering = defaultOrdering
	}

	parts := make([]string, 0, len(ordering)+1)
	for _, f := range ordering {
		// Column names come from orderableFields only, never from the request
		if !orderableFields[f.Column] {
			continue
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		parts = append(parts, f.Column+" "+dir)
	}

	tiebreak := "id ASC"
	if len(ordering) > 0 && ordering[0].Desc {
		tiebreak = "id DESC"
	}
	parts = append(parts, tiebreak)

	return strings.Join(parts, ", ")
}

func buildListQuery(userID int, opts ListOptions, limit, offset int) (string, []interface{}) {
	where, args := buildFilter(userID, opts)

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		"SELECT %s FROM tasks WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		taskColumns, where, buildOrderBy(opts.Ordering), len(args)-1, len(args),
	)

	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
