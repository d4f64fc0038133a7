package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"todo_api/internal/apperror"
	"todo_api/internal/observability"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxTitleLength = 200
	cacheTimeout   = 2 * time.Second
	publishTimeout = 5 * time.Second
)

type TaskServiceInterface interface {
	CreateTask(ctx context.Context, userID int, input TaskInput) (*Task, error)
	ListTasks(ctx context.Context, userID int, opts ListOptions) (*Page, error)
	GetTask(ctx context.Context, userID, taskID int) (*Task, error)
	UpdateTask(ctx context.Context, userID, taskID int, input TaskInput) (*Task, error)
	DeleteTask(ctx context.Context, userID, taskID int) error
}

// TaskCacher is satisfied by cache.TaskCache
type TaskCacher interface {
	Get(ctx context.Context, userID, taskID int) ([]byte, error)
	Set(ctx context.Context, userID, taskID int, task interface{}) error
	Invalidate(ctx context.Context, userID, taskID int) error
}

// EventPublisher delivers task events; queue.Publisher implements it
type EventPublisher interface {
	Publish(ctx context.Context, payload interface{}) error
}

type TaskService struct {
	repo      TaskRepositoryInterface
	DB        *sql.DB
	cache     TaskCacher
	publisher EventPublisher
	pageSize  int
	metrics   *observability.Metrics
}

// NewTaskService wires the service. cache and publisher may be nil.
func NewTaskService(repo TaskRepositoryInterface, db *sql.DB, taskCache TaskCacher, publisher EventPublisher, pageSize int, metrics *observability.Metrics) TaskServiceInterface {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &TaskService{
		repo:      repo,
		DB:        db,
		cache:     taskCache,
		publisher: publisher,
		pageSize:  pageSize,
		metrics:   metrics,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, userID int, input TaskInput) (*Task, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}

	task := &Task{
		UserID:      userID,
		Title:       title,
		Description: input.Description,
		Completed:   input.Completed,
	}

	if err := s.repo.Create(ctx, s.DB, task); err != nil {
		return nil, apperror.Internal("Failed to create task", err)
	}

	logrus.WithFields(logrus.Fields{
		"task_id": task.ID,
		"user_id": userID,
	}).Info("Task created")

	s.metrics.TaskOperation("create")
	s.publish(ctx, EventCreated, task)
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, userID int, opts ListOptions) (*Page, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}

	count, err := s.repo.Count(ctx, s.DB, userID, opts)
	if err != nil {
		return nil, apperror.Internal("Failed to list tasks", err)
	}

	if opts.Page > 1 && opts.Page > pageCount(count, s.pageSize) {
		return nil, apperror.NotFound("Invalid page.")
	}
	offset := (opts.Page - 1) * s.pageSize

	tasks, err := s.repo.List(ctx, s.DB, userID, opts, s.pageSize, offset)
	if err != nil {
		return nil, apperror.Internal("Failed to list tasks", err)
	}

	s.metrics.TaskOperation("list")
	return &Page{
		Tasks:    tasks,
		Count:    count,
		Number:   opts.Page,
		PageSize: s.pageSize,
	}, nil
}

// GetTask reads through the cache. Cache errors are logged and ignored.
func (s *TaskService) GetTask(ctx context.Context, userID, taskID int) (*Task, error) {
	if cached := s.cachedTask(ctx, userID, taskID); cached != nil {
		cached.UserID = userID
		s.metrics.TaskOperation("get")
		return cached, nil
	}

	task, err := s.repo.GetByID(ctx, s.DB, userID, taskID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Internal("Failed to get task", err)
	}

	s.cacheTask(ctx, task)
	s.metrics.TaskOperation("get")
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID int, input TaskInput) (*Task, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}

	task := &Task{
		ID:          taskID,
		UserID:      userID,
		Title:       title,
		Description: input.Description,
		Completed:   input.Completed,
	}

	if err := s.repo.Update(ctx, s.DB, task); err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Internal("Failed to update task", err)
	}

	s.refreshCache(ctx, task)
	s.metrics.TaskOperation("update")
	s.publish(ctx, EventUpdated, task)
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID int) error {
	if err := s.repo.Delete(ctx, s.DB, userID, taskID); err != nil {
		if apperror.IsNotFound(err) {
			return err
		}
		return apperror.Internal("Failed to delete task", err)
	}

	s.invalidate(ctx, userID, taskID)
	s.metrics.TaskOperation("delete")
	s.publish(ctx, EventDeleted, &Task{ID: taskID, UserID: userID})
	return nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperror.ValidationField("title", "This field may not be blank.")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", apperror.ValidationField("title", "Ensure this field has no more than 200 characters.")
	}
	return title, nil
}

func (s *TaskService) cachedTask(ctx context.Context, userID, taskID int) *Task {
	if s.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	data, err := s.cache.Get(ctx, userID, taskID)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read task cache")
		return nil
	}
	if data == nil {
		s.metrics.CacheLookup("task", false)
		return nil
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		logrus.WithError(err).Warn("Discarding undecodable cache entry")
		return nil
	}

	s.metrics.CacheLookup("task", true)
	return &task
}

func (s *TaskService) cacheTask(ctx context.Context, task *Task) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if err := s.cache.Set(ctx, task.UserID, task.ID, task); err != nil {
		logrus.WithError(err).Warn("Failed to set cache for task")
	}
}

// refreshCache overwrites the entry with the committed task, so a concurrent
// read that fetched the old row cannot leave it cached after the update. If
// the write fails the entry is dropped instead.
func (s *TaskService) refreshCache(ctx context.Context, task *Task) {
	if s.cache == nil {
		return
	}

	setCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if err := s.cache.Set(setCtx, task.UserID, task.ID, task); err != nil {
		logrus.WithError(err).WithField("task_id", task.ID).Warn("Failed to refresh task cache")
		s.invalidate(ctx, task.UserID, task.ID)
	}
}

func (s *TaskService) invalidate(ctx context.Context, userID, taskID int) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if err := s.cache.Invalidate(ctx, userID, taskID); err != nil {
		logrus.WithError(err).WithField("task_id", taskID).Warn("Failed to invalidate task cache")
	}
}

// publish emits a task event. The mutation has already committed, so a
// failure here is logged and never returned to the caller.
func (s *TaskService) publish(ctx context.Context, action EventAction, task *Task) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := TaskEvent{
		EventID:    uuid.NewString(),
		Action:     action,
		TaskID:     task.ID,
		UserID:     task.UserID,
		Title:      task.Title,
		OccurredAt: time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"task_id": task.ID,
			"action":  action,
		}).Warn("Failed to publish task event")
	}
}
