package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"todo_api/internal/activity"
	"todo_api/internal/task"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// errInvalidEvent marks a message that can never be processed. Such messages
// are dropped instead of retried.
var errInvalidEvent = errors.New("invalid task event")

func decodeEvent(body []byte) (*task.TaskEvent, error) {
	var event task.TaskEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidEvent, err)
	}

	if _, err := uuid.Parse(event.EventID); err != nil {
		return nil, fmt.Errorf("%w: bad event_id %q", errInvalidEvent, event.EventID)
	}

	switch event.Action {
	case task.EventCreated, task.EventUpdated, task.EventDeleted:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", errInvalidEvent, event.Action)
	}

	if event.TaskID <= 0 || event.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing task or user id", errInvalidEvent)
	}

	return &event, nil
}

// handleEvent records one task event in the activity log
func (c *consumer) handleEvent(ctx context.Context, body []byte) (*task.TaskEvent, error) {
	event, err := decodeEvent(body)
	if err != nil {
		return nil, err
	}

	recorded, err := c.repo.Record(ctx, c.db, &activity.Activity{
		EventID:    event.EventID,
		TaskID:     event.TaskID,
		UserID:     event.UserID,
		Action:     string(event.Action),
		Title:      event.Title,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return event, err
	}

	entry := logrus.WithFields(logrus.Fields{
		"worker_id": c.id,
		"event_id":  event.EventID,
		"task_id":   event.TaskID,
		"action":    event.Action,
	})
	if !recorded {
		entry.Info("Duplicate task event skipped")
		return event, nil
	}
	entry.Info("Task event recorded")
	return event, nil
}
