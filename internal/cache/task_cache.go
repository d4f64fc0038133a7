package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultTaskTTL = time.Hour

// TaskCache holds single tasks as JSON, keyed by owner and task id
type TaskCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTaskCache(client *redis.Client, ttl time.Duration) *TaskCache {
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	return &TaskCache{client: client, ttl: ttl}
}

// Get returns the cached JSON for the task, or nil on a miss
func (c *TaskCache) Get(ctx context.Context, userID, taskID int) ([]byte, error) {
	val, err := c.client.Get(ctx, TaskKey(userID, taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *TaskCache) Set(ctx context.Context, userID, taskID int, task interface{}) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %d: %w", taskID, err)
	}
	return c.client.Set(ctx, TaskKey(userID, taskID), data, c.ttl).Err()
}

// Invalidate drops the entry after the task changes or is deleted
func (c *TaskCache) Invalidate(ctx context.Context, userID, taskID int) error {
	return c.client.Del(ctx, TaskKey(userID, taskID)).Err()
}

// TaskKey includes the owner, so a lookup by another user never hits the entry
func TaskKey(userID, taskID int) string {
	return fmt.Sprintf("task:user:%d:%d", userID, taskID)
}
