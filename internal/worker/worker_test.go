package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"todo_api/internal/activity"
	"todo_api/internal/db"
	"todo_api/internal/observability"
	"todo_api/internal/task"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Record(ctx context.Context, q db.DBTX, a *activity.Activity) (bool, error) {
	args := m.Called(ctx, q, a)
	return args.Bool(0), args.Error(1)
}

func (m *MockActivityRepository) ListByUser(ctx context.Context, q db.DBTX, userID, limit int) ([]*activity.Activity, error) {
	args := m.Called(ctx, q, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*activity.Activity), args.Error(1)
}

// fakeAcknowledger records how a delivery was settled
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeRepublisher struct {
	published []amqp.Publishing
	err       error
}

func (p *fakeRepublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func newTestConsumer(repo activity.ActivityRepositoryInterface, pub Republisher) (*consumer, *observability.Metrics) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return &consumer{
		id:        1,
		queueName: "task_events",
		repo:      repo,
		publisher: pub,
		metrics:   metrics,
	}, metrics
}

func eventBody(t *testing.T, action task.EventAction) []byte {
	t.Helper()
	body, err := json.Marshal(task.TaskEvent{
		EventID:    uuid.NewString(),
		Action:     action,
		TaskID:     9,
		UserID:     2,
		Title:      "Buy milk",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return body
}

func delivery(body []byte, acker amqp.Acknowledger, headers amqp.Table) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: acker,
		Body:         body,
		Headers:      headers,
		RoutingKey:   "task_events",
		ContentType:  "application/json",
	}
}

func TestDecodeEvent(t *testing.T) {
	valid := task.TaskEvent{EventID: uuid.NewString(), Action: task.EventUpdated, TaskID: 1, UserID: 1}

	tests := []struct {
		name    string
		mutate  func(e *task.TaskEvent)
		wantErr bool
	}{
		{name: "Valid", mutate: func(e *task.TaskEvent) {}},
		{name: "Unknown action", mutate: func(e *task.TaskEvent) { e.Action = "archived" }, wantErr: true},
		{name: "Bad event id", mutate: func(e *task.TaskEvent) { e.EventID = "123" }, wantErr: true},
		{name: "Missing task id", mutate: func(e *task.TaskEvent) { e.TaskID = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			body, err := json.Marshal(e)
			require.NoError(t, err)

			_, err = decodeEvent(body)
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidEvent)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := decodeEvent([]byte("{not json"))
	assert.ErrorIs(t, err, errInvalidEvent)
}

func TestProcess_RecordsAndAcks(t *testing.T) {
	repo := new(MockActivityRepository)
	c, metrics := newTestConsumer(repo, &fakeRepublisher{})
	acker := &fakeAcknowledger{}

	repo.On("Record", mock.Anything, mock.Anything, mock.MatchedBy(func(a *activity.Activity) bool {
		return a.Action == "created" && a.TaskID == 9 && a.UserID == 2 && a.Title == "Buy milk"
	})).Return(true, nil)

	c.process(context.Background(), delivery(eventBody(t, task.EventCreated), acker, nil))

	assert.True(t, acker.acked)
	assert.False(t, acker.nacked)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.QueueMessagesConsumed.WithLabelValues("task_events")))
	repo.AssertExpectations(t)
}

func TestProcess_DuplicateIsAcked(t *testing.T) {
	repo := new(MockActivityRepository)
	c, _ := newTestConsumer(repo, &fakeRepublisher{})
	acker := &fakeAcknowledger{}

	repo.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	c.process(context.Background(), delivery(eventBody(t, task.EventDeleted), acker, nil))

	assert.True(t, acker.acked)
}

func TestProcess_InvalidPayloadDropped(t *testing.T) {
	repo := new(MockActivityRepository)
	pub := &fakeRepublisher{}
	c, metrics := newTestConsumer(repo, pub)
	acker := &fakeAcknowledger{}

	c.process(context.Background(), delivery([]byte(`{"action":"created"}`), acker, nil))

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue)
	assert.Empty(t, pub.published)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsFailedTotal.WithLabelValues("unknown", "invalid_payload")))
	repo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_FailureRepublishesWithRetryCount(t *testing.T) {
	repo := new(MockActivityRepository)
	pub := &fakeRepublisher{}
	c, _ := newTestConsumer(repo, pub)
	acker := &fakeAcknowledger{}

	repo.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("db down"))

	c.process(context.Background(), delivery(eventBody(t, task.EventUpdated), acker, amqp.Table{retryHeader: int32(1)}))

	assert.True(t, acker.acked)
	require.Len(t, pub.published, 1)
	assert.Equal(t, int32(2), pub.published[0].Headers[retryHeader])
	assert.Equal(t, uint8(amqp.Persistent), pub.published[0].DeliveryMode)
}

func TestProcess_MaxRetriesDropped(t *testing.T) {
	repo := new(MockActivityRepository)
	pub := &fakeRepublisher{}
	c, metrics := newTestConsumer(repo, pub)
	acker := &fakeAcknowledger{}

	repo.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("db down"))

	c.process(context.Background(), delivery(eventBody(t, task.EventUpdated), acker, amqp.Table{retryHeader: int32(maxRetries)}))

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue)
	assert.Empty(t, pub.published)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsFailedTotal.WithLabelValues("updated", "max_retries")))
}

func TestProcess_RepublishFailureRequeues(t *testing.T) {
	repo := new(MockActivityRepository)
	c, _ := newTestConsumer(repo, &fakeRepublisher{err: errors.New("channel closed")})
	acker := &fakeAcknowledger{}

	repo.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("db down"))

	c.process(context.Background(), delivery(eventBody(t, task.EventCreated), acker, nil))

	assert.True(t, acker.nacked)
	assert.True(t, acker.requeue)
}

func TestRetryCountOf(t *testing.T) {
	assert.Equal(t, int32(0), retryCountOf(&amqp.Delivery{}))
	assert.Equal(t, int32(2), retryCountOf(&amqp.Delivery{Headers: amqp.Table{retryHeader: int32(2)}}))
	assert.Equal(t, int32(3), retryCountOf(&amqp.Delivery{Headers: amqp.Table{retryHeader: int64(3)}}))
	assert.Equal(t, int32(0), retryCountOf(&amqp.Delivery{Headers: amqp.Table{retryHeader: "x"}}))
}
