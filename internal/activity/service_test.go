package activity

import (
	"context"
	"errors"
	"testing"

	"todo_api/internal/apperror"
	"todo_api/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Record(ctx context.Context, q db.DBTX, a *Activity) (bool, error) {
	args := m.Called(ctx, q, a)
	return args.Bool(0), args.Error(1)
}

func (m *MockActivityRepository) ListByUser(ctx context.Context, q db.DBTX, userID, limit int) ([]*Activity, error) {
	args := m.Called(ctx, q, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Activity), args.Error(1)
}

func TestListActivity_ClampsLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "Zero uses default", limit: 0, want: DefaultListLimit},
		{name: "Within range", limit: 7, want: 7},
		{name: "Above max", limit: 1000, want: MaxListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockActivityRepository)
			svc := NewActivityService(repo, nil)
			repo.On("ListByUser", mock.Anything, mock.Anything, 3, tt.want).
				Return([]*Activity{{ID: 1, UserID: 3, Action: "created"}}, nil)

			activities, err := svc.ListActivity(context.Background(), 3, tt.limit)

			require.NoError(t, err)
			assert.Len(t, activities, 1)
			repo.AssertExpectations(t)
		})
	}
}

func TestListActivity_EmptyIsNotNil(t *testing.T) {
	repo := new(MockActivityRepository)
	svc := NewActivityService(repo, nil)
	repo.On("ListByUser", mock.Anything, mock.Anything, 3, DefaultListLimit).Return(nil, nil)

	activities, err := svc.ListActivity(context.Background(), 3, 0)

	require.NoError(t, err)
	assert.NotNil(t, activities)
	assert.Empty(t, activities)
}

func TestListActivity_RepositoryError(t *testing.T) {
	repo := new(MockActivityRepository)
	svc := NewActivityService(repo, nil)
	repo.On("ListByUser", mock.Anything, mock.Anything, 3, DefaultListLimit).Return(nil, errors.New("db down"))

	_, err := svc.ListActivity(context.Background(), 3, 0)

	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}
