package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildFilter_OwnerAlwaysFirst(t *testing.T) {
	where, args := buildFilter(7, ListOptions{})

	assert.Equal(t, "user_id = $1", where)
	assert.Equal(t, []interface{}{7}, args)
}

func TestBuildFilter_CompletedAndSearch(t *testing.T) {
	where, args := buildFilter(7, ListOptions{
		Completed:   boolPtr(true),
		SearchTerms: []string{"milk", "50%_off"},
	})

	assert.Equal(t,
		"user_id = $1 AND completed = $2 AND (title ILIKE $3 OR description ILIKE $3) AND (title ILIKE $4 OR description ILIKE $4)",
		where,
	)
	assert.Equal(t, []interface{}{7, true, "%milk%", `%50\%\_off%`}, args)
}

func TestBuildOrderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []OrderField
		expected string
	}{
		{
			name:     "Default",
			ordering: nil,
			expected: "created_at DESC, id DESC",
		},
		{
			name:     "Title ascending",
			ordering: []OrderField{{Column: "title"}},
			expected: "title ASC, id ASC",
		},
		{
			name:     "Multiple",
			ordering: []OrderField{{Column: "updated_at", Desc: true}, {Column: "title"}},
			expected: "updated_at DESC, title ASC, id DESC",
		},
		{
			name:     "Unknown column dropped",
			ordering: []OrderField{{Column: "password"}, {Column: "title"}},
			expected: "title ASC, id ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildOrderBy(tt.ordering))
		})
	}
}

func TestBuildListQuery_Pagination(t *testing.T) {
	query, args := buildListQuery(3, ListOptions{Completed: boolPtr(false)}, 10, 20)

	assert.Equal(t,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 AND completed = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4",
		query,
	)
	assert.Equal(t, []interface{}{3, false, 10, 20}, args)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\tmp`, escapeLike(`c:\tmp`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
