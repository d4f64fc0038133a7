package task

import "time"

type Task struct {
	ID          int       `json:"id"`
	UserID      int       `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskInput is the body of create and full-update requests. Omitted fields
// take their zero value, so PUT replaces every writable field.
type TaskInput struct {
	Title       string `json:"title" form:"title" binding:"required,max=200"`
	Description string `json:"description" form:"description"`
	Completed   bool   `json:"completed" form:"completed"`
}

// Page is one page of an owner's tasks plus the total match count
type Page struct {
	Tasks    []*Task
	Count    int
	Number   int
	PageSize int
}

func (p *Page) HasNext() bool {
	return p.Number < pageCount(p.Count, p.PageSize)
}

func (p *Page) HasPrevious() bool {
	return p.Number > 1
}

type EventAction string

const (
	EventCreated EventAction = "created"
	EventUpdated EventAction = "updated"
	EventDeleted EventAction = "deleted"
)

// TaskEvent is published to the event queue after a task mutation commits
type TaskEvent struct {
	EventID    string      `json:"event_id"`
	Action     EventAction `json:"action"`
	TaskID     int         `json:"task_id"`
	UserID     int         `json:"user_id"`
	Title      string      `json:"title"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// pageCount is the number of pages needed for count rows. Computed by
// division so huge page numbers never overflow.
func pageCount(count, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}
