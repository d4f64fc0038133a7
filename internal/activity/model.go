package activity

import "time"

// Activity is one recorded task event. EventID is unique, so replaying a
// delivery never records it twice.
type Activity struct {
	ID         int       `json:"id"`
	EventID    string    `json:"event_id"`
	TaskID     int       `json:"task_id"`
	UserID     int       `json:"user_id"`
	Action     string    `json:"action"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordedAt time.Time `json:"recorded_at"`
}
