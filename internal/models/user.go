package models

import "time"

// User represents a registered task author.
type User struct {
	ID    string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Email string `json:"email" gorm:"uniqueIndex;type:varchar(254)" validate:"required,email"`
	// TasksNumber counts tasks ever created by this user. It is a monotonic
	// counter, not a live count: task deletion does not decrement it.
	TasksNumber int       `json:"tasks_number" gorm:"not null;default:0" validate:"gte=0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
