package repositories

import "taskpool/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create persists a new user. Fails with a Conflict error if the email
	// is already registered.
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	// IncrementTaskCounter atomically adds 1 to the user's tasks_number.
	// Only invoked as a side effect of task creation, inside the same unit
	// of work as the task insert.
	IncrementTaskCounter(id string) error
	Delete(id string) error
	// SumTaskCounters returns the sum of tasks_number across all users,
	// i.e. the total number of tasks ever created. Task deletion never
	// decrements a counter, so the sum only grows.
	SumTaskCounters() (int64, error)
}
