package repositories

import "taskpool/internal/models"

// TaskRepository defines the interface for task data access.
type TaskRepository interface {
	Create(task *models.Task) error
	GetByID(id string) (*models.Task, error)
	ListByOwner(ownerID string) ([]models.Task, error)
	Delete(id string) error
	// DeleteByOwner removes every task owned by the given user and returns
	// the removed tasks so the caller can clean up their image blobs after
	// the transaction commits.
	DeleteByOwner(ownerID string) ([]models.Task, error)
	// ClaimFree atomically selects one free task, flips its free flag to
	// false and returns it. At most one concurrent caller can win any given
	// task: the flip is a guarded update, not a read-then-write. Callers
	// racing on the same candidate either win a different task or fail with
	// a NoneAvailable error.
	//
	// An empty ownerFilter considers every free task system-wide; a
	// non-empty filter restricts candidates to that owner.
	ClaimFree(ownerFilter string) (*models.Task, error)
}
