package repositories

import (
	"sort"
	"sync"
	"time"

	"taskpool/internal/apperrors"
	"taskpool/internal/models"

	"github.com/google/uuid"
)

// MockTaskRepository is an in-memory implementation of TaskRepository. The
// claim path performs the free-flag compare-and-set under the repository
// lock, so it gives the same single-winner guarantee as the database-backed
// implementation.
type MockTaskRepository struct {
	tasks map[string]models.Task
	mu    sync.RWMutex
}

// NewMockTaskRepository creates a new instance of MockTaskRepository.
func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		tasks: make(map[string]models.Task),
	}
}

// Create adds a new task. Tasks start free.
func (r *MockTaskRepository) Create(task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.Free = true
	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()
	r.tasks[task.ID] = *task
	return nil
}

// GetByID returns a task by ID.
func (r *MockTaskRepository) GetByID(id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "task with ID %s not found", id)
	}
	return &task, nil
}

// ListByOwner returns all tasks owned by the given user, oldest first.
func (r *MockTaskRepository) ListByOwner(ownerID string) ([]models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []models.Task
	for _, task := range r.tasks {
		if task.OwnerID == ownerID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// Delete removes the task record.
func (r *MockTaskRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return apperrors.New(apperrors.KindNotFound, "task with ID %s not found", id)
	}
	delete(r.tasks, id)
	return nil
}

// DeleteByOwner removes every task of the given owner and returns the
// removed records.
func (r *MockTaskRepository) DeleteByOwner(ownerID string) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []models.Task
	for id, task := range r.tasks {
		if task.OwnerID == ownerID {
			removed = append(removed, task)
			delete(r.tasks, id)
		}
	}
	return removed, nil
}

// ClaimFree flips one free task to claimed under the repository lock.
func (r *MockTaskRepository) ClaimFree(ownerFilter string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, task := range r.tasks {
		if !task.Free {
			continue
		}
		if ownerFilter != "" && task.OwnerID != ownerFilter {
			continue
		}
		task.Free = false
		task.UpdatedAt = time.Now()
		r.tasks[id] = task
		return &task, nil
	}
	return nil, apperrors.New(apperrors.KindNoneAvailable, "no free tasks available")
}
