package repositories

import (
	"sync"
	"time"

	"taskpool/internal/apperrors"
	"taskpool/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user, enforcing email uniqueness.
func (r *MockUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return apperrors.New(apperrors.KindConflict, "email %s already registered", user.Email)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

// GetByID returns a user by ID.
func (r *MockUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "user with ID %s not found", id)
	}
	return &user, nil
}

// GetByEmail returns a user by email.
func (r *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, apperrors.New(apperrors.KindNotFound, "user with email %s not found", email)
}

// IncrementTaskCounter bumps the user's tasks_number by one.
func (r *MockUserRepository) IncrementTaskCounter(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return apperrors.New(apperrors.KindNotFound, "user with ID %s not found", id)
	}
	user.TasksNumber++
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

// Delete removes the user record.
func (r *MockUserRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return apperrors.New(apperrors.KindNotFound, "user with ID %s not found", id)
	}
	delete(r.users, id)
	return nil
}

// SumTaskCounters sums tasks_number across all users.
func (r *MockUserRepository) SumTaskCounters() (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, user := range r.users {
		total += int64(user.TasksNumber)
	}
	return total, nil
}
