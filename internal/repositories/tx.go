package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repos bundles the repository set visible inside one unit of work.
type Repos struct {
	Users UserRepository
	Tasks TaskRepository
}

// TxManager wraps an API operation in an all-or-nothing unit of work. If the
// closure returns an error, every write it performed (record inserts, counter
// increments, free-flag flips) is rolled back; partially-applied effects are
// never observable. On nil, all writes become visible atomically. A failed
// unit of work is not retried.
type TxManager interface {
	Do(ctx context.Context, fn func(r Repos) error) error
}

// GormTxManager runs each unit of work inside a database transaction.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a new instance of GormTxManager.
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{
		db: db,
	}
}

// Do opens a transaction, hands transaction-scoped repositories to fn, and
// commits or rolls back based on fn's result.
func (m *GormTxManager) Do(ctx context.Context, fn func(r Repos) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Repos{
			Users: NewGORMUserRepository(tx),
			Tasks: NewGORMTaskRepository(tx),
		})
	})
}

// MockTxManager satisfies TxManager for unit tests. It passes a fixed repo
// set straight to the closure; there is no rollback, so tests asserting
// rollback behavior should use a real database.
type MockTxManager struct {
	Repos Repos
}

// NewMockTxManager creates a MockTxManager over the given repositories.
func NewMockTxManager(users UserRepository, tasks TaskRepository) *MockTxManager {
	return &MockTxManager{
		Repos: Repos{Users: users, Tasks: tasks},
	}
}

// Do invokes fn with the fixed repository set.
func (m *MockTxManager) Do(_ context.Context, fn func(r Repos) error) error {
	return fn(m.Repos)
}
