package repositories

import (
	"errors"
	"fmt"

	"taskpool/internal/apperrors"
	"taskpool/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Wrap(apperrors.KindConflict, err, "email %s already registered", user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "user with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "user with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// IncrementTaskCounter bumps the user's tasks_number by one in a single
// UPDATE, so concurrent creators never lose an increment.
func (r *GORMUserRepository) IncrementTaskCounter(id string) error {
	res := r.db.Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("tasks_number", gorm.Expr("tasks_number + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment task counter for user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.KindNotFound, "user with ID %s not found", id)
	}
	return nil
}

// Delete removes the user record.
func (r *GORMUserRepository) Delete(id string) error {
	res := r.db.Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.KindNotFound, "user with ID %s not found", id)
	}
	return nil
}

// SumTaskCounters aggregates tasks_number across all users on the database
// side.
func (r *GORMUserRepository) SumTaskCounters() (int64, error) {
	var total int64
	err := r.db.Model(&models.User{}).
		Select("COALESCE(SUM(tasks_number), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum task counters: %w", err)
	}
	return total, nil
}
