package repositories

import (
	"errors"
	"fmt"

	"taskpool/internal/apperrors"
	"taskpool/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTaskRepository is a GORM implementation of TaskRepository.
type GORMTaskRepository struct {
	db *gorm.DB
}

// NewGORMTaskRepository creates a new instance of GORMTaskRepository.
func NewGORMTaskRepository(db *gorm.DB) *GORMTaskRepository {
	return &GORMTaskRepository{
		db: db,
	}
}

// Create creates a new task record. Tasks start free.
func (r *GORMTaskRepository) Create(task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.Free = true
	if err := r.db.Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by its ID.
func (r *GORMTaskRepository) GetByID(id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "task with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get task by ID %s: %w", id, err)
	}
	return &task, nil
}

// ListByOwner returns all tasks owned by the given user.
func (r *GORMTaskRepository) ListByOwner(ownerID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Where("owner_id = ?", ownerID).Order("created_at").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks for owner %s: %w", ownerID, err)
	}
	return tasks, nil
}

// Delete removes the task record.
func (r *GORMTaskRepository) Delete(id string) error {
	res := r.db.Delete(&models.Task{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.KindNotFound, "task with ID %s not found", id)
	}
	return nil
}

// DeleteByOwner removes every task of the given owner and returns the
// removed records. Called from the user-deletion transaction so the cascade
// behaves identically whether or not the database enforces the foreign key.
func (r *GORMTaskRepository) DeleteByOwner(ownerID string) ([]models.Task, error) {
	tasks, err := r.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	if err := r.db.Delete(&models.Task{}, "owner_id = ?", ownerID).Error; err != nil {
		return nil, fmt.Errorf("failed to delete tasks for owner %s: %w", ownerID, err)
	}
	return tasks, nil
}

// ClaimFree selects one free task and flips it to claimed. The flip is a
// guarded UPDATE on "free = true", so two callers racing on the same
// candidate cannot both win it: the loser re-selects and either wins another
// candidate or runs out of free tasks.
func (r *GORMTaskRepository) ClaimFree(ownerFilter string) (*models.Task, error) {
	for {
		var task models.Task
		query := r.db.Where("free = ?", true)
		if ownerFilter != "" {
			query = query.Where("owner_id = ?", ownerFilter)
		}
		if err := query.Order("created_at").First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.New(apperrors.KindNoneAvailable, "no free tasks available")
			}
			return nil, fmt.Errorf("failed to select a free task: %w", err)
		}

		res := r.db.Model(&models.Task{}).
			Where("id = ? AND free = ?", task.ID, true).
			UpdateColumn("free", false)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to claim task %s: %w", task.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			task.Free = false
			return &task, nil
		}
		// Lost the race on this candidate; try the next one.
	}
}
