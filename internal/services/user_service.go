package services

import (
	"context"
	"fmt"

	"taskpool/internal/apperrors"
	"taskpool/internal/models"
	"taskpool/internal/repositories"
	"taskpool/pkg/imagestore"
	applog "taskpool/pkg/log"

	"github.com/rs/zerolog"
)

// UserService handles business logic for user lifecycle and the global
// task-creation aggregate.
type UserService struct {
	tx     repositories.TxManager
	images imagestore.Store
	events EventPublisher
	logger zerolog.Logger
}

// NewUserService creates a new UserService. events may be nil when no broker
// is configured.
func NewUserService(tx repositories.TxManager, images imagestore.Store, events EventPublisher) *UserService {
	return &UserService{
		tx:     tx,
		images: images,
		events: events,
		logger: applog.WithComponent("user_service"),
	}
}

// Register creates a new user. Fails with a Conflict error if the email is
// already registered.
func (s *UserService) Register(ctx context.Context, email string) (*models.User, error) {
	var user *models.User
	err := s.tx.Do(ctx, func(r repositories.Repos) error {
		if existing, err := r.Users.GetByEmail(email); err == nil && existing != nil {
			return apperrors.New(apperrors.KindConflict, "email %s already registered", email)
		}
		user = &models.User{Email: email}
		if err := r.Users.Create(user); err != nil {
			return fmt.Errorf("failed to register user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Get resolves a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := s.tx.Do(ctx, func(r repositories.Repos) error {
		var err error
		user, err = r.Users.GetByID(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user and, in the same unit of work, every task they own.
// Only the user themselves may do this. Image blobs of the removed tasks are
// cleaned up best-effort after the transaction commits; a blob that fails to
// delete is logged, not surfaced.
func (s *UserService) Delete(ctx context.Context, callerID, targetID string) error {
	if callerID != targetID {
		return apperrors.New(apperrors.KindForbidden, "you can only delete your own account")
	}

	var removed []models.Task
	err := s.tx.Do(ctx, func(r repositories.Repos) error {
		if _, err := r.Users.GetByID(targetID); err != nil {
			return err
		}
		var err error
		removed, err = r.Tasks.DeleteByOwner(targetID)
		if err != nil {
			return err
		}
		return r.Users.Delete(targetID)
	})
	if err != nil {
		return err
	}

	for _, task := range removed {
		if err := s.images.Remove(task.ID, task.ImageType); err != nil {
			s.logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to remove image blob of deleted user's task")
		}
	}

	s.publish("user.deleted", map[string]interface{}{
		"user_id":       targetID,
		"tasks_removed": len(removed),
	})
	return nil
}

// TotalTasksCreated returns the number of tasks ever created across all
// users. Deleting tasks does not shrink this aggregate.
func (s *UserService) TotalTasksCreated(ctx context.Context) (int64, error) {
	var total int64
	err := s.tx.Do(ctx, func(r repositories.Repos) error {
		var err error
		total, err = r.Users.SumTaskCounters()
		return err
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *UserService) publish(event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(event, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", event).Msg("failed to publish event")
	}
}
