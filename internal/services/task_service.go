package services

import (
	"context"
	"io"

	"taskpool/internal/apperrors"
	"taskpool/internal/models"
	"taskpool/internal/repositories"
	"taskpool/pkg/imagestore"
	applog "taskpool/pkg/log"
	"taskpool/pkg/metrics"

	"github.com/rs/zerolog"
)

// TaskService handles business logic for task lifecycle and the claim
// protocol.
type TaskService struct {
	tx     repositories.TxManager
	images imagestore.Store
	events EventPublisher
	logger zerolog.Logger
}

// NewTaskService creates a new TaskService. events may be nil when no broker
// is configured.
func NewTaskService(tx repositories.TxManager, images imagestore.Store, events EventPublisher) *TaskService {
	return &TaskService{
		tx:     tx,
		images: images,
		events: events,
		logger: applog.WithComponent("task_service"),
	}
}

// Create inserts a task record, increments the owner's task counter and
// stores the image blob, all inside one unit of work. If the blob write
// fails, the record and the counter increment roll back with the
// transaction and the partial blob is removed.
func (s *TaskService) Create(ctx context.Context, ownerID, metadata string, image []byte) (*models.Task, error) {
	if len(image) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "image is required")
	}
	ext, err := imagestore.DetectImageType(image)
	if err != nil {
		return nil, err
	}

	var task *models.Task
	err = s.tx.Do(ctx, func(r repositories.Repos) error {
		t := &models.Task{
			Metadata:  metadata,
			ImageType: ext,
			OwnerID:   ownerID,
		}
		if err := r.Tasks.Create(t); err != nil {
			return err
		}
		if err := r.Users.IncrementTaskCounter(ownerID); err != nil {
			return err
		}
		if err := s.images.Save(t.ID, ext, image); err != nil {
			if rmErr := s.images.Remove(t.ID, ext); rmErr != nil {
				s.logger.Warn().Err(rmErr).Str("task_id", t.ID).Msg("failed to remove partial image blob")
			}
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TasksCreatedTotal.Inc()
	s.publish("task.created", map[string]interface{}{
		"task_id":  task.ID,
		"owner_id": task.OwnerID,
	})
	return task, nil
}

// List returns the caller's tasks.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.tx.Do(ctx, func(r repositories.Repos) error {
		var err error
		tasks, err = r.Tasks.ListByOwner(ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get returns a task if the caller owns it. Existence is checked before
// ownership: an unknown id yields NotFound, a foreign task yields Forbidden.
func (s *TaskService) Get(ctx context.Context, callerID, taskID string) (*models.Task, error) {
	var task *models.Task
	err := s.tx.Do(ctx, func(r repositories.Repos) error {
		var err error
		task, err = s.getOwned(r, callerID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetImage returns a reader over the task's image blob and its content type,
// subject to the same ownership rule as Get.
func (s *TaskService) GetImage(ctx context.Context, callerID, taskID string) (io.ReadCloser, string, error) {
	var task *models.Task
	err := s.tx.Do(ctx, func(r repositories.Repos) error {
		var err error
		task, err = s.getOwned(r, callerID, taskID)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	blob, err := s.images.Open(task.ID, task.ImageType)
	if err != nil {
		return nil, "", err
	}
	return blob, imagestore.ContentType(task.ImageType), nil
}

// Delete removes a task owned by the caller. The record's removal is the
// source of truth: the blob is removed best-effort afterwards, and a blob
// removal failure is logged, never propagated.
func (s *TaskService) Delete(ctx context.Context, callerID, taskID string) error {
	var task *models.Task
	err := s.tx.Do(ctx, func(r repositories.Repos) error {
		var err error
		task, err = s.getOwned(r, callerID, taskID)
		if err != nil {
			return err
		}
		return r.Tasks.Delete(taskID)
	})
	if err != nil {
		return err
	}

	if err := s.images.Remove(task.ID, task.ImageType); err != nil {
		s.logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to remove image blob of deleted task")
	}

	s.publish("task.deleted", map[string]interface{}{
		"task_id":  task.ID,
		"owner_id": task.OwnerID,
	})
	return nil
}

// Claim hands the caller one free task for exclusive processing, flipping it
// to claimed. Candidates are all free tasks system-wide regardless of owner.
// Fails with NoneAvailable when no free task exists. There is no release: a
// claimed task stays claimed.
func (s *TaskService) Claim(ctx context.Context, workerID string) (*models.Task, error) {
	var task *models.Task
	err := s.tx.Do(ctx, func(r repositories.Repos) error {
		var err error
		task, err = r.Tasks.ClaimFree("")
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.KindNoneAvailable) {
			metrics.ClaimMissesTotal.Inc()
		}
		return nil, err
	}

	metrics.TasksClaimedTotal.Inc()
	s.publish("task.claimed", map[string]interface{}{
		"task_id":   task.ID,
		"owner_id":  task.OwnerID,
		"worker_id": workerID,
	})
	return task, nil
}

// getOwned loads a task and enforces the ownership rule shared by Get,
// GetImage and Delete.
func (s *TaskService) getOwned(r repositories.Repos, callerID, taskID string) (*models.Task, error) {
	task, err := r.Tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != callerID {
		return nil, apperrors.New(apperrors.KindForbidden, "access denied")
	}
	return task, nil
}

func (s *TaskService) publish(event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(event, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", event).Msg("failed to publish event")
	}
}
