package handlers

import (
	"encoding/base64"
	"io"

	"taskpool/internal/services"
	applog "taskpool/pkg/log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	service  *services.TaskService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{
		service:  service,
		validate: validator.New(),
		logger:   applog.WithComponent("task_handler"),
	}
}

// RegisterRoutes registers the task routes. All of them sit behind the
// identity gate.
func (h *TaskHandler) RegisterRoutes(router fiber.Router) {
	taskRoutes := router.Group("/tasks")
	taskRoutes.Get("/", h.HandleListTasks)
	taskRoutes.Post("/", h.HandleCreateTask)
	taskRoutes.Post("/claim", h.HandleClaimTask)
	taskRoutes.Get("/:id", h.HandleGetTask)
	taskRoutes.Get("/:id/image", h.HandleGetTaskImage)
	taskRoutes.Delete("/:id", h.HandleDeleteTask)
}

// CreateTaskRequest is the task creation request body. The image travels as
// a base64-encoded blob.
type CreateTaskRequest struct {
	Meta  string `json:"meta" validate:"required"`
	Image string `json:"image" validate:"required"`
}

// HandleCreateTask creates a new task with an attached image.
func (h *TaskHandler) HandleCreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
			"code":  "validation",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid base64 image",
			"code":  "validation",
		})
	}

	caller := currentUser(c)
	task, err := h.service.Create(c.UserContext(), caller.ID, req.Meta, image)
	if err != nil {
		h.logger.Error().Err(err).Str("owner_id", caller.ID).Msg("failed to create task")
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// HandleListTasks returns the caller's tasks.
func (h *TaskHandler) HandleListTasks(c *fiber.Ctx) error {
	caller := currentUser(c)
	tasks, err := h.service.List(c.UserContext(), caller.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("owner_id", caller.ID).Msg("failed to list tasks")
		return respondError(c, err)
	}
	return c.JSON(tasks)
}

// HandleGetTask returns a single task owned by the caller.
func (h *TaskHandler) HandleGetTask(c *fiber.Ctx) error {
	caller := currentUser(c)
	task, err := h.service.Get(c.UserContext(), caller.ID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// HandleGetTaskImage streams the task's image blob with its content type.
func (h *TaskHandler) HandleGetTaskImage(c *fiber.Ctx) error {
	caller := currentUser(c)
	blob, contentType, err := h.service.GetImage(c.UserContext(), caller.ID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		h.logger.Error().Err(err).Str("task_id", c.Params("id")).Msg("failed to read image blob")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read image",
			"code":  "storage",
		})
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

// HandleDeleteTask deletes a task owned by the caller.
func (h *TaskHandler) HandleDeleteTask(c *fiber.Ctx) error {
	caller := currentUser(c)
	if err := h.service.Delete(c.UserContext(), caller.ID, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleClaimTask hands the caller one free task for exclusive processing.
// When every task is already claimed the caller gets a 404 with code
// "none_available"; that is an expected outcome, not a failure.
func (h *TaskHandler) HandleClaimTask(c *fiber.Ctx) error {
	caller := currentUser(c)
	task, err := h.service.Claim(c.UserContext(), caller.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}
