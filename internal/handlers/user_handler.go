package handlers

import (
	"taskpool/internal/services"
	applog "taskpool/pkg/log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// UserHandler handles HTTP requests for users and the global task aggregate.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(),
		logger:   applog.WithComponent("user_handler"),
	}
}

// RegisterPublicRoutes registers the routes that need no caller identity.
func (h *UserHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Post("/users", h.HandleCreateUser)
	router.Get("/stats/total-tasks-created", h.HandleTotalTasksCreated)
}

// RegisterProtectedRoutes registers the routes behind the identity gate.
func (h *UserHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Delete("/users/:id", h.HandleDeleteUser)
}

// CreateUserRequest is the registration request body.
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleCreateUser registers a new user.
func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
			"code":  "validation",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}

	user, err := h.service.Register(c.UserContext(), req.Email)
	if err != nil {
		h.logger.Error().Err(err).Str("email", req.Email).Msg("failed to register user")
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleDeleteUser deletes the caller's own account and all of their tasks.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	caller := currentUser(c)
	targetID := c.Params("id")

	if err := h.service.Delete(c.UserContext(), caller.ID, targetID); err != nil {
		h.logger.Error().Err(err).Str("target_id", targetID).Msg("failed to delete user")
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleTotalTasksCreated returns the number of tasks ever created across
// all users.
func (h *UserHandler) HandleTotalTasksCreated(c *fiber.Ctx) error {
	total, err := h.service.TotalTasksCreated(c.UserContext())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read task aggregate")
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total_tasks_created": total})
}
