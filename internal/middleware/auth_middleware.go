package middleware

import (
	"strings"

	"taskpool/internal/apperrors"
	"taskpool/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UserKey is the Locals key the resolved caller is stored under.
const UserKey = "user"

// AuthRequired resolves the caller's identity and stores the resolved user
// in the request Locals. Identity is an opaque user id carried by the
// "user_id" query parameter or the "X-User-ID" header; there are no
// credentials. A missing or malformed id yields 401, an id that does not
// resolve to a user yields 404.
func AuthRequired(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		callerID := strings.TrimSpace(c.Query("user_id"))
		if callerID == "" {
			callerID = strings.TrimSpace(c.Get("X-User-ID"))
		}
		if callerID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
				"code":  "unauthenticated",
			})
		}
		if err := uuid.Validate(callerID); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user id",
				"code":  "unauthenticated",
			})
		}

		user, err := users.Get(c.UserContext(), callerID)
		if err != nil {
			return c.Status(apperrors.Status(err)).JSON(fiber.Map{
				"error": apperrors.Message(err),
				"code":  apperrors.Code(err),
			})
		}

		c.Locals(UserKey, user)
		return c.Next()
	}
}
