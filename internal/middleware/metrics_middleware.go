package middleware

import (
	"strconv"

	"taskpool/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics counts every API request by method and response status.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		metrics.APIRequestsTotal.
			WithLabelValues(c.Method(), strconv.Itoa(c.Response().StatusCode())).
			Inc()
		return err
	}
}
