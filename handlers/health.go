package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursekart/database"
	"github.com/sahilchouksey/coursekart/utils/response"
)

// HandleCheckHealth handles GET /ping
func HandleCheckHealth(store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := store.HealthCheck(); err != nil {
			return response.ServiceUnavailable(c, "Database is unreachable")
		}
		return response.Success(c, fiber.Map{"status": "ok"})
	}
}
