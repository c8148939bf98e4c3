package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursekart/services/enrollment"
	"github.com/sahilchouksey/coursekart/utils/response"
)

// RequireEnrollment guards gated content routes. It resolves the course from
// the :course_id param and denies outright unless the gate allows the caller;
// there is no degraded view for unenrolled users.
func RequireEnrollment(gate *enrollment.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := GetUserID(c)
		if !ok {
			return response.Unauthorized(c, "User not authenticated")
		}

		courseID, err := strconv.ParseUint(c.Params("course_id"), 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid course id")
		}

		allowed, err := gate.Check(c.Context(), userID, uint(courseID))
		if err != nil {
			return response.InternalServerError(c, "Failed to check course access")
		}
		if !allowed {
			return response.Forbidden(c, "You are not enrolled in this course")
		}

		c.Locals("course_id", uint(courseID))
		return c.Next()
	}
}

// GetCourseID extracts the gated course id stored by RequireEnrollment
func GetCourseID(c *fiber.Ctx) (uint, bool) {
	courseID := c.Locals("course_id")
	if courseID == nil {
		return 0, false
	}
	id, ok := courseID.(uint)
	return id, ok
}
