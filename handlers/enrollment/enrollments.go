package enrollment

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	enrollment_service "github.com/sahilchouksey/coursekart/services/enrollment"
	"github.com/sahilchouksey/coursekart/utils/middleware"
	"github.com/sahilchouksey/coursekart/utils/response"
)

// EnrollmentHandler exposes a user's enrollments and access checks
type EnrollmentHandler struct {
	store enrollment_service.Store
	gate  *enrollment_service.Gate
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(store enrollment_service.Store, gate *enrollment_service.Gate) *EnrollmentHandler {
	return &EnrollmentHandler{
		store: store,
		gate:  gate,
	}
}

// ListMyEnrollments handles GET /api/v1/me/enrollments
func (h *EnrollmentHandler) ListMyEnrollments(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	records, err := h.store.ListByUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch enrollments")
	}

	return response.Success(c, records)
}

// CheckAccess handles GET /api/v1/courses/:course_id/access. The UI calls
// this before routing into the course player.
func (h *EnrollmentHandler) CheckAccess(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := strconv.ParseUint(c.Params("course_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course id")
	}

	allowed, err := h.gate.Check(c.Context(), userID, uint(courseID))
	if err != nil {
		return response.InternalServerError(c, "Failed to check course access")
	}

	return response.Success(c, fiber.Map{"allowed": allowed})
}
