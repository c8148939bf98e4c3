package reports

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursekart/database"
	"github.com/sahilchouksey/coursekart/utils/response"
)

// ReportsHandler serves admin sales reporting off the raw SQL store
type ReportsHandler struct {
	store *database.ReportStore
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(store *database.ReportStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// GetSalesSummary handles GET /api/v1/admin/reports/sales?days=30
func (h *ReportsHandler) GetSalesSummary(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	summaries, err := h.store.GetSalesSummary(c.Context(), since)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch sales summary")
	}

	active, err := h.store.CountActiveEnrollments(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to count enrollments")
	}

	return response.Success(c, fiber.Map{
		"since":              since,
		"courses":            summaries,
		"active_enrollments": active,
	})
}
