package content

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursekart/model"
	"github.com/sahilchouksey/coursekart/services/spaces"
	"github.com/sahilchouksey/coursekart/utils/middleware"
	"github.com/sahilchouksey/coursekart/utils/response"
	"gorm.io/gorm"
)

// ContentHandler serves gated course material. Every route it owns sits
// behind the RequireEnrollment middleware; nothing here double-checks
// enrollment and nothing here may be mounted without the guard.
type ContentHandler struct {
	db     *gorm.DB
	spaces *spaces.Client // optional, nil disables resource downloads
}

// NewContentHandler creates a new content handler
func NewContentHandler(db *gorm.DB, spacesClient *spaces.Client) *ContentHandler {
	return &ContentHandler{
		db:     db,
		spaces: spacesClient,
	}
}

// ListLessons handles GET /api/v1/courses/:course_id/lessons
func (h *ContentHandler) ListLessons(c *fiber.Ctx) error {
	courseID, ok := middleware.GetCourseID(c)
	if !ok {
		return response.Forbidden(c, "You are not enrolled in this course")
	}

	var sections []model.Section
	if err := h.db.
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Lessons.Resources").
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&sections).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch lessons")
	}

	return response.Success(c, sections)
}

// GetLesson handles GET /api/v1/courses/:course_id/lessons/:id
func (h *ContentHandler) GetLesson(c *fiber.Ctx) error {
	courseID, ok := middleware.GetCourseID(c)
	if !ok {
		return response.Forbidden(c, "You are not enrolled in this course")
	}
	id := c.Params("id")

	var lesson model.Lesson
	if err := h.db.
		Preload("Resources").
		Where("course_id = ?", courseID).
		First(&lesson, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Lesson not found")
		}
		return response.InternalServerError(c, "Failed to fetch lesson")
	}

	return response.Success(c, lesson)
}

// DownloadResource handles
// GET /api/v1/courses/:course_id/lessons/:id/resources/:resource_id/download.
// Resource objects are private in Spaces; the handler mints a short-lived
// presigned URL instead of proxying bytes.
func (h *ContentHandler) DownloadResource(c *fiber.Ctx) error {
	courseID, ok := middleware.GetCourseID(c)
	if !ok {
		return response.Forbidden(c, "You are not enrolled in this course")
	}
	if h.spaces == nil {
		return response.ServiceUnavailable(c, "Downloads are temporarily unavailable")
	}

	lessonID := c.Params("id")
	resourceID := c.Params("resource_id")

	var resource model.LessonResource
	err := h.db.
		Joins("JOIN lessons ON lessons.id = lesson_resources.lesson_id").
		Where("lesson_resources.id = ? AND lesson_resources.lesson_id = ? AND lessons.course_id = ?",
			resourceID, lessonID, courseID).
		First(&resource).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Resource not found")
		}
		return response.InternalServerError(c, "Failed to fetch resource")
	}

	url, err := h.spaces.SignedDownloadURL(resource.ObjectKey, spaces.DefaultURLExpiry)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate download link")
	}

	return response.Success(c, fiber.Map{
		"name":         resource.Name,
		"download_url": url,
		"expires_in":   int(spaces.DefaultURLExpiry.Seconds()),
	})
}
