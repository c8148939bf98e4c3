package course

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursekart/model"
	"github.com/sahilchouksey/coursekart/utils/response"
	"github.com/sahilchouksey/coursekart/utils/validation"
	"gorm.io/gorm"
)

// CourseHandler handles catalog requests
type CourseHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB) *CourseHandler {
	return &CourseHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title              string   `json:"title" validate:"required,min=3,max=255"`
	Slug               string   `json:"slug" validate:"required,min=3,max=100"`
	Description        string   `json:"description" validate:"omitempty,max=5000"`
	Price              float64  `json:"price" validate:"gte=0"`
	DiscountedPrice    *float64 `json:"discounted_price" validate:"omitempty,gte=0"`
	AccessType         string   `json:"access_type" validate:"omitempty,oneof=lifetime limited subscription"`
	AccessDurationDays *int     `json:"access_duration_days" validate:"omitempty,min=1"`
	Published          bool     `json:"published"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Title              string   `json:"title" validate:"omitempty,min=3,max=255"`
	Description        string   `json:"description" validate:"omitempty,max=5000"`
	Price              *float64 `json:"price" validate:"omitempty,gte=0"`
	DiscountedPrice    *float64 `json:"discounted_price" validate:"omitempty,gte=0"`
	AccessType         string   `json:"access_type" validate:"omitempty,oneof=lifetime limited subscription"`
	AccessDurationDays *int     `json:"access_duration_days" validate:"omitempty,min=1"`
	Published          *bool    `json:"published"`
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	search := c.Query("search", "")

	// Only published courses are visible in the public catalog
	query := h.db.Model(&model.Course{}).Where("published = ?", true)

	if search != "" {
		query = query.Where("title ILIKE ? OR description ILIKE ?",
			"%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var courses []model.Course
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, pagination)
}

// GetCourse handles GET /api/v1/courses/:id. Section and lesson titles are
// public; lesson bodies and media stay behind the enrollment gate.
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id := c.Params("id")

	var course model.Course
	if err := h.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Sections.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "section_id", "course_id", "title", "content_type", "duration_sec", "position", "free_preview").
				Order("position ASC")
		}).
		Where("published = ?", true).
		First(&course, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	return response.Success(c, course)
}

// CreateCourse handles POST /api/v1/admin/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	accessType := req.AccessType
	if accessType == "" {
		accessType = model.AccessTypeLifetime
	}

	course := model.Course{
		Title:              req.Title,
		Slug:               req.Slug,
		Description:        req.Description,
		Price:              req.Price,
		DiscountedPrice:    req.DiscountedPrice,
		Currency:           "INR",
		AccessType:         accessType,
		AccessDurationDays: req.AccessDurationDays,
		Published:          req.Published,
	}
	if err := h.db.Create(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course")
	}

	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/admin/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	id := c.Params("id")

	var course model.Course
	if err := h.db.First(&course, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.DiscountedPrice != nil {
		updates["discounted_price"] = *req.DiscountedPrice
	}
	if req.AccessType != "" {
		updates["access_type"] = req.AccessType
	}
	if req.AccessDurationDays != nil {
		updates["access_duration_days"] = *req.AccessDurationDays
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}

	if len(updates) > 0 {
		if err := h.db.Model(&course).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update course")
		}
	}

	return response.Success(c, course)
}

// DeleteCourse handles DELETE /api/v1/admin/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	id := c.Params("id")

	result := h.db.Delete(&model.Course{}, id)
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete course")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Course not found")
	}

	return response.NoContent(c)
}
