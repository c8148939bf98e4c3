package wishlist

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursekart/model"
	"github.com/sahilchouksey/coursekart/utils/middleware"
	"github.com/sahilchouksey/coursekart/utils/response"
	"gorm.io/gorm"
)

// WishlistHandler handles course bookmarking. A plain toggle with no
// invariants; it never affects enrollment or payment state.
type WishlistHandler struct {
	db *gorm.DB
}

// NewWishlistHandler creates a new wishlist handler
func NewWishlistHandler(db *gorm.DB) *WishlistHandler {
	return &WishlistHandler{db: db}
}

// ListWishlist handles GET /api/v1/me/wishlist
func (h *WishlistHandler) ListWishlist(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var items []model.WishlistItem
	if err := h.db.
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch wishlist")
	}

	return response.Success(c, items)
}

// ToggleWishlist handles POST /api/v1/me/wishlist/:course_id
func (h *WishlistHandler) ToggleWishlist(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := strconv.ParseUint(c.Params("course_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course id")
	}

	var existing model.WishlistItem
	err = h.db.
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&existing).Error

	if err == nil {
		if err := h.db.Delete(&existing).Error; err != nil {
			return response.InternalServerError(c, "Failed to update wishlist")
		}
		return response.Success(c, fiber.Map{"wishlisted": false})
	}
	if err != gorm.ErrRecordNotFound {
		return response.InternalServerError(c, "Failed to update wishlist")
	}

	item := model.WishlistItem{
		UserID:   userID,
		CourseID: uint(courseID),
	}
	if err := h.db.Create(&item).Error; err != nil {
		return response.InternalServerError(c, "Failed to update wishlist")
	}

	return response.Success(c, fiber.Map{"wishlisted": true})
}
