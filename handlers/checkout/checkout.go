package checkout

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	checkout_service "github.com/sahilchouksey/coursekart/services/checkout"
	"github.com/sahilchouksey/coursekart/utils/middleware"
	"github.com/sahilchouksey/coursekart/utils/response"
	"github.com/sahilchouksey/coursekart/utils/validation"
)

// CheckoutHandler exposes the purchase flow over HTTP
type CheckoutHandler struct {
	service   *checkout_service.Service
	validator *validation.Validator
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(service *checkout_service.Service) *CheckoutHandler {
	return &CheckoutHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// CreateOrder handles POST /api/v1/courses/:course_id/checkout.
// The amount is resolved server-side from the course row; any amount the
// client sends is ignored.
func (h *CheckoutHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := strconv.ParseUint(c.Params("course_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course id")
	}

	result, err := h.service.Purchase(c.Context(), userID, uint(courseID))
	if err != nil {
		switch {
		case errors.Is(err, checkout_service.ErrCourseNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, checkout_service.ErrInvalidPricing):
			return response.UnprocessableEntity(c,
				"This course cannot be purchased right now", "INVALID_PRICING")
		case errors.Is(err, checkout_service.ErrPurchaseInFlight):
			return response.Conflict(c, "A purchase for this course is already in progress")
		case errors.Is(err, checkout_service.ErrGatewayUnavailable):
			return response.ServiceUnavailable(c, "Payment gateway is unavailable, please try again")
		default:
			return response.InternalServerError(c, "Enrollment failed, please try again")
		}
	}

	if result.Enrolled {
		return response.SuccessWithMessage(c, "Enrolled successfully", result)
	}
	return response.Success(c, result)
}

// VerifyPayment handles POST /api/v1/checkout/verify: the callback posted by
// the checkout widget after the buyer pays.
func (h *CheckoutHandler) VerifyPayment(c *fiber.Ctx) error {
	if _, ok := middleware.GetUserID(c); !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var cb checkout_service.Callback
	if err := c.BodyParser(&cb); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	// Malformed callbacks are rejected before any signature work.
	if err := h.validator.ValidateStruct(cb); err != nil {
		return response.BadRequest(c, "Missing payment callback fields")
	}

	result, err := h.service.ConfirmPayment(c.Context(), cb)
	if err != nil {
		switch {
		case errors.Is(err, checkout_service.ErrUnknownOrder):
			return response.NotFound(c, "Order not found")
		case errors.Is(err, checkout_service.ErrVerificationFailed):
			// Deliberately generic: no cryptographic detail, no refund
			// implication. The payment id lets support trace the charge.
			return response.ErrorWithDetails(c, fiber.StatusBadRequest,
				"Payment verification failed. Please contact support with your payment id.",
				"VERIFICATION_FAILED", cb.PaymentID)
		case errors.Is(err, checkout_service.ErrGrantPending):
			return response.Accepted(c,
				"Payment received, your enrollment is processing. We will confirm shortly.",
				"ENROLLMENT_PROCESSING")
		default:
			return response.InternalServerError(c, "Failed to process payment")
		}
	}

	return response.SuccessWithMessage(c, "Payment verified, enrollment active", result)
}

// HandleWebhook handles POST /api/v1/webhooks/razorpay: the gateway's
// server-to-server delivery of payment events.
func (h *CheckoutHandler) HandleWebhook(c *fiber.Ctx) error {
	signature := c.Get("X-Razorpay-Signature")
	eventID := c.Get("X-Razorpay-Event-Id")

	err := h.service.HandleWebhook(c.Context(), c.Body(), signature, eventID)
	if err != nil {
		if errors.Is(err, checkout_service.ErrVerificationFailed) {
			return response.BadRequest(c, "Invalid webhook signature")
		}
		// Non-2xx makes the gateway redeliver, which is what we want for
		// transient failures.
		return response.InternalServerError(c, "Failed to process webhook")
	}

	return response.Success(c, fiber.Map{"received": true})
}
