package checkout

import (
	"errors"

	"github.com/sahilchouksey/coursekart/services/razorpay"
)

var (
	// ErrCourseNotFound is returned when the course does not exist or is not
	// published for sale.
	ErrCourseNotFound = errors.New("course not found")

	// ErrInvalidPricing indicates broken catalog data. Fix the data; there is
	// nothing the buyer can do.
	ErrInvalidPricing = errors.New("course has invalid pricing")

	// ErrGatewayUnavailable mirrors the gateway client error so handlers only
	// depend on this package. Retryable; no local state was committed.
	ErrGatewayUnavailable = razorpay.ErrGatewayUnavailable

	// ErrPurchaseInFlight means another purchase attempt for the same
	// (user, course) pair has not finished yet.
	ErrPurchaseInFlight = errors.New("a purchase for this course is already in progress")

	// ErrVerificationFailed is a hard authorization failure: the callback
	// signature did not match. Never retried automatically, surfaced
	// generically since it may indicate tampering.
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrUnknownOrder means the callback referenced an order this system
	// never created.
	ErrUnknownOrder = errors.New("unknown gateway order")

	// ErrGrantPending means the payment verified but the enrollment write
	// failed. The money has moved, so the grant is parked and retried
	// server-side; the buyer sees "processing", never a raw error.
	ErrGrantPending = errors.New("payment received, enrollment grant pending")
)
