package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/coursekart/model"
	"github.com/sahilchouksey/coursekart/services/enrollment"
	"github.com/sahilchouksey/coursekart/services/pricing"
	"github.com/sahilchouksey/coursekart/services/razorpay"
)

const (
	// purchaseLockTTL bounds how long a (user, course) pair stays locked when
	// a checkout attempt is abandoned without a callback.
	purchaseLockTTL = 2 * time.Minute

	// reconcileBatchSize caps how many parked grants one reconciliation run
	// picks up.
	reconcileBatchSize = 50
)

// OrderGateway is the thin client to the payment gateway's order-creation
// API. Satisfied by *razorpay.Client.
type OrderGateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*razorpay.Order, error)
	KeyID() string
}

// Locker holds the per-(user, course) purchase lock. Satisfied by
// *cache.RedisCache.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Service orchestrates the purchase flow: price resolution, order initiation,
// callback verification and the enrollment grant. It is the only component
// the HTTP layer talks to.
type Service struct {
	catalog       Catalog
	gateway       OrderGateway
	payments      PaymentStore
	enrollments   enrollment.Store
	gate          *enrollment.Gate
	events        EventStore
	locks         Locker // optional, nil disables purchase locking
	keySecret     string
	webhookSecret string
}

// Config wires the service's collaborators
type Config struct {
	Catalog       Catalog
	Gateway       OrderGateway
	Payments      PaymentStore
	Enrollments   enrollment.Store
	Gate          *enrollment.Gate
	Events        EventStore
	Locks         Locker
	KeySecret     string
	WebhookSecret string
}

// NewService creates the checkout service
func NewService(cfg Config) *Service {
	return &Service{
		catalog:       cfg.Catalog,
		gateway:       cfg.Gateway,
		payments:      cfg.Payments,
		enrollments:   cfg.Enrollments,
		gate:          cfg.Gate,
		events:        cfg.Events,
		locks:         cfg.Locks,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
	}
}

// PurchaseResult reports the outcome of a purchase attempt. For free courses
// Enrolled is true immediately; for paid courses the order fields hand off to
// the checkout widget and enrollment follows verification.
type PurchaseResult struct {
	Enrolled     bool    `json:"enrolled"`
	Free         bool    `json:"free"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	OrderID      string  `json:"order_id,omitempty"`
	GatewayKeyID string  `json:"gateway_key_id,omitempty"`
}

// ConfirmResult reports the outcome of a verified payment callback
type ConfirmResult struct {
	Enrolled  bool   `json:"enrolled"`
	CourseID  uint   `json:"course_id"`
	PaymentID string `json:"payment_id"`
}

// Callback is the untrusted payload posted by the checkout widget after the
// buyer pays. Only the order/payment ids and the signature are read from it;
// user, course and amount come from the pending payment row.
type Callback struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// Purchase starts a purchase attempt for a course. Free courses enroll
// synchronously; paid courses get a gateway order for the widget. The amount
// is always re-derived from the catalog, never taken from the client.
func (s *Service) Purchase(ctx context.Context, userID, courseID uint) (*PurchaseResult, error) {
	course, err := s.catalog.GetPublishedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	amount, err := pricing.Resolve(course)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPricing, err)
	}

	locked, release := s.acquireLock(ctx, userID, courseID)
	if !locked {
		return nil, ErrPurchaseInFlight
	}

	if pricing.IsFree(amount) {
		defer release()

		if _, err := s.enrollments.Create(ctx, userID, courseID, model.PaymentIDFree); err != nil {
			// Safe to retry: Create is idempotent.
			return nil, fmt.Errorf("free enrollment failed: %w", err)
		}
		s.invalidateGate(ctx, userID, courseID)

		return &PurchaseResult{
			Enrolled: true,
			Free:     true,
			Amount:   0,
			Currency: course.Currency,
		}, nil
	}

	// Paid path. The lock is held until the callback confirms or the TTL
	// expires; an abandoned checkout leaves nothing to roll back.
	order, err := s.gateway.CreateOrder(ctx, toPaise(amount), course.Currency, newReceipt())
	if err != nil {
		release()
		return nil, err
	}

	payment := &model.CoursePayment{
		UserID:          userID,
		CourseID:        courseID,
		RazorpayOrderID: order.ID,
		Amount:          amount,
		Currency:        course.Currency,
		Receipt:         order.Receipt,
	}
	if err := s.payments.CreatePending(ctx, payment); err != nil {
		release()
		return nil, fmt.Errorf("failed to record pending payment: %w", err)
	}

	return &PurchaseResult{
		Enrolled:     false,
		Amount:       amount,
		Currency:     course.Currency,
		OrderID:      order.ID,
		GatewayKeyID: s.gateway.KeyID(),
	}, nil
}

// ConfirmPayment verifies a checkout callback and grants the enrollment.
// Verification happens before the enrollment write, and the write happens
// before the caller is told enrolled=true; neither ordering is ever relaxed.
// A replayed callback converges on the same enrollment row.
func (s *Service) ConfirmPayment(ctx context.Context, cb Callback) (*ConfirmResult, error) {
	if cb.OrderID == "" || cb.PaymentID == "" || cb.Signature == "" {
		return nil, ErrVerificationFailed
	}

	payment, err := s.payments.GetByOrderID(ctx, cb.OrderID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, ErrUnknownOrder
		}
		return nil, err
	}

	if !razorpay.VerifyPaymentSignature(cb.OrderID, cb.PaymentID, cb.Signature, s.keySecret) {
		// Terminal for this attempt. Free the purchase lock so the buyer can
		// start over instead of waiting out the TTL.
		s.releaseLock(ctx, payment.UserID, payment.CourseID)
		return nil, ErrVerificationFailed
	}

	return s.grant(ctx, payment, cb.PaymentID)
}

// grant commits the enrollment for a signature-verified payment. If the write
// fails the payment parks at grant_pending for the reconciliation job: the
// money has already moved, so losing the grant is not an option.
func (s *Service) grant(ctx context.Context, payment *model.CoursePayment, gatewayPaymentID string) (*ConfirmResult, error) {
	if _, err := s.enrollments.Create(ctx, payment.UserID, payment.CourseID, gatewayPaymentID); err != nil {
		log.Printf("[CRITICAL] verified payment %s (order %s) could not be granted: %v; parked for reconciliation",
			gatewayPaymentID, payment.RazorpayOrderID, err)
		if parkErr := s.payments.MarkGrantPending(ctx, payment.ID, gatewayPaymentID); parkErr != nil {
			log.Printf("[CRITICAL] failed to park payment %d as grant_pending: %v; manual reconciliation required",
				payment.ID, parkErr)
		}
		return nil, ErrGrantPending
	}

	if err := s.payments.MarkCompleted(ctx, payment.ID, gatewayPaymentID); err != nil {
		// The grant landed; the payment row is bookkeeping. Log and move on.
		log.Printf("payment %d granted but not marked completed: %v", payment.ID, err)
	}

	s.invalidateGate(ctx, payment.UserID, payment.CourseID)
	s.releaseLock(ctx, payment.UserID, payment.CourseID)

	return &ConfirmResult{
		Enrolled:  true,
		CourseID:  payment.CourseID,
		PaymentID: gatewayPaymentID,
	}, nil
}

// webhookEnvelope is the subset of a Razorpay webhook body this service reads
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook processes a server-to-server gateway delivery. The signature
// covers the raw body; the event is persisted before processing and replays
// are no-ops.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) error {
	if !razorpay.VerifyWebhookSignature(body, signature, s.webhookSecret) {
		return ErrVerificationFailed
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("malformed webhook payload: %w", err)
	}
	if envelope.Event != "payment.captured" {
		// Only captures grant access; everything else is recorded and skipped.
		if s.events != nil && eventID != "" {
			if _, err := s.events.Record(ctx, eventID, envelope.Event, body); err != nil {
				return err
			}
			return s.events.MarkProcessed(ctx, eventID)
		}
		return nil
	}

	if s.events != nil && eventID != "" {
		first, err := s.events.Record(ctx, eventID, envelope.Event, body)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
	}

	orderID := envelope.Payload.Payment.Entity.OrderID
	gatewayPaymentID := envelope.Payload.Payment.Entity.ID
	if orderID == "" || gatewayPaymentID == "" {
		return fmt.Errorf("webhook payment entity missing ids")
	}

	payment, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return ErrUnknownOrder
		}
		return err
	}

	if _, err := s.grant(ctx, payment, gatewayPaymentID); err != nil {
		return err
	}

	if s.events != nil && eventID != "" {
		return s.events.MarkProcessed(ctx, eventID)
	}
	return nil
}

// ReconcileGrantPending retries enrollment grants for verified payments whose
// write failed earlier. Returns how many grants landed.
func (s *Service) ReconcileGrantPending(ctx context.Context) (int, error) {
	parked, err := s.payments.ListGrantPending(ctx, reconcileBatchSize)
	if err != nil {
		return 0, err
	}

	granted := 0
	for i := range parked {
		payment := parked[i]
		if _, err := s.enrollments.Create(ctx, payment.UserID, payment.CourseID, payment.RazorpayPaymentID); err != nil {
			log.Printf("[CRITICAL] reconciliation: grant for payment %d still failing: %v", payment.ID, err)
			continue
		}
		if err := s.payments.MarkCompleted(ctx, payment.ID, payment.RazorpayPaymentID); err != nil {
			log.Printf("reconciliation: payment %d granted but not marked completed: %v", payment.ID, err)
		}
		s.invalidateGate(ctx, payment.UserID, payment.CourseID)
		granted++
	}

	return granted, nil
}

func (s *Service) acquireLock(ctx context.Context, userID, courseID uint) (bool, func()) {
	if s.locks == nil {
		return true, func() {}
	}
	key := purchaseLockKey(userID, courseID)
	ok, err := s.locks.SetNX(ctx, key, "1", purchaseLockTTL)
	if err != nil {
		// Redis down must not block purchases; the enrollment upsert keeps
		// the double-submit race benign anyway.
		return true, func() {}
	}
	if !ok {
		return false, func() {}
	}
	return true, func() { s.releaseLock(ctx, userID, courseID) }
}

func (s *Service) releaseLock(ctx context.Context, userID, courseID uint) {
	if s.locks == nil {
		return
	}
	_ = s.locks.Delete(ctx, purchaseLockKey(userID, courseID))
}

func (s *Service) invalidateGate(ctx context.Context, userID, courseID uint) {
	if s.gate != nil {
		s.gate.Invalidate(ctx, userID, courseID)
	}
}

func purchaseLockKey(userID, courseID uint) string {
	return fmt.Sprintf("checkout:lock:%s", model.EnrollmentKey(userID, courseID))
}

func toPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func newReceipt() string {
	return "rcpt_" + uuid.New().String()[:18]
}
