package checkout

import (
	"context"
	"errors"

	"github.com/sahilchouksey/coursekart/model"
	"gorm.io/gorm"
)

// PaymentStore tracks gateway orders and their outcomes. The pending row
// created at order time is the server-side source of truth for which
// (user, course, amount) a callback belongs to; callback payloads are never
// trusted for those fields.
type PaymentStore interface {
	CreatePending(ctx context.Context, payment *model.CoursePayment) error
	GetByOrderID(ctx context.Context, orderID string) (*model.CoursePayment, error)
	MarkCompleted(ctx context.Context, id uint, gatewayPaymentID string) error
	MarkGrantPending(ctx context.Context, id uint, gatewayPaymentID string) error
	ListGrantPending(ctx context.Context, limit int) ([]model.CoursePayment, error)
}

// ErrPaymentNotFound is returned when no payment row matches an order id
var ErrPaymentNotFound = errors.New("payment not found")

// GormPaymentStore implements PaymentStore on PostgreSQL
type GormPaymentStore struct {
	db *gorm.DB
}

// NewGormPaymentStore creates a new GORM-backed payment store
func NewGormPaymentStore(db *gorm.DB) *GormPaymentStore {
	return &GormPaymentStore{db: db}
}

// CreatePending inserts the pending payment row for a freshly created order
func (s *GormPaymentStore) CreatePending(ctx context.Context, payment *model.CoursePayment) error {
	payment.Status = model.PaymentStatusPending
	return s.db.WithContext(ctx).Create(payment).Error
}

// GetByOrderID looks up a payment by its gateway order id
func (s *GormPaymentStore) GetByOrderID(ctx context.Context, orderID string) (*model.CoursePayment, error) {
	var payment model.CoursePayment
	err := s.db.WithContext(ctx).
		Where("razorpay_order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// MarkCompleted records a verified, granted payment
func (s *GormPaymentStore) MarkCompleted(ctx context.Context, id uint, gatewayPaymentID string) error {
	return s.db.WithContext(ctx).
		Model(&model.CoursePayment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"razorpay_payment_id": gatewayPaymentID,
			"status":              model.PaymentStatusCompleted,
		}).Error
}

// MarkGrantPending parks a verified payment whose enrollment write failed
func (s *GormPaymentStore) MarkGrantPending(ctx context.Context, id uint, gatewayPaymentID string) error {
	return s.db.WithContext(ctx).
		Model(&model.CoursePayment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"razorpay_payment_id": gatewayPaymentID,
			"status":              model.PaymentStatusGrantPending,
		}).Error
}

// ListGrantPending returns parked payments for the reconciliation job
func (s *GormPaymentStore) ListGrantPending(ctx context.Context, limit int) ([]model.CoursePayment, error) {
	var payments []model.CoursePayment
	err := s.db.WithContext(ctx).
		Where("status = ?", model.PaymentStatusGrantPending).
		Order("updated_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
