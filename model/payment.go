package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment statuses. A payment moves pending -> completed | failed. When the
// signature verified but the enrollment write did not land, the payment parks
// at grant_pending until the reconciliation job retries the grant.
const (
	PaymentStatusPending      = "pending"
	PaymentStatusCompleted    = "completed"
	PaymentStatusFailed       = "failed"
	PaymentStatusGrantPending = "grant_pending"
)

// CoursePayment represents a payment record for course enrollment
type CoursePayment struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"not null;index" json:"user_id"`
	CourseID          uint           `gorm:"not null;index" json:"course_id"`
	RazorpayOrderID   string         `gorm:"type:varchar(100);uniqueIndex" json:"razorpay_order_id"`
	RazorpayPaymentID string         `gorm:"type:varchar(100)" json:"razorpay_payment_id"`
	Amount            float64        `gorm:"not null" json:"amount"`
	Currency          string         `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	Status            string         `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Receipt           string         `gorm:"type:varchar(100)" json:"receipt"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for CoursePayment
func (CoursePayment) TableName() string {
	return "course_payments"
}

// PaymentWebhookEvent stores a raw gateway webhook delivery. The payload is
// persisted before processing so replays and failed deliveries can be audited.
type PaymentWebhookEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventID     string         `gorm:"type:varchar(100);uniqueIndex" json:"event_id"`
	EventType   string         `gorm:"type:varchar(100)" json:"event_type"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Processed   bool           `gorm:"default:false;index" json:"processed"`
	ProcessedAt *time.Time     `json:"processed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for PaymentWebhookEvent
func (PaymentWebhookEvent) TableName() string {
	return "payment_webhook_events"
}
