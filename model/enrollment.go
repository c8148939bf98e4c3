package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses
const (
	EnrollmentStatusActive   = "active"
	EnrollmentStatusInactive = "inactive"
)

// PaymentIDFree marks enrollments granted without a gateway payment
const PaymentIDFree = "free"

// Enrollment is the durable record granting a user access to a course.
// Its primary key is derived from (user, course), so repeated grants for the
// same pair always converge on a single row.
type Enrollment struct {
	ID              string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	CourseID        uint           `gorm:"not null;index" json:"course_id"`
	Status          string         `gorm:"type:varchar(20);default:'active'" json:"status"` // active, inactive
	PaymentID       string         `gorm:"type:varchar(100)" json:"payment_id"`             // "free" or gateway payment id
	EnrolledAt      time.Time      `gorm:"not null" json:"enrolled_at"`
	AccessExpiresAt *time.Time     `json:"access_expires_at,omitempty"` // Schema-only, not enforced by the gate
	DeviceCount     int            `gorm:"default:0" json:"device_count"` // Reserved for device-limit enforcement

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// EnrollmentKey derives the deterministic enrollment id for a (user, course) pair.
func EnrollmentKey(userID, courseID uint) string {
	return fmt.Sprintf("%d_%d", userID, courseID)
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}
