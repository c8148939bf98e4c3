package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/sahilchouksey/coursekart/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when no enrollment exists for a (user, course) pair
var ErrNotFound = errors.New("enrollment not found")

// Store is the durable record of who may access what. Create must be an
// idempotent upsert on the deterministic (user, course) key: calling it twice
// with the same arguments converges on one row instead of duplicating or
// failing, which is what makes verified-callback retries safe.
type Store interface {
	Create(ctx context.Context, userID, courseID uint, paymentID string) (*model.Enrollment, error)
	Get(ctx context.Context, userID, courseID uint) (*model.Enrollment, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Enrollment, error)
}

// GormStore implements Store on PostgreSQL via GORM
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed enrollment store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Create upserts the enrollment row keyed by EnrollmentKey(userID, courseID).
// A conflicting insert overwrites the mutable columns with equivalent data,
// so a duplicate webhook or a double-click race is benign.
func (s *GormStore) Create(ctx context.Context, userID, courseID uint, paymentID string) (*model.Enrollment, error) {
	now := time.Now().UTC()
	record := model.Enrollment{
		ID:         model.EnrollmentKey(userID, courseID),
		UserID:     userID,
		CourseID:   courseID,
		Status:     model.EnrollmentStatusActive,
		PaymentID:  paymentID,
		EnrolledAt: now,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "payment_id", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// Get fetches the enrollment for a (user, course) pair
func (s *GormStore) Get(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var record model.Enrollment
	err := s.db.WithContext(ctx).
		Where("id = ?", model.EnrollmentKey(userID, courseID)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListByUser returns all enrollments for a user, newest first
func (s *GormStore) ListByUser(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	var records []model.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&records).Error
	return records, err
}
