package enrollment

import (
	"context"
	"testing"

	"github.com/sahilchouksey/coursekart/model"
)

type mapStore struct {
	rows map[string]*model.Enrollment
}

func (s *mapStore) Create(ctx context.Context, userID, courseID uint, paymentID string) (*model.Enrollment, error) {
	record := &model.Enrollment{
		ID:        model.EnrollmentKey(userID, courseID),
		UserID:    userID,
		CourseID:  courseID,
		Status:    model.EnrollmentStatusActive,
		PaymentID: paymentID,
	}
	s.rows[record.ID] = record
	return record, nil
}

func (s *mapStore) Get(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	record, ok := s.rows[model.EnrollmentKey(userID, courseID)]
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *mapStore) ListByUser(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	var records []model.Enrollment
	for _, record := range s.rows {
		if record.UserID == userID {
			records = append(records, *record)
		}
	}
	return records, nil
}

func TestGateAllowsActiveEnrollment(t *testing.T) {
	store := &mapStore{rows: map[string]*model.Enrollment{}}
	gate := NewGate(store, nil)

	store.Create(context.Background(), 1, 10, "pay_x")

	allowed, err := gate.Check(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !allowed {
		t.Error("active enrollment denied")
	}
}

func TestGateDeniesMissingEnrollment(t *testing.T) {
	store := &mapStore{rows: map[string]*model.Enrollment{}}
	gate := NewGate(store, nil)

	allowed, err := gate.Check(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if allowed {
		t.Error("missing enrollment allowed")
	}
}

func TestGateDeniesInactiveEnrollment(t *testing.T) {
	store := &mapStore{rows: map[string]*model.Enrollment{}}
	gate := NewGate(store, nil)

	record, _ := store.Create(context.Background(), 1, 10, "pay_x")
	record.Status = model.EnrollmentStatusInactive

	allowed, err := gate.Check(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if allowed {
		t.Error("inactive enrollment allowed")
	}
}

func TestGateDoesNotConsultExpiry(t *testing.T) {
	// AccessExpiresAt is schema-only; an expired timestamp must not deny.
	store := &mapStore{rows: map[string]*model.Enrollment{}}
	gate := NewGate(store, nil)

	record, _ := store.Create(context.Background(), 1, 10, "pay_x")
	expired := record.EnrolledAt.AddDate(-1, 0, 0)
	record.AccessExpiresAt = &expired

	allowed, err := gate.Check(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !allowed {
		t.Error("expired AccessExpiresAt denied an active enrollment")
	}
}

func TestEnrollmentKeyFormat(t *testing.T) {
	if key := model.EnrollmentKey(42, 7); key != "42_7" {
		t.Errorf("expected 42_7, got %q", key)
	}
	// Key derivation must not be ambiguous across pairs.
	if model.EnrollmentKey(1, 23) == model.EnrollmentKey(12, 3) {
		t.Error("distinct pairs produced the same key")
	}
}
