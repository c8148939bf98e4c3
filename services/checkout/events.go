package checkout

import (
	"context"
	"time"

	"github.com/sahilchouksey/coursekart/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventStore persists raw webhook deliveries before they are processed, so
// duplicate deliveries can be detected and failures audited.
type EventStore interface {
	// Record stores the event and reports whether it was seen for the first
	// time. Replays return false and are otherwise a no-op.
	Record(ctx context.Context, eventID, eventType string, payload []byte) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormEventStore implements EventStore on PostgreSQL
type GormEventStore struct {
	db *gorm.DB
}

// NewGormEventStore creates a new GORM-backed webhook event store
func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// Record inserts the event, ignoring duplicates on the unique event id
func (s *GormEventStore) Record(ctx context.Context, eventID, eventType string, payload []byte) (bool, error) {
	event := model.PaymentWebhookEvent{
		EventID:   eventID,
		EventType: eventType,
		Payload:   payload,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&event)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// MarkProcessed flags an event as handled
func (s *GormEventStore) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).
		Model(&model.PaymentWebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": &now,
		}).Error
}

// DeleteProcessedBefore prunes old processed events
func (s *GormEventStore) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("processed = ? AND created_at < ?", true, cutoff).
		Delete(&model.PaymentWebhookEvent{})
	return result.RowsAffected, result.Error
}
