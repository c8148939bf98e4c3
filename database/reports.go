package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/sahilchouksey/coursekart/config"
)

// ReportStore runs read-only aggregate queries over the sales tables with
// plain SQL. Kept separate from the GORM store: reporting queries are easier
// to tune by hand and never mutate anything.
type ReportStore struct {
	db *sql.DB
}

// StartReportStore opens a raw PostgreSQL connection for reporting
func StartReportStore() (*ReportStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	connectStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv.DB_HOST, getEnv.DB_PORT, getEnv.DB_USER_NAME, getEnv.DB_PASSWORD, getEnv.DB_NAME, getEnv.DB_SSL_MODE,
	)

	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		log.Println("Unable to open reporting connection to PostgreSQL:", err)
		return nil, err
	}

	return &ReportStore{db: db}, nil
}

// Close closes the reporting connection
func (s *ReportStore) Close() error {
	return s.db.Close()
}

// SalesSummary aggregates completed payments per course
type SalesSummary struct {
	CourseID     uint    `json:"course_id"`
	CourseTitle  string  `json:"course_title"`
	PaymentCount int64   `json:"payment_count"`
	Revenue      float64 `json:"revenue"`
}

// GetSalesSummary returns revenue per course for completed payments since the
// given time, highest revenue first.
func (s *ReportStore) GetSalesSummary(ctx context.Context, since time.Time) ([]SalesSummary, error) {
	query := `
		SELECT c.id, c.title, COUNT(p.id), COALESCE(SUM(p.amount), 0)
		FROM course_payments p
		JOIN courses c ON c.id = p.course_id
		WHERE p.status = 'completed' AND p.created_at >= $1
		GROUP BY c.id, c.title
		ORDER BY SUM(p.amount) DESC;
	`

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []SalesSummary{}
	for rows.Next() {
		var summary SalesSummary
		if err := rows.Scan(&summary.CourseID, &summary.CourseTitle, &summary.PaymentCount, &summary.Revenue); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// CountActiveEnrollments returns the number of active enrollments overall
func (s *ReportStore) CountActiveEnrollments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE status = 'active' AND deleted_at IS NULL;`,
	).Scan(&count)
	return count, err
}
