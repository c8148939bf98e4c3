package enrollment

import (
	"context"
	"os"
	"testing"

	"github.com/sahilchouksey/coursekart/database"
	"github.com/sahilchouksey/coursekart/model"
	"gorm.io/gorm"
)

// TestGormStoreCreateIsIdempotent verifies the upsert against a real
// PostgreSQL: repeated creates for the same (user, course) pair must converge
// on a single row. Requires RUN_INTEGRATION_TESTS=true and database env vars.
func TestGormStoreCreateIsIdempotent(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	gormStore, err := database.StartGORM()
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	defer gormStore.Close()

	if err := gormStore.Init(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	db, ok := gormStore.GetDB().(*gorm.DB)
	if !ok {
		t.Fatal("failed to get GORM DB instance")
	}

	store := NewGormStore(db)
	ctx := context.Background()

	// The enrollments table carries foreign keys to users and courses, so the
	// upsert needs real parent rows. Leftovers from a crashed previous run are
	// cleared first so the unique email and slug do not collide.
	const testEmail = "upsert-check@coursekart.local"
	const testSlug = "upsert-check-course"
	cleanupParents := func() {
		db.Unscoped().Where("email = ?", testEmail).Delete(&model.User{})
		db.Unscoped().Where("slug = ?", testSlug).Delete(&model.Course{})
	}
	cleanupParents()

	user := model.User{
		Email:        testEmail,
		PasswordHash: "not-a-real-hash",
		Name:         "Upsert Check",
		Role:         model.RoleStudent,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed test user: %v", err)
	}

	course := model.Course{
		Title:    "Upsert Check Course",
		Slug:     testSlug,
		Price:    0,
		Currency: "INR",
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("failed to seed test course: %v", err)
	}

	userID, courseID := user.ID, course.ID
	key := model.EnrollmentKey(userID, courseID)
	defer cleanupParents()
	defer db.Unscoped().Where("id = ?", key).Delete(&model.Enrollment{})

	if _, err := store.Create(ctx, userID, courseID, "pay_first"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := store.Create(ctx, userID, courseID, "pay_second"); err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	var count int64
	if err := db.Model(&model.Enrollment{}).Where("id = ?", key).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row for key %s, got %d", key, count)
	}

	record, err := store.Get(ctx, userID, courseID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if record.Status != model.EnrollmentStatusActive {
		t.Errorf("expected active status, got %q", record.Status)
	}
	if record.PaymentID != "pay_second" {
		t.Errorf("expected latest payment id pay_second, got %q", record.PaymentID)
	}
}
