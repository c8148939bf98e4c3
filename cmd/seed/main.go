package main

import (
	"log"
	"time"

	"github.com/sahilchouksey/coursekart/config"
	"github.com/sahilchouksey/coursekart/database"
	"github.com/sahilchouksey/coursekart/model"
	"github.com/sahilchouksey/coursekart/utils/auth"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeds an admin account and a few demo courses so a fresh database is
// browsable and purchasable right away. Safe to run repeatedly.
func main() {
	if err := config.LoadENV(); err != nil {
		log.Fatalf("failed to load env: %v", err)
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("failed to get GORM DB instance")
	}

	seedAdmin(db)
	seedCourses(db)

	log.Println("Seeding completed")
}

func seedAdmin(db *gorm.DB) {
	hash, err := auth.HashPassword("admin123!")
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}

	admin := model.User{
		Email:        "admin@coursekart.local",
		PasswordHash: hash,
		Name:         "Admin",
		Role:         model.RoleAdmin,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&admin)
	if result.Error != nil {
		log.Fatalf("failed to seed admin user: %v", result.Error)
	}

	log.Println("Seeded admin user admin@coursekart.local")
}

func seedCourses(db *gorm.DB) {
	discounted := 499.0
	windowStart := time.Now().AddDate(0, 0, -7)
	windowEnd := time.Now().AddDate(0, 1, 0)
	accessDays := 180

	courses := []model.Course{
		{
			Title:       "Go for Backend Engineers",
			Slug:        "go-for-backend-engineers",
			Description: "HTTP services, databases and deployment with Go.",
			Price:       1999,
			Currency:    "INR",
			AccessType:  model.AccessTypeLifetime,
			Published:   true,
		},
		{
			Title:              "PostgreSQL Fundamentals",
			Slug:               "postgresql-fundamentals",
			Description:        "Schema design, indexing and query tuning.",
			Price:              1499,
			DiscountedPrice:    &discounted,
			DiscountStartDate:  &windowStart,
			DiscountEndDate:    &windowEnd,
			Currency:           "INR",
			AccessType:         model.AccessTypeLimited,
			AccessDurationDays: &accessDays,
			Published:          true,
		},
		{
			Title:       "Intro to Web Development",
			Slug:        "intro-to-web-development",
			Description: "A free starter course covering HTML, CSS and JavaScript.",
			Price:       0,
			Currency:    "INR",
			AccessType:  model.AccessTypeLifetime,
			Published:   true,
		},
	}

	for i := range courses {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&courses[i])
		if result.Error != nil {
			log.Fatalf("failed to seed course %q: %v", courses[i].Title, result.Error)
		}
	}

	log.Printf("Seeded %d demo courses", len(courses))
}
