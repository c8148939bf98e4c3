package model

import (
	"time"

	"gorm.io/gorm"
)

// Access types for a course
const (
	AccessTypeLifetime     = "lifetime"
	AccessTypeLimited      = "limited"
	AccessTypeSubscription = "subscription"
)

// Course represents a sellable course in the catalog
type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	ThumbnailURL string        `gorm:"type:varchar(512)" json:"thumbnail_url"`

	// Pricing. Amounts are in INR. DiscountedPrice overrides Price whenever set.
	// DiscountStartDate/DiscountEndDate exist in the schema but are not evaluated
	// by the purchase flow yet; pending a product decision on discount windows.
	Price             float64    `gorm:"not null" json:"price"`
	DiscountedPrice   *float64   `json:"discounted_price,omitempty"`
	DiscountStartDate *time.Time `json:"discount_start_date,omitempty"`
	DiscountEndDate   *time.Time `json:"discount_end_date,omitempty"`
	Currency          string     `gorm:"type:varchar(10);default:'INR'" json:"currency"`

	// Access policy. AccessDurationDays is meaningful only for limited access;
	// neither is enforced by the gate today.
	AccessType         string `gorm:"type:varchar(20);default:'lifetime'" json:"access_type"`
	AccessDurationDays *int   `json:"access_duration_days,omitempty"`

	Published bool `gorm:"default:false;index" json:"published"`

	// Relationships
	Sections    []Section    `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"sections,omitempty"`
	Enrollments []Enrollment `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// Section groups lessons inside a course
type Section struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID  uint           `gorm:"not null;index" json:"course_id"`
	Title     string         `gorm:"not null" json:"title"`
	Position  int            `gorm:"default:0" json:"position"`

	// Relationships
	Course  Course   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Lessons []Lesson `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// Lesson is a single gated content unit (video, article)
type Lesson struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	SectionID   uint           `gorm:"not null;index" json:"section_id"`
	CourseID    uint           `gorm:"not null;index" json:"course_id"` // Denormalized for gate checks
	Title       string         `gorm:"not null" json:"title"`
	ContentType string         `gorm:"type:varchar(20);default:'video'" json:"content_type"` // video, article
	VideoURL    string         `gorm:"type:varchar(512)" json:"video_url,omitempty"`
	Body        string         `gorm:"type:text" json:"body,omitempty"`
	DurationSec int            `gorm:"default:0" json:"duration_sec"`
	Position    int            `gorm:"default:0" json:"position"`
	FreePreview bool           `gorm:"default:false" json:"free_preview"`

	// Relationships
	Section   Section          `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"-"`
	Resources []LessonResource `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"resources,omitempty"`
}

// LessonResource is a downloadable asset stored in object storage
type LessonResource struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	LessonID  uint           `gorm:"not null;index" json:"lesson_id"`
	Name      string         `gorm:"not null" json:"name"`
	ObjectKey string         `gorm:"type:varchar(512);not null" json:"-"` // Spaces object key, never exposed raw
	SizeBytes int64          `gorm:"default:0" json:"size_bytes"`
	MimeType  string         `gorm:"type:varchar(100)" json:"mime_type"`
}

// WishlistItem bookmarks a course for a user
type WishlistItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_wishlist_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_wishlist_user_course" json:"course_id"`

	// Relationships
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}
