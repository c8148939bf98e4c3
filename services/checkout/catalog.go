package checkout

import (
	"context"
	"errors"

	"github.com/sahilchouksey/coursekart/model"
	"gorm.io/gorm"
)

// Catalog resolves courses for purchase. Only published courses are sellable.
type Catalog interface {
	GetPublishedCourse(ctx context.Context, courseID uint) (*model.Course, error)
}

// GormCatalog implements Catalog over the courses table
type GormCatalog struct {
	db *gorm.DB
}

// NewGormCatalog creates a new GORM-backed catalog
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

// GetPublishedCourse fetches a published course by id
func (c *GormCatalog) GetPublishedCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	var course model.Course
	err := c.db.WithContext(ctx).
		Where("id = ? AND published = ?", courseID, true).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}
