package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/models"
)

// ProgressRepository defines data operations for course item progress rows.
type ProgressRepository interface {
	GetByItem(ctx context.Context, traineeID, courseID uint, item models.ItemRef) (models.CourseItemProgress, error)
	ListByTraineeAndCourse(ctx context.Context, traineeID, courseID uint) ([]models.CourseItemProgress, error)
	Create(ctx context.Context, progress *models.CourseItemProgress) error
	Update(ctx context.Context, progress *models.CourseItemProgress) error
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository instantiates the repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) GetByItem(ctx context.Context, traineeID, courseID uint, item models.ItemRef) (models.CourseItemProgress, error) {
	var progress models.CourseItemProgress
	if err := r.db.WithContext(ctx).
		Where("trainee_id = ?", traineeID).
		Where("course_id = ?", courseID).
		Where("item_type = ?", item.Type).
		Where("item_id = ?", item.ID).
		First(&progress).Error; err != nil {
		return models.CourseItemProgress{}, err
	}

	return progress, nil
}

func (r *progressRepository) ListByTraineeAndCourse(ctx context.Context, traineeID, courseID uint) ([]models.CourseItemProgress, error) {
	var rows []models.CourseItemProgress
	if err := r.db.WithContext(ctx).
		Where("trainee_id = ?", traineeID).
		Where("course_id = ?", courseID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *progressRepository) Create(ctx context.Context, progress *models.CourseItemProgress) error {
	return r.db.WithContext(ctx).Create(progress).Error
}

func (r *progressRepository) Update(ctx context.Context, progress *models.CourseItemProgress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}
