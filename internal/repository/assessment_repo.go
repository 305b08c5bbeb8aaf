package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/models"
)

// AssessmentRepository defines read operations for assessments.
type AssessmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assessment, error)
}

type assessmentRepository struct {
	db *gorm.DB
}

// NewAssessmentRepository instantiates the repository.
func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) GetByID(ctx context.Context, id uint) (models.Assessment, error) {
	var assessment models.Assessment
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Questions.Options").
		First(&assessment, id).Error; err != nil {
		return models.Assessment{}, err
	}

	return assessment, nil
}
