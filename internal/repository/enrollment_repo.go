package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/models"
)

// TraineeRepository resolves trainee records.
type TraineeRepository interface {
	GetByUserID(ctx context.Context, userID uint) (models.Trainee, error)
}

type traineeRepository struct {
	db *gorm.DB
}

// NewTraineeRepository instantiates the repository.
func NewTraineeRepository(db *gorm.DB) TraineeRepository {
	return &traineeRepository{db: db}
}

func (r *traineeRepository) GetByUserID(ctx context.Context, userID uint) (models.Trainee, error) {
	var trainee models.Trainee
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&trainee).Error; err != nil {
		return models.Trainee{}, err
	}

	return trainee, nil
}

// EnrollmentRepository defines data operations for enrollments.
type EnrollmentRepository interface {
	GetActive(ctx context.Context, traineeID, courseID uint) (models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) GetActive(ctx context.Context, traineeID, courseID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("trainee_id = ?", traineeID).
		Where("course_id = ?", courseID).
		Where("status = ?", models.EnrollmentStatusActive).
		First(&enrollment).Error; err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func (r *enrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Save(enrollment).Error
}
