package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/models"
)

// SubmissionRepository defines data operations for assessment attempts.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	// MarkSubmitted flips the submission to submitted and records the
	// grading aggregates, but only while the row is still in_progress.
	// It reports whether this call won the transition.
	MarkSubmitted(ctx context.Context, id uint, outcome SubmissionOutcome) (bool, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// SubmissionOutcome carries the grading aggregates persisted on submit.
type SubmissionOutcome struct {
	Score                float64
	PointsEarned         float64
	PointsPossible       float64
	PassingScoreSnapshot float64
	CompletedAt          time.Time
}

func (r *submissionRepository) MarkSubmitted(ctx context.Context, id uint, outcome SubmissionOutcome) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Where("status = ?", models.SubmissionStatusInProgress).
		Updates(map[string]interface{}{
			"status":                 models.SubmissionStatusSubmitted,
			"score":                  outcome.Score,
			"points_earned":          outcome.PointsEarned,
			"points_possible":        outcome.PointsPossible,
			"passing_score_snapshot": outcome.PassingScoreSnapshot,
			"completed_at":           outcome.CompletedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
