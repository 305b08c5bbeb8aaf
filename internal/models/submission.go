package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission statuses advance monotonically and never move backwards.
const (
	// SubmissionStatusInProgress indicates the attempt is still open.
	SubmissionStatusInProgress = "in_progress"
	// SubmissionStatusSubmitted indicates the attempt has been graded and closed.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates a post-submission review pass happened.
	SubmissionStatusGraded = "graded"
)

// Submission is one trainee's attempt at an assessment.
type Submission struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	TraineeID            uint       `gorm:"not null;index" json:"trainee_id"`
	EnrollmentID         uint       `gorm:"not null" json:"enrollment_id"`
	AssessmentID         uint       `gorm:"not null;index" json:"assessment_id"`
	CourseID             uint       `gorm:"not null" json:"course_id"`
	Status               string     `gorm:"size:32;not null;default:in_progress" json:"status"`
	AttemptNumber        int        `gorm:"not null;default:1" json:"attempt_number"`
	Score                float64    `json:"score"`
	PointsEarned         float64    `json:"points_earned"`
	PointsPossible       float64    `json:"points_possible"`
	PassingScoreSnapshot *float64   `json:"passing_score_snapshot"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	Assessment           Assessment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assessment"`
}

// IsOpen reports whether the submission can still be graded.
func (s Submission) IsOpen() bool {
	return s.Status == SubmissionStatusInProgress
}

// PassingThreshold returns the snapshot captured at submission time or the default.
func (s Submission) PassingThreshold() float64 {
	if s.PassingScoreSnapshot != nil && *s.PassingScoreSnapshot > 0 {
		return *s.PassingScoreSnapshot
	}
	return DefaultPassingScore
}

// Passed reports whether the stored score clears the snapshot threshold.
func (s Submission) Passed() bool {
	return s.Score >= s.PassingThreshold()
}

// Answer stores the graded response for one question of a submission.
// There is at most one answer per (submission, question) pair.
type Answer struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SubmissionID uint           `gorm:"not null;index:idx_answer_submission_question,unique" json:"submission_id"`
	QuestionID   uint           `gorm:"not null;index:idx_answer_submission_question,unique" json:"question_id"`
	QuestionType QuestionType   `gorm:"size:32" json:"question_type"`
	// Stored with text affinity so scalar payloads survive the sqlite
	// round-trip instead of coming back as numbers.
	Response     datatypes.JSON `gorm:"type:text" json:"response"`
	IsCorrect    bool           `gorm:"not null;default:false" json:"is_correct"`
	PointsEarned float64        `json:"points_earned"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
