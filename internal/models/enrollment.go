package models

import "time"

// Trainee is a learner account, keyed by the external auth user id.
type Trainee struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enrollment statuses. Completion only ever moves active → completed here;
// cancellation and reactivation are handled elsewhere.
const (
	// EnrollmentStatusActive means the trainee is currently taking the course.
	EnrollmentStatusActive = "active"
	// EnrollmentStatusCompleted is the terminal state set by course completion.
	EnrollmentStatusCompleted = "completed"
	// EnrollmentStatusCancelled means the enrollment was withdrawn.
	EnrollmentStatusCancelled = "cancelled"
)

// Final evaluation verdicts recorded on completion.
const (
	// FinalEvaluationPassed records a passing completion.
	FinalEvaluationPassed = "passed"
	// FinalEvaluationFailed records a completion that did not meet the pass bar.
	FinalEvaluationFailed = "failed"
)

// Enrollment links a trainee to a course for one run through it.
type Enrollment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TraineeID       uint       `gorm:"not null;index" json:"trainee_id"`
	CourseID        uint       `gorm:"not null;index" json:"course_id"`
	Status          string     `gorm:"size:32;not null;default:active" json:"status"`
	CompletionDate  *time.Time `json:"completion_date"`
	FinalEvaluation string     `gorm:"size:16" json:"final_evaluation"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsActive reports whether the enrollment can still be completed.
func (e Enrollment) IsActive() bool {
	return e.Status == EnrollmentStatusActive
}
