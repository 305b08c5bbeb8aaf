package models

import "time"

// DefaultPassingScore applies when an assessment does not set its own bar.
const DefaultPassingScore = 70.0

// QuestionType selects the grading rule for a question.
type QuestionType string

const (
	// QuestionTypeSingleChoice expects exactly one selected option.
	QuestionTypeSingleChoice QuestionType = "single_choice"
	// QuestionTypeTrueFalse is a single choice between two options.
	QuestionTypeTrueFalse QuestionType = "true_false"
	// QuestionTypeMultipleChoice expects the exact set of correct options.
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
)

// Assessment is a gradable quiz or exam.
type Assessment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	PassingScore float64    `json:"passing_score"`
	Questions    []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PassingThreshold returns the configured pass bar or the default.
func (a Assessment) PassingThreshold() float64 {
	if a.PassingScore > 0 {
		return a.PassingScore
	}
	return DefaultPassingScore
}

// Question is one gradable item of an assessment.
type Question struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	AssessmentID uint             `gorm:"not null;index" json:"assessment_id"`
	QuestionType QuestionType     `gorm:"size:32;not null" json:"question_type"`
	Prompt       string           `gorm:"type:text" json:"prompt"`
	Points       float64          `json:"points"`
	Position     int              `gorm:"not null" json:"position"`
	Options      []QuestionOption `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"options"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// PossiblePoints returns the question's weight; unset weights count as one.
func (q Question) PossiblePoints() float64 {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// CorrectOptionIDs returns the ids of every option marked correct.
func (q Question) CorrectOptionIDs() []uint {
	var ids []uint
	for _, option := range q.Options {
		if option.IsCorrect {
			ids = append(ids, option.ID)
		}
	}
	return ids
}

// QuestionOption is one selectable answer for a question.
type QuestionOption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	Label      string    `gorm:"size:512" json:"label"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"is_correct"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
