package models

import "time"

// Progress statuses for a single course item.
const (
	// ProgressStatusNotStarted is the initial state.
	ProgressStatusNotStarted = "not_started"
	// ProgressStatusInProgress means the item has been opened but not finished.
	ProgressStatusInProgress = "in_progress"
	// ProgressStatusPassed means the item was completed successfully.
	ProgressStatusPassed = "passed"
	// ProgressStatusFailed means the item was completed without passing.
	ProgressStatusFailed = "failed"
)

// CourseItemProgress tracks one trainee's state on one course item. The
// lookup key is the (trainee, course, item) triple; re-evaluations update
// the existing row instead of creating duplicates.
type CourseItemProgress struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	TraineeID      uint           `gorm:"not null;index:idx_progress_lookup" json:"trainee_id"`
	CourseID       uint           `gorm:"not null;index:idx_progress_lookup" json:"course_id"`
	EnrollmentID   uint           `gorm:"not null" json:"enrollment_id"`
	ItemType       CourseItemType `gorm:"size:16;not null;index:idx_progress_lookup" json:"item_type"`
	ItemID         uint           `gorm:"not null;index:idx_progress_lookup" json:"item_id"`
	Status         string         `gorm:"size:32;not null;default:not_started" json:"status"`
	IsCompleted    bool           `gorm:"not null;default:false" json:"is_completed"`
	Attempts       int            `gorm:"not null;default:0" json:"attempts"`
	CompletedAt    *time.Time     `json:"completed_at"`
	LastAccessedAt *time.Time     `json:"last_accessed_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Item returns the tagged item reference this row tracks.
func (p CourseItemProgress) Item() ItemRef {
	return ItemRef{Type: p.ItemType, ID: p.ItemID}
}
