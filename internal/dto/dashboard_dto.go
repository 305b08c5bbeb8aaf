package dto

import "time"

// ProgressSummary aggregates a trainee's progress inside one course.
type ProgressSummary struct {
	TotalItems     int     `json:"total_items"`
	Completed      int     `json:"completed"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	InProgress     int     `json:"in_progress"`
	CompletionRate float64 `json:"completion_rate"`
}

// ItemProgress reports the state of one course item.
type ItemProgress struct {
	ItemType       string     `json:"item_type"`
	ItemID         uint       `json:"item_id"`
	Status         string     `json:"status"`
	IsCompleted    bool       `json:"is_completed"`
	Attempts       int        `json:"attempts"`
	CompletedAt    *time.Time `json:"completed_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`
}

// CourseDashboardResponse is the cached per-trainee course progress view.
type CourseDashboardResponse struct {
	TraineeID uint            `json:"trainee_id"`
	CourseID  uint            `json:"course_id"`
	Summary   ProgressSummary `json:"summary"`
	Items     []ItemProgress  `json:"items"`
}
