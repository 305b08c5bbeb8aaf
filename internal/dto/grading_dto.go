package dto

// GradeSubmissionRequest carries the raw responses for every answered
// question, keyed by question id.
type GradeSubmissionRequest struct {
	Answers map[uint]ResponseValue `json:"answers" validate:"required"`
}

// GradeResultResponse reports the aggregate outcome of grading an attempt.
type GradeResultResponse struct {
	Score          float64 `json:"score"`
	Passed         bool    `json:"passed"`
	PointsEarned   float64 `json:"points_earned"`
	PointsPossible float64 `json:"points_possible"`
}
