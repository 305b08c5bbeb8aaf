package dto

// FinishCourseRequest asks to evaluate and complete a trainee's enrollment.
type FinishCourseRequest struct {
	UserID uint `json:"user_id" validate:"required,gt=0"`
}
