package models

import "time"

// Evaluation modes decide what a trainee must finish before completing a
// course. Unknown modes are rejected, never treated as the default.
const (
	// EvaluationModeLessons requires every lesson to be completed.
	EvaluationModeLessons = "lessons"
	// EvaluationModeLessonsQuizzesExam additionally requires every quiz and
	// the final exam to be submitted.
	EvaluationModeLessonsQuizzesExam = "lessons_quizzes_exam"
)

// CourseItemType tags entries in a course module.
type CourseItemType string

const (
	// CourseItemLesson marks a lesson entry.
	CourseItemLesson CourseItemType = "lesson"
	// CourseItemAssessment marks a quiz or exam entry.
	CourseItemAssessment CourseItemType = "assessment"
)

// ItemRef identifies one course item regardless of its kind.
type ItemRef struct {
	Type CourseItemType
	ID   uint
}

// Course is a published training course built from ordered modules.
type Course struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Title          string         `gorm:"size:255;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	EvaluationMode string         `gorm:"size:32;not null;default:lessons" json:"evaluation_mode"`
	FinalExamID    *uint          `json:"final_exam_id"`
	Modules        []CourseModule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"modules"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CourseModule groups ordered items inside a course.
type CourseModule struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	CourseID  uint               `gorm:"not null;index" json:"course_id"`
	Title     string             `gorm:"size:255;not null" json:"title"`
	Position  int                `gorm:"not null" json:"position"`
	Items     []CourseModuleItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// CourseModuleItem places one lesson or assessment inside a module.
type CourseModuleItem struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CourseModuleID uint           `gorm:"not null;index" json:"course_module_id"`
	ItemType       CourseItemType `gorm:"size:16;not null" json:"item_type"`
	ItemID         uint           `gorm:"not null" json:"item_id"`
	Position       int            `gorm:"not null" json:"position"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Ref returns the tagged reference for the placed item.
func (i CourseModuleItem) Ref() ItemRef {
	return ItemRef{Type: i.ItemType, ID: i.ItemID}
}

// Lesson is a unit of learning content inside a course module.
type Lesson struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LessonIDs returns every lesson placed in the course, in module order.
func (c Course) LessonIDs() []uint {
	return c.itemIDs(CourseItemLesson, nil)
}

// QuizIDs returns every assessment placed in the course except the final
// exam, which is tracked separately.
func (c Course) QuizIDs() []uint {
	return c.itemIDs(CourseItemAssessment, c.FinalExamID)
}

// itemIDs collects unique item ids; an item placed in several modules
// counts once.
func (c Course) itemIDs(itemType CourseItemType, exclude *uint) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, module := range c.Modules {
		for _, item := range module.Items {
			if item.ItemType != itemType {
				continue
			}
			if exclude != nil && item.ItemID == *exclude {
				continue
			}
			if _, ok := seen[item.ItemID]; ok {
				continue
			}
			seen[item.ItemID] = struct{}{}
			ids = append(ids, item.ItemID)
		}
	}
	return ids
}
