package models

import "time"

// OwnerType identifies the collection an attachment belongs to.
type OwnerType string

const (
	// OwnerCourse attaches a material directly to a course.
	OwnerCourse OwnerType = "course"
	// OwnerLesson attaches a material to a single lesson.
	OwnerLesson OwnerType = "lesson"
)

// Valid reports whether the owner type is one of the known collections.
func (t OwnerType) Valid() bool {
	return t == OwnerCourse || t == OwnerLesson
}

// OwnerRef identifies one ordered attachment list. Positions are dense
// (1..N) within a single owner and independent across owners.
type OwnerRef struct {
	Type OwnerType
	ID   uint
}

// Material is an uploadable learning resource shared across courses and lessons.
type Material struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	FileURL     string    `gorm:"size:512" json:"file_url"`
	FileType    string    `gorm:"size:128" json:"file_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MaterialAttachment links a material to a course or lesson at a position.
// A material appears at most once per owner.
type MaterialAttachment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OwnerType  OwnerType `gorm:"size:16;not null;index:idx_attachment_owner" json:"owner_type"`
	OwnerID    uint      `gorm:"not null;index:idx_attachment_owner" json:"owner_id"`
	MaterialID uint      `gorm:"not null" json:"material_id"`
	Position   int       `gorm:"not null" json:"position"`
	IsRequired bool      `gorm:"not null;default:false" json:"is_required"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Material   Material  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"material"`
}

// Owner returns the attachment's owner reference.
func (a MaterialAttachment) Owner() OwnerRef {
	return OwnerRef{Type: a.OwnerType, ID: a.OwnerID}
}
