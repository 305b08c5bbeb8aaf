package dto

import (
	"time"

	"github.com/noah-isme/aruna-lms-api/internal/models"
)

// AttachRequest creates a new material attachment on a course or lesson.
type AttachRequest struct {
	OwnerType  string `json:"owner_type" validate:"required,oneof=course lesson"`
	OwnerID    Ref    `json:"owner_id" validate:"required"`
	MaterialID Ref    `json:"material_id" validate:"required"`
	Position   *int   `json:"position"`
	IsRequired *bool  `json:"is_required"`
}

// MoveRequest repositions an attachment or toggles its required flag.
// Owner and material references are immutable; sending a different value
// than the stored one rejects the update.
type MoveRequest struct {
	OwnerType  *string `json:"owner_type" validate:"omitempty,oneof=course lesson"`
	OwnerID    *Ref    `json:"owner_id"`
	MaterialID *Ref    `json:"material_id"`
	Position   *int    `json:"position"`
	IsRequired *bool   `json:"is_required"`
}

// AttachmentFilter narrows attachment listings to one owner.
type AttachmentFilter struct {
	OwnerType string `query:"owner_type" validate:"required,oneof=course lesson"`
	OwnerID   uint   `query:"owner_id" validate:"required,gt=0"`
}

// AttachmentResponse is returned to API clients when viewing attachments.
type AttachmentResponse struct {
	ID         uint         `json:"id"`
	OwnerType  string       `json:"owner_type"`
	OwnerID    uint         `json:"owner_id"`
	MaterialID uint         `json:"material_id"`
	Position   int          `json:"position"`
	IsRequired bool         `json:"is_required"`
	Material   MaterialLite `json:"material"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// MaterialLite summarizes a material inside attachment responses.
type MaterialLite struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	FileURL string `json:"file_url"`
}

// NewAttachmentResponse converts an attachment model into a DTO.
func NewAttachmentResponse(model models.MaterialAttachment) AttachmentResponse {
	response := AttachmentResponse{
		ID:         model.ID,
		OwnerType:  string(model.OwnerType),
		OwnerID:    model.OwnerID,
		MaterialID: model.MaterialID,
		Position:   model.Position,
		IsRequired: model.IsRequired,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}

	if model.Material.ID != 0 {
		response.Material = MaterialLite{
			ID:      model.Material.ID,
			Title:   model.Material.Title,
			FileURL: model.Material.FileURL,
		}
	}

	return response
}

// NewAttachmentResponseSlice converts attachment models into DTOs.
func NewAttachmentResponseSlice(attachments []models.MaterialAttachment) []AttachmentResponse {
	responses := make([]AttachmentResponse, 0, len(attachments))
	for _, attachment := range attachments {
		responses = append(responses, NewAttachmentResponse(attachment))
	}

	return responses
}
