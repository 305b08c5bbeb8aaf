package dto

import (
	"time"

	"github.com/noah-isme/aruna-lms-api/internal/models"
)

// MaterialCreateRequest describes the multipart payload for material upload.
type MaterialCreateRequest struct {
	Title       string `form:"title" validate:"required,min=1,max=255"`
	Description string `form:"description"`
}

// MaterialUpdateRequest patches material metadata.
type MaterialUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
}

// MaterialResponse is returned to API clients when viewing materials.
type MaterialResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileURL     string    `json:"file_url"`
	FileType    string    `json:"file_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMaterialResponse converts a material model into a DTO.
func NewMaterialResponse(model models.Material) MaterialResponse {
	return MaterialResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		FileURL:     model.FileURL,
		FileType:    model.FileType,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewMaterialResponseSlice converts material models into DTOs.
func NewMaterialResponseSlice(materials []models.Material) []MaterialResponse {
	responses := make([]MaterialResponse, 0, len(materials))
	for _, material := range materials {
		responses = append(responses, NewMaterialResponse(material))
	}

	return responses
}
