package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/dto"
	"github.com/noah-isme/aruna-lms-api/internal/models"
	"github.com/noah-isme/aruna-lms-api/internal/repository"
)

// ErrMaterialNotFound indicates the material was not located.
var ErrMaterialNotFound = errors.New("material not found")

// ErrUnsupportedFileType rejects uploads outside the allowed content types.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// FileUploader stores a file and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

var allowedMaterialTypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"video/mp4":       {},
	"text/plain":      {},
	"application/zip": {},
}

// MaterialService manages learning materials and their uploaded files.
type MaterialService interface {
	Create(ctx context.Context, payload dto.MaterialCreateRequest, file *multipart.FileHeader) (dto.MaterialResponse, error)
	GetByID(ctx context.Context, id uint) (dto.MaterialResponse, error)
	List(ctx context.Context) ([]dto.MaterialResponse, error)
	Update(ctx context.Context, id uint, payload dto.MaterialUpdateRequest) (dto.MaterialResponse, error)
}

type materialService struct {
	repo      repository.MaterialRepository
	validator *validator.Validate
	uploader  FileUploader
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewMaterialService constructs the material service.
func NewMaterialService(repo repository.MaterialRepository, validate *validator.Validate, uploader FileUploader, logger zerolog.Logger) MaterialService {
	return &materialService{
		repo:      repo,
		validator: validate,
		uploader:  uploader,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "material_service").Logger(),
	}
}

func (s *materialService) Create(ctx context.Context, payload dto.MaterialCreateRequest, file *multipart.FileHeader) (dto.MaterialResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MaterialResponse{}, err
	}

	material := models.Material{
		Title:       payload.Title,
		Description: s.sanitizer.Sanitize(payload.Description),
	}

	if file != nil {
		fileURL, fileType, err := s.uploadFile(ctx, file)
		if err != nil {
			return dto.MaterialResponse{}, err
		}
		material.FileURL = fileURL
		material.FileType = fileType
	}

	if err := s.repo.Create(ctx, &material); err != nil {
		return dto.MaterialResponse{}, err
	}

	s.logger.Info().Uint("material_id", material.ID).Str("file_type", material.FileType).Msg("material created")

	return dto.NewMaterialResponse(material), nil
}

func (s *materialService) GetByID(ctx context.Context, id uint) (dto.MaterialResponse, error) {
	material, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MaterialResponse{}, ErrMaterialNotFound
		}
		return dto.MaterialResponse{}, err
	}

	return dto.NewMaterialResponse(material), nil
}

func (s *materialService) List(ctx context.Context) ([]dto.MaterialResponse, error) {
	materials, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewMaterialResponseSlice(materials), nil
}

func (s *materialService) Update(ctx context.Context, id uint, payload dto.MaterialUpdateRequest) (dto.MaterialResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MaterialResponse{}, err
	}

	material, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MaterialResponse{}, ErrMaterialNotFound
		}
		return dto.MaterialResponse{}, err
	}

	if payload.Title != nil {
		material.Title = *payload.Title
	}
	if payload.Description != nil {
		material.Description = s.sanitizer.Sanitize(*payload.Description)
	}

	if err := s.repo.Update(ctx, &material); err != nil {
		return dto.MaterialResponse{}, err
	}

	return dto.NewMaterialResponse(material), nil
}

func (s *materialService) uploadFile(ctx context.Context, file *multipart.FileHeader) (string, string, error) {
	source, err := file.Open()
	if err != nil {
		return "", "", err
	}
	defer source.Close()

	content, err := io.ReadAll(source)
	if err != nil {
		return "", "", err
	}

	detected := mimetype.Detect(content)
	if _, ok := allowedMaterialTypes[detected.String()]; !ok {
		return "", "", ErrUnsupportedFileType
	}

	fileURL, err := s.uploader.Upload(ctx, file.Filename, bytes.NewReader(content))
	if err != nil {
		return "", "", err
	}

	return fileURL, detected.String(), nil
}
