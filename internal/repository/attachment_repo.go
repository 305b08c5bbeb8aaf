package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/models"
)

// AttachmentRepository defines data operations for material attachments.
type AttachmentRepository interface {
	ListByOwner(ctx context.Context, owner models.OwnerRef) ([]models.MaterialAttachment, error)
	GetByID(ctx context.Context, id uint) (models.MaterialAttachment, error)
	Create(ctx context.Context, attachment *models.MaterialAttachment) error
	Update(ctx context.Context, attachment *models.MaterialAttachment) error
	UpdatePosition(ctx context.Context, id uint, position int) error
	Delete(ctx context.Context, id uint) error
}

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository instantiates the repository.
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) ListByOwner(ctx context.Context, owner models.OwnerRef) ([]models.MaterialAttachment, error) {
	var attachments []models.MaterialAttachment
	if err := r.db.WithContext(ctx).
		Preload("Material").
		Where("owner_type = ?", owner.Type).
		Where("owner_id = ?", owner.ID).
		Order("position ASC").
		Find(&attachments).Error; err != nil {
		return nil, err
	}

	return attachments, nil
}

func (r *attachmentRepository) GetByID(ctx context.Context, id uint) (models.MaterialAttachment, error) {
	var attachment models.MaterialAttachment
	if err := r.db.WithContext(ctx).Preload("Material").First(&attachment, id).Error; err != nil {
		return models.MaterialAttachment{}, err
	}

	return attachment, nil
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.MaterialAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *attachmentRepository) Update(ctx context.Context, attachment *models.MaterialAttachment) error {
	return r.db.WithContext(ctx).Save(attachment).Error
}

// UpdatePosition writes only the position column so concurrent sibling
// shifts stay independent single-row updates.
func (r *attachmentRepository) UpdatePosition(ctx context.Context, id uint, position int) error {
	return r.db.WithContext(ctx).
		Model(&models.MaterialAttachment{}).
		Where("id = ?", id).
		Update("position", position).Error
}

func (r *attachmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.MaterialAttachment{}, id).Error
}
