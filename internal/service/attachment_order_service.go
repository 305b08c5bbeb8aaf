package service

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/dto"
	"github.com/noah-isme/aruna-lms-api/internal/models"
	"github.com/noah-isme/aruna-lms-api/internal/repository"
)

// ErrAttachmentNotFound indicates the attachment was not located.
var ErrAttachmentNotFound = errors.New("attachment not found")

// ErrDuplicateAttachment indicates the owner already references the material.
var ErrDuplicateAttachment = errors.New("material already attached")

// ErrImmutableFieldChanged indicates an update tried to change the owner or material.
var ErrImmutableFieldChanged = errors.New("owner and material references are immutable")

// ErrUnknownOwnerType indicates an unrecognized attachment collection.
var ErrUnknownOwnerType = errors.New("unknown owner type")

// AttachmentOrderService keeps attachment positions dense (1..N per owner)
// across attach, move and detach operations.
type AttachmentOrderService interface {
	Attach(ctx context.Context, payload dto.AttachRequest) (dto.AttachmentResponse, error)
	Move(ctx context.Context, id uint, payload dto.MoveRequest) (dto.AttachmentResponse, error)
	Detach(ctx context.Context, id uint) error
	List(ctx context.Context, filter dto.AttachmentFilter) ([]dto.AttachmentResponse, error)
}

type attachmentOrderService struct {
	repo      repository.AttachmentRepository
	validator *validator.Validate
	logger    zerolog.Logger
	owners    ownerLocks
}

// NewAttachmentOrderService constructs the reorder service.
func NewAttachmentOrderService(repo repository.AttachmentRepository, validate *validator.Validate, logger zerolog.Logger) AttachmentOrderService {
	return &attachmentOrderService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "attachment_order_service").Logger(),
	}
}

// reorderKey tags contexts used for the service's own sibling-shift writes
// so a shift never triggers a second reorder. The tag lives on the request
// context only; concurrent requests cannot see each other's suppression.
type reorderKey struct{}

func withReorder(ctx context.Context) context.Context {
	return context.WithValue(ctx, reorderKey{}, true)
}

func reorderInProgress(ctx context.Context) bool {
	flag, _ := ctx.Value(reorderKey{}).(bool)
	return flag
}

// ownerLocks serializes reorder operations per owner in-process. Requests
// against different owners proceed independently; cross-instance races on
// the dense invariant remain out of scope.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[models.OwnerRef]*sync.Mutex
}

func (l *ownerLocks) lock(owner models.OwnerRef) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[models.OwnerRef]*sync.Mutex)
	}
	lock, ok := l.locks[owner]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[owner] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *attachmentOrderService) Attach(ctx context.Context, payload dto.AttachRequest) (dto.AttachmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttachmentResponse{}, err
	}

	ownerType := models.OwnerType(payload.OwnerType)
	if !ownerType.Valid() || payload.OwnerID.ID == 0 || payload.MaterialID.ID == 0 {
		return dto.AttachmentResponse{}, ErrUnknownOwnerType
	}

	owner := models.OwnerRef{Type: ownerType, ID: payload.OwnerID.ID}
	unlock := s.owners.lock(owner)
	defer unlock()

	siblings, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return dto.AttachmentResponse{}, err
	}

	maxPosition := 0
	for _, sibling := range siblings {
		if sibling.MaterialID == payload.MaterialID.ID {
			return dto.AttachmentResponse{}, ErrDuplicateAttachment
		}
		if sibling.Position > maxPosition {
			maxPosition = sibling.Position
		}
	}

	position := maxPosition + 1
	if payload.Position != nil {
		position = clampPosition(*payload.Position, maxPosition+1)

		if err := s.shiftSiblings(ctx, siblings, 0, func(p int) (int, bool) {
			return p + 1, p >= position
		}); err != nil {
			return dto.AttachmentResponse{}, err
		}
	}

	attachment := models.MaterialAttachment{
		OwnerType:  owner.Type,
		OwnerID:    owner.ID,
		MaterialID: payload.MaterialID.ID,
		Position:   position,
	}
	if payload.IsRequired != nil {
		attachment.IsRequired = *payload.IsRequired
	}

	if err := s.repo.Create(ctx, &attachment); err != nil {
		return dto.AttachmentResponse{}, err
	}

	s.logger.Info().
		Str("owner_type", string(owner.Type)).
		Uint("owner_id", owner.ID).
		Uint("material_id", attachment.MaterialID).
		Int("position", attachment.Position).
		Msg("material attached")

	return dto.NewAttachmentResponse(attachment), nil
}

func (s *attachmentOrderService) Move(ctx context.Context, id uint, payload dto.MoveRequest) (dto.AttachmentResponse, error) {
	// Sibling shifts re-enter Move with a tagged context; they are plain
	// positional writes and must not cascade into another reorder.
	if reorderInProgress(ctx) {
		if payload.Position != nil {
			if err := s.repo.UpdatePosition(ctx, id, *payload.Position); err != nil {
				return dto.AttachmentResponse{}, err
			}
		}
		return dto.AttachmentResponse{ID: id}, nil
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.AttachmentResponse{}, err
	}

	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttachmentResponse{}, ErrAttachmentNotFound
		}
		return dto.AttachmentResponse{}, err
	}

	if payload.OwnerType != nil && models.OwnerType(*payload.OwnerType) != stored.OwnerType {
		return dto.AttachmentResponse{}, ErrImmutableFieldChanged
	}
	if payload.OwnerID != nil && payload.OwnerID.ID != stored.OwnerID {
		return dto.AttachmentResponse{}, ErrImmutableFieldChanged
	}
	if payload.MaterialID != nil && payload.MaterialID.ID != stored.MaterialID {
		return dto.AttachmentResponse{}, ErrImmutableFieldChanged
	}

	unlock := s.owners.lock(stored.Owner())
	defer unlock()

	if payload.Position != nil && *payload.Position != stored.Position {
		siblings, err := s.repo.ListByOwner(ctx, stored.Owner())
		if err != nil {
			return dto.AttachmentResponse{}, err
		}

		oldPosition := stored.Position
		newPosition := clampPosition(*payload.Position, len(siblings))

		if newPosition != oldPosition {
			var shift func(int) (int, bool)
			if newPosition > oldPosition {
				shift = func(p int) (int, bool) {
					return p - 1, p > oldPosition && p <= newPosition
				}
			} else {
				shift = func(p int) (int, bool) {
					return p + 1, p >= newPosition && p < oldPosition
				}
			}

			if err := s.shiftSiblings(ctx, siblings, stored.ID, shift); err != nil {
				return dto.AttachmentResponse{}, err
			}

			stored.Position = newPosition
		}
	}

	if payload.IsRequired != nil {
		stored.IsRequired = *payload.IsRequired
	}

	if err := s.repo.Update(ctx, &stored); err != nil {
		return dto.AttachmentResponse{}, err
	}

	return dto.NewAttachmentResponse(stored), nil
}

func (s *attachmentOrderService) Detach(ctx context.Context, id uint) error {
	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}

	unlock := s.owners.lock(stored.Owner())
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if stored.Position <= 0 {
		// A missing position means there is nothing meaningful to
		// compensate for; skip the shift rather than guessing.
		s.logger.Debug().Uint("attachment_id", id).Msg("detached attachment without a recorded position")
		return nil
	}

	siblings, err := s.repo.ListByOwner(ctx, stored.Owner())
	if err != nil {
		return err
	}

	return s.shiftSiblings(ctx, siblings, stored.ID, func(p int) (int, bool) {
		return p - 1, p > stored.Position
	})
}

func (s *attachmentOrderService) List(ctx context.Context, filter dto.AttachmentFilter) ([]dto.AttachmentResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	ownerType := models.OwnerType(filter.OwnerType)
	if !ownerType.Valid() {
		return nil, ErrUnknownOwnerType
	}

	attachments, err := s.repo.ListByOwner(ctx, models.OwnerRef{Type: ownerType, ID: filter.OwnerID})
	if err != nil {
		return nil, err
	}

	return dto.NewAttachmentResponseSlice(attachments), nil
}

// shiftSiblings applies the shift function to every affected sibling as a
// batch of independent positional writes, jointly awaited. Each write goes
// back through Move under the reorder tag.
func (s *attachmentOrderService) shiftSiblings(ctx context.Context, siblings []models.MaterialAttachment, skipID uint, shift func(int) (int, bool)) error {
	group, groupCtx := errgroup.WithContext(withReorder(ctx))

	for _, sibling := range siblings {
		if sibling.ID == skipID {
			continue
		}

		next, affected := shift(sibling.Position)
		if !affected {
			continue
		}

		siblingID := sibling.ID
		position := next
		group.Go(func() error {
			_, err := s.Move(groupCtx, siblingID, dto.MoveRequest{Position: &position})
			return err
		})
	}

	return group.Wait()
}

// clampPosition normalizes a requested position into [1, max].
func clampPosition(position, max int) int {
	if position < 1 {
		return 1
	}
	if max >= 1 && position > max {
		return max
	}
	return position
}
