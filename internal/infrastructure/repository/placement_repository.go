package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nedlia/placement-api/internal/domain/entity"
	"github.com/nedlia/placement-api/internal/domain/enum"
	domainRepo "github.com/nedlia/placement-api/internal/domain/repository"
	"github.com/nedlia/placement-api/pkg/pagination"
	"gorm.io/gorm"
)

type placementRepository struct {
	db *gorm.DB
}

// NewPlacementRepository creates a new placement repository
func NewPlacementRepository(db *gorm.DB) domainRepo.PlacementRepository {
	return &placementRepository{db: db}
}

func (r *placementRepository) Create(ctx context.Context, placement *entity.Placement) error {
	return r.db.WithContext(ctx).Create(placement).Error
}

func (r *placementRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Placement, error) {
	var placement entity.Placement
	err := r.db.WithContext(ctx).First(&placement, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &placement, err
}

func (r *placementRepository) Update(ctx context.Context, placement *entity.Placement) error {
	return r.db.WithContext(ctx).Save(placement).Error
}

// Delete soft-deletes the placement; it is retained for audit purposes.
func (r *placementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Placement{}, "id = ?", id).Error
}

// ListWithCursor returns placements using cursor-based pagination
// Fetches limit+1 items to detect if there are more results
func (r *placementRepository) ListWithCursor(ctx context.Context, userID uuid.UUID, params *domainRepo.PlacementCursorFilterParams) ([]entity.Placement, error) {
	var placements []entity.Placement

	params.Cursor.Validate()
	query := r.db.WithContext(ctx).Model(&entity.Placement{}).
		Where("user_id = ?", userID)

	if params.VideoID != nil {
		query = query.Where("video_id = ?", *params.VideoID)
	}
	if params.ProductID != nil {
		query = query.Where("product_id = ?", *params.ProductID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	cursor, err := params.Cursor.DecodeCursor()
	if err != nil {
		return nil, err
	}

	if cursor != nil {
		if params.Cursor.Direction == pagination.CursorDirectionNext {
			query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
		} else {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	err = query.Limit(params.Cursor.Limit + 1).
		Order("created_at ASC, id ASC").
		Find(&placements).Error

	return placements, err
}

func (r *placementRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.PlacementStatus, fileURL *string) error {
	updates := map[string]interface{}{"status": status}
	if fileURL != nil {
		updates["file_url"] = *fileURL
	}
	return r.db.WithContext(ctx).Model(&entity.Placement{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// HasOverlapping reports whether another placement for the same product
// overlaps the given time range within the video.
func (r *placementRepository) HasOverlapping(ctx context.Context, videoID, productID uuid.UUID, startTime, endTime float64, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&entity.Placement{}).
		Where("video_id = ? AND product_id = ?", videoID, productID).
		Where("start_time < ? AND end_time > ?", endTime, startTime)

	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
