package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nedlia/placement-api/internal/domain/entity"
	"github.com/nedlia/placement-api/internal/domain/enum"
	"github.com/nedlia/placement-api/pkg/pagination"
)

// PlacementRepository defines the interface for placement data operations
type PlacementRepository interface {
	Create(ctx context.Context, placement *entity.Placement) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Placement, error)
	Update(ctx context.Context, placement *entity.Placement) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListWithCursor(ctx context.Context, userID uuid.UUID, params *PlacementCursorFilterParams) ([]entity.Placement, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.PlacementStatus, fileURL *string) error
	HasOverlapping(ctx context.Context, videoID, productID uuid.UUID, startTime, endTime float64, excludeID *uuid.UUID) (bool, error)
}

// PlacementCursorFilterParams contains cursor-based filtering for placement queries
type PlacementCursorFilterParams struct {
	Cursor    *pagination.CursorParams
	VideoID   *uuid.UUID
	ProductID *uuid.UUID
	Status    *enum.PlacementStatus
}
