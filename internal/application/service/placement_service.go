package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nedlia/placement-api/internal/domain/entity"
	"github.com/nedlia/placement-api/internal/domain/enum"
	"github.com/nedlia/placement-api/internal/domain/repository"
	"github.com/nedlia/placement-api/internal/infrastructure/filegen"
	"github.com/nedlia/placement-api/pkg/apperror"
	"github.com/nedlia/placement-api/pkg/pagination"
	"github.com/nedlia/placement-api/pkg/resilience"
)

// FileGenerator produces the overlay file for a placement. Implemented by
// the filegen client; faked in tests.
type FileGenerator interface {
	Generate(ctx context.Context, placement *entity.Placement) (string, error)
}

// PlacementService handles placement-related operations
type PlacementService struct {
	placementRepo repository.PlacementRepository
	fileGen       FileGenerator
}

// NewPlacementService creates a new placement service
func NewPlacementService(placementRepo repository.PlacementRepository, fileGen FileGenerator) *PlacementService {
	return &PlacementService{placementRepo: placementRepo, fileGen: fileGen}
}

// CreatePlacementInput represents the create placement input
type CreatePlacementInput struct {
	UserID      uuid.UUID
	VideoID     uuid.UUID
	ProductID   uuid.UUID
	StartTime   float64
	EndTime     float64
	Description *string
	Position    *entity.Position
}

func (in *CreatePlacementInput) validate() error {
	var fieldErrors []apperror.FieldError
	if in.StartTime < 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "start_time", Message: "must be >= 0"})
	}
	if in.EndTime <= in.StartTime {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "end_time", Message: "must be greater than start_time"})
	}
	if in.Position != nil {
		fieldErrors = append(fieldErrors, validatePosition(in.Position)...)
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

func validatePosition(p *entity.Position) []apperror.FieldError {
	var fieldErrors []apperror.FieldError
	if p.X < 0 || p.X > 1 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "position.x", Message: "must be within [0, 1]"})
	}
	if p.Y < 0 || p.Y > 1 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "position.y", Message: "must be within [0, 1]"})
	}
	if p.Width <= 0 || p.Width > 1 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "position.width", Message: "must be within (0, 1]"})
	}
	if p.Height <= 0 || p.Height > 1 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "position.height", Message: "must be within (0, 1]"})
	}
	return fieldErrors
}

// CreatePlacement creates a new placement and kicks off file generation.
// Generation failures do not fail the create: the placement stays pending
// (transient failures) or is marked failed (the render service rejected it).
func (s *PlacementService) CreatePlacement(ctx context.Context, input *CreatePlacementInput) (*entity.Placement, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	overlapping, err := s.placementRepo.HasOverlapping(ctx, input.VideoID, input.ProductID, input.StartTime, input.EndTime, nil)
	if err != nil {
		return nil, err
	}
	if overlapping {
		return nil, apperror.ErrPlacementOverlap
	}

	placement := &entity.Placement{
		UserID:      input.UserID,
		VideoID:     input.VideoID,
		ProductID:   input.ProductID,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Description: input.Description,
		Position:    input.Position,
		Status:      enum.PlacementStatusPending,
	}

	if err := s.placementRepo.Create(ctx, placement); err != nil {
		return nil, err
	}

	s.generateFile(ctx, placement)
	return placement, nil
}

// GetPlacement retrieves a placement by ID
func (s *PlacementService) GetPlacement(ctx context.Context, userID, id uuid.UUID) (*entity.Placement, error) {
	placement, err := s.placementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if placement == nil || placement.UserID != userID {
		return nil, apperror.NewNotFoundError("Placement")
	}
	return placement, nil
}

// UpdatePlacementInput represents the update placement input
type UpdatePlacementInput struct {
	UserID      uuid.UUID
	ID          uuid.UUID
	StartTime   *float64
	EndTime     *float64
	Description *string
	Position    *entity.Position
}

// UpdatePlacement updates an existing placement and regenerates its file
// when the time range or position changed.
func (s *PlacementService) UpdatePlacement(ctx context.Context, input *UpdatePlacementInput) (*entity.Placement, error) {
	placement, err := s.GetPlacement(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}

	regenerate := false
	if input.StartTime != nil {
		placement.StartTime = *input.StartTime
		regenerate = true
	}
	if input.EndTime != nil {
		placement.EndTime = *input.EndTime
		regenerate = true
	}
	if input.Description != nil {
		placement.Description = input.Description
	}
	if input.Position != nil {
		placement.Position = input.Position
		regenerate = true
	}

	check := &CreatePlacementInput{
		StartTime: placement.StartTime,
		EndTime:   placement.EndTime,
		Position:  placement.Position,
	}
	if err := check.validate(); err != nil {
		return nil, err
	}

	overlapping, err := s.placementRepo.HasOverlapping(ctx, placement.VideoID, placement.ProductID, placement.StartTime, placement.EndTime, &placement.ID)
	if err != nil {
		return nil, err
	}
	if overlapping {
		return nil, apperror.ErrPlacementOverlap
	}

	if regenerate {
		placement.Status = enum.PlacementStatusPending
		placement.FileURL = nil
	}
	if err := s.placementRepo.Update(ctx, placement); err != nil {
		return nil, err
	}

	if regenerate {
		s.generateFile(ctx, placement)
	}
	return placement, nil
}

// DeletePlacement soft-deletes a placement
func (s *PlacementService) DeletePlacement(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetPlacement(ctx, userID, id); err != nil {
		return err
	}
	return s.placementRepo.Delete(ctx, id)
}

// ListPlacements lists placements using cursor-based pagination
func (s *PlacementService) ListPlacements(ctx context.Context, userID uuid.UUID, params *repository.PlacementCursorFilterParams) (*pagination.CursorPaginatedResult[entity.Placement], error) {
	placements, err := s.placementRepo.ListWithCursor(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	hasPrev := params.Cursor.Cursor != ""
	cursorPag, items := pagination.NewCursorPagination(placements, params.Cursor.Limit,
		func(p entity.Placement) string { return p.ID.String() },
		func(p entity.Placement) time.Time { return p.CreatedAt },
	)
	cursorPag.HasPrev = hasPrev

	return pagination.NewCursorPaginatedResult(items, cursorPag), nil
}

// GetPlacementFile returns the generated file URL. ready is false while
// generation is still pending or in flight.
func (s *PlacementService) GetPlacementFile(ctx context.Context, userID, id uuid.UUID) (fileURL string, ready bool, err error) {
	placement, err := s.GetPlacement(ctx, userID, id)
	if err != nil {
		return "", false, err
	}

	if placement.Status != enum.PlacementStatusReady || placement.FileURL == nil {
		return "", false, nil
	}
	return *placement.FileURL, true, nil
}

// generateFile runs file generation through the breaker+retry guarded
// client and records the outcome on the placement.
func (s *PlacementService) generateFile(ctx context.Context, placement *entity.Placement) {
	if err := s.placementRepo.UpdateStatus(ctx, placement.ID, enum.PlacementStatusProcessing, nil); err != nil {
		log.Printf("placement %s: mark processing failed: %v", placement.ID, err)
		return
	}
	placement.Status = enum.PlacementStatusProcessing

	fileURL, err := s.fileGen.Generate(ctx, placement)
	if err != nil {
		status := enum.PlacementStatusFailed
		if filegen.IsRetryable(err) || errors.Is(err, resilience.ErrCircuitOpen) {
			// Transient: leave the placement pending so a later update (or
			// an operator-driven regeneration) retries.
			status = enum.PlacementStatusPending
		}
		log.Printf("placement %s: file generation failed: %v", placement.ID, err)
		if updErr := s.placementRepo.UpdateStatus(ctx, placement.ID, status, nil); updErr != nil {
			log.Printf("placement %s: record generation failure: %v", placement.ID, updErr)
		}
		placement.Status = status
		return
	}

	if err := s.placementRepo.UpdateStatus(ctx, placement.ID, enum.PlacementStatusReady, &fileURL); err != nil {
		log.Printf("placement %s: record generated file: %v", placement.ID, err)
		return
	}
	placement.Status = enum.PlacementStatusReady
	placement.FileURL = &fileURL
}
