package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nedlia/placement-api/internal/application/service"
	"github.com/nedlia/placement-api/internal/domain/entity"
	"github.com/nedlia/placement-api/internal/domain/enum"
	"github.com/nedlia/placement-api/internal/domain/repository"
	"github.com/nedlia/placement-api/internal/presentation/http/dto/request"
	"github.com/nedlia/placement-api/internal/presentation/http/dto/response"
	"github.com/nedlia/placement-api/pkg/apperror"
	"github.com/nedlia/placement-api/pkg/pagination"
)

// PlacementHandler handles placement-related HTTP requests
type PlacementHandler struct {
	placementService *service.PlacementService
}

// NewPlacementHandler creates a new placement handler
func NewPlacementHandler(placementService *service.PlacementService) *PlacementHandler {
	return &PlacementHandler{placementService: placementService}
}

// List handles listing placements with cursor-based pagination
func (h *PlacementHandler) List(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Error(c, apperror.ErrUnauthorized)
		return
	}

	var req request.PlacementFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperror.ErrBadRequest.WithDetail("invalid filter parameters"))
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 15
	}
	params := &repository.PlacementCursorFilterParams{
		Cursor: &pagination.CursorParams{
			Cursor:    req.Cursor,
			Direction: pagination.CursorDirectionNext,
			Limit:     limit,
		},
	}

	if req.VideoID != "" {
		videoID, err := uuid.Parse(req.VideoID)
		if err != nil {
			response.Error(c, apperror.ErrBadRequest.WithDetail("invalid video_id"))
			return
		}
		params.VideoID = &videoID
	}
	if req.ProductID != "" {
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			response.Error(c, apperror.ErrBadRequest.WithDetail("invalid product_id"))
			return
		}
		params.ProductID = &productID
	}
	if req.Status != "" {
		status, ok := enum.ParsePlacementStatus(req.Status)
		if !ok {
			response.Error(c, apperror.ErrBadRequest.WithDetail("invalid status"))
			return
		}
		params.Status = &status
	}

	result, err := h.placementService.ListPlacements(c.Request.Context(), *userID, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithCursor(c, 200, "Placements retrieved successfully", result)
}

// Create handles creating a placement
func (h *PlacementHandler) Create(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Error(c, apperror.ErrUnauthorized)
		return
	}

	var req request.CreatePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrBadRequest.WithDetail("invalid request body"))
		return
	}

	input := &service.CreatePlacementInput{
		UserID:      *userID,
		VideoID:     req.VideoID,
		ProductID:   req.ProductID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Description: req.Description,
		Position:    toPosition(req.Position),
	}

	placement, err := h.placementService.CreatePlacement(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Placement created successfully", placement)
}

// Get handles retrieving a single placement
func (h *PlacementHandler) Get(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Error(c, apperror.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrBadRequest.WithDetail("invalid placement ID"))
		return
	}

	placement, err := h.placementService.GetPlacement(c.Request.Context(), *userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Placement retrieved successfully", placement)
}

// Update handles updating a placement
func (h *PlacementHandler) Update(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Error(c, apperror.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrBadRequest.WithDetail("invalid placement ID"))
		return
	}

	var req request.UpdatePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrBadRequest.WithDetail("invalid request body"))
		return
	}

	input := &service.UpdatePlacementInput{
		UserID:      *userID,
		ID:          id,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Description: req.Description,
		Position:    toPosition(req.Position),
	}

	placement, err := h.placementService.UpdatePlacement(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Placement updated successfully", placement)
}

// Delete handles deleting a placement
func (h *PlacementHandler) Delete(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Error(c, apperror.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrBadRequest.WithDetail("invalid placement ID"))
		return
	}

	if err := h.placementService.DeletePlacement(c.Request.Context(), *userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// GetFile handles retrieving the generated file for a placement. Returns
// 202 while generation is still in flight.
func (h *PlacementHandler) GetFile(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Error(c, apperror.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrBadRequest.WithDetail("invalid placement ID"))
		return
	}

	fileURL, ready, err := h.placementService.GetPlacementFile(c.Request.Context(), *userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !ready {
		c.Header("Retry-After", "5")
		response.Accepted(c, "File generation in progress", gin.H{"status": "pending"})
		return
	}

	response.OK(c, "Placement file retrieved successfully", gin.H{"file_url": fileURL})
}

func toPosition(p *request.PositionRequest) *entity.Position {
	if p == nil {
		return nil
	}
	return &entity.Position{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}
