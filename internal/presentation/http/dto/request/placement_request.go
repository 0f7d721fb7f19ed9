package request

import "github.com/google/uuid"

// PositionRequest is the on-screen rectangle, normalized to [0, 1]
type PositionRequest struct {
	X      float64 `json:"x" binding:"min=0,max=1"`
	Y      float64 `json:"y" binding:"min=0,max=1"`
	Width  float64 `json:"width" binding:"gt=0,max=1"`
	Height float64 `json:"height" binding:"gt=0,max=1"`
}

// CreatePlacementRequest represents a placement creation request
type CreatePlacementRequest struct {
	VideoID     uuid.UUID        `json:"video_id" binding:"required"`
	ProductID   uuid.UUID        `json:"product_id" binding:"required"`
	StartTime   float64          `json:"start_time" binding:"min=0"`
	EndTime     float64          `json:"end_time" binding:"required"`
	Description *string          `json:"description" binding:"omitempty,max=1024"`
	Position    *PositionRequest `json:"position"`
}

// UpdatePlacementRequest represents a placement update request
type UpdatePlacementRequest struct {
	StartTime   *float64         `json:"start_time" binding:"omitempty,min=0"`
	EndTime     *float64         `json:"end_time"`
	Description *string          `json:"description" binding:"omitempty,max=1024"`
	Position    *PositionRequest `json:"position"`
}

// PlacementFilterRequest represents placement filter parameters
type PlacementFilterRequest struct {
	VideoID   string `form:"video_id"`
	ProductID string `form:"product_id"`
	Status    string `form:"status"`
	Cursor    string `form:"cursor"`
	Limit     int    `form:"limit"`
}

// PlacementEventRequest is one item of a placement event batch
type PlacementEventRequest struct {
	EventID string                 `json:"event_id" binding:"required"`
	UserID  uuid.UUID              `json:"user_id" binding:"required"`
	Payload CreatePlacementRequest `json:"payload" binding:"required"`
}

// PlacementEventBatchRequest represents a batch of placement events
type PlacementEventBatchRequest struct {
	Events []PlacementEventRequest `json:"events" binding:"required,min=1,max=100,dive"`
}
