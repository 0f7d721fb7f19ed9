package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nedlia/placement-api/internal/application/service"
	"github.com/nedlia/placement-api/internal/consumer"
	"github.com/nedlia/placement-api/internal/coordination/idempotency"
	"github.com/nedlia/placement-api/internal/presentation/http/dto/request"
	"github.com/nedlia/placement-api/internal/presentation/http/dto/response"
	"github.com/nedlia/placement-api/pkg/apperror"
)

// EventsHandler handles internal placement event batches
type EventsHandler struct {
	processor *consumer.Processor
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(processor *consumer.Processor) *EventsHandler {
	return &EventsHandler{processor: processor}
}

// eventPayload is the envelope the processor hands back to the handler.
type eventPayload struct {
	UserID  uuid.UUID                      `json:"user_id"`
	Payload request.CreatePlacementRequest `json:"payload"`
}

// NewPlacementEventHandler builds the per-event apply function: each event
// creates one placement on behalf of the event's user.
func NewPlacementEventHandler(placementService *service.PlacementService) consumer.Handler {
	return func(ctx context.Context, event consumer.Event) (*idempotency.Response, error) {
		var p eventPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return nil, apperror.ErrBadRequest.WithDetail("malformed event payload")
		}

		input := &service.CreatePlacementInput{
			UserID:      p.UserID,
			VideoID:     p.Payload.VideoID,
			ProductID:   p.Payload.ProductID,
			StartTime:   p.Payload.StartTime,
			EndTime:     p.Payload.EndTime,
			Description: p.Payload.Description,
			Position:    toPosition(p.Payload.Position),
		}

		placement, err := placementService.CreatePlacement(ctx, input)
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(placement)
		if err != nil {
			return nil, err
		}
		return &idempotency.Response{Status: http.StatusCreated, Body: string(body)}, nil
	}
}

// ProcessBatch handles an internal batch of placement events and reports
// the event IDs that should be redelivered.
func (h *EventsHandler) ProcessBatch(c *gin.Context) {
	var req request.PlacementEventBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrBadRequest.WithDetail("invalid request body"))
		return
	}

	events := make([]consumer.Event, 0, len(req.Events))
	for _, e := range req.Events {
		payload, err := json.Marshal(eventPayload{UserID: e.UserID, Payload: e.Payload})
		if err != nil {
			response.Error(c, apperror.ErrBadRequest.WithDetail("invalid event payload"))
			return
		}
		events = append(events, consumer.Event{
			ID:        e.EventID,
			Principal: "user:" + e.UserID.String(),
			Payload:   payload,
		})
	}

	result := h.processor.ProcessBatch(c.Request.Context(), events)
	c.JSON(http.StatusOK, result)
}
