package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/nedlia/placement-api/internal/domain/enum"
	"gorm.io/gorm"
)

// Placement represents a product placement within a video
type Placement struct {
	ID          uuid.UUID            `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	VideoID     uuid.UUID            `gorm:"type:uuid;not null;index" json:"video_id"`
	ProductID   uuid.UUID            `gorm:"type:uuid;not null;index" json:"product_id"`
	StartTime   float64              `gorm:"not null" json:"start_time"` // seconds into the video
	EndTime     float64              `gorm:"not null" json:"end_time"`
	Description *string              `gorm:"size:1024" json:"description,omitempty"`
	Position    *Position            `gorm:"embedded;embeddedPrefix:pos_" json:"position,omitempty"`
	Status      enum.PlacementStatus `gorm:"default:0;index" json:"status"`
	FileURL     *string              `gorm:"size:2048" json:"file_url,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	DeletedAt   gorm.DeletedAt       `gorm:"index" json:"-"`
}

// Position is the on-screen placement rectangle, normalized to [0, 1].
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BeforeCreate generates a UUID before creating a new placement
func (p *Placement) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
