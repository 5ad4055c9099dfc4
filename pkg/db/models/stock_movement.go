package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/pkg/enums"
)

// StockMovement journals one signed change to a product's stock_total.
type StockMovement struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	ReservationID *uuid.UUID                `gorm:"column:reservation_id;type:uuid"`
	Delta         int                       `gorm:"column:delta;not null"`
	Reason        enums.StockMovementReason `gorm:"column:reason;type:stock_movement_reason;not null"`
	StockAfter    int                       `gorm:"column:stock_after;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
