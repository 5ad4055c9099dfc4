package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationLine holds Quantity units of one product. ProductID carries no
// foreign key so lines survive catalog deletes until they are released.
type ReservationLine struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ReservationID uuid.UUID `gorm:"column:reservation_id;type:uuid;not null;uniqueIndex:ux_reservation_lines_product,priority:1"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_reservation_lines_product,priority:2"`
	Quantity      int       `gorm:"column:quantity;not null;check:quantity > 0"`
	ReservedUntil time.Time `gorm:"column:reserved_until;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *ReservationLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
