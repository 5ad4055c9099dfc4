package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/pkg/enums"
)

// Reservation is a cart: a set of lines holding stock on behalf of one
// identity until ExpiresAt. Guest reservations are owned by SessionToken,
// registered ones by UserID.
type Reservation struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Kind         enums.ReservationKind  `gorm:"column:kind;type:reservation_kind;not null"`
	State        enums.ReservationState `gorm:"column:state;type:reservation_state;not null;default:'active';index:ix_reservations_state_expires,priority:1"`
	SessionToken *string                `gorm:"column:session_token;uniqueIndex:ux_reservations_active_session,where:state = 'active'"`
	UserID       *uuid.UUID             `gorm:"column:user_id;type:uuid;uniqueIndex:ux_reservations_active_user,where:state = 'active'"`
	ExpiresAt    time.Time              `gorm:"column:expires_at;not null;index:ix_reservations_state_expires,priority:2"`
	ClosedAt     *time.Time             `gorm:"column:closed_at"`
	MigratedToID *uuid.UUID             `gorm:"column:migrated_to_id;type:uuid"`
	Lines        []ReservationLine      `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Reservation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the reservation still holds stock.
func (r *Reservation) IsActive() bool {
	return r != nil && r.State == enums.ReservationStateActive
}
