package payloads

import (
	"time"

	"github.com/google/uuid"
)

// ReservationLine is the line snapshot carried by reservation events.
type ReservationLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// ReservationMigratedEvent is emitted when a guest cart is folded into a user cart.
type ReservationMigratedEvent struct {
	GuestReservationID uuid.UUID `json:"guest_reservation_id"`
	UserReservationID  uuid.UUID `json:"user_reservation_id"`
	UserID             uuid.UUID `json:"user_id"`
	MovedLines         int       `json:"moved_lines"`
	MergedLines        int       `json:"merged_lines"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// ReservationExpiredEvent is emitted by the sweeper after stock is restored.
type ReservationExpiredEvent struct {
	ReservationID  uuid.UUID         `json:"reservation_id"`
	UserID         *uuid.UUID        `json:"user_id,omitempty"`
	ExpiredAt      time.Time         `json:"expired_at"`
	Lines          []ReservationLine `json:"lines"`
	UnitsRestored  int               `json:"units_restored"`
	SkippedProduct []uuid.UUID       `json:"skipped_products,omitempty"`
}

// ReservationCompletedEvent hands the reserved lines to order placement.
type ReservationCompletedEvent struct {
	ReservationID uuid.UUID         `json:"reservation_id"`
	UserID        *uuid.UUID        `json:"user_id,omitempty"`
	CompletedAt   time.Time         `json:"completed_at"`
	Lines         []ReservationLine `json:"lines"`
}
