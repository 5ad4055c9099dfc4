package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/internal/stock"
	"github.com/glowcart/glowcart-backend/pkg/db/models"
	"github.com/glowcart/glowcart-backend/pkg/enums"
	"github.com/glowcart/glowcart-backend/pkg/outbox"
)

// Repository persists reservations and their lines. Lookups that pass lock=true
// take a row lock held until the enclosing transaction ends.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context, identity Identity, lock bool) (*models.Reservation, error)
	FindByID(ctx context.Context, id uuid.UUID, lock bool) (*models.Reservation, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	ListLines(ctx context.Context, reservationID uuid.UUID) ([]models.ReservationLine, error)
	FindLine(ctx context.Context, reservationID, productID uuid.UUID) (*models.ReservationLine, error)
	CreateLine(ctx context.Context, line *models.ReservationLine) error
	UpdateLine(ctx context.Context, lineID uuid.UUID, quantity int, reservedUntil time.Time) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	DeleteLines(ctx context.Context, reservationID uuid.UUID) (int64, error)
	MoveLine(ctx context.Context, lineID, toReservationID uuid.UUID, reservedUntil time.Time) error
	StampLines(ctx context.Context, reservationID uuid.UUID, reservedUntil time.Time) error
	Touch(ctx context.Context, reservationID uuid.UUID, expiresAt time.Time) error
	Transition(ctx context.Context, id uuid.UUID, to enums.ReservationState, closedAt time.Time, migratedTo *uuid.UUID) error
	FindExpired(ctx context.Context, now time.Time, limit int, after *ExpiryCursor) ([]ExpiryCursor, error)
}

// ExpiryCursor is a position in the (expires_at, id) order the sweeper scans.
type ExpiryCursor struct {
	ID        uuid.UUID
	ExpiresAt time.Time
}

type dbClient interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	Load(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error)
	LoadMany(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error)
	Reserve(ctx context.Context, tx *gorm.DB, m stock.Movement) (int, error)
	Release(ctx context.Context, tx *gorm.DB, m stock.Movement) (bool, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
