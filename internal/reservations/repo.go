package reservations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/glowcart/glowcart-backend/pkg/db/models"
	"github.com/glowcart/glowcart-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) scoped(ctx context.Context, lock bool) *gorm.DB {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (r *repository) FindActive(ctx context.Context, identity Identity, lock bool) (*models.Reservation, error) {
	q := r.scoped(ctx, lock).Where("state = ?", enums.ReservationStateActive)
	if identity.IsRegistered() {
		q = q.Where("user_id = ?", identity.UserID())
	} else {
		q = q.Where("session_token = ? AND kind = ?", identity.SessionToken(), enums.ReservationKindGuest)
	}
	var reservation models.Reservation
	if err := q.First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID, lock bool) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.scoped(ctx, lock).Where("id = ?", id).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) Create(ctx context.Context, reservation *models.Reservation) error {
	if reservation.State == "" {
		reservation.State = enums.ReservationStateActive
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(reservation).Error
}

func (r *repository) ListLines(ctx context.Context, reservationID uuid.UUID) ([]models.ReservationLine, error) {
	var lines []models.ReservationLine
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) FindLine(ctx context.Context, reservationID, productID uuid.UUID) (*models.ReservationLine, error) {
	var line models.ReservationLine
	err := r.db.WithContext(ctx).
		Where("reservation_id = ? AND product_id = ?", reservationID, productID).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, err
	}
	return &line, nil
}

func (r *repository) CreateLine(ctx context.Context, line *models.ReservationLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) UpdateLine(ctx context.Context, lineID uuid.UUID, quantity int, reservedUntil time.Time) error {
	return expectOne(r.db.WithContext(ctx).
		Model(&models.ReservationLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{
			"quantity":       quantity,
			"reserved_until": reservedUntil,
		}))
}

func (r *repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return expectOne(r.db.WithContext(ctx).Where("id = ?", lineID).Delete(&models.ReservationLine{}))
}

func (r *repository) DeleteLines(ctx context.Context, reservationID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("reservation_id = ?", reservationID).Delete(&models.ReservationLine{})
	return res.RowsAffected, res.Error
}

func (r *repository) MoveLine(ctx context.Context, lineID, toReservationID uuid.UUID, reservedUntil time.Time) error {
	return expectOne(r.db.WithContext(ctx).
		Model(&models.ReservationLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{
			"reservation_id": toReservationID,
			"reserved_until": reservedUntil,
		}))
}

func (r *repository) StampLines(ctx context.Context, reservationID uuid.UUID, reservedUntil time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ReservationLine{}).
		Where("reservation_id = ?", reservationID).
		Update("reserved_until", reservedUntil).Error
}

// Touch moves the expiry of an active reservation.
func (r *repository) Touch(ctx context.Context, reservationID uuid.UUID, expiresAt time.Time) error {
	return expectOne(r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND state = ?", reservationID, enums.ReservationStateActive).
		Update("expires_at", expiresAt))
}

// Transition moves an active reservation into a terminal state. The update is
// guarded on state = active, so of two racing closers only one succeeds; the
// loser gets ErrConcurrencyConflict.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, to enums.ReservationState, closedAt time.Time, migratedTo *uuid.UUID) error {
	updates := map[string]any{
		"state":     to,
		"closed_at": closedAt,
	}
	if migratedTo != nil {
		updates["migrated_to_id"] = *migratedTo
	}
	return expectOne(r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND state = ?", id, enums.ReservationStateActive).
		Updates(updates))
}

// FindExpired pages through active reservations past now in (expires_at, id)
// order, starting after the cursor when one is given.
func (r *repository) FindExpired(ctx context.Context, now time.Time, limit int, after *ExpiryCursor) ([]ExpiryCursor, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("id", "expires_at").
		Where("state = ? AND expires_at < ?", enums.ReservationStateActive, now)
	if after != nil {
		q = q.Where("expires_at > ? OR (expires_at = ? AND id > ?)", after.ExpiresAt, after.ExpiresAt, after.ID)
	}
	var page []ExpiryCursor
	err := q.Order("expires_at ASC").
		Order("id ASC").
		Limit(limit).
		Scan(&page).Error
	return page, err
}

func expectOne(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrConcurrencyConflict
	}
	return nil
}
