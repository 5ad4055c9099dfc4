package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/pkg/db/models"
	"github.com/glowcart/glowcart-backend/pkg/enums"
	"github.com/glowcart/glowcart-backend/pkg/outbox"
	"github.com/glowcart/glowcart-backend/pkg/outbox/payloads"
)

func lineSnapshot(lines []models.ReservationLine) []payloads.ReservationLine {
	out := make([]payloads.ReservationLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, payloads.ReservationLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return out
}

func actorFor(reservation *models.Reservation) *outbox.ActorRef {
	actor := &outbox.ActorRef{UserID: reservation.UserID, Role: string(reservation.Kind)}
	if reservation.SessionToken != nil && reservation.UserID == nil {
		actor.SessionID = Anonymous(*reservation.SessionToken).String()
	}
	return actor
}

func emitReservationEvent(ctx context.Context, emitter eventEmitter, tx *gorm.DB, eventType enums.OutboxEventType, reservation *models.Reservation, occurredAt time.Time, data any) error {
	return emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateReservation,
		AggregateID:   reservation.ID,
		Actor:         actorFor(reservation),
		Data:          data,
		OccurredAt:    occurredAt,
	})
}

func migratedPayload(guest, user *models.Reservation, userID uuid.UUID, moved, merged int) payloads.ReservationMigratedEvent {
	return payloads.ReservationMigratedEvent{
		GuestReservationID: guest.ID,
		UserReservationID:  user.ID,
		UserID:             userID,
		MovedLines:         moved,
		MergedLines:        merged,
		ExpiresAt:          user.ExpiresAt,
	}
}

func completedPayload(reservation *models.Reservation, completedAt time.Time, lines []payloads.ReservationLine) payloads.ReservationCompletedEvent {
	return payloads.ReservationCompletedEvent{
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		CompletedAt:   completedAt,
		Lines:         lines,
	}
}

func expiredPayload(reservation *models.Reservation, expiredAt time.Time, lines []payloads.ReservationLine, restored int, skipped []uuid.UUID) payloads.ReservationExpiredEvent {
	return payloads.ReservationExpiredEvent{
		ReservationID:  reservation.ID,
		UserID:         reservation.UserID,
		ExpiredAt:      expiredAt,
		Lines:          lines,
		UnitsRestored:  restored,
		SkippedProduct: skipped,
	}
}
