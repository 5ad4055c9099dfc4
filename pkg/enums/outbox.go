package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const AggregateReservation OutboxAggregateType = "reservation"

func (a OutboxAggregateType) IsValid() bool {
	return oneOf(a, []OutboxAggregateType{AggregateReservation})
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute on published messages.
type OutboxEventType string

const (
	EventReservationMigrated  OutboxEventType = "reservation_migrated"
	EventReservationExpired   OutboxEventType = "reservation_expired"
	EventReservationCompleted OutboxEventType = "reservation_completed"
)

// OutboxEventTypes lists every event the reservation engine emits.
var OutboxEventTypes = []OutboxEventType{
	EventReservationMigrated,
	EventReservationExpired,
	EventReservationCompleted,
}

func (e OutboxEventType) IsValid() bool {
	return oneOf(e, OutboxEventTypes)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, OutboxEventTypes)
}
