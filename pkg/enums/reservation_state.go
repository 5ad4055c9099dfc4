package enums

// ReservationState tracks the lifecycle of a reservation. Only active
// reservations hold stock; the other states are terminal.
type ReservationState string

const (
	ReservationStateActive   ReservationState = "active"
	ReservationStateMigrated ReservationState = "migrated"
	ReservationStateExpired  ReservationState = "expired"
	ReservationStateCleaned  ReservationState = "cleaned"
)

var reservationStates = []ReservationState{
	ReservationStateActive,
	ReservationStateMigrated,
	ReservationStateExpired,
	ReservationStateCleaned,
}

func (s ReservationState) String() string { return string(s) }

func (s ReservationState) IsValid() bool { return oneOf(s, reservationStates) }

// IsTerminal reports whether no further transitions are allowed.
func (s ReservationState) IsTerminal() bool {
	return s.IsValid() && s != ReservationStateActive
}
