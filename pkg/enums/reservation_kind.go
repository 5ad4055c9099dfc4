package enums

// ReservationKind records which identity owns a reservation.
type ReservationKind string

const (
	ReservationKindGuest      ReservationKind = "guest"
	ReservationKindRegistered ReservationKind = "registered"
)

func (k ReservationKind) String() string { return string(k) }

func (k ReservationKind) IsValid() bool {
	return oneOf(k, []ReservationKind{ReservationKindGuest, ReservationKindRegistered})
}
