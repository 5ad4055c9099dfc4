package models

// ReservationSchema lists the models owned by this service in dependency order.
// Used for SQLite auto-migration; Postgres schemas come from the goose migrations.
func ReservationSchema() []any {
	return []any{
		&Product{},
		&Reservation{},
		&ReservationLine{},
		&StockMovement{},
		&OutboxEvent{},
	}
}
