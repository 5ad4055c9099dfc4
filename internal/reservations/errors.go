package reservations

import (
	"errors"

	"github.com/google/uuid"

	dbpkg "github.com/glowcart/glowcart-backend/pkg/db"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrLineNotFound        = errors.New("cart line not found")
	// ErrConcurrencyConflict marks a lost race: a guarded update matched no row or a
	// unique index rejected a concurrent insert.
	ErrConcurrencyConflict = errors.New("concurrent reservation update")
)

func reservationNotFound(id uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrReservationNotFound, "reservation not found").
		WithDetails(map[string]any{"reservationId": id})
}

func lineNotFound(productID uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrLineNotFound, "product is not in the cart").
		WithDetails(map[string]any{"productId": productID})
}

func notActive(id uuid.UUID, state any) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is no longer active").
		WithDetails(map[string]any{"reservationId": id, "state": state})
}

func conflictExhausted(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, errors.Join(ErrConcurrencyConflict, err), "cart was modified concurrently, please retry")
}

// isConflict reports whether err is a lost race that is safe to retry from scratch.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConcurrencyConflict) {
		return true
	}
	return dbpkg.IsSerializationFailure(err) || dbpkg.IsUniqueViolation(err, "")
}

// storageErr classifies infrastructure failures. Typed errors pass through untouched.
func storageErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil || isConflict(err) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
