package admin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	admindto "github.com/glowcart/glowcart-backend/api/controllers/admin/dto"
	"github.com/glowcart/glowcart-backend/api/responses"
	"github.com/glowcart/glowcart-backend/api/validators"
	"github.com/glowcart/glowcart-backend/internal/reservations"
	"github.com/glowcart/glowcart-backend/internal/stock"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
	"github.com/glowcart/glowcart-backend/pkg/logger"
)

// auditWindow bounds how many recent movements a stock audit returns.
var auditWindow = validators.IntRange{Default: 20, Min: 0, Max: 200}

type ReservationService interface {
	Extend(ctx context.Context, reservationID uuid.UUID, until time.Time) (*reservations.Cart, error)
	ExtendBy(ctx context.Context, reservationID uuid.UUID, by time.Duration) (*reservations.Cart, error)
	Complete(ctx context.Context, reservationID uuid.UUID) (*reservations.Completion, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (reservations.SweepResult, error)
}

type StockAuditor interface {
	Audit(ctx context.Context, productID uuid.UUID, recent int) (*stock.Audit, error)
}

// ReservationExtend pushes a reservation's expiry, either to an absolute
// expiresAt or by extendByMinutes past its current expiry.
func ReservationExtend(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		id, err := uuidParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload admindto.ExtendRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var cart *reservations.Cart
		switch {
		case payload.ExpiresAt != nil && payload.ExtendByMinutes != nil:
			err = pkgerrors.New(pkgerrors.CodeValidation, "provide expiresAt or extendByMinutes, not both")
		case payload.ExpiresAt != nil:
			cart, err = svc.Extend(r.Context(), id, *payload.ExpiresAt)
		case payload.ExtendByMinutes != nil:
			cart, err = svc.ExtendBy(r.Context(), id, time.Duration(*payload.ExtendByMinutes)*time.Minute)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "expiresAt or extendByMinutes is required")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// ReservationComplete closes a reservation after checkout and returns the
// line snapshot for order placement.
func ReservationComplete(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		id, err := uuidParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		completion, err := svc.Complete(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, completion)
	}
}

// ReservationSweep runs one expiration sweep on demand. Per-reservation
// failures are reported in the body; the sweep itself still succeeded.
func ReservationSweep(sweeper Sweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweeper unavailable"))
			return
		}
		result, err := sweeper.Sweep(r.Context())
		if err != nil && result.Failed == 0 {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := admindto.SweepResult{
			Scanned:       result.Scanned,
			Expired:       result.Expired,
			Skipped:       result.Skipped,
			Failed:        result.Failed,
			UnitsRestored: result.UnitsRestored,
		}
		for _, e := range multierr.Errors(result.Errors) {
			out.Errors = append(out.Errors, e.Error())
		}
		responses.WriteSuccess(w, out)
	}
}

// StockAudit reports a product's stock against what active carts hold.
func StockAudit(auditor StockAuditor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auditor == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock auditor unavailable"))
			return
		}
		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recent, err := validators.QueryInt(r, "recent", auditWindow)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		audit, err := auditor.Audit(r.Context(), productID, recent)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, audit)
	}
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).WithDetails(map[string]any{name: raw})
	}
	return id, nil
}
