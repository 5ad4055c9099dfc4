package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	cartdto "github.com/glowcart/glowcart-backend/api/controllers/cart/dto"
	"github.com/glowcart/glowcart-backend/api/middleware"
	"github.com/glowcart/glowcart-backend/api/responses"
	"github.com/glowcart/glowcart-backend/api/validators"
	"github.com/glowcart/glowcart-backend/internal/reservations"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
	"github.com/glowcart/glowcart-backend/pkg/logger"
)

// Service is the slice of the reservation engine the storefront cart needs.
type Service interface {
	GetCart(ctx context.Context, identity reservations.Identity) (*reservations.Cart, error)
	AddItem(ctx context.Context, identity reservations.Identity, productID uuid.UUID, quantity int) (*reservations.Cart, error)
	UpdateQuantity(ctx context.Context, identity reservations.Identity, productID uuid.UUID, quantity int) (*reservations.Cart, error)
	RemoveItem(ctx context.Context, identity reservations.Identity, productID uuid.UUID) (*reservations.Cart, error)
	Clear(ctx context.Context, identity reservations.Identity) (*reservations.Cart, error)
	MigrateGuestToUser(ctx context.Context, sessionToken string, userID uuid.UUID) (*reservations.MigrationResult, error)
}

func serviceUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
}

// CartFetch returns the caller's active cart, creating an empty one on first visit.
func CartFetch(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		identity, err := identityFromRequest(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.GetCart(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCart(cart))
	}
}

// CartAddItem reserves quantity more units of a product in the caller's cart.
func CartAddItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identity, err := identityFromRequest(r, payload.SessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid productId"))
			return
		}
		cart, err := svc.AddItem(r.Context(), identity, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCart(cart))
	}
}

// CartUpdateItem sets a line to an absolute quantity. Zero removes the line.
func CartUpdateItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartdto.UpdateQuantityRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identity, err := identityFromRequest(r, payload.SessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.UpdateQuantity(r.Context(), identity, productID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCart(cart))
	}
}

// CartRemoveItem drops a line and returns its units to stock.
func CartRemoveItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identity, err := identityFromRequest(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.RemoveItem(r.Context(), identity, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCart(cart))
	}
}

// CartClear empties the caller's cart.
func CartClear(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		identity, err := identityFromRequest(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.Clear(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCart(cart))
	}
}

// CartMigrate folds a guest session's cart into the authenticated user's cart.
// Mounted behind middleware.Auth, so the user id always comes from the token.
func CartMigrate(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		var payload cartdto.MigrateRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.UserID != "" && !strings.EqualFold(payload.UserID, userID.String()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "userId does not match the authenticated user"))
			return
		}
		session := strings.TrimSpace(payload.SessionID)
		if session == "" {
			session = middleware.SessionIDFromContext(r.Context())
		}
		if session == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sessionId is required"))
			return
		}
		result, err := svc.MigrateGuestToUser(r.Context(), session, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newMigration(result))
	}
}

// identityFromRequest prefers the authenticated user. Guests are identified by
// the session header or query param, falling back to a sessionId in the body.
func identityFromRequest(r *http.Request, bodySession string) (reservations.Identity, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return reservations.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid user id in token")
		}
		return reservations.Registered(userID), nil
	}
	session := middleware.SessionIDFromContext(r.Context())
	if session == "" {
		session = strings.TrimSpace(bodySession)
	}
	if session == "" {
		return reservations.Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "sessionId or bearer token is required")
	}
	return reservations.Anonymous(session), nil
}

func productIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "productId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid productId").WithDetails(map[string]any{"productId": raw})
	}
	return id, nil
}
