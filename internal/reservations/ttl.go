package reservations

import (
	"time"

	"github.com/glowcart/glowcart-backend/pkg/config"
	"github.com/glowcart/glowcart-backend/pkg/enums"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
)

// TTLPolicy is the single source of reservation lifetimes.
type TTLPolicy struct {
	Guest        time.Duration
	Registered   time.Duration
	MaxExtension time.Duration
}

func NewTTLPolicy(cfg config.ReservationConfig) TTLPolicy {
	return TTLPolicy{
		Guest:        cfg.GuestTTL,
		Registered:   cfg.RegisteredTTL,
		MaxExtension: cfg.MaxExtension,
	}
}

func (p TTLPolicy) For(kind enums.ReservationKind) time.Duration {
	if kind == enums.ReservationKindRegistered {
		return p.Registered
	}
	return p.Guest
}

// ExpiryFrom slides the expiry forward on activity. It never moves an expiry
// backwards, so an admin extension survives later cart edits.
func (p TTLPolicy) ExpiryFrom(now time.Time, kind enums.ReservationKind, current time.Time) time.Time {
	next := now.Add(p.For(kind)).UTC()
	if current.After(next) {
		return current
	}
	return next
}

// ClampExtension validates an admin-requested expiry.
func (p TTLPolicy) ClampExtension(now, current, until time.Time) (time.Time, error) {
	until = until.UTC()
	if !until.After(now) {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "expiresAt must be in the future")
	}
	if !until.After(current) {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "expiresAt must be after the current expiry").
			WithDetails(map[string]any{"currentExpiresAt": current})
	}
	if p.MaxExtension > 0 && until.After(now.Add(p.MaxExtension)) {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "expiresAt exceeds the maximum extension").
			WithDetails(map[string]any{"maxExpiresAt": now.Add(p.MaxExtension).UTC()})
	}
	return until, nil
}
