package reservations

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/glowcart/glowcart-backend/pkg/enums"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
)

const maxSessionTokenLen = 128

// Identity is the owner of a reservation: either an anonymous session token or a
// registered user id. Exactly one of the two is set.
type Identity struct {
	kind         enums.ReservationKind
	sessionToken string
	userID       uuid.UUID
}

// Anonymous builds a guest identity keyed by the client's session token.
func Anonymous(sessionToken string) Identity {
	return Identity{kind: enums.ReservationKindGuest, sessionToken: strings.TrimSpace(sessionToken)}
}

// Registered builds an identity for an authenticated user.
func Registered(userID uuid.UUID) Identity {
	return Identity{kind: enums.ReservationKindRegistered, userID: userID}
}

func (i Identity) Kind() enums.ReservationKind { return i.kind }
func (i Identity) SessionToken() string        { return i.sessionToken }
func (i Identity) UserID() uuid.UUID           { return i.userID }
func (i Identity) IsRegistered() bool          { return i.kind == enums.ReservationKindRegistered }

func (i Identity) Validate() error {
	switch i.kind {
	case enums.ReservationKindGuest:
		if i.sessionToken == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
		}
		if len(i.sessionToken) > maxSessionTokenLen {
			return pkgerrors.New(pkgerrors.CodeValidation, "session id is too long")
		}
	case enums.ReservationKindRegistered:
		if i.userID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "identity is required")
	}
	return nil
}

// String is safe to log: session tokens are truncated.
func (i Identity) String() string {
	if i.IsRegistered() {
		return "user:" + i.userID.String()
	}
	token := i.sessionToken
	if len(token) > 8 {
		token = token[:8] + "…"
	}
	return fmt.Sprintf("session:%s", token)
}

func (i Identity) logFields() map[string]any {
	if i.IsRegistered() {
		return map[string]any{"user_id": i.userID.String(), "identity_kind": i.kind}
	}
	return map[string]any{"session_id": i.String(), "identity_kind": i.kind}
}
