package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/glowcart/glowcart-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims is the bearer token presented by registered shoppers,
// operators and internal services.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

var _ jwt.ClaimsValidator = (*AccessTokenClaims)(nil)

// Validate runs after the registered-claim checks. It normalises the role
// and requires the subject, when present, to name the same user.
func (c *AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token missing user_id")
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return fmt.Errorf("token subject %q does not match user_id", c.Subject)
	}
	role, err := enums.ParseUserRole(string(c.Role))
	if err != nil {
		return fmt.Errorf("token carries unknown role %q", c.Role)
	}
	c.Role = role
	return nil
}
