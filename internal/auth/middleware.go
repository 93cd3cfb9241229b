package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-gateway/internal/domain"
	apperrors "github.com/spec-kit/task-gateway/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// AuthMiddleware validates bearer tokens and attaches the identity.
type AuthMiddleware struct {
	authenticator *Authenticator
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authenticator *Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return apperrors.NewUnauthorized("missing or malformed authorization header")
	}

	identity, err := m.authenticator.Authenticate(c.UserContext(), token)
	if err != nil {
		return toHTTPError(err)
	}

	c.Locals(identityKey, identity)
	c.SetUserContext(WithIdentity(c.UserContext(), identity))
	return c.Next()
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return apperrors.NewTokenExpired("token has expired")
	case errors.Is(err, ErrInvalidToken):
		return apperrors.NewInvalidToken("invalid token")
	default:
		return apperrors.NewUnauthorized("you have no account with us")
	}
}
