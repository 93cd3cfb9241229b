package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/domain"
)

// IdentityStore confirms that a verified identity still has an account.
type IdentityStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Authenticator turns a bearer credential into a verified identity. Both the
// HTTP middleware and the live connection handshake go through it.
type Authenticator struct {
	tokens     *TokenManager
	identities IdentityStore
	timeout    time.Duration
	logger     *zap.Logger
}

// NewAuthenticator wires token verification to the identity store. A zero
// timeout leaves the existence check bounded only by the caller's context.
func NewAuthenticator(tokens *TokenManager, identities IdentityStore, timeout time.Duration, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, identities: identities, timeout: timeout, logger: logger}
}

// Authenticate verifies an access token and confirms its subject exists.
// Token failures surface as ErrInvalidToken or ErrExpiredToken; an empty
// credential, a missing account or a failed lookup surface as
// ErrUnauthenticated.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Identity{}, ErrUnauthenticated
	}

	identity, err := a.tokens.VerifyIdentity(token, TokenAccess)
	if err != nil {
		return domain.Identity{}, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	exists, err := a.identities.Exists(ctx, identity.ID)
	if err != nil {
		// a lookup that timed out is never treated as a pass
		a.logger.Warn("identity existence check failed", zap.String("identity_id", identity.ID), zap.Error(err))
		return domain.Identity{}, ErrUnauthenticated
	}
	if !exists {
		return domain.Identity{}, ErrUnauthenticated
	}
	return identity, nil
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrUnauthenticated
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrUnauthenticated
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}

type identityCtxKey struct{}

// WithIdentity stores the resolved identity in a context.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(domain.Identity)
	return identity, ok
}
