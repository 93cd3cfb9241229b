package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/config"
	"github.com/spec-kit/task-gateway/internal/domain"
)

// TokenKind selects the signing secret and default lifetime of a token.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
	TokenLink    TokenKind = "link"
)

// LinkPurpose binds a link token to the one flow that may redeem it. It is
// carried as the token audience.
type LinkPurpose string

const (
	LinkVerifyAccount LinkPurpose = "verify-account"
	LinkResetPassword LinkPurpose = "reset-password"
)

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// TokenManager handles issuing and validating JWT tokens. Each kind has its
// own secret, so a token minted for one kind fails signature verification
// under every other kind.
type TokenManager struct {
	keys   map[TokenKind]signingKey
	issuer string
	now    func() time.Time
	logger *zap.Logger
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// WithTokenLogger attaches a logger for verification failures.
func WithTokenLogger(logger *zap.Logger) TokenOption {
	return func(tm *TokenManager) {
		if logger != nil {
			tm.logger = logger
		}
	}
}

// Claims describes the JWT payload. Access and refresh tokens carry the
// identity; link tokens carry only the subject.
type Claims struct {
	Identity *domain.Identity `json:"identity,omitempty"`
	jwt.RegisteredClaims
}

// NewTokenManager builds a manager from auth configuration.
func NewTokenManager(cfg config.AuthConfig, opts ...TokenOption) (*TokenManager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.LinkSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret || cfg.AccessSecret == cfg.LinkSecret || cfg.RefreshSecret == cfg.LinkSecret {
		return nil, errors.New("token secrets must be distinct per kind")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token issuer must not be empty")
	}

	tm := &TokenManager{
		keys: map[TokenKind]signingKey{
			TokenAccess:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL()},
			TokenRefresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL()},
			TokenLink:    {secret: []byte(cfg.LinkSecret)},
		},
		issuer: cfg.Issuer,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// IssueAccessToken signs a short-lived token for API and live connection access.
func (tm *TokenManager) IssueAccessToken(identity domain.Identity) (string, time.Time, error) {
	return tm.Issue(TokenAccess, &identity, identity.ID, 0)
}

// IssueRefreshToken signs a long-lived token that can be traded for a new pair.
func (tm *TokenManager) IssueRefreshToken(identity domain.Identity) (string, time.Time, error) {
	return tm.Issue(TokenRefresh, &identity, identity.ID, 0)
}

// IssueLinkToken signs a token carrying subjectID that only the flow named by
// purpose accepts.
func (tm *TokenManager) IssueLinkToken(subjectID string, purpose LinkPurpose, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, errors.New("link tokens require an explicit ttl")
	}
	if purpose == "" {
		return "", time.Time{}, errors.New("link tokens require a purpose")
	}
	return tm.issue(TokenLink, nil, subjectID, string(purpose), ttl)
}

// Issue builds and signs a token of the given kind. A zero ttl falls back to
// the kind's default lifetime. The returned expiry is the one in the token,
// rounded up to whole seconds.
func (tm *TokenManager) Issue(kind TokenKind, identity *domain.Identity, subject string, ttl time.Duration) (string, time.Time, error) {
	return tm.issue(kind, identity, subject, "", ttl)
}

func (tm *TokenManager) issue(kind TokenKind, identity *domain.Identity, subject, audience string, ttl time.Duration) (string, time.Time, error) {
	key, ok := tm.keys[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}
	if ttl <= 0 {
		ttl = key.ttl
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("%s token requires a ttl", kind)
	}

	now := tm.now()
	claims := &Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiryCeil(now.Add(ttl))),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// expiryCeil rounds t up to the precision of the exp claim, so a token never
// expires before its ttl has elapsed.
func expiryCeil(t time.Time) time.Time {
	truncated := t.Truncate(jwt.TimePrecision)
	if truncated.Before(t) {
		return truncated.Add(jwt.TimePrecision)
	}
	return truncated
}

// Verify checks the signature and issuer under kind's secret, then the
// expiration. Signature and issuer failures yield ErrInvalidToken; a token
// that is otherwise valid but expired yields ErrExpiredToken.
func (tm *TokenManager) Verify(tokenStr string, kind TokenKind) (*Claims, error) {
	return tm.verify(tokenStr, kind)
}

func (tm *TokenManager) verify(tokenStr string, kind TokenKind, extra ...jwt.ParserOption) (*Claims, error) {
	key, ok := tm.keys[kind]
	if !ok {
		return nil, ErrInvalidToken
	}

	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}, extra...)
	parser := jwt.NewParser(opts...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return key.secret, nil
	})
	if err != nil {
		// Claim errors are joined, so issuer and audience must win over expiry.
		switch {
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			tm.logger.Debug("token rejected: issuer", zap.String("kind", string(kind)))
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			tm.logger.Debug("token rejected: audience", zap.String("kind", string(kind)))
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			tm.logger.Debug("token rejected: expired", zap.String("kind", string(kind)))
			return nil, ErrExpiredToken
		default:
			tm.logger.Debug("token rejected", zap.String("kind", string(kind)), zap.Error(err))
			return nil, ErrInvalidToken
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyIdentity verifies an access or refresh token and returns its identity.
func (tm *TokenManager) VerifyIdentity(tokenStr string, kind TokenKind) (domain.Identity, error) {
	claims, err := tm.Verify(tokenStr, kind)
	if err != nil {
		return domain.Identity{}, err
	}
	if claims.Identity == nil || claims.Identity.ID == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	return *claims.Identity, nil
}

// VerifyLink verifies a link token issued for purpose. A link minted for any
// other purpose is ErrInvalidToken.
func (tm *TokenManager) VerifyLink(tokenStr string, purpose LinkPurpose) (*Claims, error) {
	if purpose == "" {
		return nil, ErrInvalidToken
	}
	claims, err := tm.verify(tokenStr, TokenLink, jwt.WithAudience(string(purpose)))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyLinkToken verifies a link token for purpose and returns its subject.
func (tm *TokenManager) VerifyLinkToken(tokenStr string, purpose LinkPurpose) (string, error) {
	claims, err := tm.VerifyLink(tokenStr, purpose)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
