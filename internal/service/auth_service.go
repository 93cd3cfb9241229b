package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/auth"
	"github.com/spec-kit/task-gateway/internal/config"
	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/events"
	"github.com/spec-kit/task-gateway/internal/repository"
	apperrors "github.com/spec-kit/task-gateway/pkg/util/errorutil"
)

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SignupInput carries a new account's details.
type SignupInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthService coordinates registration, login and link-token flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	used       repository.TokenStore
	mail       accountMail
	events     publisher
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Users      repository.UserRepository
	Tokens     *auth.TokenManager
	UsedTokens repository.TokenStore
	Mailer     Mailer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.Users,
		tokens:     deps.Tokens,
		used:       deps.UsedTokens,
		mail:       newAccountMail(cfg, deps.Tokens, deps.Mailer, logger),
		events:     publisher{dispatcher: deps.Dispatcher, logger: logger},
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// Signup creates an inactive account and mails a verification link.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	if taken, err := s.users.EmailTaken(ctx, in.Email, ""); err != nil {
		return nil, apperrors.NewInternalError(err)
	} else if taken {
		return nil, apperrors.NewConflict("a user with this email already exists", map[string]any{"field": "emailAddress"})
	}
	if taken, err := s.users.UsernameTaken(ctx, in.Username, ""); err != nil {
		return nil, apperrors.NewInternalError(err)
	} else if taken {
		return nil, apperrors.NewConflict("a user with this username already exists", map[string]any{"field": "username"})
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, repoError(err, "user")
	}

	s.mail.sendVerification(ctx, user)
	s.events.publish(ctx, events.KindUserJoined, user.Identity(), events.AudienceGeneral, user.Profile())
	return user, nil
}

// VerifyAccount activates the account named by a verification link.
func (s *AuthService) VerifyAccount(ctx context.Context, code string) error {
	claims, err := s.tokens.VerifyLink(code, auth.LinkVerifyAccount)
	if err != nil {
		return linkError(err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewInvalidToken("this link is invalid")
	} else if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.consume(ctx, claims); err != nil {
		return err
	}

	user.IsActive = true
	user.EmailVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return repoError(err, "user")
	}

	s.mail.sendVerified(ctx, user)
	return nil
}

// Login checks credentials and issues a token pair. Unverified accounts get a
// fresh verification link instead of tokens.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, TokenPair{}, apperrors.NewUnauthorized("invalid credentials")
	} else if err != nil {
		return nil, TokenPair{}, apperrors.NewInternalError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, TokenPair{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, TokenPair{}, apperrors.NewInternalError(err)
	}
	if user.Blocked() {
		return nil, TokenPair{}, apperrors.NewForbidden("you have been blocked")
	}
	if !user.EmailVerified {
		s.mail.sendVerification(ctx, user)
		return nil, TokenPair{}, apperrors.NewForbidden("your account is not verified, please check your email")
	}

	pair, err := s.issuePair(user.Identity())
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token is
// accepted once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.TokenRefresh)
	if err != nil {
		return TokenPair{}, sessionError(err)
	}
	if claims.Identity == nil {
		return TokenPair{}, apperrors.NewInvalidToken("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.Identity.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, apperrors.NewUnauthorized("you have no account with us")
	} else if err != nil {
		return TokenPair{}, apperrors.NewInternalError(err)
	}
	if user.Blocked() {
		return TokenPair{}, apperrors.NewForbidden("you have been blocked")
	}
	if err := s.consume(ctx, claims); err != nil {
		return TokenPair{}, err
	}

	return s.issuePair(user.Identity())
}

// ForgotPassword mails a reset link. Unknown addresses succeed silently so
// the endpoint cannot be used to discover accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Debug("password reset requested for unknown email")
		return nil
	} else if err != nil {
		return apperrors.NewInternalError(err)
	}

	if err := s.mail.sendPasswordReset(ctx, user); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ResetPassword sets a new password using a reset link.
func (s *AuthService) ResetPassword(ctx context.Context, code, newPassword string) error {
	claims, err := s.tokens.VerifyLink(code, auth.LinkResetPassword)
	if err != nil {
		return linkError(err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewInvalidToken("this link is invalid")
	} else if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.consume(ctx, claims); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return repoError(err, "user")
	}
	return nil
}

func (s *AuthService) issuePair(identity domain.Identity) (TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(identity)
	if err != nil {
		return TokenPair{}, apperrors.NewInternalError(err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(identity)
	if err != nil {
		return TokenPair{}, apperrors.NewInternalError(err)
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// consume marks a one-shot token as redeemed.
func (s *AuthService) consume(ctx context.Context, claims *auth.Claims) error {
	if s.used == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	fresh, err := s.used.Consume(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !fresh {
		return apperrors.NewInvalidToken("this token has already been used")
	}
	return nil
}
