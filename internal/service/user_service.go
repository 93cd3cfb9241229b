package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/auth"
	"github.com/spec-kit/task-gateway/internal/config"
	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/events"
	"github.com/spec-kit/task-gateway/internal/repository"
	apperrors "github.com/spec-kit/task-gateway/pkg/util/errorutil"
)

// ProfileUpdate carries editable profile fields.
type ProfileUpdate struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// UserService manages the caller's own profile.
type UserService struct {
	users      repository.UserRepository
	mail       accountMail
	events     publisher
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(cfg config.Config, users repository.UserRepository, tokens *auth.TokenManager, mailer Mailer, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      users,
		mail:       newAccountMail(cfg, tokens, mailer, logger),
		events:     publisher{dispatcher: dispatcher, logger: logger},
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// Profile returns the caller's account.
func (s *UserService) Profile(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, repoError(err, "user")
	}
	return user, nil
}

// UpdateProfile edits the caller's profile. Changing the email address
// clears verification and mails a new link.
func (s *UserService) UpdateProfile(ctx context.Context, identity domain.Identity, in ProfileUpdate) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, repoError(err, "user")
	}

	if !strings.EqualFold(in.Username, user.Username) {
		taken, err := s.users.UsernameTaken(ctx, in.Username, user.ID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if taken {
			return nil, apperrors.NewConflict("this username is taken", map[string]any{"field": "username"})
		}
	}

	emailChanged := !strings.EqualFold(in.Email, user.Email)
	if emailChanged {
		taken, err := s.users.EmailTaken(ctx, in.Email, user.ID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if taken {
			return nil, apperrors.NewConflict("this email is taken", map[string]any{"field": "emailAddress"})
		}
	}

	user.Username = in.Username
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Email = in.Email
	if emailChanged {
		user.EmailVerified = false
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, repoError(err, "user")
	}

	if emailChanged {
		s.mail.sendVerification(ctx, user)
	}
	s.events.publish(ctx, events.KindUserProfileUpdated, user.Identity(), events.AudiencePrivate, user.Profile())
	return user, nil
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, identity domain.Identity, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		return repoError(err, "user")
	}
	if err := auth.ComparePassword(user.PasswordHash, oldPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperrors.NewValidationError("incorrect password", map[string]any{"field": "oldPassword"})
		}
		return apperrors.NewInternalError(err)
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
