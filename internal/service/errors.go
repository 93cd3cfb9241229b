package service

import (
	"errors"

	"github.com/spec-kit/task-gateway/internal/auth"
	"github.com/spec-kit/task-gateway/internal/repository"
	apperrors "github.com/spec-kit/task-gateway/pkg/util/errorutil"
)

func repoError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	default:
		return apperrors.NewInternalError(err)
	}
}

func linkError(err error) error {
	if errors.Is(err, auth.ErrExpiredToken) {
		return apperrors.NewTokenExpired("this link has expired")
	}
	return apperrors.NewInvalidToken("this link is invalid")
}

func sessionError(err error) error {
	if errors.Is(err, auth.ErrExpiredToken) {
		return apperrors.NewTokenExpired("session has expired, please log in again")
	}
	return apperrors.NewInvalidToken("invalid refresh token")
}
