package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-gateway/internal/api/dto"
	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/service"
)

// UserService is the profile workflow used by UsersHandler.
type UserService interface {
	Profile(ctx context.Context, identity domain.Identity) (*domain.User, error)
	UpdateProfile(ctx context.Context, identity domain.Identity, in service.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, identity domain.Identity, oldPassword, newPassword string) error
}

// UsersHandler exposes the caller's own profile.
type UsersHandler struct {
	users UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Profile handles GET /users/me.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	user, err := h.users.Profile(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewUserResponse(user)))
}

// UpdateProfile handles PUT /users/me.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.UserContext(), identity, req.Update())
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewUserResponse(user)))
}

// ChangePassword handles PUT /users/me/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.users.ChangePassword(c.UserContext(), identity, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
