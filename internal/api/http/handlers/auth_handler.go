package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-gateway/internal/api/dto"
	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/service"
)

// AuthService is the account workflow used by AuthHandler.
type AuthService interface {
	Signup(ctx context.Context, in service.SignupInput) (*domain.User, error)
	VerifyAccount(ctx context.Context, code string) error
	Login(ctx context.Context, username, password string) (*domain.User, service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (service.TokenPair, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, newPassword string) error
}

// AuthHandler exposes the public account endpoints.
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Signup(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(dto.NewUserResponse(user)))
}

// Verify handles POST /auth/verify.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.VerifyAccount(c.UserContext(), req.Token); err != nil {
		return err
	}
	return c.JSON(data(fiber.Map{"message": "account verified"}))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	user, pair, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(data(fiber.Map{
		"user": dto.NewUserResponse(user),
		"auth": dto.NewTokenResponse(pair),
	}))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	pair, err := h.auth.Refresh(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewTokenResponse(pair)))
}

// ForgotPassword handles POST /auth/forgot-password. The response does not
// reveal whether the address has an account.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ForgotPassword(c.UserContext(), req.EmailAddress); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(data(fiber.Map{"message": "if the address is registered, a reset link is on its way"}))
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(data(fiber.Map{"message": "password updated"}))
}
