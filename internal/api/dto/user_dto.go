package dto

import (
	"time"

	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/service"
)

// SignupRequest payload for new accounts.
type SignupRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=32,alphanum"`
	FirstName    string `json:"firstName" validate:"required,max=64"`
	LastName     string `json:"lastName" validate:"required,max=64"`
	EmailAddress string `json:"emailAddress" validate:"required,email,max=254"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
}

// Input maps the request onto the service input.
func (r SignupRequest) Input() service.SignupInput {
	return service.SignupInput{
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.EmailAddress,
		Password:  r.Password,
	}
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenRequest carries a link token or refresh token.
type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	EmailAddress string `json:"emailAddress" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// ChangePasswordRequest payload for an authenticated password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72,nefield=OldPassword"`
}

// UpdateProfileRequest replaces the caller's profile fields.
type UpdateProfileRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=32,alphanum"`
	FirstName    string `json:"firstName" validate:"required,max=64"`
	LastName     string `json:"lastName" validate:"required,max=64"`
	EmailAddress string `json:"emailAddress" validate:"required,email,max=254"`
}

// Update maps the request onto the service input.
func (r UpdateProfileRequest) Update() service.ProfileUpdate {
	return service.ProfileUpdate{
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.EmailAddress,
	}
}

// UserResponse is the public view of an account.
type UserResponse struct {
	domain.Profile
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserResponse builds the response for u.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{Profile: u.Profile(), Verified: u.EmailVerified, CreatedAt: u.CreatedAt}
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// NewTokenResponse builds the response for a token pair.
func NewTokenResponse(p service.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
