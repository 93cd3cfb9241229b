package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-gateway/internal/api/dto"
	"github.com/spec-kit/task-gateway/internal/auth"
	"github.com/spec-kit/task-gateway/internal/domain"
	apperrors "github.com/spec-kit/task-gateway/pkg/util/errorutil"
)

// bindBody parses the JSON body into req and validates it.
func bindBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

// bindQuery parses query parameters into req and validates it.
func bindQuery(c *fiber.Ctx, req interface{}) error {
	if err := c.QueryParser(req); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	return dto.Validate(req)
}

func currentIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return identity, nil
}

func data(v interface{}) fiber.Map {
	return fiber.Map{"data": v}
}
