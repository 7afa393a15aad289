package identity

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/unfairwheel/wheel-server/internal/apierr"
)

const localsKey = "identity"

// RequireAuth returns Fiber middleware that validates a JWT Bearer token from the Authorization header and stores
// the resolved Identity in c.Locals. Requests without a valid token are rejected with 401.
func RequireAuth(secret string) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, err := resolveFromHeader(c, secret)
		if err != nil {
			return writeAuthErr(c, err)
		}
		c.Locals(localsKey, id)
		return c.Next()
	}
}

// OptionalAuth behaves like RequireAuth when a bearer token is present, but lets the request through unauthenticated
// (no Identity in Locals) when the Authorization header is absent. A malformed or invalid token that IS present is
// still rejected — callers should not be able to bypass validation by sending garbage.
func OptionalAuth(secret string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		id, err := resolveFromHeader(c, secret)
		if err != nil {
			return writeAuthErr(c, err)
		}
		c.Locals(localsKey, id)
		return c.Next()
	}
}

// FromContext extracts the Identity stored by RequireAuth/OptionalAuth. ok is false when the request is
// unauthenticated (only possible downstream of OptionalAuth).
func FromContext(c fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(localsKey).(Identity)
	return id, ok
}

func resolveFromHeader(c fiber.Ctx, secret string) (Identity, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return Identity{}, apierr.Auth("Missing authorization header")
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return Identity{}, apierr.Auth("Invalid authorization format")
	}

	id, err := Resolve(header[len(prefix):], secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apierr.Auth("Token has expired")
		}
		return Identity{}, apierr.Auth("Invalid token")
	}
	return id, nil
}

func writeAuthErr(c fiber.Ctx, err error) error {
	apiErr := apierr.As(err)
	return c.Status(apiErr.Status()).JSON(fiber.Map{
		"error": fiber.Map{"code": apiErr.Code, "message": apiErr.Message},
	})
}
