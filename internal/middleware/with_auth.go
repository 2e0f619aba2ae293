package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/learnhub-api/internal/utils"
)

// AuthOptions configures WithAuth.
type AuthOptions struct {
	// Roles accepted by the guard. Empty accepts any caller.
	Roles       []string
	RequireUser bool
}

// WithAuth wraps handler with user and role checks. Naming a role implies
// RequireUser, and admins pass every role check.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	allowed := roleSet(opts.Roles)
	requireUser := opts.RequireUser || len(allowed) > 0

	return func(c *fiber.Ctx) error {
		if strings.TrimSpace(userIDFromLocals(c)) == "" {
			if requireUser {
				return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
			}
			return handler(c)
		}

		if len(allowed) == 0 {
			return handler(c)
		}

		role := roleFromContext(c)
		if _, ok := allowed[role]; !ok && role != RoleAdmin {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}

		return handler(c)
	}
}
