package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/learnhub-api/internal/utils"
)

// Roles carried in the token role claim.
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// RequireRole rejects callers whose token role is not one of roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := roleSet(roles)

	return func(c *fiber.Ctx) error {
		if _, ok := allowed[roleFromContext(c)]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func roleSet(roles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := normalizeRole(role); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func roleFromContext(c *fiber.Ctx) string {
	return normalizeRole(c.Locals("user_role"))
}
