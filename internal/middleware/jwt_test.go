package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newJWTApp(secret string) *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(secret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id"), "role": c.Locals("user_role")})
	})
	return app
}

func TestJWTProtectedStoresStringSubject(t *testing.T) {
	app := newJWTApp("secret")
	token := signToken(t, "secret", jwt.MapClaims{"sub": "stu-42", "role": "Student", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.Equal(t, "stu-42", body["user_id"])
	require.Equal(t, "student", body["role"])
}

func TestJWTProtectedAcceptsNumericSubject(t *testing.T) {
	value, err := normalizeUserID(float64(17))
	require.NoError(t, err)
	require.Equal(t, "17", value)

	_, err = normalizeUserID(float64(1.5))
	require.Error(t, err)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := newJWTApp("secret")

	cases := map[string]string{
		"missing header":  "",
		"wrong scheme":    "Basic abc",
		"wrong secret":    "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "stu-1"}),
		"expired":         "Bearer " + signToken(t, "secret", jwt.MapClaims{"sub": "stu-1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"missing subject": "Bearer " + signToken(t, "secret", jwt.MapClaims{"role": "student"}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
