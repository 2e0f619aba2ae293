package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesDomainCollectors(t *testing.T) {
	PaymentsFinalized().WithLabelValues("success").Inc()
	CallbacksRejected().WithLabelValues("signature").Inc()
	StalePendingPayments().Set(3)

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `payments_finalized_total{outcome="success"}`)
	require.Contains(t, string(body), `payment_callbacks_rejected_total{reason="signature"}`)
	require.Contains(t, string(body), "payments_stale_pending 3")
}
