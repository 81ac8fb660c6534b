package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(apiKey string) *fiber.App {
	app := fiber.New()
	app.Post("/guarded", RequireAPIKey(apiKey), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireAPIKey_ValidKey(t *testing.T) {
	app := newTestApp("secret")

	req := httptest.NewRequest(fiber.MethodPost, "/guarded", nil)
	req.Header.Set(HeaderAPIKey, "secret")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAPIKey_WrongOrMissingKey(t *testing.T) {
	app := newTestApp("secret")

	req := httptest.NewRequest(fiber.MethodPost, "/guarded", nil)
	req.Header.Set(HeaderAPIKey, "wrong")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodPost, "/guarded", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAPIKey_DisabledWhenUnconfigured(t *testing.T) {
	app := newTestApp("")

	req := httptest.NewRequest(fiber.MethodPost, "/guarded", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
