package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"co2monitor/internal/middleware"
	"co2monitor/internal/security"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProtectedApp(tokens security.TokenManager) *fiber.App {
	app := fiber.New()
	app.Get("/me", middleware.AuthRequired(tokens, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": middleware.UserID(c)})
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, authorization string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestAuthRequired(t *testing.T) {
	tokens := security.NewJWTManager("test_jwt_secret", time.Hour)
	app := newProtectedApp(tokens)

	token, err := tokens.Issue("user-123")
	require.NoError(t, err)

	status, body := doGet(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No token, authorization denied", body["message"])

	status, body = doGet(t, app, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token is not valid", body["message"])

	status, body = doGet(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-123", body["id"])

	status, body = doGet(t, app, "bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-123", body["id"])

	// The bare token is accepted too.
	status, body = doGet(t, app, token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-123", body["id"])
}

func TestAuthRequired_OtherSecret(t *testing.T) {
	app := newProtectedApp(security.NewJWTManager("test_jwt_secret", time.Hour))

	foreign, err := security.NewJWTManager("another_secret", time.Hour).Issue("user-123")
	require.NoError(t, err)

	status, _ := doGet(t, app, "Bearer "+foreign)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDBDeadline(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.DBDeadline(time.Minute))
	app.Get("/", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		return c.JSON(fiber.Map{"ok": ok, "remaining": time.Until(deadline).Seconds()})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		OK        bool    `json:"ok"`
		Remaining float64 `json:"remaining"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.InDelta(t, 60, body.Remaining, 5)
}
