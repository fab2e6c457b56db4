package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/middleware"
	"github.com/noah-isme/extension-hours-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func sessionFor(role models.Role, identifier string) auth.Session {
	now := time.Now().UTC()
	return auth.Session{
		ID:        "session-" + identifier,
		Principal: auth.Principal{Identifier: identifier, Role: role, Source: auth.SourceLocal},
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func withSession(session auth.Session) fiber.Handler {
	return func(c *fiber.Ctx) error {
		middleware.WithSession(c, session)
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func decodeResponse(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}
