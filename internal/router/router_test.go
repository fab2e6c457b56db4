package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/config"
	"github.com/noah-isme/extension-hours-api/internal/database"
	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/handler"
	"github.com/noah-isme/extension-hours-api/internal/middleware"
	"github.com/noah-isme/extension-hours-api/internal/repository"
	"github.com/noah-isme/extension-hours-api/internal/router"
	"github.com/noah-isme/extension-hours-api/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	validate := dto.NewValidator()

	db, err := database.Open(filepath.Join(t.TempDir(), "extension.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	users := repository.NewUserRepository(db)
	students := repository.NewStudentRepository(db)
	places := repository.NewPlaceRepository(db)
	records := repository.NewRecordRepository(db)

	hasher, err := auth.NewHasher(auth.MinIterations)
	require.NoError(t, err)
	manager, err := auth.NewSessionManager("router-test-secret", time.Hour, nil)
	require.NoError(t, err)

	audit, err := service.NewAuditService(repository.NewAuditRepository(db), validate, nil, "", logger)
	require.NoError(t, err)
	credentials, err := service.NewCredentialService(db, users, students, hasher, validate, logger)
	require.NoError(t, err)
	_, err = credentials.SeedDefaults(ctx)
	require.NoError(t, err)

	sessions := service.NewSessionService(credentials, manager, validate, logger)
	federated := service.NewFederatedLoginService(nil, nil, nil, auth.AdminAllowlist{}, manager, logger)
	recordService := service.NewRecordService(db, records, students, places, audit, validate, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Extension Hours API", AppEnv: "test"}, router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(sessions, credentials, federated, handler.CookieConfig{}, logger),
		StudentHandler: handler.NewStudentHandler(service.NewStudentService(db, students, audit, validate, logger), recordService, logger),
		PlaceHandler:   handler.NewPlaceHandler(service.NewPlaceService(db, places, audit, validate, logger), logger),
		RecordHandler:  handler.NewRecordHandler(recordService, logger),
		AuditHandler:   handler.NewAuditHandler(audit, logger),
		Sessions:       sessions,
		HealthChecks: map[string]handler.Pinger{"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
	})
	return app
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded apiResponse
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	status, resp := call(t, app, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Username: username, Password: password})
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	var session dto.SessionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestExtensionHoursScenario(t *testing.T) {
	app := newTestApp(t)
	admin := login(t, app, "admin", service.DefaultSeedPassword)

	status, resp := call(t, app, http.MethodPost, "/api/v1/students", admin, dto.StudentCreateRequest{Name: "Ana Diaz", Program: "Informatics"})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	student := decodeData[dto.StudentResponse](t, resp)

	status, resp = call(t, app, http.MethodPost, "/api/v1/places", admin, dto.PlaceCreateRequest{Name: "Community Library"})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	place := decodeData[dto.PlaceResponse](t, resp)

	status, resp = call(t, app, http.MethodPost, "/api/v1/users", admin, dto.CreateUserRequest{Username: "ana", Password: "secret", Role: "Student", StudentID: &student.ID})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)

	ana := login(t, app, "ana", "secret")
	status, resp = call(t, app, http.MethodPost, "/api/v1/records", ana, dto.RecordCreateRequest{
		StudentID: student.ID, PlaceID: place.ID, Activity: "Reading club", Date: "2024-03-02", Hours: 3, Term: "2024-1",
	})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	record := decodeData[dto.RecordResponse](t, resp)

	validatePath := fmt.Sprintf("/api/v1/records/%d/validate", record.ID)
	status, _ = call(t, app, http.MethodPost, validatePath, ana, nil)
	require.Equal(t, fiber.StatusForbidden, status)

	company := login(t, app, "empresa", service.DefaultSeedPassword)
	status, resp = call(t, app, http.MethodPost, validatePath, company, nil)
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	status, _ = call(t, app, http.MethodPost, validatePath, company, nil)
	require.Equal(t, fiber.StatusConflict, status)

	status, resp = call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/students/%d/status?term=2024-1", student.ID), ana, nil)
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	summary := decodeData[dto.StudentStatusResponse](t, resp)
	require.Equal(t, 3.0, summary.ValidatedHours)
	require.Zero(t, summary.PendingHours)

	studentPath := fmt.Sprintf("/api/v1/students/%d", student.ID)
	status, _ = call(t, app, http.MethodDelete, studentPath, admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, http.MethodGet, studentPath, admin, nil)
	require.Equal(t, fiber.StatusNotFound, status)
	status, _ = call(t, app, http.MethodGet, studentPath+"?include_inactive=true", admin, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, resp = call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/audit/student/%d", student.ID), admin, nil)
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	history := decodeData[[]dto.AuditEntryResponse](t, resp)
	require.Len(t, history, 2)
	require.Equal(t, "delete", history[1].Operation)
	require.NotNil(t, history[1].Before)
	require.Nil(t, history[1].After)

	status, _ = call(t, app, http.MethodGet, "/api/v1/audit", ana, nil)
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, http.MethodGet, "/api/v1/students", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Username: "ghost", Password: "1234"})
	require.Equal(t, fiber.StatusUnauthorized, status)

	token := login(t, app, "depto", service.DefaultSeedPassword)
	status, _ = call(t, app, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/users", token, dto.CreateUserRequest{Username: "eve", Password: "secret", Role: "Admin"})
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/auth/microsoft/start", "", nil)
	require.Equal(t, fiber.StatusNotFound, status)

	status, resp := call(t, app, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, fiber.StatusOK, status, resp.Message)

	status, _ = call(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, status)
}
