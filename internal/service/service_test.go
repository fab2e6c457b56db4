package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.Place{}, &models.ActivityRecord{}, &models.User{}, &models.AuditEntry{}))
	return db
}

type testEnv struct {
	db       *gorm.DB
	audit    AuditService
	students StudentService
	places   PlaceService
	records  RecordService
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db := setupTestDB(t)
	validate := dto.NewValidator()

	audit, err := NewAuditService(repository.NewAuditRepository(db), validate, nil, "test", testLogger())
	require.NoError(t, err)

	return newTestEnvWithRecorder(t, db, audit, audit)
}

func newTestEnvWithRecorder(t *testing.T, db *gorm.DB, audit AuditService, recorder AuditRecorder) testEnv {
	t.Helper()
	validate := dto.NewValidator()
	studentRepo := repository.NewStudentRepository(db)
	placeRepo := repository.NewPlaceRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	return testEnv{
		db:       db,
		audit:    audit,
		students: NewStudentService(db, studentRepo, recorder, validate, testLogger()),
		places:   NewPlaceService(db, placeRepo, recorder, validate, testLogger()),
		records:  NewRecordService(db, recordRepo, studentRepo, placeRepo, recorder, validate, testLogger()),
	}
}

func testSession(role models.Role, identifier string) auth.Session {
	now := time.Now().UTC()
	return auth.Session{
		ID: uuid.NewString(),
		Principal: auth.Principal{
			Identifier:  identifier,
			Role:        role,
			Source:      auth.SourceLocal,
			DisplayName: identifier,
		},
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func studentSession(identifier string, studentID uint) auth.Session {
	session := testSession(models.RoleStudent, identifier)
	session.Principal.StudentID = &studentID
	return session
}

func newTestAuditServiceFor(db *gorm.DB) (AuditService, error) {
	return NewAuditService(repository.NewAuditRepository(db), dto.NewValidator(), nil, "", testLogger())
}
