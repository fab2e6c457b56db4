package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/observability"
	"github.com/noah-isme/extension-hours-api/internal/repository"
)

// DefaultSeedPassword is the password given to the demo accounts.
const DefaultSeedPassword = "1234"

var defaultAccounts = []struct {
	Username string
	Role     models.Role
}{
	{Username: "admin", Role: models.RoleAdmin},
	{Username: "depto", Role: models.RoleDepartment},
	{Username: "empresa", Role: models.RoleCompany},
	{Username: "estudiante", Role: models.RoleStudent},
}

// CredentialService stores and verifies local credentials.
type CredentialService interface {
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	Authenticate(ctx context.Context, identifier, password string) (auth.Principal, error)
	SeedDefaults(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, session auth.Session, req dto.CreateUserRequest) (dto.UserResponse, error)
	ChangePassword(ctx context.Context, session auth.Session, req dto.ChangePasswordRequest) error
}

type credentialService struct {
	db        *gorm.DB
	users     repository.UserRepository
	students  repository.StudentRepository
	hasher    *auth.Hasher
	dummy     auth.PasswordHash
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCredentialService constructs the credential service. It derives one dummy
// hash up front so lookups of unknown users cost the same as real ones.
func NewCredentialService(db *gorm.DB, users repository.UserRepository, students repository.StudentRepository, hasher *auth.Hasher, validate *validator.Validate, logger zerolog.Logger) (CredentialService, error) {
	dummy, err := hasher.Hash("unknown-user-placeholder", nil)
	if err != nil {
		return nil, fmt.Errorf("derive placeholder hash: %w", err)
	}

	return &credentialService{
		db:        db,
		users:     users,
		students:  students,
		hasher:    hasher,
		dummy:     dummy,
		validator: validate,
		logger:    logger.With().Str("component", "credential_service").Logger(),
	}, nil
}

func normalizeUsername(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (s *credentialService) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	username := normalizeUsername(identifier)
	if username == "" {
		return models.User{}, ErrUserNotFound
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Authenticate verifies a password. Unknown users and wrong passwords fail with
// the same InvalidCredentials reason.
func (s *credentialService) Authenticate(ctx context.Context, identifier, password string) (auth.Principal, error) {
	principal, err := s.authenticate(ctx, identifier, password)
	observability.AuthAttempts().WithLabelValues("local", auth.Outcome(err)).Inc()
	return principal, err
}

func (s *credentialService) authenticate(ctx context.Context, identifier, password string) (auth.Principal, error) {
	user, err := s.FindByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return auth.Principal{}, err
		}
		s.hasher.Verify(password, s.dummy.Hash, s.dummy.Salt, s.dummy.Iterations)
		return auth.Principal{}, auth.NewFailure(auth.ErrInvalidCredentials, nil)
	}

	if !s.hasher.Verify(password, user.PasswordHash, user.Salt, user.Iterations) {
		s.logger.Warn().Str("username", user.Username).Msg("password verification failed")
		return auth.Principal{}, auth.NewFailure(auth.ErrInvalidCredentials, nil)
	}

	if s.hasher.NeedsRehash(user.Iterations) {
		s.rehash(ctx, user, password)
	}

	return auth.Principal{
		Identifier:  user.Username,
		Role:        user.Role,
		Source:      auth.SourceLocal,
		DisplayName: user.Username,
		StudentID:   user.StudentID,
	}, nil
}

func (s *credentialService) rehash(ctx context.Context, user models.User, password string) {
	hashed, err := s.hasher.Hash(password, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("username", user.Username).Msg("failed to derive upgraded hash")
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed.Hash, hashed.Salt, hashed.Iterations); err != nil {
		s.logger.Warn().Err(err).Str("username", user.Username).Msg("failed to store upgraded hash")
		return
	}
	s.logger.Info().
		Str("username", user.Username).
		Int("from_iterations", user.Iterations).
		Int("to_iterations", hashed.Iterations).
		Msg("password hash upgraded")
}

// SeedDefaults inserts the four demo accounts when no user exists yet.
func (s *credentialService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		total, err := users.Count(ctx)
		if err != nil {
			return err
		}
		if total > 0 {
			return nil
		}

		for _, account := range defaultAccounts {
			hashed, err := s.hasher.Hash(DefaultSeedPassword, nil)
			if err != nil {
				return err
			}
			user := models.User{
				Username:     account.Username,
				Role:         account.Role,
				PasswordHash: hashed.Hash,
				Salt:         hashed.Salt,
				Iterations:   hashed.Iterations,
			}
			if err := users.Create(ctx, &user); err != nil {
				return fmt.Errorf("seed user %s: %w", account.Username, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if created > 0 {
		s.logger.Warn().Int("users", created).Msg("seeded demo accounts with the default password")
	}
	return created, nil
}

func (s *credentialService) CreateUser(ctx context.Context, session auth.Session, req dto.CreateUserRequest) (dto.UserResponse, error) {
	if err := authorize(session, models.RoleAdmin); err != nil {
		return dto.UserResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		return dto.UserResponse{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}
	if req.StudentID != nil && role != models.RoleStudent {
		return dto.UserResponse{}, fmt.Errorf("%w: only student accounts link to a student", ErrInvalidInput)
	}

	username := normalizeUsername(req.Username)
	hashed, err := s.hasher.Hash(req.Password, nil)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Username:     username,
		Role:         role,
		StudentID:    req.StudentID,
		PasswordHash: hashed.Hash,
		Salt:         hashed.Salt,
		Iterations:   hashed.Iterations,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if _, err := users.FindByUsername(ctx, username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if req.StudentID != nil {
			if _, err := s.students.WithTx(tx).FindByID(ctx, *req.StudentID, repository.ActiveOnly); err != nil {
				return referenceError(err)
			}
		}

		return users.Create(ctx, &user)
	})
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Str("username", user.Username).Str("role", user.Role.String()).Str("actor", session.ActorID()).Msg("user created")
	return dto.NewUserResponse(user), nil
}

func (s *credentialService) ChangePassword(ctx context.Context, session auth.Session, req dto.ChangePasswordRequest) error {
	if err := authorize(session); err != nil {
		return err
	}
	if session.Principal.Source != auth.SourceLocal {
		return ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	user, err := s.FindByIdentifier(ctx, session.Principal.Identifier)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash, user.Salt, user.Iterations) {
		return auth.NewFailure(auth.ErrInvalidCredentials, nil)
	}

	hashed, err := s.hasher.Hash(req.NewPassword, nil)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed.Hash, hashed.Salt, hashed.Iterations); err != nil {
		return err
	}

	s.logger.Info().Str("username", user.Username).Msg("password changed")
	return nil
}
