package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/extension-hours-api/internal/auth"
	"github.com/noah-isme/extension-hours-api/internal/config"
	"github.com/noah-isme/extension-hours-api/internal/database"
	"github.com/noah-isme/extension-hours-api/internal/dto"
	"github.com/noah-isme/extension-hours-api/internal/handler"
	"github.com/noah-isme/extension-hours-api/internal/middleware"
	"github.com/noah-isme/extension-hours-api/internal/models"
	"github.com/noah-isme/extension-hours-api/internal/repository"
	"github.com/noah-isme/extension-hours-api/internal/router"
	"github.com/noah-isme/extension-hours-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	healthChecks := map[string]handler.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var (
		stateStore  auth.StateStore      = auth.NewMemoryStateStore()
		revocation  auth.RevocationStore = auth.NewMemoryRevocationStore()
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		stateStore = auth.NewRedisStateStore(redisClient, cfg.ChannelBase)
		revocation = auth.NewRedisRevocationStore(redisClient, cfg.ChannelBase)
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	} else {
		logger.Warn().Msg("redis not configured; login attempts and revocations are kept in memory")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := dto.NewValidator()

	hasher, err := auth.NewHasher(cfg.HashIterations)
	if err != nil {
		log.Fatalf("invalid password hashing configuration: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, revocation)
	if err != nil {
		log.Fatalf("invalid session configuration: %v", err)
	}

	staffRole, ok := models.ParseRole(cfg.StaffRole)
	if !ok {
		log.Fatalf("unknown staff role %q", cfg.StaffRole)
	}
	resolver, err := auth.NewIdentityResolver(auth.ResolverConfig{Domain: cfg.AllowedDomain, StaffRole: staffRole})
	if err != nil {
		log.Fatalf("invalid identity configuration: %v", err)
	}
	admins := auth.NewAdminAllowlist(cfg.AdminStudentIDs)

	var flow *auth.PKCEFlow
	if cfg.OAuth.Enabled() {
		authorizeURL, tokenURL := auth.MicrosoftEndpoints(cfg.OAuth.Authority, cfg.OAuth.Tenant)
		flow, err = auth.NewPKCEFlow(auth.ProviderConfig{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURI:  cfg.OAuth.RedirectURI,
			AuthorizeURL: authorizeURL,
			TokenURL:     tokenURL,
			ProfileURL:   cfg.OAuth.GraphURL,
			Scopes:       cfg.OAuth.Scopes,
			Timeout:      cfg.OAuth.Timeout,
			StateTTL:     cfg.OAuth.StateTTL,
		}, nil)
		if err != nil {
			log.Fatalf("invalid oauth configuration: %v", err)
		}
		logger.Info().
			Bool("public_client", cfg.OAuth.PublicClient()).
			Str("domain", resolver.Domain()).
			Int("admin_allowlist", admins.Len()).
			Msg("federated login enabled")
	} else {
		logger.Info().Msg("federated login disabled; set EXT_OAUTH_CLIENT_ID to enable it")
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	placeRepo := repository.NewPlaceRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditService, err := service.NewAuditService(auditRepo, validate, natsConn, cfg.ChannelBase, logger)
	if err != nil {
		log.Fatalf("failed to load audit schemas: %v", err)
	}
	credentialService, err := service.NewCredentialService(db, userRepo, studentRepo, hasher, validate, logger)
	if err != nil {
		log.Fatalf("failed to initialise credentials: %v", err)
	}

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := credentialService.SeedDefaults(seedCtx); err != nil {
		cancelSeed()
		log.Fatalf("failed to seed default accounts: %v", err)
	}
	cancelSeed()

	sessionService := service.NewSessionService(credentialService, sessionManager, validate, logger)
	federatedService := service.NewFederatedLoginService(flow, stateStore, resolver, admins, sessionManager, logger)
	studentService := service.NewStudentService(db, studentRepo, auditService, validate, logger)
	placeService := service.NewPlaceService(db, placeRepo, auditService, validate, logger)
	recordService := service.NewRecordService(db, recordRepo, studentRepo, placeRepo, auditService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(sessionService, credentialService, federatedService, handler.CookieConfig{Secure: cfg.IsProduction()}, logger),
		StudentHandler: handler.NewStudentHandler(studentService, recordService, logger),
		PlaceHandler:   handler.NewPlaceHandler(placeService, logger),
		RecordHandler:  handler.NewRecordHandler(recordService, logger),
		AuditHandler:   handler.NewAuditHandler(auditService, logger),
		Sessions:       sessionService,
		HealthChecks:   healthChecks,
		LoginRateLimit: cfg.LoginRateLimit,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddress()).Msg("server started")
	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
