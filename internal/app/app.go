package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"eventra_backend/database"
	"eventra_backend/internal/auth"
	"eventra_backend/internal/config"
	"eventra_backend/internal/handlers"
	"eventra_backend/internal/logger"
	"eventra_backend/internal/models"
	"eventra_backend/internal/payments"
	"eventra_backend/internal/pkg/email"
	"eventra_backend/internal/repositories"
	"eventra_backend/internal/routes"
	"eventra_backend/internal/services"
	"eventra_backend/internal/storage"
	"eventra_backend/internal/validator"
	"eventra_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const workerInterval = time.Hour

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}
	if err := database.SeedPromotionalCodes(); err != nil {
		logger.Fatal("Failed to seed promotional codes", "error", err)
	}
	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	router := SetupRouter(cfg, gormDB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := workers.NewSubscriptionWorker(
		repositories.NewSubscriptionRepository(gormDB),
		repositories.NewInvitationRepository(gormDB),
		repositories.NewRefreshTokenRepository(gormDB),
		repositories.NewUserRepository(gormDB),
		buildEmailSender(cfg),
		cfg.Billing.MaxRetries,
		workerInterval,
	)
	go worker.Run(ctx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: address, Handler: router}

	go func() {
		logger.Info("Server starting", "address", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
	logger.Info("Server stopped")
}

// SetupRouter builds the full gin engine with all routes mounted.
// Exposed so tests can drive the HTTP surface without a listener.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	storageInstance, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	serviceContainer := initializeServices(cfg, gormDB, storageInstance)
	appHandlers := initializeHandlers(serviceContainer)

	engine := gin.New()
	routes.RegisterRoutes(engine, appHandlers, gormDB)
	return engine
}

func initializeServices(cfg *config.Config, gormDB *gorm.DB, storageInstance storage.Storage) *services.ServiceContainer {
	emailSender := buildEmailSender(cfg)
	processor := buildPaymentProcessor()

	userRepo := repositories.NewUserRepository(gormDB)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(gormDB)
	eventRepo := repositories.NewEventRepository(gormDB)
	invitationRepo := repositories.NewInvitationRepository(gormDB)
	documentRepo := repositories.NewDocumentRepository(gormDB)
	subscriptionRepo := repositories.NewSubscriptionRepository(gormDB)
	testimonialRepo := repositories.NewTestimonialRepository(gormDB)
	legalRepo := repositories.NewLegalRepository(gormDB)

	billingCfg := services.BillingConfig{
		TrialDays:       cfg.Billing.TrialDays,
		GracePeriodDays: cfg.Billing.GracePeriodDays,
		MaxRetries:      cfg.Billing.MaxRetries,
	}
	uploadLimits := services.UploadLimits{
		MaxSize:      cfg.Upload.MaxSize,
		AllowedTypes: cfg.Upload.AllowedTypes,
	}

	return &services.ServiceContainer{
		AuthService:         services.NewAuthService(userRepo, refreshTokenRepo, emailSender),
		UserService:         services.NewUserService(userRepo),
		EventService:        services.NewEventService(eventRepo, subscriptionRepo),
		SubscriptionService: services.NewSubscriptionService(subscriptionRepo, userRepo, processor, emailSender, billingCfg),
		InvitationService:   services.NewInvitationService(invitationRepo, eventRepo, userRepo, subscriptionRepo, emailSender),
		DocumentService:     services.NewDocumentService(documentRepo, eventRepo, storageInstance, uploadLimits),
		TestimonialService:  services.NewTestimonialService(testimonialRepo, userRepo),
		LegalService:        services.NewLegalService(legalRepo),
	}
}

func buildEmailSender(cfg *config.Config) email.Sender {
	if cfg.Email.SMTPUsername == "" || cfg.Email.SMTPPassword == "" {
		logger.Warn("SMTP credentials not configured, using mock email sender")
		return &MockEmailSender{}
	}
	sender, err := email.NewSMTPSender(email.Config{
		SMTPHost:  cfg.Email.SMTPHost,
		SMTPPort:  cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		BaseURL:   cfg.Email.BaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize email sender", "error", err)
	}
	return sender
}

func buildPaymentProcessor() payments.Processor {
	// No real provider integration yet; the sandbox approves everything.
	logger.Warn("Payment provider not configured, using sandbox processor")
	return &SandboxProcessor{}
}

func initializeHandlers(sc *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	return handlers.NewAppHandlers(sc, customValidator)
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD not set, skipping admin seeding")
		return nil
	}

	var admin models.User
	result := db.Where("email = ?", adminEmail).First(&admin)
	if result.Error == nil {
		logger.Info("Admin user already exists", "email", adminEmail)
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	hashed, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	newAdmin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashed,
		FullName:     "Platform Administrator",
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusActive,
		IsVerified:   true,
	}
	if err := db.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("Created first admin user", "email", adminEmail)
	return nil
}
