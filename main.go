package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"luco-sms-platform/config"
	"luco-sms-platform/handlers"
	"luco-sms-platform/middleware"
	"luco-sms-platform/models"
	"luco-sms-platform/pkg/logger"
	"luco-sms-platform/pkg/sms"
	"luco-sms-platform/services"
	"luco-sms-platform/workers"
)

func main() {
	config.Load()
	logger.Init(config.Cfg.Environment, config.Cfg.LoggerLevel, config.Cfg.LoggerFormat)
	defer logger.Sync()

	if config.Cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(config.Cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.Message{},
		&models.DeliveryReport{},
		&models.ScheduledMessage{},
		&models.Contact{},
		&models.ContactGroup{},
		&models.ContactGroupMember{},
		&models.Template{},
		&models.APIKey{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	gateway, err := buildGateway()
	if err != nil {
		log.Fatal("failed to build SMS gateway:", err)
	}

	identityClient := services.NewIdentityClient(
		config.Cfg.IdentityServiceURL,
		config.Cfg.IdentityServiceToken,
	)

	loc := config.Cfg.ReferenceLocation()
	walletService := services.NewWalletService(db)
	contactService := services.NewContactService(db)
	templateService := services.NewTemplateService(db)
	apiKeyService := services.NewAPIKeyService(db)
	smsService := services.NewSMSService(db, walletService, contactService, gateway, config.Cfg.SMSUnitCost, config.Cfg.ATSenderID)
	scheduleService := services.NewScheduleService(db, walletService, contactService, gateway, config.Cfg.SMSUnitCost, config.Cfg.ATSenderID, loc)

	scheduler := services.NewScheduler(scheduleService, config.Cfg.ScanInterval())
	if err := scheduler.Start(); err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatchWorker := workers.NewDispatchWorker(db, gateway, config.Cfg.DispatchBatchSize)
	go dispatchWorker.Run(ctx, config.Cfg.DispatchInterval())

	app := fiber.New(fiber.Config{
		AppName: "luco-sms-platform",
	})

	allowedOrigins := make([]string, 0)
	for _, origin := range strings.Split(config.Cfg.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins = append(allowedOrigins, origin)
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-API-Key",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	sessionAuth := middleware.SessionAuth(db, identityClient)
	apiKeyAuth := middleware.APIKeyAuth(db)

	api := app.Group("/api/v1")
	handlers.SetupAccountRoutes(api, walletService, apiKeyService, sessionAuth)
	handlers.SetupContactRoutes(api, contactService, sessionAuth)
	handlers.SetupTemplateRoutes(api, templateService, sessionAuth)
	handlers.SetupSMSRoutes(api, smsService, sessionAuth)
	handlers.SetupScheduleRoutes(api, scheduleService, scheduler, sessionAuth)
	handlers.SetupDeveloperRoutes(api, smsService, apiKeyAuth)

	go func() {
		if err := app.Listen(":" + config.Cfg.ServerPort); err != nil {
			logger.Logger.Error("Server error", zap.Error(err))
			stop()
		}
	}()

	logger.Logger.Info("Server running",
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
		zap.String("sms_provider", config.Cfg.SMSProvider),
	)

	<-ctx.Done()
	logger.Logger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		logger.Logger.Error("Shutdown failed", zap.Error(err))
	}
}

// buildGateway picks the SMS gateway implementation from config. The mock
// provider exists for local development without Africa's Talking credentials.
func buildGateway() (sms.Client, error) {
	switch config.Cfg.SMSProvider {
	case "mock":
		return sms.NewMockClient(), nil
	default:
		return sms.NewAfricasTalkingClient(
			config.Cfg.ATUsername,
			config.Cfg.ATAPIKey,
			config.Cfg.ATSenderID,
			config.Cfg.ATBaseURL,
		)
	}
}
