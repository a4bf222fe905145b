package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/Ananth-NQI/tablepe-backend/database"
	"github.com/Ananth-NQI/tablepe-backend/internal/config"
	"github.com/Ananth-NQI/tablepe-backend/internal/handlers"
	"github.com/Ananth-NQI/tablepe-backend/internal/jobs"
	"github.com/Ananth-NQI/tablepe-backend/internal/routes"
	"github.com/Ananth-NQI/tablepe-backend/internal/services"
	"github.com/Ananth-NQI/tablepe-backend/internal/storage"
	"github.com/Ananth-NQI/tablepe-backend/internal/utils"
)

const (
	version = "1.0.0"

	// how long a message waits for the previous one on the same session
	sessionLockWait = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	checks := map[string]handlers.Pinger{}

	// Initialize storage
	var store storage.Store
	storageType := "PostgreSQL Database"
	if cfg.UseMemoryStore {
		logger.Warn("using in-memory storage with demo data (not for production!)")
		mem := storage.NewMemoryStore()
		storage.SeedDemo(mem)
		store = mem
		storageType = "In-Memory (Demo)"
	} else {
		db, err := database.Connect(cfg, logger)
		if err != nil {
			logger.Fatal("database unavailable", zap.Error(err))
		}

		logger.Info("running database migrations")
		if err := database.Migrate(db); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}

		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("failed to get database handle", zap.Error(err))
		}
		checks["database"] = handlers.PingFunc(sqlDB.PingContext)
		store = storage.NewDatabaseStore(db)
	}

	// Session locks
	var locker services.Locker
	if cfg.RedisAddr != "" {
		redisLocker := services.NewRedisLocker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionLockTTL, sessionLockWait)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisLocker.Ping(ctx); err != nil {
			logger.Fatal("redis unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		defer redisLocker.Close()
		checks["redis"] = redisLocker
		locker = redisLocker
		logger.Info("using redis session locks", zap.String("addr", cfg.RedisAddr))
	} else {
		locker = services.NewLocalLocker(sessionLockWait)
		logger.Info("using in-process session locks")
	}

	// WhatsApp delivery
	var sender services.MessageSender
	var notifier services.Notifier
	if cfg.TwilioConfigured() {
		twilioService, err := services.NewTwilioService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, logger)
		if err != nil {
			logger.Fatal("failed to initialize Twilio service", zap.Error(err))
		}
		templates := services.NewTemplateService(twilioService, map[string]string{
			services.TemplateOrderConfirmed:       cfg.OrderTemplateSID,
			services.TemplateReservationConfirmed: cfg.ReservationTemplateSID,
		})
		sender = twilioService
		notifier = services.NewWhatsAppNotifier(templates, cfg.RestaurantName, cfg.PhoneCountryCode, logger)
		logger.Info("twilio service initialized")
	} else {
		notifier = services.NewLogNotifier(logger)
		logger.Warn("twilio credentials not found, replies and notifications are only logged")
	}

	// Conversation
	clock := services.Clock(time.Now)
	validators := services.NewValidators(store, store, store, cfg.Location(), clock)
	sessions := services.NewSessionManager(store, locker, cfg.SessionTTL, clock, logger)
	conversation := services.NewConversation(store, sessions, validators, notifier, services.ConversationOptions{
		RestaurantName: cfg.RestaurantName,
		CountryCode:    cfg.PhoneCountryCode,
	}, logger)

	housekeeping := jobs.NewHousekeepingJob(store, cfg.HousekeepingInterval, cfg.ReservationHold, cfg.Location(), logger)
	housekeeping.Start()

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "TablePe Backend v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     "TablePe Backend API",
			"version":     version,
			"restaurant":  cfg.RestaurantName,
			"environment": cfg.Environment,
			"storage":     storageType,
		})
	})

	routes.SetupRoutes(app, cfg, routes.Dependencies{
		Conversation: conversation,
		Sender:       sender,
		Health:       handlers.NewHealthHandler(version, storageType, sender != nil, checks),
		Logger:       logger,
	})

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("gracefully shutting down")
		housekeeping.Stop()
		_ = app.Shutdown()
	}()

	logger.Info("TablePe backend starting",
		zap.String("port", cfg.Port),
		zap.String("storage", storageType),
		zap.String("environment", cfg.Environment),
		zap.String("restaurant", cfg.RestaurantName),
		zap.String("timezone", cfg.Location().String()),
		zap.Bool("whatsapp", sender != nil))

	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
