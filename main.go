package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	amqp "github.com/streadway/amqp"

	"taskpool/internal/database"
	"taskpool/internal/handlers"
	"taskpool/internal/middleware"
	"taskpool/internal/repositories"
	"taskpool/internal/services"
	"taskpool/pkg/imagestore"
	applog "taskpool/pkg/log"
	"taskpool/pkg/metrics"
	"taskpool/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=taskpool port=5432 sslmode=disable")
	viper.SetDefault("STORAGE_PATH", "storage/task_images")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("RABBITMQ_CONSUME", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_JSON", true)
	viper.SetDefault("REQUEST_TIMEOUT", "30s")
	viper.AutomaticEnv()

	applog.Init(applog.Config{
		Level:      applog.Level(viper.GetString("LOG_LEVEL")),
		JSONOutput: viper.GetBool("LOG_JSON"),
	})
	logger := applog.WithComponent("main")

	// --- Store startup ---
	// The schema and connection pool are provisioned before any traffic is
	// accepted; there is no lazy first-request initialization.
	db, err := database.Connect(viper.GetString("DATABASE_DSN"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate schema")
	}

	images, err := imagestore.NewFileStore(viper.GetString("STORAGE_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare image storage")
	}

	// --- Optional event broker ---
	var events services.EventPublisher
	if url := viper.GetString("RABBITMQ_URL"); url != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: url})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize RabbitMQ client")
		}
		defer mqClient.Close()
		events = mqClient

		// Optionally drain the event queue in-process. Useful for local
		// runs without a dedicated worker fleet listening on the queue.
		if viper.GetBool("RABBITMQ_CONSUME") {
			go func() {
				eventLog := applog.WithComponent("events")
				eventLog.Info().Msg("starting task event consumer")
				err := mqClient.ConsumeEvents(func(msg amqp.Delivery) error {
					eventLog.Info().Uint64("tag", msg.DeliveryTag).Str("body", string(msg.Body)).Msg("task event received")
					return nil
				})
				if err != nil {
					eventLog.Error().Err(err).Msg("event consumer stopped")
				}
			}()
		}
	} else {
		logger.Info().Msg("no RABBITMQ_URL configured, lifecycle events disabled")
	}

	// --- Metrics ---
	metrics.Register(nil)

	// --- Services ---
	txManager := repositories.NewGormTxManager(db)
	userService := services.NewUserService(txManager, images, events)
	taskService := services.NewTaskService(txManager, images, events)

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService)

	// --- Fiber app ---
	timeout := viper.GetDuration("REQUEST_TIMEOUT")
	app := fiber.New(fiber.Config{
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	app.Use(fiberlogger.New())
	app.Use(middleware.Metrics())

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")

	// Public surface: registration and the global aggregate.
	userHandler.RegisterPublicRoutes(apiV1)

	// Everything else sits behind the identity gate.
	protected := apiV1.Group("", middleware.AuthRequired(userService))
	userHandler.RegisterProtectedRoutes(protected)
	taskHandler.RegisterRoutes(protected)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// --- Start HTTP server ---
	appPort := viper.GetString("APP_PORT")
	logger.Info().Str("port", appPort).Msg("starting server")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-quit
	logger.Info().Msg("shutting down server")

	if err := app.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
	logger.Info().Msg("server gracefully stopped")
}
