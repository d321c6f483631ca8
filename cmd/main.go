package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/giordana79/TaskManager-API/internal/config"
	"github.com/giordana79/TaskManager-API/internal/database"
	"github.com/giordana79/TaskManager-API/internal/handlers"
	"github.com/giordana79/TaskManager-API/internal/mailer"
	"github.com/giordana79/TaskManager-API/internal/middleware"
	"github.com/giordana79/TaskManager-API/internal/repository"
	"github.com/giordana79/TaskManager-API/internal/routes"
	"github.com/giordana79/TaskManager-API/internal/services"
	"github.com/giordana79/TaskManager-API/internal/storage"
	"github.com/giordana79/TaskManager-API/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	sugar := logger.Sugar()
	sugar.Infof("Starting task-service in %s environment on port %d", cfg.App.Env, cfg.App.Port)

	db, mongoClient, err := database.ConnectMongo(context.Background(), cfg.Mongo, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	rdb, err := database.ConnectRedis(context.Background(), cfg.Redis, sugar)
	if err != nil {
		sugar.Fatal(err)
	}

	jwtManager, err := utils.NewJWTManager(
		cfg.App.JWT.AccessSecret,
		cfg.App.JWT.RefreshSecret,
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
	)
	if err != nil {
		sugar.Fatalf("JWT configuration error: %v", err)
	}

	mail := mailer.NewClient(cfg.Mail.APIKey, cfg.Mail.FromEmail, cfg.Mail.FromName)
	if !mail.IsConfigured() {
		sugar.Warn("Mail client not fully configured. Email delivery will fail.")
	} else {
		sugar.Info("Mail client configured.")
	}

	store, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket)
	if err != nil {
		sugar.Fatalf("S3 store initialization failed: %v", err)
	}

	userRepo := repository.NewMongoUserRepo(db, "users")
	taskRepo := repository.NewMongoTaskRepo(db, "tasks")

	authSvc := services.NewAuthService(
		userRepo, mail, jwtManager,
		cfg.Security.PasswordHashCost, cfg.ResetTokenTTL(), cfg.App.FrontendURL,
		sugar,
	)
	taskSvc := services.NewTaskService(taskRepo, store, sugar)

	authH := handlers.NewAuthHandler(authSvc, sugar)
	taskH := handlers.NewTaskHandler(taskSvc, sugar)
	adminH := handlers.NewAdminHandler(authSvc, taskSvc, sugar)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
		BodyLimit:    52 * 1024 * 1024,
	})

	app.Use(cors.New())
	app.Use(requestLogger(logger))

	authRequired := middleware.JWTAuth(jwtManager, authSvc)
	authLimiter := middleware.NewRateLimiter(rdb, "rl:auth", cfg.Security.AuthRateLimitPerHour, time.Hour).
		MiddlewareByKey(middleware.ByIP)
	resetLimiter := middleware.NewRateLimiter(rdb, "rl:reset", cfg.Security.ResetRateLimitPerHour, time.Hour).
		MiddlewareByKey(middleware.ByIP)

	routes.Setup(app, authH, taskH, adminH, authRequired, authLimiter, resetLimiter)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
			sugar.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("Shutting down...")

	if err := app.Shutdown(); err != nil {
		sugar.Errorf("server shutdown error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mongoClient.Disconnect(ctx); err != nil {
		sugar.Errorf("MongoDB disconnect error: %v", err)
	}
	if err := rdb.Close(); err != nil {
		sugar.Errorf("Redis client close error: %v", err)
	}
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		if err != nil {
			logger.Error("HTTP Request Error", append(fields, zap.Error(err))...)
			return err
		}
		logger.Info("HTTP Request", fields...)
		return nil
	}
}
