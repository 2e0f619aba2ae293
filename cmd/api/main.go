package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/config"
	"github.com/noah-isme/learnhub-api/internal/database"
	"github.com/noah-isme/learnhub-api/internal/handler"
	"github.com/noah-isme/learnhub-api/internal/middleware"
	"github.com/noah-isme/learnhub-api/internal/observability"
	"github.com/noah-isme/learnhub-api/internal/repository"
	"github.com/noah-isme/learnhub-api/internal/router"
	"github.com/noah-isme/learnhub-api/internal/service"
	"github.com/noah-isme/learnhub-api/pkg/mailer"
	"github.com/noah-isme/learnhub-api/pkg/paymob"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, notification fan-out disabled")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, notification fan-out disabled")
		} else {
			defer natsConn.Close()
		}
	}

	gateway, err := paymob.New(paymob.Config{
		BaseURL:             cfg.Paymob.BaseURL,
		APIKey:              cfg.Paymob.APIKey,
		IframeID:            cfg.Paymob.IframeID,
		CardIntegrationID:   cfg.Paymob.CardIntegrationID,
		WalletIntegrationID: cfg.Paymob.WalletIntegrationID,
		Timeout:             cfg.Paymob.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create payment gateway client")
	}

	var confirmations service.Mailer = mailer.NewLogMailer(logger)
	if cfg.Mail.SendGridAPIKey != "" {
		sendGrid, err := mailer.NewSendGrid(mailer.Config{
			APIKey:    cfg.Mail.SendGridAPIKey,
			FromEmail: cfg.Mail.FromEmail,
			FromName:  cfg.Mail.FromName,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create sendgrid mailer")
		}
		confirmations = sendGrid
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	transactor := repository.NewTransactor(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	courseService := service.NewCourseService(courseRepo, logger)
	couponService := service.NewCouponService(couponRepo, courseRepo, validate, logger)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, courseRepo, transactor, notificationService, validate, logger)
	paymentService := service.NewPaymentService(service.PaymentDependencies{
		Payments:    paymentRepo,
		Enrollments: enrollmentRepo,
		Courses:     courseRepo,
		Students:    studentRepo,
		Transactor:  transactor,
		Coupons:     couponService,
		Gateway:     gateway,
		Mailer:      confirmations,
		Notifier:    notificationService,
	}, service.PaymentConfig{
		Currency:        cfg.Paymob.Currency,
		HMACSecret:      cfg.Paymob.HMACSecret,
		GatewayTimeout:  cfg.Paymob.Timeout,
		StalePaymentAge: cfg.StalePaymentAge,
	}, validate, logger)

	sweeper, err := service.NewStaleSweeper(paymentService, cfg.StaleSweepSchedule, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule stale payment sweep")
	}
	sweeper.Start()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler:       handler.NewCourseHandler(courseService, logger),
		EnrollmentHandler:   handler.NewEnrollmentHandler(enrollmentService, logger),
		CouponHandler:       handler.NewCouponHandler(couponService, logger),
		PaymentHandler:      handler.NewPaymentHandler(paymentService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		HealthChecks:        healthChecks(db, redisClient, natsConn),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("starting server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, sweeper, logger)
}

func healthChecks(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		checks["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return checks
}

func waitForShutdown(app *fiber.App, sweeper *service.StaleSweeper, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	sweeper.Stop(ctx)

	logger.Info().Msg("server stopped")
}
