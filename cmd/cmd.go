package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-food-backend/internal/config"
	"campus-food-backend/internal/handlers"
	"campus-food-backend/internal/repository"
	"campus-food-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	if cfg.Database.Migrations != "" {
		if err := repository.Migrate(cfg.Database.MigrateURL(), cfg.Database.Migrations); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Redis backs OTP throttling and the places cache
	var rdb *redis.Client
	var otpLimiter services.AttemptLimiter
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, continuing without it")
		}
		cancel()
		otpLimiter = services.NewOTPLimiter(rdb)
	}

	// Push delivery is optional
	var pusher services.PushSender
	if cfg.APNs.Enabled() {
		apns, err := services.NewAPNsPusher(cfg.APNs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		pusher = apns
	} else {
		log.Warn().Msg("APNs not configured, push delivery disabled")
	}

	images, err := services.NewS3ImageStore(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}

	// Initialize repositories
	redemptionRepo := repository.NewRedemptionRepository(db)
	userRepo := repository.NewUserRepository(db, redemptionRepo)
	bookingRepo := repository.NewBookingRepository(db)
	listingRepo := repository.NewListingRepository(db, bookingRepo)
	notificationRepo := repository.NewNotificationRepository(db)
	subscriptionRepo := repository.NewPushSubscriptionRepository(db)
	volunteerRepo := repository.NewVolunteerRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)

	// Initialize services
	wsHub := services.NewWSHub()
	userService := services.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.TTL, cfg.Rewards)
	notificationService := services.NewNotificationService(
		notificationRepo,
		subscriptionRepo,
		userRepo,
		pusher,
		wsHub,
		cfg.APNs.Timeout,
	)
	rewardService := services.NewRewardService(userRepo, redemptionRepo, cfg.Rewards)
	listingStore := services.NewListingStore(listingRepo)
	listingService := services.NewListingService(listingStore, images, notificationService)
	claimService := services.NewClaimService(listingStore, rewardService, notificationService, bookingRepo, otpLimiter)
	deliveryService := services.NewDeliveryService(deliveryRepo, volunteerRepo, listingStore, notificationService)
	placesClient := services.NewPlacesClient(cfg.Places, rdb)
	sweeper := services.NewSweeper(listingRepo, userRepo, cfg.Sweep.Interval, cfg.Sweep.GracePeriod)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	listingHandler := handlers.NewListingHandler(listingService, claimService)
	claimHandler := handlers.NewClaimHandler(claimService)
	rewardHandler := handlers.NewRewardHandler(rewardService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	deliveryHandler := handlers.NewDeliveryHandler(deliveryService)
	placesHandler := handlers.NewPlacesHandler(placesClient)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, notificationService)

	r := newRouter(userService, routeHandlers{
		user:         userHandler,
		listing:      listingHandler,
		claim:        claimHandler,
		reward:       rewardHandler,
		notification: notificationHandler,
		delivery:     deliveryHandler,
		places:       placesHandler,
		ws:           wsHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper.Start(sweepCtx)

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sweeper.Stop()
	wsHub.Close()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight push deliveries finish
	notificationService.Wait()

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
