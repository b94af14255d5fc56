package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/flash-sale-service/apperrors"
	"github.com/yashrajoria/flash-sale-service/config"
	"github.com/yashrajoria/flash-sale-service/controllers"
	"github.com/yashrajoria/flash-sale-service/events"
	"github.com/yashrajoria/flash-sale-service/logger"
	"github.com/yashrajoria/flash-sale-service/middleware"
	awspkg "github.com/yashrajoria/flash-sale-service/pkg/aws"
	"github.com/yashrajoria/flash-sale-service/repository"
	"github.com/yashrajoria/flash-sale-service/routes"
	"github.com/yashrajoria/flash-sale-service/services"
	"go.uber.org/zap"
)

const serviceName = "flash-sale-service"

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("[FlashSale] failed to load config: %v", err)
	}

	var awsCfg sdkaws.Config
	if cfg.NeedsAWS() {
		awsCfg, err = awspkg.LoadAWSConfig(ctx, cfg.AWSOptions())
		if err != nil {
			log.Fatalf("[FlashSale] %v", err)
		}
	}

	var cwWriter io.Writer
	if cfg.CloudWatchEnabled {
		cw, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "CloudWatch logs disabled: %v\n", err)
		} else {
			cwWriter = cw
		}
	}

	zlog, err := logger.New(cfg.AppEnv, cwWriter)
	if err != nil {
		log.Fatalf("[FlashSale] %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	var metricsClient *awspkg.MetricsClient
	if cfg.CloudWatchEnabled {
		metricsClient = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
	}

	st, err := buildStores(ctx, cfg, awsCfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer st.close()

	var productCache services.ProductCache
	leaderboard := st.leaderboard
	if rdb := connectRedis(ctx, cfg, zlog); rdb != nil {
		defer rdb.Close()
		productCache = repository.NewProductCache(rdb, cfg.ProductCacheTTL)
		leaderboard = repository.NewRedisLeaderboardRepository(rdb, cfg.LeaderboardKey)
	}

	gw, paystackVerifier, stripeParser := paymentGateway(cfg)
	publisher, closePublisher := eventPublisher(cfg, awsCfg, zlog)
	defer closePublisher()

	tokenService := services.NewTokenService(cfg.AccessSecretKey, cfg.TokenTTL)
	authService := services.NewAuthService(st.accounts, tokenService, zlog)
	productService := services.NewProductService(st.products, st.inventory, productCache, zlog)
	leaderboardService := services.NewLeaderboardService(leaderboard, st.accounts, zlog)
	coordinator := services.NewReservationCoordinator(
		st.products, st.inventory, st.payments, st.purchases,
		gw, cfg.PaymentCurrency, metricsClient, zlog,
	)
	engine := services.NewReconciliationEngine(st.payments, gw, publisher, leaderboard, metricsClient, zlog)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if cfg.WebhookQueueURL != "" {
		sqsConsumer := awspkg.NewSQSConsumer(awsCfg, cfg.WebhookQueueURL, zlog)
		go events.NewWebhookConsumer(sqsConsumer, engine, metricsClient, zlog).Start(consumerCtx)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitPerMinute), cfg.RateLimitBurst, 5*time.Minute)
	defer limiter.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(zlog))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterRoutes(r, routes.Controllers{
		Auth:     controllers.NewAuthController(authService, zlog),
		Product:  controllers.NewProductController(productService, zlog),
		Purchase: controllers.NewPurchaseController(coordinator, engine, leaderboardService, zlog),
		Webhook:  controllers.NewWebhookController(engine, paystackVerifier, stripeParser, zlog),
	}, tokenService, middleware.RateLimitMiddleware(limiter))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("Flash Sale Service starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreDriver),
			zap.String("inventory", cfg.InventoryBackend),
			zap.String("gateway", gw.Name()),
			zap.String("events", cfg.EventsBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down Flash Sale Service...")
	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
	coordinator.Flush()
	engine.Flush()

	zlog.Info("Flash Sale Service stopped gracefully")
}
