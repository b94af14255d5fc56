package main

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/flash-sale-service/config"
	"github.com/yashrajoria/flash-sale-service/controllers"
	"github.com/yashrajoria/flash-sale-service/database"
	"github.com/yashrajoria/flash-sale-service/events"
	"github.com/yashrajoria/flash-sale-service/gateway"
	awspkg "github.com/yashrajoria/flash-sale-service/pkg/aws"
	"github.com/yashrajoria/flash-sale-service/repository"
	"github.com/yashrajoria/flash-sale-service/services"
	"go.uber.org/zap"
)

// stores groups the repositories selected by STORE_DRIVER and
// INVENTORY_BACKEND.
type stores struct {
	products    repository.ProductRepository
	inventory   repository.InventoryStore
	payments    repository.PaymentRepository
	purchases   repository.PurchaseRepository
	accounts    repository.AccountRepository
	leaderboard repository.LeaderboardRepository
	close       func()
}

func buildStores(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config, logger *zap.Logger) (*stores, error) {
	var s *stores

	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDB, cfg.MongoTimeout)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			database.DisconnectMongo(client, logger)
			return nil, err
		}
		products := repository.NewMongoProductRepository(db)
		s = &stores{
			products:    products,
			inventory:   products,
			payments:    repository.NewMongoPaymentRepository(db),
			purchases:   repository.NewMongoPurchaseRepository(db),
			accounts:    repository.NewMongoAccountRepository(db),
			leaderboard: repository.NewMongoLeaderboardRepository(db),
			close:       func() { database.DisconnectMongo(client, logger) },
		}
		logger.Info("Connected to MongoDB", zap.String("database", cfg.MongoDB))

	case config.StorePostgres:
		db, err := database.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		products := repository.NewGormProductRepository(db)
		s = &stores{
			products:    products,
			inventory:   products,
			payments:    repository.NewGormPaymentRepository(db),
			purchases:   repository.NewGormPurchaseRepository(db),
			accounts:    repository.NewGormAccountRepository(db),
			leaderboard: repository.NewGormLeaderboardRepository(db),
			close: func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			},
		}
		logger.Info("Connected to PostgreSQL")

	case config.StoreMemory:
		mem := repository.NewMemoryStore()
		s = &stores{
			products:    mem.Products(),
			inventory:   mem.Inventory(),
			payments:    mem.Payments(),
			purchases:   mem.Purchases(),
			accounts:    mem.Accounts(),
			leaderboard: mem.Leaderboard(),
			close:       func() {},
		}
		logger.Warn("Using in-memory store; data is lost on restart")

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if cfg.InventoryBackend == config.InventoryDynamoDB {
		s.inventory = repository.NewDynamoInventoryStore(dynamodb.NewFromConfig(awsCfg), cfg.DDBTableInventory)
		logger.Info("Using DynamoDB inventory", zap.String("table", cfg.DDBTableInventory))
	}
	return s, nil
}

// paymentGateway returns the configured gateway plus the webhook
// authenticators for the controller. Unused authenticators are untyped nil.
func paymentGateway(cfg *config.Config) (services.PaymentGateway, controllers.SignatureVerifier, controllers.StripeWebhookParser) {
	switch cfg.GatewayProvider {
	case config.GatewayStripe:
		st := gateway.NewStripe(gateway.StripeConfig{
			SecretKey:     cfg.StripeAPIKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			SuccessURL:    cfg.StripeSuccessURL,
			CancelURL:     cfg.StripeCancelURL,
			Timeout:       cfg.GatewayTimeout,
		})
		return st, nil, st
	default:
		ps := gateway.NewPaystack(gateway.PaystackConfig{
			BaseURL:   cfg.PaystackBaseURL,
			SecretKey: cfg.PaystackSecretKey,
			Timeout:   cfg.GatewayTimeout,
		})
		if !cfg.PaystackVerifyWebhook {
			return ps, nil, nil
		}
		return ps, ps, nil
	}
}

// eventPublisher returns the publisher for EVENTS_BACKEND and a close func.
func eventPublisher(cfg *config.Config, awsCfg sdkaws.Config, logger *zap.Logger) (services.EventPublisher, func()) {
	switch cfg.EventsBackend {
	case config.EventsSNS:
		return events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.PaymentSNSTopicARN, logger), func() {}
	case config.EventsKafka:
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaPaymentTopic, logger)
		return kp, func() {
			if err := kp.Close(); err != nil {
				logger.Warn("Failed to close Kafka writer", zap.Error(err))
			}
		}
	default:
		return events.NewLogPublisher(logger), func() {}
	}
}

// connectRedis is optional: without REDIS_URL the product cache is off and
// the leaderboard comes from the store.
func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis unavailable; continuing without cache", zap.Error(err))
		return nil
	}
	logger.Info("Connected to Redis")
	return client
}
