package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	awspkg "github.com/yashrajoria/flash-sale-service/pkg/aws"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	InventoryStore    = "store"
	InventoryDynamoDB = "dynamodb"

	GatewayPaystack = "paystack"
	GatewayStripe   = "stripe"

	EventsSNS   = "sns"
	EventsKafka = "kafka"
	EventsNone  = "none"
)

// Config holds all configuration for the flash-sale service.
type Config struct {
	Port   string
	AppEnv string

	StoreDriver  string // mongo | postgres | memory
	MongoURL     string
	MongoDB      string
	MongoTimeout time.Duration
	PostgresDSN  string

	InventoryBackend  string // store | dynamodb
	DDBTableInventory string

	GatewayProvider       string // paystack | stripe
	PaystackBaseURL       string
	PaystackSecretKey     string
	PaystackVerifyWebhook bool
	StripeAPIKey          string
	StripeWebhookSecret   string
	StripeSuccessURL      string
	StripeCancelURL       string
	PaymentCurrency       string
	GatewayTimeout        time.Duration

	AccessSecretKey string
	TokenTTL        time.Duration

	RedisURL        string
	ProductCacheTTL time.Duration
	LeaderboardKey  string

	EventsBackend      string // sns | kafka | none
	PaymentSNSTopicARN string
	KafkaBrokers       []string
	KafkaPaymentTopic  string
	WebhookQueueURL    string

	AWSRegion          string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSUseSecrets      bool
	SecretsPrefix      string

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string

	AllowedOrigins     []string
	RateLimitPerMinute int
	RateLimitBurst     int
	RequestTimeout     time.Duration
}

// SecretGetter is satisfied by *aws.SecretsClient.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// LoadConfig reads .env (if present) and the environment, applies Secrets
// Manager overrides when AWS_USE_SECRETS=true, then validates.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.AWSUseSecrets {
		awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWSOptions())
		if err != nil {
			return nil, err
		}
		cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(awsCfg))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURL:    os.Getenv("MONGO_URL"),
		MongoDB:     getEnv("MONGO_DB", "flash_sale"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		InventoryBackend:  strings.ToLower(getEnv("INVENTORY_BACKEND", InventoryStore)),
		DDBTableInventory: getEnv("DDB_TABLE_INVENTORY", "Inventory"),

		GatewayProvider:     strings.ToLower(getEnv("GATEWAY_PROVIDER", GatewayPaystack)),
		PaystackBaseURL:     getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackSecretKey:   os.Getenv("PAYSTACK_SECRET_KEY"),
		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeSuccessURL:    getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/payment/success"),
		StripeCancelURL:     getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/payment/cancel"),
		PaymentCurrency:     strings.ToUpper(getEnv("PAYMENT_CURRENCY", "NGN")),

		AccessSecretKey: os.Getenv("ACCESS_SECRETKEY"),

		RedisURL:       os.Getenv("REDIS_URL"),
		LeaderboardKey: getEnv("LEADERBOARD_KEY", "flashsale:leaderboard"),

		EventsBackend:      strings.ToLower(getEnv("EVENTS_BACKEND", EventsNone)),
		PaymentSNSTopicARN: os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaPaymentTopic:  getEnv("KAFKA_PAYMENT_TOPIC", "payment-events"),
		WebhookQueueURL:    os.Getenv("WEBHOOK_QUEUE_URL"),

		AWSRegion:          os.Getenv("AWS_REGION"),
		AWSEndpoint:        os.Getenv("AWS_ENDPOINT"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SecretsPrefix:      getEnv("SECRETS_PREFIX", "flash-sale/"),

		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "FlashSale"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/flash-sale/services"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.MongoTimeout, err = getDuration("MONGO_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GatewayTimeout, err = getDuration("GATEWAY_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ProductCacheTTL, err = getDuration("PRODUCT_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.PaystackVerifyWebhook, err = getBool("PAYSTACK_VERIFY_WEBHOOK", true); err != nil {
		return nil, err
	}
	if cfg.AWSUseSecrets, err = getBool("AWS_USE_SECRETS", false); err != nil {
		return nil, err
	}
	if cfg.CloudWatchEnabled, err = getBool("CLOUDWATCH_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 50); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplySecrets replaces the signing and gateway secrets with values from
// Secrets Manager. Missing secrets keep the environment value.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretGetter) {
	override := func(name string, dst *string) {
		if v, err := sm.GetSecret(ctx, c.SecretsPrefix+name); err == nil && v != "" {
			*dst = v
		}
	}
	override("ACCESS_SECRETKEY", &c.AccessSecretKey)
	override("PAYSTACK_SECRET_KEY", &c.PaystackSecretKey)
	override("STRIPE_API_KEY", &c.StripeAPIKey)
	override("STRIPE_WEBHOOK_SECRET", &c.StripeWebhookSecret)
}

// Validate checks that every backend selected has what it needs.
func (c *Config) Validate() error {
	if c.AccessSecretKey == "" {
		return fmt.Errorf("ACCESS_SECRETKEY is required")
	}

	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required when STORE_DRIVER=mongo")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.InventoryBackend {
	case InventoryStore:
	case InventoryDynamoDB:
		if c.DDBTableInventory == "" {
			return fmt.Errorf("DDB_TABLE_INVENTORY is required when INVENTORY_BACKEND=dynamodb")
		}
	default:
		return fmt.Errorf("unsupported INVENTORY_BACKEND %q", c.InventoryBackend)
	}

	switch c.GatewayProvider {
	case GatewayPaystack:
		if c.PaystackSecretKey == "" {
			return fmt.Errorf("PAYSTACK_SECRET_KEY is required when GATEWAY_PROVIDER=paystack")
		}
	case GatewayStripe:
		if c.StripeAPIKey == "" || c.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_API_KEY and STRIPE_WEBHOOK_SECRET are required when GATEWAY_PROVIDER=stripe")
		}
	default:
		return fmt.Errorf("unsupported GATEWAY_PROVIDER %q", c.GatewayProvider)
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsSNS:
		if c.PaymentSNSTopicARN == "" {
			return fmt.Errorf("PAYMENT_SNS_TOPIC_ARN is required when EVENTS_BACKEND=sns")
		}
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND=kafka")
		}
	default:
		return fmt.Errorf("unsupported EVENTS_BACKEND %q", c.EventsBackend)
	}
	return nil
}

// AWSOptions is the shared AWS client configuration.
func (c *Config) AWSOptions() awspkg.Options {
	return awspkg.Options{
		Region:          c.AWSRegion,
		Endpoint:        c.AWSEndpoint,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.InventoryBackend == InventoryDynamoDB ||
		c.EventsBackend == EventsSNS ||
		c.WebhookQueueURL != "" ||
		c.CloudWatchEnabled
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
