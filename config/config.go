package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Adyen             AdyenConfig
	Subscriptions     SubscriptionConfig
	Kafka             KafkaConfig
	Jobs              JobsConfig
	Client            ClientConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

// MySQLConfig is optional; an empty DSN selects the in-memory token store.
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

// InternalEndpointsConfig.AuthGRPCAddr enables the internal gRPC surface when set.
type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type AdyenConfig struct {
	APIKey          string
	MerchantAccount string
	ClientKey       string
	HMACKey         string
	CheckoutURL     string
	ReturnURL       string
}

type SubscriptionConfig struct {
	AmountMinor int64
	Currency    string
}

type KafkaConfig struct {
	Brokers            string
	NotificationsTopic string
}

type JobsConfig struct {
	RenewInterval time.Duration
}

// ClientConfig configures the CLI commands that talk to a running service.
type ClientConfig struct {
	BaseURL string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "checkout-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             strings.TrimSpace(os.Getenv("MYSQL_DSN")),
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{Level: getEnv("LOG_LEVEL", "info")},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: strings.TrimSpace(os.Getenv("AUTH_SERVICE_GRPC_ADDR")),
		},
		Adyen: AdyenConfig{
			APIKey:          strings.TrimSpace(os.Getenv("ADYEN_API_KEY")),
			MerchantAccount: strings.TrimSpace(os.Getenv("ADYEN_MERCHANT_ACCOUNT")),
			ClientKey:       strings.TrimSpace(os.Getenv("ADYEN_CLIENT_KEY")),
			HMACKey:         strings.TrimSpace(os.Getenv("ADYEN_HMAC_KEY")),
			CheckoutURL:     getEnv("ADYEN_CHECKOUT_URL", "https://checkout-test.adyen.com/v71"),
			ReturnURL:       getEnv("ADYEN_RETURN_URL", "http://localhost:8080/handleShopperRedirect"),
		},
		Subscriptions: SubscriptionConfig{
			AmountMinor: int64(getIntEnv("SUBSCRIPTION_AMOUNT_MINOR", 999)),
			Currency:    getEnv("SUBSCRIPTION_CURRENCY", "EUR"),
		},
		Kafka: KafkaConfig{
			Brokers:            strings.TrimSpace(os.Getenv("KAFKA_BROKERS")),
			NotificationsTopic: getEnv("KAFKA_NOTIFICATIONS_TOPIC", "checkout-notifications"),
		},
		Jobs: JobsConfig{
			RenewInterval: getDurationEnv("RENEW_INTERVAL_MINUTES", 24*time.Hour),
		},
		Client: ClientConfig{
			BaseURL: getEnv("CHECKOUT_BASE_URL", "http://localhost:8080"),
		},
	}

	if cfg.Adyen.APIKey != "" && cfg.Adyen.MerchantAccount == "" {
		return nil, errors.New("ADYEN_MERCHANT_ACCOUNT environment variable is required when ADYEN_API_KEY is set")
	}
	if cfg.Subscriptions.AmountMinor < 0 {
		return nil, errors.New("SUBSCRIPTION_AMOUNT_MINOR must not be negative")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
