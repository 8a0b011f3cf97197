package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payment  PaymentConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderEvents    string
	PreOrderEvents string
}

// PaymentConfig configures the payment-code generator and the session
// window. SessionTTL is the logical payment window; sessions stay in the
// store for SessionRetention before garbage collection so overdue ones can
// still be reported as expired.
type PaymentConfig struct {
	MerchantName     string
	MerchantAccount  string
	MerchantCity     string
	Currency         string
	SessionTTL       time.Duration
	SessionRetention time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "store_user"),
			Password:     getEnv("DB_PASSWORD", "store_pass"),
			Database:     getEnv("DB_NAME", "techstore"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				OrderEvents:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
				PreOrderEvents: getEnv("KAFKA_TOPIC_PREORDER_EVENTS", "preorder-events"),
			},
		},
		Payment: PaymentConfig{
			MerchantName:     getEnv("PAYMENT_MERCHANT_NAME", "TechStore"),
			MerchantAccount:  getEnv("PAYMENT_MERCHANT_ACCOUNT", "techstore@bank"),
			MerchantCity:     getEnv("PAYMENT_MERCHANT_CITY", "Phnom Penh"),
			Currency:         getEnv("PAYMENT_CURRENCY", "USD"),
			SessionTTL:       time.Duration(getEnvInt("PAYMENT_SESSION_TTL_MINUTES", 15)) * time.Minute,
			SessionRetention: time.Duration(getEnvInt("PAYMENT_SESSION_RETENTION_HOURS", 24)) * time.Hour,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
