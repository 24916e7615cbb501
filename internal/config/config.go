package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort           string
	RequestTimeout     time.Duration
	SubmitTimeout      time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	SessionCookie      string

	BackendURL         string
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	StoreDriver   string
	SessionTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	MongoURI      string
	MongoDBName   string

	KafkaBrokers []string
	KafkaTopic   string

	ShippingCountry       string
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

// Load reads an optional .env file and then the environment. A missing .env
// is fine; a malformed one is reported.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return &Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		SubmitTimeout:      getEnvDuration("SUBMIT_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: getEnvInt64("MAX_REQUEST_BODY_SIZE", 6<<20), // proof + form fields
		SessionCookie:      getEnv("SESSION_COOKIE", "storefront_session"),

		BackendURL:         getEnv("BACKEND_URL", "http://localhost:5000/api"),
		BreakerMaxFailures: uint32(getEnvInt64("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", "memory")),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "storefront.db"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        int(getEnvInt64("DB_PORT", 5432)),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "storefront"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "storefront"),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront-orders"),

		ShippingCountry:       getEnv("SHIPPING_COUNTRY", "UK"),
		FreeShippingThreshold: getEnvDecimal("FREE_SHIPPING_THRESHOLD", "50.00"),
		FlatShippingFee:       getEnvDecimal("FLAT_SHIPPING_FEE", "5.00"),
		TaxRate:               getEnvDecimal("TAX_RATE", "0.20"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvDecimal(key, def string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			return d
		}
	}
	return decimal.RequireFromString(def)
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
