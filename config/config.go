package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Elastic   ElasticsearchConfig
	Tracing   TracingConfig
	Reconcile ReconcileConfig
}

type ServerConfig struct {
	AppEnv      string
	HTTPPort    string
	GRPCPort    string
	StoreDriver string // postgres | memory
	// RequestTimeout bounds each HTTP request and each gRPC call sent without a deadline.
	RequestTimeout time.Duration
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
	LockTimeout     time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Driver   string // redis | memory
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	Topic       string
	GroupID     string
	EventsTopic string
}

type ElasticsearchConfig struct {
	Enabled   bool
	Addresses []string
	Username  string
	Password  string
}

type TracingConfig struct {
	Endpoint    string
	URLPath     string
	Insecure    bool
	ServiceName string
}

type ReconcileConfig struct {
	Interval  time.Duration
	BatchSize int
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "dev"),
			HTTPPort:       getEnv("HTTP_PORT", ":3001"),
			GRPCPort:       getEnv("GRPC_PORT", ":8082"),
			StoreDriver:    getEnv("STORE_DRIVER", "postgres"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "smartcart"),
			Password:        getEnv("POSTGRES_PASSWORD", "smartcart"),
			DBName:          getEnv("POSTGRES_DB", "smartcart_products"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
			LockTimeout:     getEnvDuration("POSTGRES_LOCK_TIMEOUT", 5*time.Second),
			AutoMigrate:     getEnvBool("POSTGRES_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Driver:   getEnv("CACHE_DRIVER", "redis"),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: getEnvDuration("PRODUCT_CACHE_TTL", time.Hour),
		},
		Kafka: KafkaConfig{
			Enabled:     getEnvBool("KAFKA_ENABLED", false),
			Brokers:     getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:       getEnv("KAFKA_TOPIC_ORDERS", "orders.events"),
			GroupID:     getEnv("KAFKA_GROUP_INVENTORY", "product-service-inventory"),
			EventsTopic: getEnv("KAFKA_TOPIC_INVENTORY", "inventory.events"),
		},
		Elastic: ElasticsearchConfig{
			Enabled:   getEnvBool("ELASTICSEARCH_ENABLED", false),
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", []string{"http://localhost:9200"}),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			URLPath:     getEnv("OTEL_EXPORTER_OTLP_TRACES_PATH", ""),
			Insecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "product-service"),
		},
		Reconcile: ReconcileConfig{
			Interval:  getEnvDuration("RECONCILE_INTERVAL", 0),
			BatchSize: getEnvInt("RECONCILE_BATCH_SIZE", 100),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return fallback
}

// getEnvDuration accepts Go durations ("750ms", "2m") or whole seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
