package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Broker       BrokerConfig
	Assistant    AssistantConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	SettingsKey string
	// TimeoutMs bounds dialing and each settings read or write.
	TimeoutMs int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds email addressing.
type NotificationConfig struct {
	EmailFrom       string
	EscalationEmail string
}

// BrokerConfig points at the AMQP broker consumed by the external mailer. An empty URL
// switches email dispatch to log-only mode.
type BrokerConfig struct {
	URL                string
	Exchange           string
	EmailRoutingKey    string
	Producer           string
	PublishMaxRetrySec int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "triage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			SettingsKey: getEnv("REDIS_SETTINGS_KEY", "assistant:settings"),
			TimeoutMs:   getEnvAsInt("REDIS_TIMEOUT_MS", 2000),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:       getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			EscalationEmail: getEnv("NOTIFY_ESCALATION_EMAIL", ""),
		},
		Broker: BrokerConfig{
			URL:                os.Getenv("AMQP_URL"),
			Exchange:           getEnv("AMQP_EXCHANGE", "notifications"),
			EmailRoutingKey:    getEnv("AMQP_EMAIL_ROUTING_KEY", "notifications.email.v1"),
			Producer:           getEnv("AMQP_PRODUCER", "triage-service"),
			PublishMaxRetrySec: getEnvAsInt("AMQP_PUBLISH_MAX_RETRY_SECONDS", 10),
		},
		Assistant: loadAssistant(),
	}

	return cfg, nil
}

func loadAssistant() AssistantConfig {
	def := DefaultAssistantConfig()
	a := AssistantConfig{
		Enabled:                  getEnvAsBool("ASSISTANT_ENABLED", def.Enabled),
		Name:                     getEnv("ASSISTANT_NAME", def.Name),
		KBThreshold:              getEnvAsInt("ASSISTANT_KB_THRESHOLD", def.KBThreshold),
		BusinessHoursStart:       getEnvAsInt("ASSISTANT_BUSINESS_HOURS_START", def.BusinessHoursStart),
		BusinessHoursEnd:         getEnvAsInt("ASSISTANT_BUSINESS_HOURS_END", def.BusinessHoursEnd),
		ReminderDelayHours:       getEnvAsInt("ASSISTANT_REMINDER_DELAY_HOURS", def.ReminderDelayHours),
		AutoCloseDays:            getEnvAsInt("ASSISTANT_AUTO_CLOSE_DAYS", def.AutoCloseDays),
		ResponseDelayMeanMs:      getEnvAsInt("ASSISTANT_RESPONSE_DELAY_MEAN_MS", def.ResponseDelayMeanMs),
		ResponseDelayVariationMs: getEnvAsInt("ASSISTANT_RESPONSE_DELAY_VARIATION_MS", def.ResponseDelayVariationMs),
		KBBaseURL:                getEnv("ASSISTANT_KB_BASE_URL", def.KBBaseURL),
		FollowupIntervalMinutes:  getEnvAsInt("ASSISTANT_FOLLOWUP_INTERVAL_MINUTES", def.FollowupIntervalMinutes),
		MaxConcurrency:           getEnvAsInt("ASSISTANT_MAX_CONCURRENCY", def.MaxConcurrency),
		PipelineTimeoutSeconds:   getEnvAsInt("ASSISTANT_PIPELINE_TIMEOUT_SECONDS", def.PipelineTimeoutSeconds),
	}
	return a.Normalize()
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
