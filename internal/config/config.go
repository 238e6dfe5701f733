package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c DBConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c DBConfig) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// ConsumerConfig holds the operator-tunable reliability knobs of the
// messaging layer: immediate retries, delayed redelivery schedule, prefetch
// bound, and the dead-letter switch.
type ConsumerConfig struct {
	GroupID             string
	MaxRetries          int
	RetryBaseInterval   time.Duration
	RedeliveryIntervals []time.Duration
	Prefetch            int
	DeadLetterEnabled   bool
	HandlerTimeout      time.Duration
}

type Config struct {
	ServiceName string
	HTTPPort    int

	DB             DBConfig
	MigrationsPath string

	KafkaURL string
	Consumer ConsumerConfig

	OutboxPollInterval     time.Duration
	OutboxPollTimeout      time.Duration
	RedeliveryPollInterval time.Duration

	RedisAddr      string
	CatalogBaseURL string

	NotificationChannels []string
}

// Load reads configuration for one service from the environment, applying
// sensible defaults. A local .env file is honored when present.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	prefix := strings.ToUpper(serviceName)

	cfg := &Config{
		ServiceName: serviceName,
		KafkaURL:    getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092"),
		DB: DBConfig{
			Host:     getEnvOrDefault(prefix+"_DB_HOST", "localhost"),
			Port:     getEnvOrDefault(prefix+"_DB_PORT", "5432"),
			User:     getEnvOrDefault(prefix+"_DB_USER", "postgres"),
			Password: getEnvOrDefault(prefix+"_DB_PASSWORD", "postgres"),
			Name:     getEnvOrDefault(prefix+"_DB_NAME", serviceName+"_db"),
			SSLMode:  getEnvOrDefault(prefix+"_DB_SSLMODE", "disable"),
		},
		MigrationsPath: getEnvOrDefault(prefix+"_MIGRATIONS_PATH", "file://migrations/"+serviceName),
		RedisAddr:      getEnvOrDefault("CART_REDIS_ADDR", "localhost:6379"),
		CatalogBaseURL: getEnvOrDefault("CATALOG_BASE_URL", "http://localhost:8082"),
	}

	var err error
	if cfg.HTTPPort, err = getEnvInt(prefix+"_HTTP_PORT", 8080); err != nil {
		return nil, err
	}

	if cfg.OutboxPollInterval, err = getEnvDuration("OUTBOX_POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.OutboxPollTimeout, err = getEnvDuration("OUTBOX_POLL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RedeliveryPollInterval, err = getEnvDuration("REDELIVERY_POLL_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}

	cfg.Consumer.GroupID = getEnvOrDefault("KAFKA_CONSUMER_GROUP", serviceName+"-service-group")
	if cfg.Consumer.MaxRetries, err = getEnvInt("CONSUMER_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.Consumer.RetryBaseInterval, err = getEnvDuration("CONSUMER_RETRY_BASE_INTERVAL", 1*time.Second); err != nil {
		return nil, err
	}
	if cfg.Consumer.RedeliveryIntervals, err = getEnvDurations("CONSUMER_REDELIVERY_INTERVALS", []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute}); err != nil {
		return nil, err
	}
	if cfg.Consumer.Prefetch, err = getEnvInt("CONSUMER_PREFETCH", 10); err != nil {
		return nil, err
	}
	if cfg.Consumer.HandlerTimeout, err = getEnvDuration("CONSUMER_HANDLER_TIMEOUT", 25*time.Second); err != nil {
		return nil, err
	}
	cfg.Consumer.DeadLetterEnabled = getEnvOrDefault("DEAD_LETTER_ENABLED", "true") == "true"

	channels := getEnvOrDefault("NOTIFICATION_CHANNELS", "email")
	for _, ch := range strings.Split(channels, ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			cfg.NotificationChannels = append(cfg.NotificationChannels, ch)
		}
	}

	return cfg, nil
}

func (c *Config) KafkaBrokers() []string {
	return strings.Split(c.KafkaURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvDurations(key string, defaultValue []time.Duration) ([]time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	var out []time.Duration
	for _, part := range strings.Split(value, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		out = append(out, d)
	}
	return out, nil
}
