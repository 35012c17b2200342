package config

import (
	"fmt"
	"strings"
	"time"

	"story-server/internal/utils"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Story store backends.
const (
	StoreBackendFile     = "file"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

// Config holds the story server configuration.
type Config struct {
	Env      string `envconfig:"ENV" default:"development"`
	Host     string `envconfig:"HTTP_SERVER_HOST" default:"0.0.0.0"`
	Port     string `envconfig:"HTTP_SERVER_PORT" default:"5000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// json or console
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	// Comma separated zap sinks: stdout, stderr or file paths
	LogOutput string `envconfig:"LOG_OUTPUT" default:"stdout"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// On-disk documents
	ConfigsDir        string `envconfig:"CONFIGS_DIR" default:"./configs"`
	PromptsDir        string `envconfig:"PROMPTS_DIR" default:"./prompts"`
	DefaultConfigName string `envconfig:"DEFAULT_CONFIG_NAME" default:"default"`
	DefaultPromptName string `envconfig:"DEFAULT_PROMPT_NAME" default:"default"`
	EnumsPath         string `envconfig:"ENUMS_PATH" default:"./enums.yaml"`
	TaxonomiesPath    string `envconfig:"TAXONOMIES_PATH" default:"./taxonomies.json"`
	ReferenceDBPath   string `envconfig:"REFERENCE_DB_PATH" default:"./db.json"`
	SavedStoriesPath  string `envconfig:"SAVED_STORIES_PATH" default:"./saved_stories.json"`

	// Default provider call timeout, overridable per config with model_parameters.timeout
	AITimeout time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`

	StoreBackend string `envconfig:"STORY_STORE_BACKEND" default:"file"`

	// Redis story store
	RedisAddr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB           int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix    string `envconfig:"REDIS_KEY_PREFIX" default:"stories"`
	RedisPasswordFile string `envconfig:"REDIS_PASSWORD_FILE"`
	RedisPassword     string `ignored:"true"`

	// PostgreSQL story store
	DBHost         string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort         string        `envconfig:"DB_PORT" default:"5432"`
	DBUser         string        `envconfig:"DB_USER" default:"postgres"`
	DBName         string        `envconfig:"DB_NAME" default:"stories"`
	DBSSLMode      string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns     int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout  time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"5m"`
	DBPasswordFile string        `envconfig:"DB_PASSWORD_FILE"`
	DBPassword     string        `ignored:"true"`

	// Story events; publishing is disabled when the URL is empty
	RabbitMQURL      string `envconfig:"RABBITMQ_URL"`
	StoryEventsQueue string `envconfig:"STORY_EVENTS_QUEUE" default:"story_events"`

	// Startup connection retries for Redis, PostgreSQL and RabbitMQ
	ConnectMaxAttempts uint          `envconfig:"CONNECT_MAX_ATTEMPTS" default:"10"`
	ConnectRetryDelay  time.Duration `envconfig:"CONNECT_RETRY_DELAY" default:"3s"`
}

// LoadConfig reads the configuration from the environment and secret files.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	switch cfg.StoreBackend {
	case StoreBackendFile, StoreBackendRedis, StoreBackendPostgres:
	default:
		return nil, fmt.Errorf("unsupported STORY_STORE_BACKEND %q", cfg.StoreBackend)
	}

	var err error
	if cfg.StoreBackend == StoreBackendRedis {
		if cfg.RedisPassword, err = utils.ReadOptionalSecret(cfg.RedisPasswordFile); err != nil {
			return nil, err
		}
	}
	if cfg.StoreBackend == StoreBackendPostgres {
		if cfg.DBPassword, err = utils.ReadOptionalSecret(cfg.DBPasswordFile); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetMaskedDSN returns the DSN with the password hidden, for logging.
func (c *Config) GetMaskedDSN() string {
	return fmt.Sprintf("postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetAllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) GetAllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// ListenAddr is the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.Host + ":" + c.Port
}

// Log writes the effective configuration without secrets.
func (c *Config) Log(logger *zap.Logger) {
	fields := []zap.Field{
		zap.String("env", c.Env),
		zap.String("listen", c.ListenAddr()),
		zap.String("logLevel", c.LogLevel),
		zap.String("logOutput", c.LogOutput),
		zap.String("configsDir", c.ConfigsDir),
		zap.String("promptsDir", c.PromptsDir),
		zap.String("defaultConfig", c.DefaultConfigName),
		zap.String("defaultPrompt", c.DefaultPromptName),
		zap.Duration("aiTimeout", c.AITimeout),
		zap.String("storeBackend", c.StoreBackend),
		zap.Bool("storyEvents", c.RabbitMQURL != ""),
	}
	switch c.StoreBackend {
	case StoreBackendFile:
		fields = append(fields, zap.String("savedStoriesPath", c.SavedStoriesPath))
	case StoreBackendRedis:
		fields = append(fields, zap.String("redisAddr", c.RedisAddr), zap.Int("redisDB", c.RedisDB))
	case StoreBackendPostgres:
		fields = append(fields, zap.String("dsn", c.GetMaskedDSN()))
	}
	logger.Info("Configuration loaded", fields...)
}
