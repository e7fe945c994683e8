package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"` // mysql | postgres | sqlite
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	SQLitePath             string `env:"SQLITE_PATH" envDefault:"market.db"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile   string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	StorageBucket string `env:"STORAGE_BUCKET"`
	MediaRoot     string `env:"MEDIA_ROOT" envDefault:"media"`
	MediaBaseURL  string `env:"MEDIA_BASE_URL" envDefault:"/media"`

	RedisURL string `env:"REDIS_URL"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"10"`

	NotificationRetention     time.Duration `env:"NOTIFICATION_RETENTION" envDefault:"720h"`
	NotificationPruneSchedule string        `env:"NOTIFICATION_PRUNE_SCHEDULE" envDefault:"@daily"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "postgres":
		if c.DBUser == "" || c.DBHost == "" || c.DBName == "" {
			return errors.New("DB_USER, DB_HOST and DB_NAME are required for " + c.DBDriver)
		}
	case "sqlite":
	default:
		return errors.New("unsupported DB_DRIVER: " + c.DBDriver)
	}
	if c.IsProduction() && c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
