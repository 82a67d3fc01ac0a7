package config // package config loads application configuration from environment variables

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; defaults are applied for everything that can run
// locally without external credentials.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"local"` // application environment (local, dev, prod)
	Port string `env:"APP_PORT" envDefault:"8080"` // HTTP port to listen on

	DBUser string `env:"DB_USER" envDefault:"app"`
	DBPass string `env:"DB_PASS"` // empty allowed
	DBHost string `env:"DB_HOST" envDefault:"localhost"`
	DBPort string `env:"DB_PORT" envDefault:"3306"`
	DBName string `env:"DB_NAME" envDefault:"domains"`

	// JWTSecret verifies bearer tokens issued by the external auth backend.
	JWTSecret      string   `env:"JWT_SECRET,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// RabbitMQURL enables durable webhook processing.  When empty, verified
	// events are processed by an in-process background dispatcher.
	RabbitMQURL string `env:"RABBITMQ_URL"`

	HostingAPIURL    string `env:"HOSTING_API_URL" envDefault:"https://api.vercel.com/v10"`
	HostingAPIToken  string `env:"HOSTING_API_TOKEN"`
	HostingProjectID string `env:"HOSTING_PROJECT_ID"`
	HostingTeamID    string `env:"HOSTING_TEAM_ID"`

	EmailAPIURL string `env:"EMAIL_API_URL" envDefault:"https://api.postmarkapp.com"`
	EmailAPIKey string `env:"EMAIL_API_KEY"`
	EmailFrom   string `env:"EMAIL_FROM" envDefault:"offers@example.com"`

	RegistrarAPIURL string `env:"REGISTRAR_API_URL"`
	RegistrarAPIKey string `env:"REGISTRAR_API_KEY"`

	StripeSecretKey     string            `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string            `env:"STRIPE_WEBHOOK_SECRET"`
	StripePriceTiers    map[string]string `env:"STRIPE_PRICE_TIERS" envSeparator:"," envKeyValSeparator:":"`

	WebhookMaxAttempts   int           `env:"WEBHOOK_MAX_ATTEMPTS" envDefault:"3"`
	WebhookRetryInterval time.Duration `env:"WEBHOOK_RETRY_INTERVAL" envDefault:"500ms"`
	OnboardingLockTTL    time.Duration `env:"ONBOARDING_LOCK_TTL" envDefault:"30s"`
	ExternalTimeout      time.Duration `env:"EXTERNAL_TIMEOUT" envDefault:"10s"`
}

// Load reads a .env file when present and parses the environment into a
// Config.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.WebhookMaxAttempts < 1 {
		cfg.WebhookMaxAttempts = 1
	}
	return cfg, nil
}

// MustLoad is like Load but exits the process when the configuration is
// invalid or a required variable is missing.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
