package config

import (
	"strings"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"5001"`
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	BackendURL string   `env:"BACKEND_URL,required,notEmpty"`
	CORSOrigin []string `env:"CORS_ORIGIN" envSeparator:","`

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"` // mysql | postgres
	DBUser     string `env:"DB_USER,required,notEmpty"`
	DBPassword string `env:"DB_PASSWORD,required,notEmpty"`
	DBHost     string `env:"DB_HOST,required,notEmpty"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName     string `env:"DB_NAME,required,notEmpty"`
	DBPort     string `env:"DB_PORT"`

	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	AuthProvider      string `env:"AUTH_PROVIDER" envDefault:"jwt"` // jwt | firebase
	JWTSecret         string `env:"JWT_SECRET,required,notEmpty"`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	RequireSubscription bool   `env:"REQUIRE_SUBSCRIPTION" envDefault:"false"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	StorageBucket string `env:"STORAGE_BUCKET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if cfg.DBPort == "" {
		if cfg.DBDriver == "postgres" {
			cfg.DBPort = "5432"
		} else {
			cfg.DBPort = "3306"
		}
	}
	return &cfg, nil
}
