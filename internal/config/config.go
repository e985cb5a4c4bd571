package config // package config loads application configuration from environment variables

import (
	"errors"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable named in its env tag.  Required variables have no
// default and abort startup when missing.
type Config struct {
	Env            string `env:"APP_ENV,required"`               // application environment (dev/test/prod)
	Port           string `env:"APP_PORT,required"`              // HTTP port to listen on
	DBUser         string `env:"DB_USER,required"`               // database username
	DBPass         string `env:"DB_PASS"`                        // database password (optional)
	DBHost         string `env:"DB_HOST,required"`               // database host address
	DBPort         string `env:"DB_PORT,required"`               // database port number
	DBName         string `env:"DB_NAME,required"`               // database name
	DBMigrate      bool   `env:"DB_MIGRATE,default=true"`        // apply embedded migrations on startup
	JWTSecret      string `env:"JWT_SECRET,required"`            // secret used to sign JWTs
	AccessTTLMin   int    `env:"ACCESS_TOKEN_TTL_MIN,required"`  // access token time-to-live in minutes
	RefreshTTLDays int    `env:"REFRESH_TOKEN_TTL_DAYS,required"` // refresh token time-to-live in days
	BcryptCost     int    `env:"BCRYPT_COST,required"`           // bcrypt cost for password hashing

	// AllowEmptyOrders controls whether POST /v1/orders accepts an order
	// without tickets.
	AllowEmptyOrders bool `env:"ALLOW_EMPTY_ORDERS,default=true"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	// TokenCleanupSpec is the cron spec for purging dead refresh tokens.
	TokenCleanupSpec string `env:"TOKEN_CLEANUP_SPEC,default=@hourly"`
}

// LoadDotEnv reads a .env file into the process environment when one is
// present.  A missing file is not an error.
func LoadDotEnv(log logrus.FieldLogger, paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		log.WithError(err).Debug("no .env file loaded")
	}
}

// Load decodes Config from the environment.  Missing or malformed required
// variables are fatal.
func Load(log logrus.FieldLogger) Config {
	var cfg Config
	if err := decode(&cfg); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	return cfg
}

// decode wraps envdecode so that a struct whose variables all fall back to
// defaults is still accepted.
func decode(target interface{}) error {
	err := envdecode.Decode(target)
	if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil
	}
	return err
}
