package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "CLUBLEDGER"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv = "CLUBLEDGER_APP_ENV"
	EnvPort   = "CLUBLEDGER_APP_PORT"
	EnvDBDSN  = "CLUBLEDGER_DB_DSN"
	EnvDBHost = "CLUBLEDGER_DB_HOST"
	EnvDBUser = "CLUBLEDGER_DB_USER"
	EnvDBName = "CLUBLEDGER_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Billing      BillingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Billing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CLUBLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"CLUBLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CLUBLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CLUBLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CLUBLEDGER_DB_DSN"`
	Driver string `envconfig:"CLUBLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLUBLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"CLUBLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLUBLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"CLUBLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLUBLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLUBLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CLUBLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLUBLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLUBLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLUBLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// BillingConfig carries the venue-wide billing defaults used when a request
// does not override them.
type BillingConfig struct {
	DefaultServiceRate float64 `envconfig:"CLUBLEDGER_BILLING_SERVICE_RATE" default:"0.10"`
	DefaultTaxRate     float64 `envconfig:"CLUBLEDGER_BILLING_TAX_RATE" default:"0.10"`
	PercentEpsilon     float64 `envconfig:"CLUBLEDGER_BILLING_PERCENT_EPSILON" default:"0.01"`
}

func (b BillingConfig) validate() error {
	if b.DefaultServiceRate < 0 || b.DefaultServiceRate > 1 {
		return fmt.Errorf("%s must be within [0,1], got %v", "CLUBLEDGER_BILLING_SERVICE_RATE", b.DefaultServiceRate)
	}
	if b.DefaultTaxRate < 0 || b.DefaultTaxRate > 1 {
		return fmt.Errorf("%s must be within [0,1], got %v", "CLUBLEDGER_BILLING_TAX_RATE", b.DefaultTaxRate)
	}
	if b.PercentEpsilon < 0 || b.PercentEpsilon >= 1 {
		return fmt.Errorf("%s must be within [0,1), got %v", "CLUBLEDGER_BILLING_PERCENT_EPSILON", b.PercentEpsilon)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CLUBLEDGER_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
