// Package config loads service configuration from the environment so main
// stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Schemes  SchemesConfig
	CRMs     CRMsConfig

	// SecretKey is the base64-encoded 32-byte key used to seal credential
	// secrets at rest.
	SecretKey string `env:"DEPOSITGATE_SECRET_KEY,notEmpty"`

	// JWTSigningKey verifies bearer tokens issued by the platform's auth
	// service.
	JWTSigningKey string `env:"DEPOSITGATE_JWT_SIGNING_KEY,notEmpty"`

	// TenancyBaseURL is the platform's internal tenancy read API.
	TenancyBaseURL string `env:"DEPOSITGATE_TENANCY_URL" envDefault:"http://tenancy.internal:8080"`

	LogLevel string `env:"DEPOSITGATE_LOG_LEVEL" envDefault:"info"`
}

type ServerConfig struct {
	Addr            string        `env:"DEPOSITGATE_ADDR" envDefault:":8080"`
	RequestTimeout  time.Duration `env:"DEPOSITGATE_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"DEPOSITGATE_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type PostgresConfig struct {
	DSN string `env:"DEPOSITGATE_POSTGRES_DSN,notEmpty"`
}

type RedisConfig struct {
	// URL is optional; an empty value disables the verify cache.
	URL          string        `env:"DEPOSITGATE_REDIS_URL"`
	PoolSize     int           `env:"DEPOSITGATE_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"DEPOSITGATE_REDIS_MIN_IDLE" envDefault:"2"`
	DialTimeout  time.Duration `env:"DEPOSITGATE_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"DEPOSITGATE_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"DEPOSITGATE_REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// VerifyTTL bounds how long a successful credential verification is
	// trusted without re-checking against the scheme.
	VerifyTTL time.Duration `env:"DEPOSITGATE_REDIS_VERIFY_TTL" envDefault:"15m"`
}

type KafkaConfig struct {
	// Brokers is optional; an empty value disables audit publishing.
	Brokers    []string `env:"DEPOSITGATE_KAFKA_BROKERS"`
	AuditTopic string   `env:"DEPOSITGATE_KAFKA_AUDIT_TOPIC" envDefault:"depositgate.audit"`
}

// SchemesConfig carries the per-scheme endpoints. Defaults point at the
// providers' production hosts.
type SchemesConfig struct {
	DPSBaseURL        string        `env:"DEPOSITGATE_DPS_URL" envDefault:"https://api.depositprotection.com"`
	MyDepositsBaseURL string        `env:"DEPOSITGATE_MYDEPOSITS_URL" envDefault:"https://api.mydeposits.co.uk"`
	TDSBaseURL        string        `env:"DEPOSITGATE_TDS_URL" envDefault:"https://api.tenancydepositscheme.com"`
	CallTimeout       time.Duration `env:"DEPOSITGATE_SCHEME_TIMEOUT" envDefault:"30s"`
}

// CRMsConfig carries the per-CRM endpoints for crm-mode registrations.
type CRMsConfig struct {
	PropertyFileBaseURL string `env:"DEPOSITGATE_PROPERTYFILE_URL" envDefault:"https://api.propertyfile.co.uk"`
	FixfloBaseURL       string `env:"DEPOSITGATE_FIXFLO_URL" envDefault:"https://api.fixflo.com"`
	ReapitBaseURL       string `env:"DEPOSITGATE_REAPIT_URL" envDefault:"https://platform.reapit.cloud"`
	JupixBaseURL        string `env:"DEPOSITGATE_JUPIX_URL" envDefault:"https://api.jupix.co.uk"`
}

// Load parses the full configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
