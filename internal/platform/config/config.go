// Package config loads server configuration from defaults, an optional YAML
// file and BADGEISSUER_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for every environment variable read by Load.
const EnvPrefix = "badgeissuer"

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
)

// Config is the complete server configuration.
type Config struct {
	Addr            string        `yaml:"addr"            envconfig:"ADDR"`
	LogLevel        string        `yaml:"logLevel"        envconfig:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`

	// AdminTokenHash is the bcrypt hash of the operator token guarding
	// component setup and proof issuance.
	AdminTokenHash  string        `yaml:"adminTokenHash"  envconfig:"ADMIN_TOKEN_HASH"`
	ProofSigningKey string        `yaml:"proofSigningKey" envconfig:"PROOF_SIGNING_KEY"`
	ProofTTL        time.Duration `yaml:"proofTTL"        envconfig:"PROOF_TTL"`

	RegistryBackend   string        `yaml:"registryBackend"   envconfig:"REGISTRY_BACKEND"`
	ComponentBackend  string        `yaml:"componentBackend"  envconfig:"COMPONENT_BACKEND"`
	ComponentCacheTTL time.Duration `yaml:"componentCacheTTL" envconfig:"COMPONENT_CACHE_TTL"`
	SQLitePath        string        `yaml:"sqlitePath"        envconfig:"SQLITE_PATH"`
	AuditBuffer       int           `yaml:"auditBuffer"       envconfig:"AUDIT_BUFFER"`

	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Tracing   TracingConfig   `yaml:"tracing"`
	RateLimit RateLimitConfig `yaml:"rateLimit" envconfig:"RATE_LIMIT"`
}

// PostgresConfig configures the shared *sql.DB pool.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"             envconfig:"DSN"`
	MaxOpenConns    int           `yaml:"maxOpenConns"    envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"maxIdleConns"    envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" envconfig:"CONN_MAX_LIFETIME"`
}

// RedisConfig configures the Redis registry store client.
type RedisConfig struct {
	URL          string        `yaml:"url"          envconfig:"URL"`
	PoolSize     int           `yaml:"poolSize"     envconfig:"POOL_SIZE"`
	MinIdleConns int           `yaml:"minIdleConns" envconfig:"MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `yaml:"dialTimeout"  envconfig:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"readTimeout"  envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"WRITE_TIMEOUT"`
}

// KafkaConfig configures the audit sink. An empty broker list disables it.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"           envconfig:"BROKERS"`
	Topic             string   `yaml:"topic"             envconfig:"TOPIC"`
	Partitions        int32    `yaml:"partitions"        envconfig:"PARTITIONS"`
	ReplicationFactor int16    `yaml:"replicationFactor" envconfig:"REPLICATION_FACTOR"`
}

// RateLimitConfig bounds badge claims per caller. Backend is "memory" or
// "redis"; the redis backend shares counters across replicas.
type RateLimitConfig struct {
	Enabled    bool          `yaml:"enabled"    envconfig:"ENABLED"`
	Backend    string        `yaml:"backend"    envconfig:"BACKEND"`
	ClaimLimit int           `yaml:"claimLimit" envconfig:"CLAIM_LIMIT"`
	Window     time.Duration `yaml:"window"     envconfig:"WINDOW"`
}

// TracingConfig configures OpenTelemetry export. Exporter is "stdout" or "otlp".
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"      envconfig:"ENABLED"`
	Exporter     string `yaml:"exporter"     envconfig:"EXPORTER"`
	OTLPEndpoint string `yaml:"otlpEndpoint" envconfig:"OTLP_ENDPOINT"`
	ServiceName  string `yaml:"serviceName"  envconfig:"SERVICE_NAME"`
}

// Default returns the configuration used for local development.
func Default() *Config {
	return &Config{
		Addr:              ":8080",
		LogLevel:          "info",
		ShutdownTimeout:   30 * time.Second,
		ProofSigningKey:   "dev-proof-key-change-in-production",
		ProofTTL:          time.Hour,
		RegistryBackend:   BackendMemory,
		ComponentBackend:  BackendMemory,
		ComponentCacheTTL: 10 * time.Minute,
		SQLitePath:        "badgeissuer.db",
		AuditBuffer:       1024,
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:             "badgeissuer.audit",
			Partitions:        3,
			ReplicationFactor: 1,
		},
		Tracing: TracingConfig{
			Exporter:     "stdout",
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "badgeissuer",
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			Backend:    BackendMemory,
			ClaimLimit: 30,
			Window:     time.Minute,
		},
	}
}

// Load builds the configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if !slices.Contains([]string{BackendMemory, BackendPostgres, BackendRedis}, c.RegistryBackend) {
		errs = append(errs, fmt.Errorf("unknown registry backend %q", c.RegistryBackend))
	}
	if !slices.Contains([]string{BackendMemory, BackendPostgres, BackendSQLite}, c.ComponentBackend) {
		errs = append(errs, fmt.Errorf("unknown component backend %q", c.ComponentBackend))
	}
	if (c.RegistryBackend == BackendPostgres || c.ComponentBackend == BackendPostgres) && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required for the postgres backend"))
	}
	if (c.RegistryBackend == BackendRedis || c.RateLimit.Backend == BackendRedis) && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required for the redis backend"))
	}
	if c.RateLimit.Enabled {
		if !slices.Contains([]string{BackendMemory, BackendRedis}, c.RateLimit.Backend) {
			errs = append(errs, fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend))
		}
		if c.RateLimit.ClaimLimit <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("rateLimit.claimLimit and rateLimit.window must be positive"))
		}
	}
	if c.ComponentBackend == BackendSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		errs = append(errs, errors.New("sqlitePath is required for the sqlite backend"))
	}
	if len(c.ProofSigningKey) < 16 {
		errs = append(errs, errors.New("proofSigningKey must be at least 16 bytes"))
	}
	if c.ProofTTL <= 0 {
		errs = append(errs, errors.New("proofTTL must be positive"))
	}
	return errors.Join(errs...)
}

// RedisEnabled reports whether any component needs the Redis client.
func (c *Config) RedisEnabled() bool {
	return c.RegistryBackend == BackendRedis || (c.RateLimit.Enabled && c.RateLimit.Backend == BackendRedis)
}

// KafkaEnabled reports whether the Kafka audit sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
