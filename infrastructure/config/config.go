package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	domainconfig "graphstore/domain/config"
	pkgerrors "graphstore/pkg/errors"
	"graphstore/pkg/resilience"
	"graphstore/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendDynamoDB = "dynamodb"
)

// BadgerConfig holds settings for the embedded backend
type BadgerConfig struct {
	Path       string        `yaml:"path"`
	InMemory   bool          `yaml:"in_memory"`
	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

// DynamoDBConfig holds settings for the DynamoDB backend
type DynamoDBConfig struct {
	Table  string `yaml:"table"`
	Region string `yaml:"region"`
}

// EventsConfig holds settings for domain event publishing
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	BusName string `yaml:"bus_name"`
}

// MetricsConfig holds settings for the prometheus collector
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required"`
}

// CircuitBreakerConfig holds settings shared by the remote backends
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" validate:"gte=1"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment" validate:"oneof=development staging production"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Storage
	StorageBackend string         `yaml:"storage_backend" validate:"oneof=memory badger dynamodb"`
	Badger         BadgerConfig   `yaml:"badger"`
	DynamoDB       DynamoDBConfig `yaml:"dynamodb"`

	// Events and observability
	Events         EventsConfig         `yaml:"events"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	EnableTracing  bool                 `yaml:"enable_tracing"`
	TracingURL     string               `yaml:"tracing_endpoint"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	// TraversalTimeout overrides the environment's default when positive
	TraversalTimeout time.Duration `yaml:"traversal_timeout" validate:"gte=0"`

	// SchemaSeedFile is a YAML list of classes registered at startup
	SchemaSeedFile string `yaml:"schema_seed_file"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Environment:    "development",
		LogLevel:       "info",
		StorageBackend: BackendBadger,
		Badger: BadgerConfig{
			Path:       "./data/graphstore",
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		DynamoDB: DynamoDBConfig{
			Table:  "graphstore",
			Region: "us-west-2",
		},
		Events: EventsConfig{
			BusName: "graphstore-events",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "graphstore",
		},
		TracingURL: "localhost:4317",
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by GRAPHSTORE_CONFIG_FILE, and environment variables, in that order
// of increasing priority.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("GRAPHSTORE_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.overlayEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.Badger.Path = getEnv("BADGER_PATH", c.Badger.Path)
	c.Badger.InMemory = getEnvBool("BADGER_IN_MEMORY", c.Badger.InMemory)
	c.Badger.SyncWrites = getEnvBool("BADGER_SYNC_WRITES", c.Badger.SyncWrites)
	c.Badger.GCInterval = getEnvDuration("BADGER_GC_INTERVAL", c.Badger.GCInterval)
	c.DynamoDB.Table = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDB.Table))
	c.DynamoDB.Region = getEnv("AWS_REGION", c.DynamoDB.Region)

	c.Events.Enabled = getEnvBool("ENABLE_EVENTS", c.Events.Enabled)
	c.Events.BusName = getEnv("EVENT_BUS_NAME", c.Events.BusName)
	c.Metrics.Enabled = getEnvBool("ENABLE_METRICS", c.Metrics.Enabled)
	c.Metrics.Namespace = getEnv("METRICS_NAMESPACE", c.Metrics.Namespace)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.TracingURL = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.TracingURL)

	c.CircuitBreaker.MaxRequests = getEnvUint32("CB_MAX_REQUESTS", c.CircuitBreaker.MaxRequests)
	c.CircuitBreaker.Interval = getEnvDuration("CB_INTERVAL", c.CircuitBreaker.Interval)
	c.CircuitBreaker.Timeout = getEnvDuration("CB_TIMEOUT", c.CircuitBreaker.Timeout)
	c.CircuitBreaker.FailureThreshold = getEnvFloat("CB_FAILURE_THRESHOLD", c.CircuitBreaker.FailureThreshold)
	c.CircuitBreaker.MinRequests = getEnvUint32("CB_MIN_REQUESTS", c.CircuitBreaker.MinRequests)

	c.TraversalTimeout = getEnvDuration("TRAVERSAL_TIMEOUT", c.TraversalTimeout)
	c.SchemaSeedFile = getEnv("SCHEMA_SEED_FILE", c.SchemaSeedFile)
}

// Validate checks tag rules and the cross-field requirements
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	problems := pkgerrors.NewValidationErrors()
	switch c.StorageBackend {
	case BackendBadger:
		if !c.Badger.InMemory && c.Badger.Path == "" {
			problems.Add("badger.path", "BADGER_PATH is required unless BADGER_IN_MEMORY is set")
		}
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			problems.Add("dynamodb.table", "DYNAMODB_TABLE is required for the dynamodb backend")
		}
	}
	if c.Events.Enabled && c.Events.BusName == "" {
		problems.Add("events.bus_name", "EVENT_BUS_NAME is required when events are enabled")
	}
	if c.EnableTracing && c.TracingURL == "" {
		problems.Add("tracing_url", "OTEL_EXPORTER_OTLP_ENDPOINT is required when tracing is enabled")
	}
	if c.IsProduction() && c.StorageBackend == BackendMemory {
		problems.Add("storage_backend", "the memory backend is not durable and cannot run in production")
	}
	return problems.ErrorOrNil()
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DomainConfig returns the domain constants for the environment with the
// traversal timeout override applied.
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	dc := domainconfig.LoadDomainConfig(c.Environment)
	if c.TraversalTimeout > 0 {
		dc.TraversalTimeout = c.TraversalTimeout
	}
	return dc
}

// BreakerConfig returns the circuit breaker settings for a named backend
func (c *Config) BreakerConfig(name string) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      c.CircuitBreaker.MaxRequests,
		Interval:         c.CircuitBreaker.Interval,
		Timeout:          c.CircuitBreaker.Timeout,
		FailureThreshold: c.CircuitBreaker.FailureThreshold,
		MinRequests:      c.CircuitBreaker.MinRequests,
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvUint32 gets a counter environment variable with a default value.
// Negative or out of range values keep the default.
func getEnvUint32(key string, defaultValue uint32) uint32 {
	if value := os.Getenv(key); value != "" {
		if uintVal, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(uintVal)
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
