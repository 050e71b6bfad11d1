package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	pkgerrors "graphstore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GRAPHSTORE_CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, BackendBadger, cfg.StorageBackend)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, time.Duration(0), cfg.DomainConfig().TraversalTimeout)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeFile(t, "graphstore.yaml", `
environment: production
storage_backend: dynamodb
dynamodb:
  table: graph-prod
events:
  enabled: true
  bus_name: graph-bus
traversal_timeout: 2s
circuit_breaker:
  max_requests: 3
  timeout: 10s
  failure_threshold: 0.5
`)
	t.Setenv("GRAPHSTORE_CONFIG_FILE", path)
	t.Setenv("EVENT_BUS_NAME", "override-bus")
	t.Setenv("CB_MIN_REQUESTS", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, BackendDynamoDB, cfg.StorageBackend)
	assert.Equal(t, "graph-prod", cfg.DynamoDB.Table)
	assert.Equal(t, "override-bus", cfg.Events.BusName)
	assert.Equal(t, 2*time.Second, cfg.DomainConfig().TraversalTimeout)

	breaker := cfg.BreakerConfig("dynamodb")
	assert.Equal(t, "dynamodb", breaker.Name)
	assert.Equal(t, uint32(3), breaker.MaxRequests)
	assert.Equal(t, uint32(7), breaker.MinRequests)
	assert.Equal(t, 0.5, breaker.FailureThreshold)
}

func TestLoadConfig_BreakerCountsRejectNegatives(t *testing.T) {
	t.Setenv("GRAPHSTORE_CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("STORAGE_BACKEND", "")
	defaults := Defaults().CircuitBreaker

	tests := []struct {
		name        string
		maxRequests string
		minRequests string
		wantMax     uint32
		wantMin     uint32
	}{
		{name: "negative", maxRequests: "-1", minRequests: "-1", wantMax: defaults.MaxRequests, wantMin: defaults.MinRequests},
		{name: "above uint32", maxRequests: "4294967296", minRequests: "99999999999", wantMax: defaults.MaxRequests, wantMin: defaults.MinRequests},
		{name: "not a number", maxRequests: "many", minRequests: "1.5", wantMax: defaults.MaxRequests, wantMin: defaults.MinRequests},
		{name: "valid", maxRequests: "4", minRequests: "12", wantMax: 4, wantMin: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CB_MAX_REQUESTS", tt.maxRequests)
			t.Setenv("CB_MIN_REQUESTS", tt.minRequests)

			cfg, err := LoadConfig()
			require.NoError(t, err)

			assert.Equal(t, tt.wantMax, cfg.CircuitBreaker.MaxRequests)
			assert.Equal(t, tt.wantMin, cfg.CircuitBreaker.MinRequests)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("GRAPHSTORE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.StorageBackend = "sqlite" },
			wantErr: "storagebackend must be one of",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "trace" },
			wantErr: "loglevel must be one of",
		},
		{
			name:    "badger without path",
			mutate:  func(c *Config) { c.Badger.Path = "" },
			wantErr: "BADGER_PATH is required",
		},
		{
			name: "badger in memory without path",
			mutate: func(c *Config) {
				c.Badger.Path = ""
				c.Badger.InMemory = true
			},
		},
		{
			name: "dynamodb without table",
			mutate: func(c *Config) {
				c.StorageBackend = BackendDynamoDB
				c.DynamoDB.Table = ""
			},
			wantErr: "DYNAMODB_TABLE is required",
		},
		{
			name: "events without bus",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.Events.BusName = ""
			},
			wantErr: "EVENT_BUS_NAME is required",
		},
		{
			name: "memory in production",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.StorageBackend = BackendMemory
			},
			wantErr: "cannot run in production",
		},
		{
			name:    "breaker threshold above one",
			mutate:  func(c *Config) { c.CircuitBreaker.FailureThreshold = 1.5 },
			wantErr: "failurethreshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.StorageBackend = BackendDynamoDB
	cfg.DynamoDB.Table = ""
	cfg.Events.Enabled = true
	cfg.Events.BusName = ""

	err := cfg.Validate()

	var problems *pkgerrors.ValidationErrors
	require.True(t, errors.As(err, &problems))
	require.Len(t, problems.Errors, 2)
	assert.Equal(t, "dynamodb.table", problems.Errors[0].Details["field"])
	assert.Equal(t, "events.bus_name", problems.Errors[1].Details["field"])
	assert.ErrorContains(t, err, "DYNAMODB_TABLE is required")
	assert.ErrorContains(t, err, "EVENT_BUS_NAME is required")
}

func TestLoadSchemaSeed(t *testing.T) {
	t.Run("keeps file order", func(t *testing.T) {
		path := writeFile(t, "seed.yaml", `
classes:
  - class_name: Person
    parent_class: Thing
    description: A human
    attributes:
      age: int
  - class_name: Employee
    parent_class: Person
  - class_name: Company
`)
		classes, err := LoadSchemaSeed(path)
		require.NoError(t, err)
		require.Len(t, classes, 3)

		assert.Equal(t, "Person", classes[0].ClassName)
		assert.Equal(t, "Thing", classes[0].ParentClass)
		assert.Equal(t, map[string]string{"age": "int"}, classes[0].Attributes)
		assert.Equal(t, "Employee", classes[1].ClassName)
		assert.Empty(t, classes[2].ParentClass)
		assert.NotNil(t, classes[2].Attributes)
	})

	t.Run("class without name", func(t *testing.T) {
		path := writeFile(t, "seed.yaml", "classes:\n  - parent_class: Thing\n")

		_, err := LoadSchemaSeed(path)
		assert.ErrorContains(t, err, "classname is required")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "seed.yaml", "classes: [\n")

		_, err := LoadSchemaSeed(path)
		assert.ErrorContains(t, err, "failed to parse schema seed")
	})
}
