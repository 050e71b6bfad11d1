package di

import (
	"context"
	"testing"

	vo "graphstore/domain/core/valueobjects"
	"graphstore/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(backend string) *config.Config {
	cfg := config.Defaults()
	cfg.LogLevel = "error"
	cfg.StorageBackend = backend
	cfg.Badger.InMemory = true
	cfg.Badger.GCInterval = 0
	cfg.Metrics.Enabled = true
	return cfg
}

func TestInitializeContainer(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			// Arrange
			ctx := context.Background()
			container, cleanup, err := InitializeContainer(ctx, testConfig(backend))
			require.NoError(t, err)
			defer cleanup()

			// Act
			_, err = container.Registry.RegisterClass(ctx, "Person", "", nil, "")
			require.NoError(t, err)
			alice, err := container.Store.CreateNode(ctx, "Person", "Alice", vo.Attributes{"age": vo.Int(30)})
			require.NoError(t, err)
			bob, err := container.Store.CreateNode(ctx, "Person", "Bob", nil)
			require.NoError(t, err)
			_, err = container.Store.CreateEdge(ctx, alice.ID(), bob.ID(), "knows", nil)
			require.NoError(t, err)

			// Assert
			paths, err := container.Query.FindPaths(ctx, alice.ID(), bob.ID(), 3)
			require.NoError(t, err)
			assert.Len(t, paths, 1)

			connected, err := container.Filter.GetConnectedNodes(ctx, bob.ID(), nil, nil)
			require.NoError(t, err)
			require.Len(t, connected, 1)
			assert.Equal(t, alice.ID(), connected[0].ID())

			assert.NotNil(t, container.Metrics.Registry())
			assert.Equal(t, "ok", container.Store.Health(ctx).Status)
		})
	}
}

func TestProvideStorage_UnknownBackend(t *testing.T) {
	cfg := testConfig("sqlite")

	_, _, err := ProvideStorage(cfg, nil, zap.NewNop())
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestProvideLogger_RejectsBadLevel(t *testing.T) {
	cfg := testConfig(config.BackendMemory)
	cfg.LogLevel = "loud"

	_, _, err := ProvideLogger(cfg)
	assert.Error(t, err)
}

func TestOptionalProvidersDisabled(t *testing.T) {
	cfg := testConfig(config.BackendMemory)
	cfg.Metrics.Enabled = false

	assert.Nil(t, ProvideMetrics(cfg))
	assert.Nil(t, ProvideEventPublisher(cfg, nil, zap.NewNop()))

	tracer, cleanup, err := ProvideTracer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, tracer)
}
