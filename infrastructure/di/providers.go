package di

import (
	"context"
	"fmt"

	"graphstore/application/ports"
	"graphstore/application/queries"
	"graphstore/application/services"
	domainconfig "graphstore/domain/config"
	"graphstore/infrastructure/config"
	"graphstore/infrastructure/messaging/eventbridge"
	"graphstore/infrastructure/persistence/badger"
	"graphstore/infrastructure/persistence/dynamodb"
	"graphstore/infrastructure/persistence/memory"
	"graphstore/pkg/observability"
	"graphstore/pkg/resilience"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "graphstore"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = logger.Sync()
	}
	return logger.With(zap.String("service", serviceName)), cleanup, nil
}

// ProvideDomainConfig selects the domain constants for the environment
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideMetrics creates the prometheus collector, or nil when disabled
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideTracer installs the OTLP exporter when tracing is enabled. A nil
// tracer produces no spans.
func ProvideTracer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.Tracer, func(), error) {
	if !cfg.EnableTracing {
		return nil, func() {}, nil
	}

	tracer, shutdown, err := observability.InitTracing(ctx, serviceName, cfg.Environment, cfg.TracingURL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	return tracer, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration. Loading performs no network calls.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.DynamoDB.Region),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// Storage is the set of repositories of the configured backend
type Storage struct {
	Schemas ports.SchemaRepository
	Nodes   ports.NodeRepository
	Edges   ports.EdgeRepository
}

// ProvideStorage opens the configured backend
func ProvideStorage(
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
) (*Storage, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Warn("Using the memory backend; nothing survives a restart")
		return &Storage{
			Schemas: memory.NewSchemaRepository(),
			Nodes:   memory.NewNodeRepository(),
			Edges:   memory.NewEdgeRepository(),
		}, func() {}, nil

	case config.BackendBadger:
		badgerCfg := badger.DefaultConfig()
		badgerCfg.Path = cfg.Badger.Path
		badgerCfg.InMemory = cfg.Badger.InMemory
		badgerCfg.SyncWrites = cfg.Badger.SyncWrites
		badgerCfg.GCInterval = cfg.Badger.GCInterval
		badgerCfg.Logger = logger

		db, err := badger.OpenDB(badgerCfg)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close badger database", zap.Error(err))
			}
		}
		logger.Info("Opened badger backend",
			zap.String("path", cfg.Badger.Path),
			zap.Bool("inMemory", cfg.Badger.InMemory),
		)
		return &Storage{
			Schemas: badger.NewSchemaRepository(db, logger),
			Nodes:   badger.NewNodeRepository(db, logger),
			Edges:   badger.NewEdgeRepository(db, logger),
		}, cleanup, nil

	case config.BackendDynamoDB:
		breaker := resilience.NewCircuitBreaker(cfg.BreakerConfig("dynamodb"), logger)
		table := dynamodb.NewTable(client, cfg.DynamoDB.Table, breaker, logger)
		logger.Info("Using dynamodb backend", zap.String("table", cfg.DynamoDB.Table))
		return &Storage{
			Schemas: dynamodb.NewSchemaRepository(table),
			Nodes:   dynamodb.NewNodeRepository(table),
			Edges:   dynamodb.NewEdgeRepository(table),
		}, func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// ProvideSchemaRepository exposes the backend's schema repository
func ProvideSchemaRepository(s *Storage) ports.SchemaRepository {
	return s.Schemas
}

// ProvideNodeRepository exposes the backend's node repository
func ProvideNodeRepository(s *Storage) ports.NodeRepository {
	return s.Nodes
}

// ProvideEdgeRepository exposes the backend's edge repository
func ProvideEdgeRepository(s *Storage) ports.EdgeRepository {
	return s.Edges
}

// ProvideEventPublisher creates the EventBridge publisher, or nil when
// events are disabled
func ProvideEventPublisher(
	cfg *config.Config,
	client *awseventbridge.Client,
	logger *zap.Logger,
) ports.EventPublisher {
	if !cfg.Events.Enabled {
		return nil
	}
	breaker := resilience.NewCircuitBreaker(cfg.BreakerConfig("eventbridge"), logger)
	return eventbridge.NewPublisher(client, cfg.Events.BusName, breaker, logger)
}

// ProvideSchemaRegistry bootstraps the registry from storage
func ProvideSchemaRegistry(
	ctx context.Context,
	repo ports.SchemaRepository,
	publisher ports.EventPublisher,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
) (*services.SchemaRegistry, error) {
	return services.NewSchemaRegistry(ctx, repo, publisher, domainCfg, logger.Named("schema"), metrics)
}

// ProvideGraphStore loads the graph from storage
func ProvideGraphStore(
	ctx context.Context,
	registry *services.SchemaRegistry,
	nodeRepo ports.NodeRepository,
	edgeRepo ports.EdgeRepository,
	publisher ports.EventPublisher,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer *observability.Tracer,
) (*services.GraphStore, error) {
	return services.NewGraphStore(ctx, registry, nodeRepo, edgeRepo, publisher, domainCfg, logger.Named("store"), metrics, tracer)
}

// ProvideGraphFilter creates the filter engine over the store
func ProvideGraphFilter(
	store *services.GraphStore,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer *observability.Tracer,
) *queries.GraphFilter {
	return queries.NewGraphFilter(store, domainCfg, logger.Named("filter"), metrics, tracer)
}

// ProvideGraphQuery creates the query engine over the store
func ProvideGraphQuery(
	store *services.GraphStore,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer *observability.Tracer,
) *queries.GraphQuery {
	return queries.NewGraphQuery(store, domainCfg, logger.Named("query"), metrics, tracer)
}
