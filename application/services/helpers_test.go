package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"graphstore/domain/config"
	"graphstore/domain/core/entities"
	vo "graphstore/domain/core/valueobjects"
	"graphstore/domain/events"
	"graphstore/infrastructure/persistence/memory"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// writeFault makes every write of a repository return err until cleared
type writeFault struct {
	mu  sync.RWMutex
	err error
}

func (f *writeFault) FailWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *writeFault) writeErr() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

type faultySchemaRepository struct {
	writeFault
	*memory.SchemaRepository
}

func (r *faultySchemaRepository) Save(ctx context.Context, schema *entities.ClassSchema) error {
	if err := r.writeErr(); err != nil {
		return err
	}
	return r.SchemaRepository.Save(ctx, schema)
}

type faultyNodeRepository struct {
	writeFault
	*memory.NodeRepository
}

func (r *faultyNodeRepository) Save(ctx context.Context, node *entities.Node) error {
	if err := r.writeErr(); err != nil {
		return err
	}
	return r.NodeRepository.Save(ctx, node)
}

func (r *faultyNodeRepository) Delete(ctx context.Context, id vo.NodeID) error {
	if err := r.writeErr(); err != nil {
		return err
	}
	return r.NodeRepository.Delete(ctx, id)
}

type faultyEdgeRepository struct {
	writeFault
	*memory.EdgeRepository
}

func (r *faultyEdgeRepository) Save(ctx context.Context, edge *entities.Edge) error {
	if err := r.writeErr(); err != nil {
		return err
	}
	return r.EdgeRepository.Save(ctx, edge)
}

func (r *faultyEdgeRepository) Delete(ctx context.Context, id vo.EdgeID) error {
	if err := r.writeErr(); err != nil {
		return err
	}
	return r.EdgeRepository.Delete(ctx, id)
}

type testBackend struct {
	schemas *faultySchemaRepository
	nodes   *faultyNodeRepository
	edges   *faultyEdgeRepository
}

func newTestBackend() *testBackend {
	return &testBackend{
		schemas: &faultySchemaRepository{SchemaRepository: memory.NewSchemaRepository()},
		nodes:   &faultyNodeRepository{NodeRepository: memory.NewNodeRepository()},
		edges:   &faultyEdgeRepository{EdgeRepository: memory.NewEdgeRepository()},
	}
}

func (b *testBackend) open(t *testing.T) (*SchemaRegistry, *GraphStore) {
	t.Helper()
	ctx := context.Background()
	cfg := config.DefaultDomainConfig()

	registry, err := NewSchemaRegistry(ctx, b.schemas, nil, cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	store, err := NewGraphStore(ctx, registry, b.nodes, b.edges, nil, cfg, zap.NewNop(), nil, nil)
	require.NoError(t, err)
	store.now = tickingClock()
	return registry, store
}

// tickingClock advances one millisecond per call so creation order survives a reload
func tickingClock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Millisecond)
		return current
	}
}

func newTestStore(t *testing.T) (*SchemaRegistry, *GraphStore) {
	t.Helper()
	return newTestBackend().open(t)
}
