package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"graphstore/application/ports"
	"graphstore/domain/config"
	"graphstore/domain/core/entities"
	vo "graphstore/domain/core/valueobjects"
	"graphstore/domain/events"
	pkgerrors "graphstore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mustNode(t *testing.T, s *GraphStore, className, name string, attrs vo.Attributes) *entities.Node {
	t.Helper()
	node, err := s.CreateNode(context.Background(), className, name, attrs)
	require.NoError(t, err)
	return node
}

func mustEdge(t *testing.T, s *GraphStore, from, to vo.NodeID, edgeType string) *entities.Edge {
	t.Helper()
	edge, err := s.CreateEdge(context.Background(), from, to, edgeType, nil)
	require.NoError(t, err)
	return edge
}

func nodeIDs(nodes []*entities.Node) []vo.NodeID {
	ids := make([]vo.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids
}

func TestGraphStore_CreateNode(t *testing.T) {
	_, store := newTestStore(t)

	node := mustNode(t, store, "Thing", "Alice", vo.Attributes{"age": vo.Int(30)})

	assert.Regexp(t, `^Thing:[0-9a-f]{16}$`, node.ID().String())
	assert.Equal(t, "Alice", node.Name())
	assert.Equal(t, node.CreatedAt(), node.UpdatedAt())

	got, ok := store.GetNode(node.ID())
	require.True(t, ok)
	assert.Equal(t, node, got)
}

func TestGraphStore_CreateNodeUnknownClass(t *testing.T) {
	backend := newTestBackend()
	_, store := backend.open(t)

	node, err := store.CreateNode(context.Background(), "Unicorn", "x", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrUnknownClass))
	assert.Nil(t, node)
	assert.Equal(t, 0, backend.nodes.Len())
	assert.Equal(t, 0, store.Stats().TotalNodes)
}

func TestGraphStore_ReturnedNodesAreCopies(t *testing.T) {
	_, store := newTestStore(t)
	node := mustNode(t, store, "Thing", "Alice", vo.Attributes{"age": vo.Int(30)})

	node.Rename("Mallory", node.UpdatedAt())
	attrs := node.Attributes()
	attrs["age"] = vo.Int(99)

	got, ok := store.GetNode(node.ID())
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Name())
	age, _ := got.Attribute("age")
	assert.Equal(t, vo.Int(30), age)
}

func TestGraphStore_UpdateNode(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()
	node := mustNode(t, store, "Thing", "Alice", vo.Attributes{"age": vo.Int(30), "city": vo.Text("Oslo")})

	t.Run("merges attributes and keeps name", func(t *testing.T) {
		updated, found, err := store.UpdateNode(ctx, node.ID(), NodeUpdate{
			Attributes: vo.Attributes{"age": vo.Int(31)},
		})

		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Alice", updated.Name())
		age, _ := updated.Attribute("age")
		city, _ := updated.Attribute("city")
		assert.Equal(t, vo.Int(31), age)
		assert.Equal(t, vo.Text("Oslo"), city)
		assert.False(t, updated.UpdatedAt().Before(node.UpdatedAt()))
		assert.Equal(t, node.CreatedAt(), updated.CreatedAt())
	})

	t.Run("renames", func(t *testing.T) {
		name := "Alicia"
		updated, found, err := store.UpdateNode(ctx, node.ID(), NodeUpdate{Name: &name})

		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Alicia", updated.Name())
	})

	t.Run("missing node", func(t *testing.T) {
		updated, found, err := store.UpdateNode(ctx, "Thing:0000000000000000", NodeUpdate{})

		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, updated)
	})
}

func TestGraphStore_UpdateNodeStorageFailure(t *testing.T) {
	backend := newTestBackend()
	_, store := backend.open(t)
	node := mustNode(t, store, "Thing", "Alice", nil)

	backend.nodes.FailWrites(errors.New("io error"))
	name := "Bob"
	_, found, err := store.UpdateNode(context.Background(), node.ID(), NodeUpdate{Name: &name})

	require.Error(t, err)
	assert.True(t, found)
	got, _ := store.GetNode(node.ID())
	assert.Equal(t, "Alice", got.Name())
}

func TestGraphStore_CreateEdge(t *testing.T) {
	_, store := newTestStore(t)
	a := mustNode(t, store, "Thing", "A", nil)
	b := mustNode(t, store, "Thing", "B", nil)

	tests := []struct {
		name     string
		from     vo.NodeID
		to       vo.NodeID
		edgeType string
		wantType string
		wantErr  error
	}{
		{name: "default type", from: a.ID(), to: b.ID(), wantType: "has_a"},
		{name: "custom type", from: a.ID(), to: b.ID(), edgeType: "knows", wantType: "knows"},
		{name: "self loop", from: a.ID(), to: a.ID(), edgeType: "knows", wantType: "knows"},
		{name: "unknown source", from: "Thing:ffffffffffffffff", to: b.ID(), wantErr: pkgerrors.ErrUnknownSourceNode},
		{name: "unknown target", from: a.ID(), to: "Thing:ffffffffffffffff", wantErr: pkgerrors.ErrUnknownTargetNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edge, err := store.CreateEdge(context.Background(), tt.from, tt.to, tt.edgeType, nil)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, edge.EdgeType)
			assert.Regexp(t, `_`+tt.wantType+`_.*:[0-9a-f]{8}$`, edge.ID.String())

			got, ok := store.GetEdge(edge.ID)
			require.True(t, ok)
			assert.Equal(t, edge, got)
		})
	}
}

func TestGraphStore_AdjacencyQueries(t *testing.T) {
	_, store := newTestStore(t)
	a := mustNode(t, store, "Thing", "A", nil)
	b := mustNode(t, store, "Thing", "B", nil)
	c := mustNode(t, store, "Thing", "C", nil)

	e1 := mustEdge(t, store, a.ID(), b.ID(), "knows")
	e2 := mustEdge(t, store, a.ID(), c.ID(), "is_a")
	mustEdge(t, store, c.ID(), a.ID(), "has_a")

	out := store.GetOutgoingEdges(a.ID(), "")
	require.Len(t, out, 2)
	assert.Equal(t, e1.ID, out[0].ID)
	assert.Equal(t, e2.ID, out[1].ID)

	assert.Len(t, store.GetOutgoingEdges(a.ID(), "knows"), 1)
	assert.Len(t, store.GetIncomingEdges(a.ID(), ""), 1)
	assert.Empty(t, store.GetIncomingEdges(a.ID(), "knows"))
	assert.Empty(t, store.GetOutgoingEdges("Thing:0000000000000000", ""))

	assert.Equal(t, []vo.NodeID{c.ID()}, nodeIDs(store.GetParentClasses(a.ID())))
	assert.Equal(t, []vo.NodeID{a.ID()}, nodeIDs(store.GetAggregatedChildren(c.ID())))
	assert.Equal(t, []vo.NodeID{c.ID()}, nodeIDs(store.GetAggregatingParents(a.ID())))
}

func TestGraphStore_FindNodes(t *testing.T) {
	registry, store := newTestStore(t)
	_, err := registry.RegisterClass(context.Background(), "Person", "", nil, "")
	require.NoError(t, err)

	p1 := mustNode(t, store, "Person", "Ann", nil)
	mustNode(t, store, "Thing", "Ann", nil)
	p2 := mustNode(t, store, "Person", "Ben", nil)

	assert.Equal(t, []vo.NodeID{p1.ID(), p2.ID()}, nodeIDs(store.FindNodesByClass("Person")))
	assert.Len(t, store.FindNodesByName("Ann"), 2)
	assert.Empty(t, store.FindNodesByClass("Robot"))
	assert.Len(t, store.AllNodes(), 3)
}

func TestGraphStore_DeleteNodeCascades(t *testing.T) {
	backend := newTestBackend()
	_, store := backend.open(t)
	ctx := context.Background()

	a := mustNode(t, store, "Thing", "A", nil)
	b := mustNode(t, store, "Thing", "B", nil)
	c := mustNode(t, store, "Thing", "C", nil)
	ab := mustEdge(t, store, a.ID(), b.ID(), "knows")
	ca := mustEdge(t, store, c.ID(), a.ID(), "has_a")
	bc := mustEdge(t, store, b.ID(), c.ID(), "has_a")
	mustEdge(t, store, a.ID(), a.ID(), "self")

	deleted, err := store.DeleteNode(ctx, a.ID())

	require.NoError(t, err)
	assert.True(t, deleted)
	_, ok := store.GetNode(a.ID())
	assert.False(t, ok)
	_, ok = store.GetEdge(ab.ID)
	assert.False(t, ok)
	_, ok = store.GetEdge(ca.ID)
	assert.False(t, ok)
	_, ok = store.GetEdge(bc.ID)
	assert.True(t, ok)

	assert.Equal(t, 2, backend.nodes.Len())
	assert.Equal(t, 1, backend.edges.Len())
	assert.Equal(t, 1, store.Stats().TotalEdges)

	deleted, err = store.DeleteNode(ctx, a.ID())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGraphStore_DeleteNodeStorageFailureKeepsNode(t *testing.T) {
	backend := newTestBackend()
	_, store := backend.open(t)

	a := mustNode(t, store, "Thing", "A", nil)
	b := mustNode(t, store, "Thing", "B", nil)
	mustEdge(t, store, a.ID(), b.ID(), "knows")

	backend.edges.FailWrites(errors.New("io error"))
	deleted, err := store.DeleteNode(context.Background(), a.ID())

	require.Error(t, err)
	assert.False(t, deleted)
	assert.True(t, store.HasNode(a.ID()))
	assert.Len(t, store.GetOutgoingEdges(a.ID(), ""), 1)
	assert.Equal(t, 1, backend.edges.Len())
}

func TestGraphStore_CascadeDeleteIsAtomicForReaders(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	hub := mustNode(t, store, "Thing", "hub", nil)
	spokes := make([]vo.NodeID, 50)
	for i := range spokes {
		spoke := mustNode(t, store, "Thing", "spoke", nil)
		mustEdge(t, store, hub.ID(), spoke.ID(), "has_a")
		mustEdge(t, store, spoke.ID(), hub.ID(), "knows")
		spokes[i] = spoke.ID()
	}

	var dangling, reads atomic.Int64
	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				err := store.View(ctx, func(r ports.GraphReader) error {
					for _, node := range r.AllNodes() {
						for _, edge := range r.GetOutgoingEdges(node.ID(), "") {
							if !r.HasNode(edge.ToNodeID) {
								dangling.Add(1)
							}
						}
						for _, edge := range r.GetIncomingEdges(node.ID(), "") {
							if !r.HasNode(edge.FromNodeID) {
								dangling.Add(1)
							}
						}
					}
					return nil
				})
				if err != nil {
					dangling.Add(1)
				}
				reads.Add(1)
			}
		}()
	}

	var writers sync.WaitGroup
	for _, id := range spokes {
		writers.Add(1)
		go func(id vo.NodeID) {
			defer writers.Done()
			deleted, err := store.DeleteNode(ctx, id)
			assert.NoError(t, err)
			assert.True(t, deleted)
		}(id)
	}
	writers.Wait()
	close(stop)
	readers.Wait()

	assert.Zero(t, dangling.Load())
	assert.Positive(t, reads.Load())
	assert.Equal(t, 1, store.Stats().TotalNodes)
	assert.Zero(t, store.Stats().TotalEdges)
	assert.Empty(t, store.GetOutgoingEdges(hub.ID(), ""))
	assert.Empty(t, store.GetIncomingEdges(hub.ID(), ""))
}

func TestGraphStore_DeleteEdge(t *testing.T) {
	_, store := newTestStore(t)
	a := mustNode(t, store, "Thing", "A", nil)
	b := mustNode(t, store, "Thing", "B", nil)
	edge := mustEdge(t, store, a.ID(), b.ID(), "knows")

	deleted, err := store.DeleteEdge(context.Background(), edge.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, store.GetOutgoingEdges(a.ID(), ""))
	assert.Empty(t, store.GetIncomingEdges(b.ID(), ""))
	assert.True(t, store.HasNode(a.ID()))

	deleted, err = store.DeleteEdge(context.Background(), edge.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGraphStore_TraverseIsAHierarchy(t *testing.T) {
	_, store := newTestStore(t)
	a := mustNode(t, store, "Thing", "A", nil)
	b := mustNode(t, store, "Thing", "B", nil)
	c := mustNode(t, store, "Thing", "C", nil)
	mustEdge(t, store, a.ID(), b.ID(), "is_a")
	mustEdge(t, store, b.ID(), c.ID(), "is_a")
	mustEdge(t, store, c.ID(), a.ID(), "is_a")

	chain := store.TraverseIsAHierarchy(a.ID())

	assert.Equal(t, []vo.NodeID{a.ID(), b.ID(), c.ID()}, nodeIDs(chain))
	assert.Empty(t, store.TraverseIsAHierarchy("Thing:0000000000000000"))
}

func TestGraphStore_TraverseHasATree(t *testing.T) {
	_, store := newTestStore(t)
	car := mustNode(t, store, "Thing", "Car", nil)
	engine := mustNode(t, store, "Thing", "Engine", nil)
	piston := mustNode(t, store, "Thing", "Piston", nil)
	mustEdge(t, store, car.ID(), engine.ID(), "has_a")
	mustEdge(t, store, engine.ID(), piston.ID(), "has_a")
	mustEdge(t, store, piston.ID(), car.ID(), "has_a")

	t.Run("depth one", func(t *testing.T) {
		tree := store.TraverseHasATree(car.ID(), 1)

		require.NotNil(t, tree)
		assert.Equal(t, "Car", tree.Name)
		require.Len(t, tree.Children, 1)
		assert.Equal(t, engine.ID(), tree.Children[0].NodeID)
		assert.Empty(t, tree.Children[0].Children)
	})

	t.Run("unlimited stops on cycles", func(t *testing.T) {
		tree := store.TraverseHasATree(car.ID(), -1)

		require.NotNil(t, tree)
		piston := tree.Children[0].Children[0]
		require.Len(t, piston.Children, 1)
		assert.Equal(t, car.ID(), piston.Children[0].NodeID)
		assert.Empty(t, piston.Children[0].Children)
	})

	t.Run("missing node", func(t *testing.T) {
		assert.Nil(t, store.TraverseHasATree("Thing:0000000000000000", -1))
	})
}

func TestGraphStore_ReloadRoundTrip(t *testing.T) {
	backend := newTestBackend()
	registry, store := backend.open(t)
	ctx := context.Background()

	_, err := registry.RegisterClass(ctx, "Person", "", nil, "")
	require.NoError(t, err)
	a := mustNode(t, store, "Person", "A", vo.Attributes{"score": vo.Float(1.5), "tags": vo.List(vo.Text("x"))})
	b := mustNode(t, store, "Person", "B", nil)
	edge := mustEdge(t, store, a.ID(), b.ID(), "knows")

	_, reopened := backend.open(t)

	gotA, ok := reopened.GetNode(a.ID())
	require.True(t, ok)
	assert.Equal(t, a, gotA)
	gotEdge, ok := reopened.GetEdge(edge.ID)
	require.True(t, ok)
	assert.Equal(t, edge, gotEdge)
	assert.Equal(t, []vo.NodeID{a.ID(), b.ID()}, nodeIDs(reopened.FindNodesByClass("Person")))
	assert.Equal(t, store.Stats(), reopened.Stats())
}

func TestGraphStore_ReloadSkipsDanglingEdges(t *testing.T) {
	backend := newTestBackend()
	_, store := backend.open(t)
	a := mustNode(t, store, "Thing", "A", nil)

	ghost := entities.NewEdge(a.ID(), "Thing:ffffffffffffffff", "knows", nil, a.CreatedAt())
	require.NoError(t, backend.edges.Save(context.Background(), ghost))

	_, reopened := backend.open(t)

	_, ok := reopened.GetEdge(ghost.ID)
	assert.False(t, ok)
	assert.Empty(t, reopened.GetOutgoingEdges(a.ID(), ""))
}

func TestGraphStore_View(t *testing.T) {
	_, store := newTestStore(t)
	a := mustNode(t, store, "Thing", "A", nil)

	var seen []*entities.Node
	err := store.View(context.Background(), func(r ports.GraphReader) error {
		seen = r.AllNodes()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []vo.NodeID{a.ID()}, nodeIDs(seen))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = store.View(ctx, func(r ports.GraphReader) error { return nil })
	assert.True(t, errors.Is(err, pkgerrors.ErrOperationCancelled))
}

func TestGraphStore_StatsAndHealth(t *testing.T) {
	registry, store := newTestStore(t)
	_, err := registry.RegisterClass(context.Background(), "Person", "", nil, "")
	require.NoError(t, err)
	a := mustNode(t, store, "Person", "A", nil)
	b := mustNode(t, store, "Thing", "B", nil)
	mustEdge(t, store, a.ID(), b.ID(), "")

	stats := store.Stats()
	assert.Equal(t, Stats{
		TotalNodes:   2,
		TotalEdges:   1,
		TotalSchemas: 2,
		NodesByClass: map[string]int{"Person": 1, "Thing": 1},
		EdgesByType:  map[string]int{"has_a": 1},
	}, stats)

	health := store.Health(context.Background())
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Nodes)
	assert.Empty(t, health.Error)
}

func TestGraphStore_PublishesEventsAfterMutation(t *testing.T) {
	// Arrange
	backend := newTestBackend()
	cfg := config.DefaultDomainConfig()
	registry, err := NewSchemaRegistry(context.Background(), backend.schemas, nil, cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	publisher := new(MockEventPublisher)
	store, err := NewGraphStore(context.Background(), registry, backend.nodes, backend.edges,
		publisher, cfg, zap.NewNop(), nil, nil)
	require.NoError(t, err)

	var published []string
	publisher.On("PublishBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		// Publishing happens outside the lock, so reading the store must not block
		_ = store.Stats()
		for _, ev := range args.Get(1).([]events.DomainEvent) {
			published = append(published, ev.GetEventType())
		}
	}).Return(nil)

	// Act
	a := mustNode(t, store, "Thing", "A", nil)
	b := mustNode(t, store, "Thing", "B", nil)
	mustEdge(t, store, a.ID(), b.ID(), "knows")
	_, err = store.DeleteNode(context.Background(), b.ID())
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{
		"node.created",
		"node.created",
		"edge.created",
		"edge.deleted",
		"node.deleted",
	}, published)
	publisher.AssertExpectations(t)
}
