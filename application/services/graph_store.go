package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"graphstore/application/ports"
	"graphstore/domain/config"
	"graphstore/domain/core/aggregates"
	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"
	"graphstore/domain/events"
	pkgerrors "graphstore/pkg/errors"
	"graphstore/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GraphStore owns every node and edge record. All state sits behind one
// reader/writer lock: mutations validate, write the durable record and update
// memory while holding the write lock, so readers never see a half-applied
// change (a node deleted while one of its edges remains, or the reverse).
type GraphStore struct {
	mu    sync.RWMutex
	graph *aggregates.Graph

	registry  *SchemaRegistry
	nodeRepo  ports.NodeRepository
	edgeRepo  ports.EdgeRepository
	publisher ports.EventPublisher
	cfg       *config.DomainConfig
	logger    *zap.Logger
	metrics   *observability.Collector
	tracer    *observability.Tracer

	now func() time.Time
}

// NodeUpdate describes an update_node call. A nil Name keeps the current
// name; Attributes are merged key by key over the existing ones.
type NodeUpdate struct {
	Name       *string
	Attributes valueobjects.Attributes
}

// NewGraphStore loads every durable node and edge record into memory before
// returning. publisher, metrics and tracer may be nil.
func NewGraphStore(
	ctx context.Context,
	registry *SchemaRegistry,
	nodeRepo ports.NodeRepository,
	edgeRepo ports.EdgeRepository,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer *observability.Tracer,
) (*GraphStore, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &GraphStore{
		graph:     aggregates.NewGraph(),
		registry:  registry,
		nodeRepo:  nodeRepo,
		edgeRepo:  edgeRepo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		now:       time.Now,
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GraphStore) load(ctx context.Context) error {
	start := time.Now()

	nodes, err := s.nodeRepo.LoadAll(ctx)
	if err != nil {
		return pkgerrors.NewStorageError("load_nodes", err)
	}
	edges, err := s.edgeRepo.LoadAll(ctx)
	if err != nil {
		return pkgerrors.NewStorageError("load_edges", err)
	}

	// Restore creation order so scans behave as before the restart
	sort.SliceStable(nodes, func(i, j int) bool {
		if !nodes[i].CreatedAt().Equal(nodes[j].CreatedAt()) {
			return nodes[i].CreatedAt().Before(nodes[j].CreatedAt())
		}
		return nodes[i].ID() < nodes[j].ID()
	})
	sort.SliceStable(edges, func(i, j int) bool {
		if !edges[i].CreatedAt.Equal(edges[j].CreatedAt) {
			return edges[i].CreatedAt.Before(edges[j].CreatedAt)
		}
		return edges[i].ID < edges[j].ID
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, node := range nodes {
		if err := s.graph.LoadNode(node); err != nil {
			s.logger.Warn("Skipping node record", zap.String("nodeID", node.ID().String()), zap.Error(err))
		}
	}
	skipped := 0
	for _, edge := range edges {
		if err := s.graph.LoadEdge(edge); err != nil {
			skipped++
			s.logger.Warn("Skipping edge record",
				zap.String("edgeID", edge.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.metrics.SetGraphSize(s.graph.NodeCount(), s.graph.EdgeCount())
	s.logger.Info("Graph loaded",
		zap.Int("nodes", s.graph.NodeCount()),
		zap.Int("edges", s.graph.EdgeCount()),
		zap.Int("skippedEdges", skipped),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// mutate runs fn under the write lock, then publishes whatever events the
// aggregate raised once the lock is released.
func (s *GraphStore) mutate(ctx context.Context, operation string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation, attrs...)

	evts, err := s.locked(ctx, fn)

	s.tracer.End(span, err)
	s.metrics.RecordOperation(operation, start, err)
	publishEvents(ctx, s.publisher, s.logger, s.metrics, evts)
	return err
}

func (s *GraphStore) locked(ctx context.Context, fn func(ctx context.Context) error) ([]events.DomainEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(ctx)

	evts := s.graph.GetUncommittedEvents()
	s.graph.MarkEventsAsCommitted()
	s.metrics.SetGraphSize(s.graph.NodeCount(), s.graph.EdgeCount())
	return evts, err
}

// CreateNode creates a node of a registered class
func (s *GraphStore) CreateNode(
	ctx context.Context,
	className string,
	name string,
	attributes valueobjects.Attributes,
) (*entities.Node, error) {
	var created *entities.Node

	err := s.mutate(ctx, "create_node", func(ctx context.Context) error {
		if !s.registry.HasClass(className) {
			return pkgerrors.ErrUnknownClass.New().WithDetail("class_name", className)
		}

		node, err := entities.NewNode(className, name, attributes, s.now())
		if err != nil {
			return err
		}
		if s.graph.HasNode(node.ID()) {
			return pkgerrors.ErrDuplicateNode.New().WithDetail("node_id", node.ID().String())
		}

		if err := s.nodeRepo.Save(ctx, node); err != nil {
			s.logger.Error("Failed to persist node", zap.String("nodeID", node.ID().String()), zap.Error(err))
			return pkgerrors.NewStorageError("save_node", err)
		}
		if err := s.graph.AddNode(node); err != nil {
			return err
		}

		s.logger.Info("Created node",
			zap.String("nodeID", node.ID().String()),
			zap.String("className", className),
		)
		created = node.Clone()
		return nil
	}, attribute.String("class_name", className))

	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetNode returns a copy of a node
func (s *GraphStore) GetNode(id valueobjects.NodeID) (*entities.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetNode(id)
}

// HasNode reports whether the node exists
func (s *GraphStore) HasNode(id valueobjects.NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.HasNode(id)
}

// UpdateNode renames and/or merges attributes into an existing node.
// found is false when the node does not exist; that is not an error.
func (s *GraphStore) UpdateNode(ctx context.Context, id valueobjects.NodeID, update NodeUpdate) (node *entities.Node, found bool, err error) {
	err = s.mutate(ctx, "update_node", func(ctx context.Context) error {
		current, ok := s.graph.Node(id)
		if !ok {
			return nil
		}
		found = true

		now := s.now()
		updated := current.Clone()
		if update.Name != nil {
			updated.Rename(*update.Name, now)
		}
		keys := make([]string, 0, len(update.Attributes))
		for k := range update.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		updated.MergeAttributes(update.Attributes, now)

		if err := s.nodeRepo.Save(ctx, updated); err != nil {
			s.logger.Error("Failed to persist node", zap.String("nodeID", id.String()), zap.Error(err))
			return pkgerrors.NewStorageError("save_node", err)
		}
		s.graph.ReplaceNode(updated, update.Name != nil, keys)

		s.logger.Info("Updated node", zap.String("nodeID", id.String()), zap.Strings("attributes", keys))
		node = updated.Clone()
		return nil
	}, attribute.String("node_id", id.String()))

	if err != nil {
		return nil, found, err
	}
	return node, found, nil
}

// DeleteNode removes a node after deleting every incident edge. The whole
// cascade happens inside one critical section.
func (s *GraphStore) DeleteNode(ctx context.Context, id valueobjects.NodeID) (bool, error) {
	var deleted bool
	err := s.mutate(ctx, "delete_node", func(ctx context.Context) error {
		var err error
		deleted, err = s.deleteNodeLocked(ctx, id)
		return err
	}, attribute.String("node_id", id.String()))
	return deleted, err
}

func (s *GraphStore) deleteNodeLocked(ctx context.Context, id valueobjects.NodeID) (bool, error) {
	if !s.graph.HasNode(id) {
		return false, nil
	}

	now := s.now()
	incident := s.graph.IncidentEdges(id)

	// On failure, memory drops exactly the edges whose records are gone
	dropped := func(edges []*entities.Edge) {
		for _, edge := range edges {
			s.graph.RemoveEdge(edge.ID, now)
		}
	}

	for i, edge := range incident {
		if err := s.edgeRepo.Delete(ctx, edge.ID); err != nil {
			dropped(incident[:i])
			s.logger.Error("Failed to delete edge record during cascade",
				zap.String("nodeID", id.String()),
				zap.String("edgeID", edge.ID.String()),
				zap.Error(err),
			)
			return false, pkgerrors.NewStorageError("delete_edge", err)
		}
	}

	if err := s.nodeRepo.Delete(ctx, id); err != nil {
		dropped(incident)
		s.logger.Error("Failed to delete node record", zap.String("nodeID", id.String()), zap.Error(err))
		return false, pkgerrors.NewStorageError("delete_node", err)
	}
	s.graph.RemoveNode(id, now)

	s.logger.Info("Deleted node",
		zap.String("nodeID", id.String()),
		zap.Int("edgesRemoved", len(incident)),
	)
	return true, nil
}

// CreateEdge links two existing nodes. An empty edgeType becomes the default
// edge type (has_a).
func (s *GraphStore) CreateEdge(
	ctx context.Context,
	from valueobjects.NodeID,
	to valueobjects.NodeID,
	edgeType string,
	attributes valueobjects.Attributes,
) (*entities.Edge, error) {
	if edgeType == "" {
		edgeType = s.cfg.DefaultEdgeType
	}

	var created *entities.Edge
	err := s.mutate(ctx, "create_edge", func(ctx context.Context) error {
		if err := s.graph.CheckEndpoints(from, to); err != nil {
			return err
		}

		edge := entities.NewEdge(from, to, edgeType, attributes, s.now())
		if err := s.edgeRepo.Save(ctx, edge); err != nil {
			s.logger.Error("Failed to persist edge", zap.String("edgeID", edge.ID.String()), zap.Error(err))
			return pkgerrors.NewStorageError("save_edge", err)
		}
		if err := s.graph.AddEdge(edge); err != nil {
			return err
		}

		s.logger.Info("Created edge",
			zap.String("edgeID", edge.ID.String()),
			zap.String("edgeType", edgeType),
		)
		created = edge.Clone()
		return nil
	}, attribute.String("edge_type", edgeType))

	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetEdge returns a copy of an edge
func (s *GraphStore) GetEdge(id valueobjects.EdgeID) (*entities.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetEdge(id)
}

// DeleteEdge removes an edge. It returns false when the edge does not exist.
func (s *GraphStore) DeleteEdge(ctx context.Context, id valueobjects.EdgeID) (bool, error) {
	var deleted bool
	err := s.mutate(ctx, "delete_edge", func(ctx context.Context) error {
		var err error
		deleted, err = s.deleteEdgeLocked(ctx, id)
		return err
	}, attribute.String("edge_id", id.String()))
	return deleted, err
}

func (s *GraphStore) deleteEdgeLocked(ctx context.Context, id valueobjects.EdgeID) (bool, error) {
	if _, ok := s.graph.Edge(id); !ok {
		return false, nil
	}
	if err := s.edgeRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete edge record", zap.String("edgeID", id.String()), zap.Error(err))
		return false, pkgerrors.NewStorageError("delete_edge", err)
	}
	s.graph.RemoveEdge(id, s.now())

	s.logger.Info("Deleted edge", zap.String("edgeID", id.String()))
	return true, nil
}

// GetOutgoingEdges returns edges leaving the node. An empty edgeType matches any type.
func (s *GraphStore) GetOutgoingEdges(id valueobjects.NodeID, edgeType string) []*entities.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetOutgoingEdges(id, edgeType)
}

// GetIncomingEdges returns edges arriving at the node. An empty edgeType matches any type.
func (s *GraphStore) GetIncomingEdges(id valueobjects.NodeID, edgeType string) []*entities.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetIncomingEdges(id, edgeType)
}

// FindNodesByClass returns nodes created under exactly className
func (s *GraphStore) FindNodesByClass(className string) []*entities.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().FindNodesByClass(className)
}

// FindNodesByName returns nodes whose name equals name
func (s *GraphStore) FindNodesByName(name string) []*entities.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().FindNodesByName(name)
}

// AllNodes returns every node
func (s *GraphStore) AllNodes() []*entities.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().AllNodes()
}

// GetParentClasses returns the targets of the node's outgoing is_a edges
func (s *GraphStore) GetParentClasses(id valueobjects.NodeID) []*entities.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().targets(id, entities.EdgeTypeIsA)
}

// GetAggregatedChildren returns the targets of the node's outgoing has_a edges
func (s *GraphStore) GetAggregatedChildren(id valueobjects.NodeID) []*entities.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().targets(id, entities.EdgeTypeHasA)
}

// GetAggregatingParents returns the sources of the node's incoming has_a edges
func (s *GraphStore) GetAggregatingParents(id valueobjects.NodeID) []*entities.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().sources(id, entities.EdgeTypeHasA)
}

// TraverseIsAHierarchy follows the first outgoing is_a edge from node to
// node until none remains or a node repeats. The start node comes first.
func (s *GraphStore) TraverseIsAHierarchy(id valueobjects.NodeID) []*entities.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chain []*entities.Node
	visited := make(map[valueobjects.NodeID]bool)
	current := id

	for !visited[current] {
		visited[current] = true
		node, ok := s.graph.Node(current)
		if !ok {
			break
		}
		chain = append(chain, node.Clone())

		parents := s.graph.OutgoingEdges(current, entities.EdgeTypeIsA)
		if len(parents) == 0 {
			break
		}
		current = parents[0].ToNodeID
	}
	return chain
}

// HasATree is the materialised aggregation tree below a node
type HasATree struct {
	NodeID    valueobjects.NodeID `json:"node_id"`
	Name      string              `json:"name"`
	ClassName string              `json:"class_name"`
	Children  []*HasATree         `json:"children"`
}

// TraverseHasATree expands has_a children recursively. depth -1 is unlimited
// and depth 0 returns the root without children. A child that already appears
// on the path from the root is not expanded again. Returns nil when the node
// does not exist.
func (s *GraphStore) TraverseHasATree(id valueobjects.NodeID, depth int) *HasATree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasATree(id, depth, make(map[valueobjects.NodeID]bool))
}

func (s *GraphStore) hasATree(id valueobjects.NodeID, depth int, onPath map[valueobjects.NodeID]bool) *HasATree {
	node, ok := s.graph.Node(id)
	if !ok {
		return nil
	}
	tree := &HasATree{
		NodeID:    node.ID(),
		Name:      node.Name(),
		ClassName: node.ClassName(),
		Children:  []*HasATree{},
	}
	if depth == 0 || onPath[id] {
		return tree
	}

	next := -1
	if depth > 0 {
		next = depth - 1
	}

	onPath[id] = true
	for _, edge := range s.graph.OutgoingEdges(id, entities.EdgeTypeHasA) {
		if child := s.hasATree(edge.ToNodeID, next, onPath); child != nil {
			tree.Children = append(tree.Children, child)
		}
	}
	delete(onPath, id)
	return tree
}

// View runs fn against a consistent snapshot of the graph. The read lock is
// held for the whole call, so fn must not call back into mutating methods.
func (s *GraphStore) View(ctx context.Context, fn func(r ports.GraphReader) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewCancelledError("view", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.reader())
}

// Stats summarises the current contents of the store
type Stats struct {
	TotalNodes   int            `json:"total_nodes"`
	TotalEdges   int            `json:"total_edges"`
	TotalSchemas int            `json:"total_schemas"`
	NodesByClass map[string]int `json:"nodes_by_class"`
	EdgesByType  map[string]int `json:"edges_by_type"`
}

// Stats returns node, edge and schema counts
func (s *GraphStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		TotalNodes:   s.graph.NodeCount(),
		TotalEdges:   s.graph.EdgeCount(),
		TotalSchemas: s.registry.Count(),
		NodesByClass: s.graph.NodesByClassCount(),
		EdgesByType:  s.graph.EdgesByTypeCount(),
	}
}

// HealthStatus reports whether the store can serve requests
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	Schemas   int       `json:"schemas"`
	Error     string    `json:"error,omitempty"`
}

// Health pings the node backend when it supports it
func (s *GraphStore) Health(ctx context.Context) HealthStatus {
	stats := s.Stats()
	status := HealthStatus{
		Status:    "ok",
		Timestamp: s.now().UTC(),
		Nodes:     stats.TotalNodes,
		Edges:     stats.TotalEdges,
		Schemas:   stats.TotalSchemas,
	}

	if checker, ok := s.nodeRepo.(ports.HealthChecker); ok {
		if err := checker.Ping(ctx); err != nil {
			s.logger.Warn("Storage backend unhealthy", zap.Error(err))
			status.Status = "degraded"
			status.Error = err.Error()
		}
	}
	return status
}

func (s *GraphStore) reader() graphReader {
	return graphReader{graph: s.graph}
}

// graphReader adapts the aggregate to ports.GraphReader. It does no locking;
// the caller holds the read lock.
type graphReader struct {
	graph *aggregates.Graph
}

func (r graphReader) GetNode(id valueobjects.NodeID) (*entities.Node, bool) {
	node, ok := r.graph.Node(id)
	if !ok {
		return nil, false
	}
	return node.Clone(), true
}

func (r graphReader) GetEdge(id valueobjects.EdgeID) (*entities.Edge, bool) {
	edge, ok := r.graph.Edge(id)
	if !ok {
		return nil, false
	}
	return edge.Clone(), true
}

func (r graphReader) HasNode(id valueobjects.NodeID) bool {
	return r.graph.HasNode(id)
}

func (r graphReader) GetOutgoingEdges(id valueobjects.NodeID, edgeType string) []*entities.Edge {
	return cloneEdges(r.graph.OutgoingEdges(id, edgeType))
}

func (r graphReader) GetIncomingEdges(id valueobjects.NodeID, edgeType string) []*entities.Edge {
	return cloneEdges(r.graph.IncomingEdges(id, edgeType))
}

func (r graphReader) FindNodesByClass(className string) []*entities.Node {
	return cloneNodes(r.graph.NodesByClass(className))
}

func (r graphReader) FindNodesByName(name string) []*entities.Node {
	return cloneNodes(r.graph.NodesByName(name))
}

func (r graphReader) AllNodes() []*entities.Node {
	return cloneNodes(r.graph.Nodes())
}

func (r graphReader) targets(id valueobjects.NodeID, edgeType string) []*entities.Node {
	var out []*entities.Node
	for _, edge := range r.graph.OutgoingEdges(id, edgeType) {
		if node, ok := r.graph.Node(edge.ToNodeID); ok {
			out = append(out, node.Clone())
		}
	}
	return out
}

func (r graphReader) sources(id valueobjects.NodeID, edgeType string) []*entities.Node {
	var out []*entities.Node
	for _, edge := range r.graph.IncomingEdges(id, edgeType) {
		if node, ok := r.graph.Node(edge.FromNodeID); ok {
			out = append(out, node.Clone())
		}
	}
	return out
}

func cloneNodes(nodes []*entities.Node) []*entities.Node {
	out := make([]*entities.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

func cloneEdges(edges []*entities.Edge) []*entities.Edge {
	out := make([]*entities.Edge, len(edges))
	for i, e := range edges {
		out[i] = e.Clone()
	}
	return out
}
