package memory

import (
	"context"
	"sync"

	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"
)

// SchemaRepository keeps schemas in a map. Records are copied on the way in
// and on the way out.
type SchemaRepository struct {
	mu      sync.RWMutex
	schemas map[string]*entities.ClassSchema
}

// NewSchemaRepository creates an empty in-memory schema repository
func NewSchemaRepository() *SchemaRepository {
	return &SchemaRepository{schemas: make(map[string]*entities.ClassSchema)}
}

// Save stores a copy of the schema
func (r *SchemaRepository) Save(ctx context.Context, schema *entities.ClassSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[schema.ClassName] = schema.Clone()
	return nil
}

// LoadAll returns a copy of every stored schema
func (r *SchemaRepository) LoadAll(ctx context.Context) ([]*entities.ClassSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.ClassSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s.Clone())
	}
	return out, nil
}

// Len returns the number of stored schemas
func (r *SchemaRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// NodeRepository keeps nodes in a map
type NodeRepository struct {
	mu    sync.RWMutex
	nodes map[valueobjects.NodeID]*entities.Node
}

// NewNodeRepository creates an empty in-memory node repository
func NewNodeRepository() *NodeRepository {
	return &NodeRepository{nodes: make(map[valueobjects.NodeID]*entities.Node)}
}

// Save stores a copy of the node
func (r *NodeRepository) Save(ctx context.Context, node *entities.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.ID()] = node.Clone()
	return nil
}

// Delete removes the node record if present
func (r *NodeRepository) Delete(ctx context.Context, id valueobjects.NodeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
	return nil
}

// LoadAll returns a copy of every stored node
func (r *NodeRepository) LoadAll(ctx context.Context) ([]*entities.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n.Clone())
	}
	return out, nil
}

// Get returns a copy of one stored node
func (r *NodeRepository) Get(id valueobjects.NodeID) (*entities.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Len returns the number of stored nodes
func (r *NodeRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Ping always succeeds
func (r *NodeRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// EdgeRepository keeps edges in a map
type EdgeRepository struct {
	mu    sync.RWMutex
	edges map[valueobjects.EdgeID]*entities.Edge
}

// NewEdgeRepository creates an empty in-memory edge repository
func NewEdgeRepository() *EdgeRepository {
	return &EdgeRepository{edges: make(map[valueobjects.EdgeID]*entities.Edge)}
}

// Save stores a copy of the edge
func (r *EdgeRepository) Save(ctx context.Context, edge *entities.Edge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[edge.ID] = edge.Clone()
	return nil
}

// Delete removes the edge record if present
func (r *EdgeRepository) Delete(ctx context.Context, id valueobjects.EdgeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.edges, id)
	return nil
}

// LoadAll returns a copy of every stored edge
func (r *EdgeRepository) LoadAll(ctx context.Context) ([]*entities.Edge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Edge, 0, len(r.edges))
	for _, e := range r.edges {
		out = append(out, e.Clone())
	}
	return out, nil
}

// Len returns the number of stored edges
func (r *EdgeRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.edges)
}
