package ports

import (
	"context"

	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"
	"graphstore/domain/events"
)

// SchemaRepository defines the interface for class schema persistence.
// One durable record per class, keyed by class name.
type SchemaRepository interface {
	// Save persists a schema (create or overwrite)
	Save(ctx context.Context, schema *entities.ClassSchema) error

	// LoadAll returns every stored schema
	LoadAll(ctx context.Context) ([]*entities.ClassSchema, error)
}

// NodeRepository defines the interface for node persistence
// One durable record per node, keyed by node id, rewritten in full on every mutation.
type NodeRepository interface {
	// Save persists a node (create or update)
	Save(ctx context.Context, node *entities.Node) error

	// Delete removes a node record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id valueobjects.NodeID) error

	// LoadAll returns every stored node
	LoadAll(ctx context.Context) ([]*entities.Node, error)
}

// EdgeRepository defines the interface for edge persistence
type EdgeRepository interface {
	// Save persists an edge
	Save(ctx context.Context, edge *entities.Edge) error

	// Delete removes an edge record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id valueobjects.EdgeID) error

	// LoadAll returns every stored edge
	LoadAll(ctx context.Context) ([]*entities.Edge, error)
}

// HealthChecker is implemented by backends that can report reachability
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
