package ports

import (
	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"
)

// GraphReader is a read-only, consistent view of the graph. Every record it
// returns is a copy owned by the caller.
type GraphReader interface {
	// GetNode returns a node by id
	GetNode(id valueobjects.NodeID) (*entities.Node, bool)

	// GetEdge returns an edge by id
	GetEdge(id valueobjects.EdgeID) (*entities.Edge, bool)

	// HasNode reports whether the node exists without copying it
	HasNode(id valueobjects.NodeID) bool

	// GetOutgoingEdges returns edges leaving the node. Empty edgeType matches any type.
	GetOutgoingEdges(id valueobjects.NodeID, edgeType string) []*entities.Edge

	// GetIncomingEdges returns edges arriving at the node. Empty edgeType matches any type.
	GetIncomingEdges(id valueobjects.NodeID, edgeType string) []*entities.Edge

	// FindNodesByClass returns nodes created under exactly this class
	FindNodesByClass(className string) []*entities.Node

	// FindNodesByName returns nodes with exactly this display name
	FindNodesByName(name string) []*entities.Node

	// AllNodes returns every node
	AllNodes() []*entities.Node
}
