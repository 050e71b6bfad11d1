package entities

import (
	"time"

	"graphstore/domain/core/valueobjects"
)

// EdgeType labels a relationship. Any string is legal.
type EdgeType = string

const (
	// EdgeTypeIsA links a specialised node to a more general one
	EdgeTypeIsA EdgeType = "is_a"
	// EdgeTypeHasA links an aggregate to one of its parts
	EdgeTypeHasA EdgeType = "has_a"
	// EdgeTypeCustom is the conventional label for user relationships
	EdgeTypeCustom EdgeType = "custom"
)

// Edge is a directed, labeled relationship between two existing nodes.
// Edges are never updated in place.
type Edge struct {
	ID         valueobjects.EdgeID     `json:"edge_id"`
	FromNodeID valueobjects.NodeID     `json:"from_node_id"`
	ToNodeID   valueobjects.NodeID     `json:"to_node_id"`
	EdgeType   EdgeType                `json:"edge_type"`
	Attributes valueobjects.Attributes `json:"attributes"`
	CreatedAt  time.Time               `json:"created_at"`
}

// NewEdge creates an edge with a fresh id
func NewEdge(from, to valueobjects.NodeID, edgeType EdgeType, attributes valueobjects.Attributes, now time.Time) *Edge {
	if attributes == nil {
		attributes = valueobjects.Attributes{}
	}
	return &Edge{
		ID:         valueobjects.NewEdgeID(from, edgeType, to),
		FromNodeID: from,
		ToNodeID:   to,
		EdgeType:   edgeType,
		Attributes: attributes.Clone(),
		CreatedAt:  normalizeTime(now),
	}
}

// Clone returns an independent copy
func (e *Edge) Clone() *Edge {
	cp := *e
	if e.Attributes == nil {
		cp.Attributes = valueobjects.Attributes{}
	} else {
		cp.Attributes = e.Attributes.Clone()
	}
	cp.CreatedAt = normalizeTime(e.CreatedAt)
	return &cp
}
