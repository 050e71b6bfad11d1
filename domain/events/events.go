package events

import (
	"time"

	"graphstore/domain/core/valueobjects"
)

// SourceGraphStore is the event source reported to subscribers
const SourceGraphStore = "graphstore"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(aggregateID, eventType string, ts time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   ts,
		Version:     1,
	}
}

// Schema Events

// ClassRegistered is raised when a class schema is added to the registry
type ClassRegistered struct {
	BaseEvent
	ClassName   string `json:"class_name"`
	ParentClass string `json:"parent_class,omitempty"`
}

// NewClassRegistered creates a ClassRegistered event
func NewClassRegistered(className, parentClass string, ts time.Time) ClassRegistered {
	return ClassRegistered{
		BaseEvent:   newBase(className, "class.registered", ts),
		ClassName:   className,
		ParentClass: parentClass,
	}
}

// Node Events

// NodeCreated is raised when a new node is created
type NodeCreated struct {
	BaseEvent
	NodeID    valueobjects.NodeID `json:"node_id"`
	ClassName string              `json:"class_name"`
	Name      string              `json:"name"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(nodeID valueobjects.NodeID, className, name string, ts time.Time) NodeCreated {
	return NodeCreated{
		BaseEvent: newBase(nodeID.String(), "node.created", ts),
		NodeID:    nodeID,
		ClassName: className,
		Name:      name,
	}
}

// NodeUpdated is raised when a node is renamed or its attributes merged
type NodeUpdated struct {
	BaseEvent
	NodeID        valueobjects.NodeID `json:"node_id"`
	Renamed       bool                `json:"renamed"`
	AttributeKeys []string            `json:"attribute_keys,omitempty"`
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(nodeID valueobjects.NodeID, renamed bool, keys []string, ts time.Time) NodeUpdated {
	return NodeUpdated{
		BaseEvent:     newBase(nodeID.String(), "node.updated", ts),
		NodeID:        nodeID,
		Renamed:       renamed,
		AttributeKeys: keys,
	}
}

// NodeDeleted is raised after a node and its incident edges are removed
type NodeDeleted struct {
	BaseEvent
	NodeID       valueobjects.NodeID `json:"node_id"`
	EdgesRemoved int                 `json:"edges_removed"`
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(nodeID valueobjects.NodeID, edgesRemoved int, ts time.Time) NodeDeleted {
	return NodeDeleted{
		BaseEvent:    newBase(nodeID.String(), "node.deleted", ts),
		NodeID:       nodeID,
		EdgesRemoved: edgesRemoved,
	}
}

// Edge Events

// EdgeCreated is raised when an edge is created
type EdgeCreated struct {
	BaseEvent
	EdgeID     valueobjects.EdgeID `json:"edge_id"`
	FromNodeID valueobjects.NodeID `json:"from_node_id"`
	ToNodeID   valueobjects.NodeID `json:"to_node_id"`
	EdgeType   string              `json:"edge_type"`
}

// NewEdgeCreated creates an EdgeCreated event
func NewEdgeCreated(edgeID valueobjects.EdgeID, from, to valueobjects.NodeID, edgeType string, ts time.Time) EdgeCreated {
	return EdgeCreated{
		BaseEvent:  newBase(edgeID.String(), "edge.created", ts),
		EdgeID:     edgeID,
		FromNodeID: from,
		ToNodeID:   to,
		EdgeType:   edgeType,
	}
}

// EdgeDeleted is raised when an edge is removed, explicitly or by cascade
type EdgeDeleted struct {
	BaseEvent
	EdgeID     valueobjects.EdgeID `json:"edge_id"`
	FromNodeID valueobjects.NodeID `json:"from_node_id"`
	ToNodeID   valueobjects.NodeID `json:"to_node_id"`
	EdgeType   string              `json:"edge_type"`
}

// NewEdgeDeleted creates an EdgeDeleted event
func NewEdgeDeleted(edgeID valueobjects.EdgeID, from, to valueobjects.NodeID, edgeType string, ts time.Time) EdgeDeleted {
	return EdgeDeleted{
		BaseEvent:  newBase(edgeID.String(), "edge.deleted", ts),
		EdgeID:     edgeID,
		FromNodeID: from,
		ToNodeID:   to,
		EdgeType:   edgeType,
	}
}
