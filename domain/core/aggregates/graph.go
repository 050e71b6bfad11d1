package aggregates

import (
	"sort"
	"time"

	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"
	"graphstore/domain/events"
	pkgerrors "graphstore/pkg/errors"
)

// Graph is the aggregate root holding every node and edge record.
// It guarantees that an edge never outlives either endpoint.
//
// Graph is not safe for concurrent use. Records returned by its accessors are
// the aggregate's own; callers clone before handing them out.
type Graph struct {
	nodes map[valueobjects.NodeID]*nodeEntry
	edges map[valueobjects.EdgeID]*edgeEntry

	// adjacency, in edge insertion order
	outgoing map[valueobjects.NodeID][]valueobjects.EdgeID
	incoming map[valueobjects.NodeID][]valueobjects.EdgeID

	seq    uint64
	events []events.DomainEvent
}

type nodeEntry struct {
	node *entities.Node
	seq  uint64
}

type edgeEntry struct {
	edge *entities.Edge
	seq  uint64
}

// NewGraph creates an empty graph aggregate
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[valueobjects.NodeID]*nodeEntry),
		edges:    make(map[valueobjects.EdgeID]*edgeEntry),
		outgoing: make(map[valueobjects.NodeID][]valueobjects.EdgeID),
		incoming: make(map[valueobjects.NodeID][]valueobjects.EdgeID),
		events:   []events.DomainEvent{},
	}
}

// AddNode inserts a newly created node and records a NodeCreated event
func (g *Graph) AddNode(node *entities.Node) error {
	if err := g.LoadNode(node); err != nil {
		return err
	}
	g.addEvent(events.NewNodeCreated(node.ID(), node.ClassName(), node.Name(), node.CreatedAt()))
	return nil
}

// LoadNode inserts a node read back from durable storage. No event is raised.
func (g *Graph) LoadNode(node *entities.Node) error {
	if _, exists := g.nodes[node.ID()]; exists {
		return pkgerrors.ErrDuplicateNode.New().WithDetail("node_id", node.ID().String())
	}
	g.seq++
	g.nodes[node.ID()] = &nodeEntry{node: node, seq: g.seq}
	return nil
}

// ReplaceNode swaps in an updated version of an existing node, keeping its
// position in scan order.
func (g *Graph) ReplaceNode(node *entities.Node, renamed bool, keys []string) bool {
	entry, ok := g.nodes[node.ID()]
	if !ok {
		return false
	}
	entry.node = node
	g.addEvent(events.NewNodeUpdated(node.ID(), renamed, keys, node.UpdatedAt()))
	return true
}

// RemoveNode deletes a node together with every incident edge still present.
// It returns the edges removed along the way.
func (g *Graph) RemoveNode(id valueobjects.NodeID, now time.Time) ([]*entities.Edge, bool) {
	if _, ok := g.nodes[id]; !ok {
		return nil, false
	}

	incident := g.IncidentEdges(id)
	for _, edge := range incident {
		g.RemoveEdge(edge.ID, now)
	}

	delete(g.nodes, id)
	delete(g.outgoing, id)
	delete(g.incoming, id)

	g.addEvent(events.NewNodeDeleted(id, len(incident), now))
	return incident, true
}

// AddEdge inserts a newly created edge and records an EdgeCreated event.
// Both endpoints must already exist.
func (g *Graph) AddEdge(edge *entities.Edge) error {
	if err := g.LoadEdge(edge); err != nil {
		return err
	}
	g.addEvent(events.NewEdgeCreated(edge.ID, edge.FromNodeID, edge.ToNodeID, edge.EdgeType, edge.CreatedAt))
	return nil
}

// LoadEdge inserts an edge read back from durable storage. No event is raised.
func (g *Graph) LoadEdge(edge *entities.Edge) error {
	if err := g.CheckEndpoints(edge.FromNodeID, edge.ToNodeID); err != nil {
		return err
	}
	if _, exists := g.edges[edge.ID]; exists {
		return pkgerrors.ErrDuplicateEdge.New().WithDetail("edge_id", edge.ID.String())
	}

	g.seq++
	g.edges[edge.ID] = &edgeEntry{edge: edge, seq: g.seq}
	g.outgoing[edge.FromNodeID] = append(g.outgoing[edge.FromNodeID], edge.ID)
	g.incoming[edge.ToNodeID] = append(g.incoming[edge.ToNodeID], edge.ID)
	return nil
}

// CheckEndpoints validates that both ends of a prospective edge exist
func (g *Graph) CheckEndpoints(from, to valueobjects.NodeID) error {
	if _, ok := g.nodes[from]; !ok {
		return pkgerrors.ErrUnknownSourceNode.New().WithDetail("from_node_id", from.String())
	}
	if _, ok := g.nodes[to]; !ok {
		return pkgerrors.ErrUnknownTargetNode.New().WithDetail("to_node_id", to.String())
	}
	return nil
}

// RemoveEdge deletes a single edge
func (g *Graph) RemoveEdge(id valueobjects.EdgeID, now time.Time) (*entities.Edge, bool) {
	entry, ok := g.edges[id]
	if !ok {
		return nil, false
	}
	edge := entry.edge

	delete(g.edges, id)
	g.outgoing[edge.FromNodeID] = removeID(g.outgoing[edge.FromNodeID], id)
	g.incoming[edge.ToNodeID] = removeID(g.incoming[edge.ToNodeID], id)

	g.addEvent(events.NewEdgeDeleted(edge.ID, edge.FromNodeID, edge.ToNodeID, edge.EdgeType, now))
	return edge, true
}

// HasNode reports whether the node exists
func (g *Graph) HasNode(id valueobjects.NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns a node by id
func (g *Graph) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	entry, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return entry.node, true
}

// Edge returns an edge by id
func (g *Graph) Edge(id valueobjects.EdgeID) (*entities.Edge, bool) {
	entry, ok := g.edges[id]
	if !ok {
		return nil, false
	}
	return entry.edge, true
}

// Nodes returns every node in insertion order
func (g *Graph) Nodes() []*entities.Node {
	return g.selectNodes(func(*entities.Node) bool { return true })
}

// NodesByClass returns nodes whose class name matches exactly
func (g *Graph) NodesByClass(className string) []*entities.Node {
	return g.selectNodes(func(n *entities.Node) bool { return n.ClassName() == className })
}

// NodesByName returns nodes whose display name matches exactly
func (g *Graph) NodesByName(name string) []*entities.Node {
	return g.selectNodes(func(n *entities.Node) bool { return n.Name() == name })
}

func (g *Graph) selectNodes(keep func(*entities.Node) bool) []*entities.Node {
	entries := make([]*nodeEntry, 0, len(g.nodes))
	for _, entry := range g.nodes {
		if keep(entry.node) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]*entities.Node, len(entries))
	for i, entry := range entries {
		out[i] = entry.node
	}
	return out
}

// OutgoingEdges returns edges leaving the node. An empty edgeType matches any type.
func (g *Graph) OutgoingEdges(id valueobjects.NodeID, edgeType string) []*entities.Edge {
	return g.resolve(g.outgoing[id], edgeType)
}

// IncomingEdges returns edges arriving at the node. An empty edgeType matches any type.
func (g *Graph) IncomingEdges(id valueobjects.NodeID, edgeType string) []*entities.Edge {
	return g.resolve(g.incoming[id], edgeType)
}

// IncidentEdges returns every edge touching the node, outgoing first.
// A self-loop is reported once.
func (g *Graph) IncidentEdges(id valueobjects.NodeID) []*entities.Edge {
	out := g.OutgoingEdges(id, "")
	for _, edge := range g.IncomingEdges(id, "") {
		if edge.FromNodeID != id {
			out = append(out, edge)
		}
	}
	return out
}

func (g *Graph) resolve(ids []valueobjects.EdgeID, edgeType string) []*entities.Edge {
	out := make([]*entities.Edge, 0, len(ids))
	for _, id := range ids {
		entry, ok := g.edges[id]
		if !ok {
			continue
		}
		if edgeType != "" && entry.edge.EdgeType != edgeType {
			continue
		}
		out = append(out, entry.edge)
	}
	return out
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// NodesByClassCount tallies nodes per class name
func (g *Graph) NodesByClassCount() map[string]int {
	out := make(map[string]int)
	for _, entry := range g.nodes {
		out[entry.node.ClassName()]++
	}
	return out
}

// EdgesByTypeCount tallies edges per edge type
func (g *Graph) EdgesByTypeCount() map[string]int {
	out := make(map[string]int)
	for _, entry := range g.edges {
		out[entry.edge.EdgeType]++
	}
	return out
}

// GetUncommittedEvents returns events raised since the last commit
func (g *Graph) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(g.events))
	copy(out, g.events)
	return out
}

// MarkEventsAsCommitted clears the pending events
func (g *Graph) MarkEventsAsCommitted() {
	g.events = []events.DomainEvent{}
}

func (g *Graph) addEvent(event events.DomainEvent) {
	g.events = append(g.events, event)
}

func removeID(ids []valueobjects.EdgeID, id valueobjects.EdgeID) []valueobjects.EdgeID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
