package entities

import (
	"encoding/json"
	"time"

	"graphstore/domain/core/valueobjects"
	pkgerrors "graphstore/pkg/errors"
)

// Node is an entity instance belonging to a registered class.
// Fields are private; the store hands out clones, never its own records.
type Node struct {
	id         valueobjects.NodeID
	className  string
	name       string
	attributes valueobjects.Attributes
	createdAt  time.Time
	updatedAt  time.Time
}

// NewNode creates a node with a fresh id. Both timestamps are set to now.
func NewNode(className, name string, attributes valueobjects.Attributes, now time.Time) (*Node, error) {
	if className == "" {
		return nil, pkgerrors.ErrUnknownClass.New().WithDetail("class_name", className)
	}

	ts := normalizeTime(now)
	node := &Node{
		id:         valueobjects.NewNodeID(className),
		className:  className,
		name:       name,
		attributes: attributes.Clone(),
		createdAt:  ts,
		updatedAt:  ts,
	}
	return node, nil
}

// ReconstructNode rebuilds a node from a durable record with preserved ids and timestamps
func ReconstructNode(
	id valueobjects.NodeID,
	className string,
	name string,
	attributes valueobjects.Attributes,
	createdAt, updatedAt time.Time,
) *Node {
	if attributes == nil {
		attributes = valueobjects.Attributes{}
	}
	return &Node{
		id:         id,
		className:  className,
		name:       name,
		attributes: attributes.Clone(),
		createdAt:  normalizeTime(createdAt),
		updatedAt:  normalizeTime(updatedAt),
	}
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// ClassName returns the class the node was created under
func (n *Node) ClassName() string {
	return n.className
}

// Name returns the display label
func (n *Node) Name() string {
	return n.name
}

// Attributes returns a copy of the attribute map
func (n *Node) Attributes() valueobjects.Attributes {
	return n.attributes.Clone()
}

// Attribute returns a single attribute value
func (n *Node) Attribute(name string) (valueobjects.Value, bool) {
	v, ok := n.attributes[name]
	return v, ok
}

// CreatedAt returns the creation timestamp
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns the last update timestamp
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}

// Rename replaces the display label
func (n *Node) Rename(name string, now time.Time) {
	n.name = name
	n.updatedAt = normalizeTime(now)
}

// MergeAttributes overwrites the supplied keys and keeps every other key
func (n *Node) MergeAttributes(attributes valueobjects.Attributes, now time.Time) {
	for k, v := range attributes {
		n.attributes[k] = v
	}
	n.updatedAt = normalizeTime(now)
}

// Clone returns an independent copy
func (n *Node) Clone() *Node {
	cp := *n
	cp.attributes = n.attributes.Clone()
	return &cp
}

// nodeRecord is the self-contained serialized form of a node
type nodeRecord struct {
	NodeID     valueobjects.NodeID     `json:"node_id"`
	ClassName  string                  `json:"class_name"`
	Name       string                  `json:"name"`
	Attributes valueobjects.Attributes `json:"attributes"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// MarshalJSON implements json.Marshaler
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeRecord{
		NodeID:     n.id,
		ClassName:  n.className,
		Name:       n.name,
		Attributes: n.attributes,
		CreatedAt:  n.createdAt,
		UpdatedAt:  n.updatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Node) UnmarshalJSON(data []byte) error {
	var rec nodeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*n = *ReconstructNode(rec.NodeID, rec.ClassName, rec.Name, rec.Attributes, rec.CreatedAt, rec.UpdatedAt)
	return nil
}

// normalizeTime drops the monotonic reading and pins the location to UTC so
// that a record compares equal after a durable round trip.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}
