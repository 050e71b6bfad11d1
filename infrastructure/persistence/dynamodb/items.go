package dynamodb

import (
	"fmt"
	"time"

	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"
)

const (
	sortKeyMetadata = "METADATA"

	entityTypeSchema = "SCHEMA"
	entityTypeNode   = "NODE"
	entityTypeEdge   = "EDGE"
)

func schemaPK(className string) string { return "SCHEMA#" + className }
func nodePK(id valueobjects.NodeID) string { return "NODE#" + id.String() }
func edgePK(id valueobjects.EdgeID) string { return "EDGE#" + id.String() }
func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

// schemaItem represents the DynamoDB item structure for a class schema
type schemaItem struct {
	PK          string            `dynamodbav:"PK"`
	SK          string            `dynamodbav:"SK"`
	EntityType  string            `dynamodbav:"EntityType"`
	ClassName   string            `dynamodbav:"ClassName"`
	ParentClass string            `dynamodbav:"ParentClass,omitempty"`
	Attributes  map[string]string `dynamodbav:"Attributes,omitempty"`
	Description string            `dynamodbav:"Description,omitempty"`
}

func toSchemaItem(s *entities.ClassSchema) schemaItem {
	return schemaItem{
		PK:          schemaPK(s.ClassName),
		SK:          sortKeyMetadata,
		EntityType:  entityTypeSchema,
		ClassName:   s.ClassName,
		ParentClass: s.ParentClass,
		Attributes:  s.Attributes,
		Description: s.Description,
	}
}

func (i schemaItem) toEntity() *entities.ClassSchema {
	return &entities.ClassSchema{
		ClassName:   i.ClassName,
		ParentClass: i.ParentClass,
		Attributes:  i.Attributes,
		Description: i.Description,
	}
}

// valueItem is the tagged form of an attribute value. Kind selects which
// field is meaningful.
type valueItem struct {
	Kind  string      `dynamodbav:"K"`
	Int   *int64      `dynamodbav:"I,omitempty"`
	Float *float64    `dynamodbav:"F,omitempty"`
	Bool  *bool       `dynamodbav:"B,omitempty"`
	Text  *string     `dynamodbav:"S,omitempty"`
	List  []valueItem `dynamodbav:"L,omitempty"`
}

func toValueItem(v valueobjects.Value) valueItem {
	item := valueItem{Kind: v.Kind().String()}
	switch v.Kind() {
	case valueobjects.KindInt:
		n, _ := v.AsInt()
		item.Int = &n
	case valueobjects.KindFloat:
		f, _ := v.AsFloat()
		item.Float = &f
	case valueobjects.KindBool:
		b, _ := v.AsBool()
		item.Bool = &b
	case valueobjects.KindText:
		s, _ := v.AsText()
		item.Text = &s
	case valueobjects.KindList:
		elems, _ := v.AsList()
		item.List = make([]valueItem, len(elems))
		for i, e := range elems {
			item.List[i] = toValueItem(e)
		}
	}
	return item
}

func (i valueItem) toValue() (valueobjects.Value, error) {
	kind, err := valueobjects.ParseKind(i.Kind)
	if err != nil {
		return valueobjects.Value{}, err
	}

	switch kind {
	case valueobjects.KindInt:
		if i.Int != nil {
			return valueobjects.Int(*i.Int), nil
		}
	case valueobjects.KindFloat:
		if i.Float != nil {
			return valueobjects.Float(*i.Float), nil
		}
	case valueobjects.KindBool:
		if i.Bool != nil {
			return valueobjects.Bool(*i.Bool), nil
		}
	case valueobjects.KindText:
		if i.Text != nil {
			return valueobjects.Text(*i.Text), nil
		}
		return valueobjects.Text(""), nil
	case valueobjects.KindList:
		elems := make([]valueobjects.Value, len(i.List))
		for n, e := range i.List {
			v, err := e.toValue()
			if err != nil {
				return valueobjects.Value{}, err
			}
			elems[n] = v
		}
		return valueobjects.List(elems...), nil
	case valueobjects.KindAbsent:
		return valueobjects.Absent(), nil
	}
	return valueobjects.Value{}, fmt.Errorf("value of kind %s has no payload", i.Kind)
}

func toAttributeItems(attrs valueobjects.Attributes) map[string]valueItem {
	out := make(map[string]valueItem, len(attrs))
	for k, v := range attrs {
		out[k] = toValueItem(v)
	}
	return out
}

func fromAttributeItems(items map[string]valueItem) (valueobjects.Attributes, error) {
	out := make(valueobjects.Attributes, len(items))
	for k, item := range items {
		v, err := item.toValue()
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// nodeItem represents the DynamoDB item structure for a node
type nodeItem struct {
	PK         string               `dynamodbav:"PK"`
	SK         string               `dynamodbav:"SK"`
	EntityType string               `dynamodbav:"EntityType"`
	NodeID     string               `dynamodbav:"NodeID"`
	ClassName  string               `dynamodbav:"ClassName"`
	Name       string               `dynamodbav:"Name"`
	Attributes map[string]valueItem `dynamodbav:"Attributes"`
	CreatedAt  string               `dynamodbav:"CreatedAt"`
	UpdatedAt  string               `dynamodbav:"UpdatedAt"`
}

func toNodeItem(n *entities.Node) nodeItem {
	return nodeItem{
		PK:         nodePK(n.ID()),
		SK:         sortKeyMetadata,
		EntityType: entityTypeNode,
		NodeID:     n.ID().String(),
		ClassName:  n.ClassName(),
		Name:       n.Name(),
		Attributes: toAttributeItems(n.Attributes()),
		CreatedAt:  formatTime(n.CreatedAt()),
		UpdatedAt:  formatTime(n.UpdatedAt()),
	}
}

func (i nodeItem) toEntity() (*entities.Node, error) {
	attrs, err := fromAttributeItems(i.Attributes)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime(i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse CreatedAt: %w", err)
	}
	updatedAt, err := parseTime(i.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse UpdatedAt: %w", err)
	}
	return entities.ReconstructNode(
		valueobjects.NodeID(i.NodeID), i.ClassName, i.Name, attrs, createdAt, updatedAt,
	), nil
}

// edgeItem represents the DynamoDB item structure for an edge
type edgeItem struct {
	PK         string               `dynamodbav:"PK"`
	SK         string               `dynamodbav:"SK"`
	EntityType string               `dynamodbav:"EntityType"`
	EdgeID     string               `dynamodbav:"EdgeID"`
	FromNodeID string               `dynamodbav:"FromNodeID"`
	ToNodeID   string               `dynamodbav:"ToNodeID"`
	EdgeType   string               `dynamodbav:"EdgeType"`
	Attributes map[string]valueItem `dynamodbav:"Attributes"`
	CreatedAt  string               `dynamodbav:"CreatedAt"`
}

func toEdgeItem(e *entities.Edge) edgeItem {
	return edgeItem{
		PK:         edgePK(e.ID),
		SK:         sortKeyMetadata,
		EntityType: entityTypeEdge,
		EdgeID:     e.ID.String(),
		FromNodeID: e.FromNodeID.String(),
		ToNodeID:   e.ToNodeID.String(),
		EdgeType:   e.EdgeType,
		Attributes: toAttributeItems(e.Attributes),
		CreatedAt:  formatTime(e.CreatedAt),
	}
}

func (i edgeItem) toEntity() (*entities.Edge, error) {
	attrs, err := fromAttributeItems(i.Attributes)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime(i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse CreatedAt: %w", err)
	}
	edge := &entities.Edge{
		ID:         valueobjects.EdgeID(i.EdgeID),
		FromNodeID: valueobjects.NodeID(i.FromNodeID),
		ToNodeID:   valueobjects.NodeID(i.ToNodeID),
		EdgeType:   i.EdgeType,
		Attributes: attrs,
		CreatedAt:  createdAt,
	}
	return edge.Clone(), nil
}
