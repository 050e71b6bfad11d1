package entities

import (
	"encoding/json"
	"testing"
	"time"

	"graphstore/domain/core/valueobjects"
	pkgerrors "graphstore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stamps both timestamps identically", func(t *testing.T) {
		node, err := NewNode("Person", "Alice", valueobjects.Attributes{"age": valueobjects.Int(30)}, now)

		require.NoError(t, err)
		assert.Equal(t, "Person", node.ClassName())
		assert.Equal(t, "Alice", node.Name())
		assert.Equal(t, "Person", node.ID().ClassName())
		assert.Equal(t, node.CreatedAt(), node.UpdatedAt())
		assert.True(t, now.Equal(node.CreatedAt()))
	})

	t.Run("rejects empty class", func(t *testing.T) {
		node, err := NewNode("", "Alice", nil, now)

		assert.Nil(t, node)
		assert.ErrorIs(t, err, pkgerrors.ErrUnknownClass)
	})

	t.Run("does not alias caller attributes", func(t *testing.T) {
		attrs := valueobjects.Attributes{"age": valueobjects.Int(30)}
		node, err := NewNode("Person", "Alice", attrs, now)
		require.NoError(t, err)

		attrs["age"] = valueobjects.Int(99)

		age, _ := node.Attribute("age")
		assert.True(t, age.Equal(valueobjects.Int(30)))
	})
}

func TestNode_MergeAttributes(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	node, err := NewNode("Person", "Alice", valueobjects.Attributes{
		"a": valueobjects.Int(1),
		"b": valueobjects.Int(2),
	}, created)
	require.NoError(t, err)

	later := created.Add(time.Minute)
	node.MergeAttributes(valueobjects.Attributes{"a": valueobjects.Int(10)}, later)

	attrs := node.Attributes()
	assert.Len(t, attrs, 2)
	assert.True(t, attrs["a"].Equal(valueobjects.Int(10)))
	assert.True(t, attrs["b"].Equal(valueobjects.Int(2)))
	assert.True(t, later.Equal(node.UpdatedAt()))
	assert.True(t, created.Equal(node.CreatedAt()))
}

func TestNode_CloneIsIndependent(t *testing.T) {
	node, err := NewNode("Person", "Alice", valueobjects.Attributes{"a": valueobjects.Int(1)}, time.Now())
	require.NoError(t, err)

	cp := node.Clone()
	cp.Rename("Bob", time.Now())
	cp.MergeAttributes(valueobjects.Attributes{"c": valueobjects.Bool(true)}, time.Now())

	assert.Equal(t, "Alice", node.Name())
	_, ok := node.Attribute("c")
	assert.False(t, ok)
}

func TestNode_JSONRoundTrip(t *testing.T) {
	node, err := NewNode("Person", "Alice", valueobjects.Attributes{
		"age":    valueobjects.Int(30),
		"cities": valueobjects.List(valueobjects.Text("NYC"), valueobjects.Text("LA")),
		"score":  valueobjects.Float(1.5),
	}, time.Now())
	require.NoError(t, err)

	data, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded Node
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, node, &decoded)
}

func TestEdge_Clone(t *testing.T) {
	from := valueobjects.NodeID("Person:aaaaaaaaaaaaaaaa")
	to := valueobjects.NodeID("Person:bbbbbbbbbbbbbbbb")
	edge := NewEdge(from, to, "knows", valueobjects.Attributes{"since": valueobjects.Int(2020)}, time.Now())

	cp := edge.Clone()
	cp.Attributes["since"] = valueobjects.Int(1999)
	assert.True(t, edge.Attributes["since"].Equal(valueobjects.Int(2020)))
}

func TestClassSchema_Clone(t *testing.T) {
	schema := &ClassSchema{
		ClassName:   "Person",
		ParentClass: "Thing",
		Attributes:  map[string]string{"age": "int"},
	}

	cp := schema.Clone()
	cp.Attributes["email"] = "string"

	assert.Len(t, schema.Attributes, 1)
	assert.False(t, schema.IsRoot())
	assert.True(t, (&ClassSchema{ClassName: "Thing"}).IsRoot())
}
