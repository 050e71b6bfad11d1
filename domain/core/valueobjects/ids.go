package valueobjects

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	nodeIDSuffixLength = 16
	edgeIDSuffixLength = 8
)

// NodeID identifies a node. It embeds the owning class name for readability.
type NodeID string

// NewNodeID creates a fresh NodeID of the form "<class>:<16 hex chars>"
func NewNodeID(className string) NodeID {
	return NodeID(fmt.Sprintf("%s:%s", className, hexSuffix(nodeIDSuffixLength)))
}

// String returns the string representation
func (id NodeID) String() string {
	return string(id)
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id == ""
}

// ClassName returns the class prefix embedded at creation
func (id NodeID) ClassName() string {
	s := string(id)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[:i]
	}
	return ""
}

// EdgeID identifies an edge
type EdgeID string

// NewEdgeID creates a fresh EdgeID of the form "<from>_<type>_<to>:<8 hex chars>"
func NewEdgeID(from NodeID, edgeType string, to NodeID) EdgeID {
	return EdgeID(fmt.Sprintf("%s_%s_%s:%s", from, edgeType, to, hexSuffix(edgeIDSuffixLength)))
}

// String returns the string representation
func (id EdgeID) String() string {
	return string(id)
}

// IsZero checks if the EdgeID is the zero value
func (id EdgeID) IsZero() bool {
	return id == ""
}

func hexSuffix(n int) string {
	u := uuid.New()
	hex := strings.ReplaceAll(u.String(), "-", "")
	return hex[:n]
}
