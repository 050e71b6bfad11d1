package queries

import (
	"context"

	"graphstore/application/ports"
	"graphstore/domain/config"
	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"
	pkgerrors "graphstore/pkg/errors"
	"graphstore/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Direction selects which edges FindRelatedNodes follows
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// ParseDirection validates a direction string. Empty means both.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "":
		return DirectionBoth, nil
	case DirectionOut, DirectionIn, DirectionBoth:
		return Direction(s), nil
	}
	return "", pkgerrors.ErrInvalidDirection.New().WithDetail("direction", s)
}

// DefaultPathDepth is the max_depth callers use when they have no better bound
const DefaultPathDepth = 10

// Path is an ordered list of node ids joined by outgoing edges
type Path []valueobjects.NodeID

// RelatedNode pairs a neighbour with the type of the edge that reached it
type RelatedNode struct {
	Node     *entities.Node
	EdgeType string
}

// GraphQuery answers path and relationship questions
type GraphQuery struct {
	view    GraphView
	cfg     *config.DomainConfig
	logger  *zap.Logger
	metrics *observability.Collector
	tracer  *observability.Tracer
}

// NewGraphQuery creates a query engine over view
func NewGraphQuery(
	view GraphView,
	cfg *config.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer *observability.Tracer,
) *GraphQuery {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphQuery{
		view:    view,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// FindPaths enumerates every simple directed path from start to end holding
// at most maxDepth nodes. Partial paths are expanded breadth first, so
// shorter paths come first. A path never repeats a node, which already makes
// every partial path distinct; no further deduplication is done.
func (q *GraphQuery) FindPaths(
	ctx context.Context,
	start valueobjects.NodeID,
	end valueobjects.NodeID,
	maxDepth int,
) ([]Path, error) {
	ctx, cancel := withTraversalTimeout(ctx, q.cfg.TraversalTimeout)
	defer cancel()

	var paths []Path
	err := q.run(ctx, "find_paths", func(ctx context.Context, r ports.GraphReader) error {
		if !r.HasNode(start) {
			return nil
		}

		queue := []Path{{start}}
		length := 1
		expanded := 0

		for len(queue) > 0 {
			path := queue[0]
			queue = queue[1:]

			if len(path) != length {
				length = len(path)
				if err := ctx.Err(); err != nil {
					return pkgerrors.NewCancelledError("find_paths", err).
						WithDetail("path_length", length).
						WithDetail("expanded", expanded)
				}
			}

			if len(path) > maxDepth {
				continue
			}
			current := path[len(path)-1]
			if current == end {
				paths = append(paths, path)
				continue
			}

			expanded++
			for _, edge := range r.GetOutgoingEdges(current, "") {
				if path.contains(edge.ToNodeID) {
					continue
				}
				next := make(Path, len(path)+1)
				copy(next, path)
				next[len(path)] = edge.ToNodeID
				queue = append(queue, next)
			}
		}

		q.metrics.ObserveVisited("find_paths", expanded)
		return nil
	},
		attribute.String("start_node_id", start.String()),
		attribute.String("end_node_id", end.String()),
		attribute.Int("max_depth", maxDepth),
	)

	if err != nil {
		return nil, err
	}
	return paths, nil
}

// FindRelatedNodes lists the neighbours of nodeID with the edge type that
// links them. Outgoing neighbours come before incoming ones. An empty
// relationshipType matches every edge type.
func (q *GraphQuery) FindRelatedNodes(
	ctx context.Context,
	nodeID valueobjects.NodeID,
	relationshipType string,
	direction Direction,
) ([]RelatedNode, error) {
	if direction == "" {
		direction = DirectionBoth
	}
	if _, err := ParseDirection(string(direction)); err != nil {
		return nil, err
	}

	var result []RelatedNode
	err := q.run(ctx, "find_related_nodes", func(ctx context.Context, r ports.GraphReader) error {
		if direction == DirectionOut || direction == DirectionBoth {
			for _, edge := range r.GetOutgoingEdges(nodeID, relationshipType) {
				if target, ok := r.GetNode(edge.ToNodeID); ok {
					result = append(result, RelatedNode{Node: target, EdgeType: edge.EdgeType})
				}
			}
		}
		if direction == DirectionIn || direction == DirectionBoth {
			for _, edge := range r.GetIncomingEdges(nodeID, relationshipType) {
				if source, ok := r.GetNode(edge.FromNodeID); ok {
					result = append(result, RelatedNode{Node: source, EdgeType: edge.EdgeType})
				}
			}
		}
		return nil
	},
		attribute.String("node_id", nodeID.String()),
		attribute.String("direction", string(direction)),
	)
	return result, err
}

// GetNodesByClassAndAttribute returns nodes of exactly className whose
// attribute equals value. A missing attribute equals only the absent value.
func (q *GraphQuery) GetNodesByClassAndAttribute(
	ctx context.Context,
	className string,
	attrName string,
	value valueobjects.Value,
) ([]*entities.Node, error) {
	var result []*entities.Node
	err := q.run(ctx, "get_nodes_by_class_and_attribute", func(ctx context.Context, r ports.GraphReader) error {
		for _, node := range r.FindNodesByClass(className) {
			actual, ok := node.Attribute(attrName)
			if !ok {
				actual = valueobjects.Absent()
			}
			if actual.Equal(value) {
				result = append(result, node)
			}
		}
		return nil
	}, attribute.String("class_name", className), attribute.String("attribute", attrName))
	return result, err
}

func (q *GraphQuery) run(
	ctx context.Context,
	operation string,
	fn func(ctx context.Context, r ports.GraphReader) error,
	attrs ...attribute.KeyValue,
) error {
	return runView(ctx, q.view, q.logger, q.metrics, q.tracer, operation, fn, attrs...)
}

func (p Path) contains(id valueobjects.NodeID) bool {
	for _, n := range p {
		if n == id {
			return true
		}
	}
	return false
}
