package queries

import (
	"context"
	"time"

	"graphstore/application/ports"
	"graphstore/domain/config"
	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"
	"graphstore/domain/predicates"
	pkgerrors "graphstore/pkg/errors"
	"graphstore/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GraphView is the read side of the store the query engines run against
type GraphView interface {
	View(ctx context.Context, fn func(r ports.GraphReader) error) error
}

// Unlimited disables the depth bound of TraverseWithFilter
const Unlimited = -1

// GraphFilter answers neighbourhood and reachability questions, narrowing
// results with an optional predicate. A nil predicate keeps every node.
type GraphFilter struct {
	view    GraphView
	cfg     *config.DomainConfig
	logger  *zap.Logger
	metrics *observability.Collector
	tracer  *observability.Tracer
}

// NewGraphFilter creates a filter engine over view
func NewGraphFilter(
	view GraphView,
	cfg *config.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer *observability.Tracer,
) *GraphFilter {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphFilter{
		view:    view,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// GetConnectedNodes returns the distinct neighbours of a node over edges in
// either direction whose type is not excluded. Outgoing targets come first,
// then incoming sources, each in edge creation order.
func (f *GraphFilter) GetConnectedNodes(
	ctx context.Context,
	nodeID valueobjects.NodeID,
	excludeEdgeTypes []string,
	filter predicates.Predicate,
) ([]*entities.Node, error) {
	var result []*entities.Node
	err := f.run(ctx, "get_connected_nodes", func(ctx context.Context, r ports.GraphReader) error {
		if !r.HasNode(nodeID) {
			return nil
		}
		excluded := edgeTypeSet(excludeEdgeTypes)

		for _, id := range neighbours(r, nodeID, excluded) {
			node, ok := r.GetNode(id)
			if !ok {
				continue
			}
			if predicates.Matches(filter, node) {
				result = append(result, node)
			}
		}
		return nil
	}, attribute.String("node_id", nodeID.String()))
	return result, err
}

// GetConnectedNodesExcludingIsA is GetConnectedNodes ignoring is_a edges
func (f *GraphFilter) GetConnectedNodesExcludingIsA(
	ctx context.Context,
	nodeID valueobjects.NodeID,
	filter predicates.Predicate,
) ([]*entities.Node, error) {
	return f.GetConnectedNodes(ctx, nodeID, []string{entities.EdgeTypeIsA}, filter)
}

// TraverseWithFilter explores the graph breadth first from start, following
// edges in both directions. Each node is visited once. The filter decides
// which visited nodes are returned but never stops the walk. Nodes further
// than maxDepth hops are neither returned nor expanded; a negative maxDepth
// means no bound.
func (f *GraphFilter) TraverseWithFilter(
	ctx context.Context,
	start valueobjects.NodeID,
	excludeEdgeTypes []string,
	filter predicates.Predicate,
	maxDepth int,
) ([]*entities.Node, error) {
	ctx, cancel := withTraversalTimeout(ctx, f.cfg.TraversalTimeout)
	defer cancel()

	var result []*entities.Node
	err := f.run(ctx, "traverse_with_filter", func(ctx context.Context, r ports.GraphReader) error {
		if !r.HasNode(start) {
			return nil
		}
		excluded := edgeTypeSet(excludeEdgeTypes)

		type item struct {
			id    valueobjects.NodeID
			depth int
		}
		visited := make(map[valueobjects.NodeID]bool)
		queue := []item{{id: start}}
		level := 0

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			if current.depth != level {
				level = current.depth
				if err := ctx.Err(); err != nil {
					return pkgerrors.NewCancelledError("traverse_with_filter", err).
						WithDetail("depth", level).
						WithDetail("visited", len(visited))
				}
			}

			if visited[current.id] {
				continue
			}
			if maxDepth >= 0 && current.depth > maxDepth {
				continue
			}
			visited[current.id] = true

			node, ok := r.GetNode(current.id)
			if !ok {
				continue
			}
			if predicates.Matches(filter, node) {
				result = append(result, node)
			}

			for _, next := range neighbours(r, current.id, excluded) {
				if !visited[next] {
					queue = append(queue, item{id: next, depth: current.depth + 1})
				}
			}
		}

		f.metrics.ObserveVisited("traverse_with_filter", len(visited))
		return nil
	}, attribute.String("start_node_id", start.String()), attribute.Int("max_depth", maxDepth))

	if err != nil {
		return nil, err
	}
	return result, nil
}

// FilterNodesByClass returns the nodes of exactly className that pass filter
func (f *GraphFilter) FilterNodesByClass(
	ctx context.Context,
	className string,
	filter predicates.Predicate,
) ([]*entities.Node, error) {
	var result []*entities.Node
	err := f.run(ctx, "filter_nodes_by_class", func(ctx context.Context, r ports.GraphReader) error {
		result = keep(r.FindNodesByClass(className), filter)
		return nil
	}, attribute.String("class_name", className))
	return result, err
}

// FilterAllNodes returns every node that passes filter
func (f *GraphFilter) FilterAllNodes(ctx context.Context, filter predicates.Predicate) ([]*entities.Node, error) {
	var result []*entities.Node
	err := f.run(ctx, "filter_all_nodes", func(ctx context.Context, r ports.GraphReader) error {
		result = keep(r.AllNodes(), filter)
		return nil
	})
	return result, err
}

func (f *GraphFilter) run(
	ctx context.Context,
	operation string,
	fn func(ctx context.Context, r ports.GraphReader) error,
	attrs ...attribute.KeyValue,
) error {
	return runView(ctx, f.view, f.logger, f.metrics, f.tracer, operation, fn, attrs...)
}

// runView wraps a read in a span, records its outcome, and runs it against
// one consistent snapshot.
func runView(
	ctx context.Context,
	view GraphView,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	operation string,
	fn func(ctx context.Context, r ports.GraphReader) error,
	attrs ...attribute.KeyValue,
) error {
	start := time.Now()
	ctx, span := tracer.Start(ctx, operation, attrs...)

	err := view.View(ctx, func(r ports.GraphReader) error {
		return fn(ctx, r)
	})

	tracer.End(span, err)
	metrics.RecordOperation(operation, start, err)
	if err != nil {
		logger.Warn("Query aborted",
			zap.String("operation", operation),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
	return err
}

// withTraversalTimeout bounds ctx by timeout unless ctx already carries a
// deadline or timeout is zero.
func withTraversalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func edgeTypeSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// neighbours lists distinct ids adjacent to id over non-excluded edges
func neighbours(r ports.GraphReader, id valueobjects.NodeID, excluded map[string]bool) []valueobjects.NodeID {
	seen := make(map[valueobjects.NodeID]bool)
	var out []valueobjects.NodeID

	add := func(n valueobjects.NodeID) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, edge := range r.GetOutgoingEdges(id, "") {
		if !excluded[edge.EdgeType] {
			add(edge.ToNodeID)
		}
	}
	for _, edge := range r.GetIncomingEdges(id, "") {
		if !excluded[edge.EdgeType] {
			add(edge.FromNodeID)
		}
	}
	return out
}

func keep(nodes []*entities.Node, filter predicates.Predicate) []*entities.Node {
	if predicates.IsNil(filter) {
		return nodes
	}
	out := nodes[:0]
	for _, n := range nodes {
		if predicates.Matches(filter, n) {
			out = append(out, n)
		}
	}
	return out
}
