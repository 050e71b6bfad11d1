package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"
	"graphstore/pkg/resilience"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// Client is the subset of the DynamoDB API the repositories use
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Table holds everything the repositories share: one table keyed by PK/SK,
// with EntityType distinguishing schema, node and edge items.
type Table struct {
	client    Client
	tableName string
	breaker   *resilience.CircuitBreaker
	logger    *zap.Logger
}

// NewTable creates a table handle. breaker may be nil.
func NewTable(client Client, tableName string, breaker *resilience.CircuitBreaker, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{
		client:    client,
		tableName: tableName,
		breaker:   breaker,
		logger:    logger,
	}
}

func key(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sortKeyMetadata},
	}
}

func (t *Table) put(ctx context.Context, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	return t.breaker.Execute(func() error {
		_, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(t.tableName),
			Item:      av,
		})
		if err != nil {
			return t.failed("put item", err)
		}
		return nil
	})
}

func (t *Table) delete(ctx context.Context, pk string) error {
	return t.breaker.Execute(func() error {
		_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(t.tableName),
			Key:       key(pk),
		})
		if err != nil {
			return t.failed("delete item", err)
		}
		return nil
	})
}

// scan returns every item of entityType, following LastEvaluatedKey
func (t *Table) scan(ctx context.Context, entityType string) ([]map[string]types.AttributeValue, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityType))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(t.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewScanPaginator(t.client, input)
	for paginator.HasMorePages() {
		var page *dynamodb.ScanOutput
		err := t.breaker.Execute(func() error {
			var err error
			page, err = paginator.NextPage(ctx)
			if err != nil {
				return t.failed("scan "+entityType+" items", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}

	t.logger.Debug("Scanned table",
		zap.String("table", t.tableName),
		zap.String("entityType", entityType),
		zap.Int("items", len(items)),
	)
	return items, nil
}

// failed annotates a rejected call with the AWS error code when there is one
func (t *Table) failed(operation string, err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return fmt.Errorf("failed to %s: %w", operation, err)
	}
	t.logger.Warn("DynamoDB request failed",
		zap.String("table", t.tableName),
		zap.String("operation", operation),
		zap.String("errorCode", ae.ErrorCode()),
		zap.String("fault", ae.ErrorFault().String()),
	)
	return fmt.Errorf("failed to %s: %s: %w", operation, ae.ErrorCode(), err)
}

// Ping checks the table is reachable
func (t *Table) Ping(ctx context.Context) error {
	return t.breaker.Execute(func() error {
		_, err := t.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(t.tableName),
		})
		return err
	})
}

// SchemaRepository stores class schemas as SCHEMA#<class_name> items
type SchemaRepository struct {
	table *Table
}

// NewSchemaRepository creates a schema repository
func NewSchemaRepository(table *Table) *SchemaRepository {
	return &SchemaRepository{table: table}
}

// Save writes the schema item
func (r *SchemaRepository) Save(ctx context.Context, schema *entities.ClassSchema) error {
	return r.table.put(ctx, toSchemaItem(schema))
}

// LoadAll scans every schema item
func (r *SchemaRepository) LoadAll(ctx context.Context) ([]*entities.ClassSchema, error) {
	items, err := r.table.scan(ctx, entityTypeSchema)
	if err != nil {
		return nil, err
	}

	schemas := make([]*entities.ClassSchema, 0, len(items))
	for _, av := range items {
		var item schemaItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			r.table.logger.Warn("Failed to parse schema item", zap.Error(err))
			continue
		}
		schemas = append(schemas, item.toEntity())
	}
	return schemas, nil
}

// NodeRepository stores nodes as NODE#<node_id> items
type NodeRepository struct {
	table *Table
}

// NewNodeRepository creates a node repository
func NewNodeRepository(table *Table) *NodeRepository {
	return &NodeRepository{table: table}
}

// Save writes the full node item
func (r *NodeRepository) Save(ctx context.Context, node *entities.Node) error {
	return r.table.put(ctx, toNodeItem(node))
}

// Delete removes the node item. DeleteItem on a missing key succeeds.
func (r *NodeRepository) Delete(ctx context.Context, id valueobjects.NodeID) error {
	return r.table.delete(ctx, nodePK(id))
}

// LoadAll scans every node item
func (r *NodeRepository) LoadAll(ctx context.Context) ([]*entities.Node, error) {
	items, err := r.table.scan(ctx, entityTypeNode)
	if err != nil {
		return nil, err
	}

	nodes := make([]*entities.Node, 0, len(items))
	for _, av := range items {
		var item nodeItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			r.table.logger.Warn("Failed to parse node item", zap.Error(err))
			continue
		}
		node, err := item.toEntity()
		if err != nil {
			r.table.logger.Warn("Failed to convert node item", zap.String("nodeID", item.NodeID), zap.Error(err))
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Ping checks the table is reachable
func (r *NodeRepository) Ping(ctx context.Context) error {
	return r.table.Ping(ctx)
}

// EdgeRepository stores edges as EDGE#<edge_id> items
type EdgeRepository struct {
	table *Table
}

// NewEdgeRepository creates an edge repository
func NewEdgeRepository(table *Table) *EdgeRepository {
	return &EdgeRepository{table: table}
}

// Save writes the edge item
func (r *EdgeRepository) Save(ctx context.Context, edge *entities.Edge) error {
	return r.table.put(ctx, toEdgeItem(edge))
}

// Delete removes the edge item
func (r *EdgeRepository) Delete(ctx context.Context, id valueobjects.EdgeID) error {
	return r.table.delete(ctx, edgePK(id))
}

// LoadAll scans every edge item
func (r *EdgeRepository) LoadAll(ctx context.Context) ([]*entities.Edge, error) {
	items, err := r.table.scan(ctx, entityTypeEdge)
	if err != nil {
		return nil, err
	}

	edges := make([]*entities.Edge, 0, len(items))
	for _, av := range items {
		var item edgeItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			r.table.logger.Warn("Failed to parse edge item", zap.Error(err))
			continue
		}
		edge, err := item.toEntity()
		if err != nil {
			r.table.logger.Warn("Failed to convert edge item", zap.String("edgeID", item.EdgeID), zap.Error(err))
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}
