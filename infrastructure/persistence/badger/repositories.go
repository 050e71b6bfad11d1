package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"graphstore/domain/core/entities"
	"graphstore/domain/core/valueobjects"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	schemaPrefix = "schema/"
	nodePrefix   = "node/"
	edgePrefix   = "edge/"
)

func schemaKey(className string) []byte { return []byte(schemaPrefix + className) }
func nodeKey(id valueobjects.NodeID) []byte { return []byte(nodePrefix + id.String()) }
func edgeKey(id valueobjects.EdgeID) []byte { return []byte(edgePrefix + id.String()) }

func put(ctx context.Context, db *DB, key []byte, record interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return db.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func remove(ctx context.Context, db *DB, key []byte) error {
	return db.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// loadPrefix decodes every value under prefix. A record that fails to decode
// is logged and skipped so one bad record cannot block startup.
func loadPrefix[T any](ctx context.Context, db *DB, logger *zap.Logger, prefix string) ([]*T, error) {
	var out []*T

	err := db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", item.Key(), err)
			}

			record := new(T)
			if err := json.Unmarshal(data, record); err != nil {
				logger.Warn("Skipping undecodable record",
					zap.ByteString("key", item.KeyCopy(nil)),
					zap.Error(err),
				)
				continue
			}
			out = append(out, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SchemaRepository persists class schemas under schema/
type SchemaRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSchemaRepository creates a schema repository over db
func NewSchemaRepository(db *DB, logger *zap.Logger) *SchemaRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaRepository{db: db, logger: logger}
}

// Save writes the schema record
func (r *SchemaRepository) Save(ctx context.Context, schema *entities.ClassSchema) error {
	return put(ctx, r.db, schemaKey(schema.ClassName), schema)
}

// LoadAll reads every schema record
func (r *SchemaRepository) LoadAll(ctx context.Context) ([]*entities.ClassSchema, error) {
	return loadPrefix[entities.ClassSchema](ctx, r.db, r.logger, schemaPrefix)
}

// NodeRepository persists nodes under node/
type NodeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNodeRepository creates a node repository over db
func NewNodeRepository(db *DB, logger *zap.Logger) *NodeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NodeRepository{db: db, logger: logger}
}

// Save writes the full node record
func (r *NodeRepository) Save(ctx context.Context, node *entities.Node) error {
	return put(ctx, r.db, nodeKey(node.ID()), node)
}

// Delete removes the node record. Badger deletes of absent keys succeed.
func (r *NodeRepository) Delete(ctx context.Context, id valueobjects.NodeID) error {
	return remove(ctx, r.db, nodeKey(id))
}

// LoadAll reads every node record
func (r *NodeRepository) LoadAll(ctx context.Context) ([]*entities.Node, error) {
	return loadPrefix[entities.Node](ctx, r.db, r.logger, nodePrefix)
}

// Ping reports whether the database is open
func (r *NodeRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// EdgeRepository persists edges under edge/
type EdgeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEdgeRepository creates an edge repository over db
func NewEdgeRepository(db *DB, logger *zap.Logger) *EdgeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EdgeRepository{db: db, logger: logger}
}

// Save writes the edge record
func (r *EdgeRepository) Save(ctx context.Context, edge *entities.Edge) error {
	return put(ctx, r.db, edgeKey(edge.ID), edge)
}

// Delete removes the edge record
func (r *EdgeRepository) Delete(ctx context.Context, id valueobjects.EdgeID) error {
	return remove(ctx, r.db, edgeKey(id))
}

// LoadAll reads every edge record
func (r *EdgeRepository) LoadAll(ctx context.Context) ([]*entities.Edge, error) {
	return loadPrefix[entities.Edge](ctx, r.db, r.logger, edgePrefix)
}
