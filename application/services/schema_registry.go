package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"graphstore/application/ports"
	"graphstore/domain/config"
	"graphstore/domain/core/entities"
	"graphstore/domain/events"
	pkgerrors "graphstore/pkg/errors"
	"graphstore/pkg/observability"

	"go.uber.org/zap"
)

// SchemaRegistry maintains the class hierarchy. Registration is append-only:
// a schema is immutable once stored and is never removed.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*entities.ClassSchema

	repo      ports.SchemaRepository
	publisher ports.EventPublisher
	cfg       *config.DomainConfig
	logger    *zap.Logger
	metrics   *observability.Collector
}

// NewSchemaRegistry bootstraps the root class, persists it, and loads every
// stored schema. publisher and metrics may be nil.
func NewSchemaRegistry(
	ctx context.Context,
	repo ports.SchemaRepository,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	logger *zap.Logger,
	metrics *observability.Collector,
) (*SchemaRegistry, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &SchemaRegistry{
		schemas:   make(map[string]*entities.ClassSchema),
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}

	root := &entities.ClassSchema{
		ClassName:   cfg.RootClassName,
		Attributes:  cfg.RootAttributesCopy(),
		Description: cfg.RootClassDescription,
	}
	if err := repo.Save(ctx, root); err != nil {
		return nil, pkgerrors.NewStorageError("save_schema", err)
	}
	r.schemas[root.ClassName] = root

	stored, err := repo.LoadAll(ctx)
	if err != nil {
		return nil, pkgerrors.NewStorageError("load_schemas", err)
	}
	for _, schema := range stored {
		if schema.ClassName == root.ClassName {
			continue
		}
		r.schemas[schema.ClassName] = schema.Clone()
	}
	for name, schema := range r.schemas {
		if !schema.IsRoot() {
			if _, ok := r.schemas[schema.ParentClass]; !ok {
				r.logger.Warn("Loaded schema references unknown parent",
					zap.String("className", name),
					zap.String("parentClass", schema.ParentClass),
				)
			}
		}
	}

	r.metrics.SetSchemaCount(len(r.schemas))
	r.logger.Info("Schema registry loaded", zap.Int("schemas", len(r.schemas)))
	return r, nil
}

// RootClassName returns the name of the hierarchy root
func (r *SchemaRegistry) RootClassName() string {
	return r.cfg.RootClassName
}

// RegisterClass adds a class under parentClass. An empty parentClass means
// the root class. The schema is persisted before it becomes visible.
func (r *SchemaRegistry) RegisterClass(
	ctx context.Context,
	className string,
	parentClass string,
	attributes map[string]string,
	description string,
) (*entities.ClassSchema, error) {
	start := time.Now()
	if parentClass == "" {
		parentClass = r.cfg.RootClassName
	}

	schema, err := r.register(ctx, className, parentClass, attributes, description)
	r.metrics.RecordOperation("register_class", start, err)
	if err != nil {
		return nil, err
	}

	publishEvents(ctx, r.publisher, r.logger, r.metrics,
		[]events.DomainEvent{events.NewClassRegistered(schema.ClassName, schema.ParentClass, start)})
	return schema.Clone(), nil
}

func (r *SchemaRegistry) register(
	ctx context.Context,
	className string,
	parentClass string,
	attributes map[string]string,
	description string,
) (*entities.ClassSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[className]; exists {
		return nil, pkgerrors.ErrDuplicateClass.New().WithDetail("class_name", className)
	}
	if _, exists := r.schemas[parentClass]; !exists {
		return nil, pkgerrors.ErrUnknownParentClass.New().
			WithDetail("class_name", className).
			WithDetail("parent_class", parentClass)
	}

	schema := (&entities.ClassSchema{
		ClassName:   className,
		ParentClass: parentClass,
		Attributes:  attributes,
		Description: description,
	}).Clone()

	if err := r.repo.Save(ctx, schema); err != nil {
		r.logger.Error("Failed to persist schema",
			zap.String("className", className),
			zap.Error(err),
		)
		return nil, pkgerrors.NewStorageError("save_schema", err)
	}
	r.schemas[className] = schema
	r.metrics.SetSchemaCount(len(r.schemas))

	r.logger.Info("Registered class",
		zap.String("className", className),
		zap.String("parentClass", parentClass),
	)
	return schema, nil
}

// GetSchema returns a copy of a registered schema
func (r *SchemaRegistry) GetSchema(className string) (*entities.ClassSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, ok := r.schemas[className]
	if !ok {
		return nil, false
	}
	return schema.Clone(), true
}

// HasClass reports whether a class is registered
func (r *SchemaRegistry) HasClass(className string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.schemas[className]
	return ok
}

// GetAllSchemas returns a snapshot of every schema keyed by class name
func (r *SchemaRegistry) GetAllSchemas() map[string]*entities.ClassSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*entities.ClassSchema, len(r.schemas))
	for name, schema := range r.schemas {
		out[name] = schema.Clone()
	}
	return out
}

// ClassNames returns registered class names in sorted order
func (r *SchemaRegistry) ClassNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered schemas
func (r *SchemaRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// GetClassHierarchy walks parent pointers from className up to the root.
// The walk starts with className itself, even when it is not registered, and
// stops at a class with no parent, an unknown class, or a repeat.
func (r *SchemaRegistry) GetClassHierarchy(className string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hierarchy := []string{className}
	seen := map[string]bool{className: true}
	current := className

	for {
		schema, ok := r.schemas[current]
		if !ok || schema.IsRoot() {
			break
		}
		parent := schema.ParentClass
		if seen[parent] {
			r.logger.Warn("Cycle in class hierarchy",
				zap.String("className", className),
				zap.String("repeated", parent),
			)
			break
		}
		hierarchy = append(hierarchy, parent)
		seen[parent] = true
		current = parent
	}
	return hierarchy
}

// IsSubclassOf reports whether parent appears in child's hierarchy.
// Every class is a subclass of itself.
func (r *SchemaRegistry) IsSubclassOf(child, parent string) bool {
	for _, name := range r.GetClassHierarchy(child) {
		if name == parent {
			return true
		}
	}
	return false
}

// SeedClasses registers each schema in order, skipping classes already
// present. It stops at the first other failure.
func (r *SchemaRegistry) SeedClasses(ctx context.Context, schemas []*entities.ClassSchema) (int, error) {
	registered := 0
	for _, s := range schemas {
		if r.HasClass(s.ClassName) {
			continue
		}
		if _, err := r.RegisterClass(ctx, s.ClassName, s.ParentClass, s.Attributes, s.Description); err != nil {
			return registered, fmt.Errorf("seed class %s: %w", s.ClassName, err)
		}
		registered++
	}
	return registered, nil
}
