package di

import (
	"graphstore/application/queries"
	"graphstore/application/services"
	"graphstore/infrastructure/config"
	"graphstore/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *services.SchemaRegistry
	Store    *services.GraphStore
	Filter   *queries.GraphFilter
	Query    *queries.GraphQuery
	Metrics  *observability.Collector
}
