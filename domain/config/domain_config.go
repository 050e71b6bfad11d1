package config

import "time"

// DomainConfig holds the constants that shape the graph domain
type DomainConfig struct {
	// Class hierarchy root
	RootClassName        string
	RootClassDescription string
	RootAttributes       map[string]string

	// Edge defaults
	DefaultEdgeType string

	// Read limits. A zero TraversalTimeout leaves the caller's context alone.
	TraversalTimeout time.Duration
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		RootClassName:        "Thing",
		RootClassDescription: "Base class for all entities",
		RootAttributes: map[string]string{
			"name":      "string",
			"type":      "string",
			"timestamp": "string",
		},

		DefaultEdgeType: "has_a",

		TraversalTimeout: 30 * time.Second,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Path enumeration is exponential in density; keep it bounded
	config.TraversalTimeout = 5 * time.Second

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.TraversalTimeout = 0
	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// RootAttributesCopy returns the baseline attribute declarations of the root
// class as an independent map.
func (c *DomainConfig) RootAttributesCopy() map[string]string {
	out := make(map[string]string, len(c.RootAttributes))
	for k, v := range c.RootAttributes {
		out[k] = v
	}
	return out
}
