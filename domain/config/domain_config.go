package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable graph limits
type DomainConfig struct {
	// Node constraints
	MaxPropertiesBytes int
	MaxKeyLength       int

	// Full-text index
	MaxIndexDepth      int
	DefaultSearchLimit int
	MaxSearchLimit     int

	// Traversal caps
	MaxTraversalDepth int
	MaxFanOutPerLevel int
	MaxTraversalNodes int

	// Listing
	DefaultPageSize int
	MaxPageSize     int
	MaxEdgeListSize int

	// Ingestion
	IngestConcurrency int
	IngestBatchDelay  time.Duration
	IngestPageSize    int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxPropertiesBytes: 1 << 20,
		MaxKeyLength:       256,

		MaxIndexDepth:      8,
		DefaultSearchLimit: 20,
		MaxSearchLimit:     100,

		MaxTraversalDepth: 5,
		MaxFanOutPerLevel: 1000,
		MaxTraversalNodes: 5000,

		DefaultPageSize: 20,
		MaxPageSize:     100,
		MaxEdgeListSize: 1000,

		IngestConcurrency: 4,
		IngestBatchDelay:  time.Second,
		IngestPageSize:    25,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxPropertiesBytes = 256 << 10
	config.MaxFanOutPerLevel = 500
	config.MaxTraversalNodes = 2000

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.IngestBatchDelay = 0
	config.MaxEdgeListSize = 10000

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

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	positive := map[string]int{
		"MaxPropertiesBytes": c.MaxPropertiesBytes,
		"MaxKeyLength":       c.MaxKeyLength,
		"MaxIndexDepth":      c.MaxIndexDepth,
		"DefaultSearchLimit": c.DefaultSearchLimit,
		"MaxSearchLimit":     c.MaxSearchLimit,
		"MaxTraversalDepth":  c.MaxTraversalDepth,
		"MaxFanOutPerLevel":  c.MaxFanOutPerLevel,
		"MaxTraversalNodes":  c.MaxTraversalNodes,
		"DefaultPageSize":    c.DefaultPageSize,
		"MaxPageSize":        c.MaxPageSize,
		"MaxEdgeListSize":    c.MaxEdgeListSize,
		"IngestConcurrency":  c.IngestConcurrency,
		"IngestPageSize":     c.IngestPageSize,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if c.DefaultSearchLimit > c.MaxSearchLimit {
		return fmt.Errorf("DefaultSearchLimit (%d) exceeds MaxSearchLimit (%d)", c.DefaultSearchLimit, c.MaxSearchLimit)
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DefaultPageSize (%d) exceeds MaxPageSize (%d)", c.DefaultPageSize, c.MaxPageSize)
	}
	if c.IngestBatchDelay < 0 {
		return fmt.Errorf("IngestBatchDelay cannot be negative")
	}
	return nil
}

// ClampSearchLimit applies the default and maximum search result limits.
func (c *DomainConfig) ClampSearchLimit(limit int) int {
	return clamp(limit, c.DefaultSearchLimit, c.MaxSearchLimit)
}

// ClampPageSize applies the default and maximum page sizes.
func (c *DomainConfig) ClampPageSize(limit int) int {
	return clamp(limit, c.DefaultPageSize, c.MaxPageSize)
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
