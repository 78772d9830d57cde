package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// StoreConfig is the configuration for the run audit store
type StoreConfig struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type"`

	// BaseDir is the base directory for file-based storage
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// Redis configuration (only used when Type is "redis")
	Redis RedisStoreConfig `json:"redis" yaml:"redis"`

	// Mongo configuration (only used when Type is "mongo")
	Mongo MongoStoreConfig `json:"mongo" yaml:"mongo"`
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:    StoreTypeMemory,
		BaseDir: "./data/audit",
		Redis: RedisStoreConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "courtflow:",
		},
		Mongo: MongoStoreConfig{
			Database:   "courtflow",
			Collection: "run_records",
		},
	}
}

// NewRunStore creates a RunStore based on the configuration.
// db is required for StoreTypeSQL and ignored otherwise.
func NewRunStore(ctx context.Context, config StoreConfig, db *gorm.DB) (RunStore, error) {
	switch config.Type {
	case StoreTypeMemory, "":
		return NewMemoryRunStore(), nil
	case StoreTypeFile:
		return NewFileRunStore(config.BaseDir)
	case StoreTypeRedis:
		return NewRedisRunStore(config.Redis)
	case StoreTypeSQL:
		if db == nil {
			return nil, fmt.Errorf("%w: sql run store requires a database connection", ErrInvalidInput)
		}
		return NewSQLRunStore(db), nil
	case StoreTypeMongo:
		return NewMongoRunStore(ctx, config.Mongo)
	default:
		return nil, fmt.Errorf("unsupported run store type: %s", config.Type)
	}
}
