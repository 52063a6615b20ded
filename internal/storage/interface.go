package storage

import "context"

// KV is the string key/value surface shared by every backend
type KV interface {
	// GetItem returns the value and whether the key exists
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	// SetItems writes all pairs atomically where the backend allows it
	SetItems(ctx context.Context, items map[string]string) error
	// RemoveItems deletes keys; missing keys are not an error
	RemoveItems(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	KV

	// Utils
	GetConfigPath() string
}

// Migrator is implemented by SQL-backed providers
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
	PendingMigrations() (int, error)
}
