// Package session holds the ephemeral per-user object sets. A put replaces
// the whole set; answers always read the latest replacement. Nothing here
// survives process restart unless the redis backend is selected.
package session

import (
	"context"
	"fmt"

	"draftqa/config"
	"draftqa/internal/agent/core"
)

// Store is the read/write boundary for session object sets.
type Store interface {
	core.SessionReader
	// PutObjects replaces the user's entire object set and returns the
	// stored cardinality. Records without an id get one assigned.
	PutObjects(ctx context.Context, user string, objects []core.ObjectRecord) (int, error)
	// ClearObjects drops the user's set entirely.
	ClearObjects(ctx context.Context, user string) error
}

// New builds the store named by the configuration.
func New(cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case "inmemory":
		return NewInMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}
