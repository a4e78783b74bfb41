package session

import (
	"context"
	"fmt"
	"strings"
)

// Config selects the revocation store backing a Manager.
type Config struct {
	Provider              string
	RedisConnectionString string
}

// NewStore builds the revocation store named by cfg.Provider. An empty provider
// means the in-process store, which does not survive restarts.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if strings.TrimSpace(cfg.RedisConnectionString) == "" {
			return nil, fmt.Errorf("redis session store requires a connection string")
		}
		return NewRedisStore(ctx, cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported session store provider: %q", cfg.Provider)
	}
}
