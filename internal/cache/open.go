package cache

import (
	"context"
	"fmt"

	"github.com/chrissnell/gridlive/pkg/config"
)

// Open builds the Store selected by cfg. The returned close function releases
// any connection the store holds.
func Open(ctx context.Context, cfg config.CacheData) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), noop, nil
	case "none":
		return Nop{}, noop, nil
	case "redis":
		r, err := NewRedis(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
