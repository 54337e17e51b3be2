package wallet

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedResolver fronts a Resolver with a process-local TTL cache. Only
// positive lookups are cached, so a new binding is visible immediately.
type CachedResolver struct {
	next  Resolver
	cache *cache.Cache
}

// NewCachedResolver wraps next with a cache whose entries live for ttl.
func NewCachedResolver(next Resolver, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{next: next, cache: cache.New(ttl, 2*ttl)}
}

// Resolve returns the cached owner of address or asks the wrapped resolver.
func (c *CachedResolver) Resolve(ctx context.Context, address string) (string, error) {
	key := strings.ToLower(address)
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}
	userID, err := c.next.Resolve(ctx, key)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, userID, cache.DefaultExpiration)
	return userID, nil
}
