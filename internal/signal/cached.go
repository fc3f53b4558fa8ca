// internal/signal/cached.go
package signal

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedContextProvider wraps a ContextProvider with a short TTL cache.
// Context detection can be expensive (the detector may run a classifier),
// and every evaluation cycle asks for it, so results are reused for a few
// seconds.
type CachedContextProvider struct {
	inner ContextProvider
	cache *gocache.Cache
}

// NewCachedContextProvider wraps inner with the given TTL.
func NewCachedContextProvider(inner ContextProvider, ttl time.Duration) *CachedContextProvider {
	return &CachedContextProvider{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (p *CachedContextProvider) CurrentContext(ctx context.Context, userID string) (*UserContext, error) {
	if v, ok := p.cache.Get(userID); ok {
		// a cached nil pointer means "no context known" was cached
		uc, _ := v.(*UserContext)
		return uc, nil
	}

	uc, err := p.inner.CurrentContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if uc == nil {
		p.cache.Set(userID, (*UserContext)(nil), gocache.DefaultExpiration)
		return nil, nil
	}
	p.cache.Set(userID, uc, gocache.DefaultExpiration)
	return uc, nil
}
