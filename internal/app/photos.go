package app

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/delonixservices/crm/internal/domain"
)

// CachedPhotos puts a cache in front of a stock photo search. Empty results
// are cached too; the upstream quota is small.
type CachedPhotos struct {
	src   domain.PhotoSearch
	cache domain.Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func NewCachedPhotos(src domain.PhotoSearch, c domain.Cache, ttl time.Duration) *CachedPhotos {
	return &CachedPhotos{src: src, cache: c, ttl: ttl}
}

func (p *CachedPhotos) SearchPhoto(ctx context.Context, query string) (string, error) {
	key := "photo:" + strings.ToLower(strings.TrimSpace(query))
	var u string
	if p.cache != nil {
		if ok, _ := p.cache.Get(ctx, key, &u); ok {
			return u, nil
		}
	}
	v, err, _ := p.sf.Do(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		u, err := p.src.SearchPhoto(fctx, query)
		if err != nil {
			return "", err
		}
		if p.cache != nil && p.ttl > 0 {
			_ = p.cache.Set(fctx, key, u, int(p.ttl.Seconds()))
		}
		return u, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
