package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/delonixservices/crm/internal/adapters/observability"
	"github.com/delonixservices/crm/internal/domain"
)

type CatalogService struct {
	src      domain.CatalogSource
	cache    domain.Cache
	cacheTTL time.Duration
	workers  int
	sf       singleflight.Group
}

func NewCatalogService(src domain.CatalogSource, c domain.Cache, ttl time.Duration, workers int) *CatalogService {
	if workers <= 0 {
		workers = 4
	}
	return &CatalogService{src: src, cache: c, cacheTTL: ttl, workers: workers}
}

// SearchCities returns cities matching q. Identical in-flight queries share
// one upstream call.
func (s *CatalogService) SearchCities(ctx context.Context, q string) ([]domain.City, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.City{}, nil
	}
	key := "cities:search:" + strings.ToLower(q)
	var out []domain.City
	if s.cacheGet(ctx, key, &out) {
		return out, nil
	}
	v, err, _ := s.sf.Do(key, func() (any, error) {
		// shared by every waiter; the first caller's cancel must not fail the rest
		fctx := context.WithoutCancel(ctx)
		raw, err := s.src.SearchCities(fctx, q)
		if err != nil {
			return nil, err
		}
		cs := mapCities(raw)
		s.cacheSet(fctx, key, cs)
		return cs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("search cities %q: %w", q, err)
	}
	return append([]domain.City(nil), v.([]domain.City)...), nil
}

// HotelsByCity fetches every city's hotels concurrently and joins them.
// One failing city fails the whole call.
func (s *CatalogService) HotelsByCity(ctx context.Context, cities []string) (map[string][]domain.Hotel, error) {
	cities = uniqueNames(cities)
	res := make([][]domain.Hotel, len(cities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, city := range cities {
		i, city := i, city // per-iteration copies (go1.21 loop semantics)
		g.Go(func() error {
			hs, err := s.cityHotels(gctx, city)
			if err != nil {
				return fmt.Errorf("failed to fetch hotels for %s: %w", city, err)
			}
			res[i] = hs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string][]domain.Hotel, len(cities))
	for i, city := range cities {
		out[city] = res[i]
	}
	return out, nil
}

// Activities fetches every city's activities concurrently and flattens them in
// the order the cities were given.
func (s *CatalogService) Activities(ctx context.Context, cities []string) ([]domain.Activity, error) {
	cities = uniqueNames(cities)
	res := make([][]domain.Activity, len(cities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, city := range cities {
		i, city := i, city // per-iteration copies (go1.21 loop semantics)
		g.Go(func() error {
			as, err := s.cityActivities(gctx, city)
			if err != nil {
				return fmt.Errorf("failed to fetch activities for %s: %w", city, err)
			}
			res[i] = as
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []domain.Activity
	for _, as := range res {
		out = append(out, as...)
	}
	if out == nil {
		out = []domain.Activity{}
	}
	return out, nil
}

func (s *CatalogService) cityHotels(ctx context.Context, city string) ([]domain.Hotel, error) {
	key := "hotels:" + strings.ToLower(city)
	var hs []domain.Hotel
	if s.cacheGet(ctx, key, &hs) {
		return hs, nil
	}
	raw, err := s.src.CityHotels(ctx, city)
	if err != nil {
		return nil, err
	}
	hs = mapHotels(city, raw)
	s.cacheSet(ctx, key, hs)
	return hs, nil
}

func (s *CatalogService) cityActivities(ctx context.Context, city string) ([]domain.Activity, error) {
	key := "activities:" + strings.ToLower(city)
	var as []domain.Activity
	if s.cacheGet(ctx, key, &as) {
		return as, nil
	}
	raw, err := s.src.CityActivities(ctx, city)
	if err != nil {
		return nil, err
	}
	as = mapActivities(city, raw)
	s.cacheSet(ctx, key, as)
	return as, nil
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		observability.ObserveCache("catalog", "error")
		return false
	}
	if ok {
		observability.ObserveCache("catalog", "hit")
	} else {
		observability.ObserveCache("catalog", "miss")
	}
	return ok
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func uniqueNames(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
