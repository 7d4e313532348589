package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"conflation_service/internal/core"
	"conflation_service/internal/domain/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "conflation:traffic_signals:"

var (
	_ core.ReferenceSource = (*OverpassRepository)(nil)
	_ core.ReferenceSource = (*CachedReferenceSource)(nil)
)

// CachedReferenceSource keeps fetched reference collections in Redis, keyed
// by bbox. Redis failures are logged and the upstream source is used.
type CachedReferenceSource struct {
	next   core.ReferenceSource
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewCachedReferenceSource(next core.ReferenceSource, rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedReferenceSource {
	return &CachedReferenceSource{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func CacheKey(bound orb.Bound) string {
	return cacheKeyPrefix + model.FormatBBox(bound)
}

func (c *CachedReferenceSource) GetTrafficSignals(ctx context.Context, bound orb.Bound) (model.FeatureCollection, error) {
	key := CacheKey(bound)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		fc, decodeErr := decodeCached(data)
		if decodeErr == nil {
			c.logger.Debug().Str("key", key).Int("features", fc.Len()).Msg("Reference cache hit")
			return fc, nil
		}
		c.logger.Warn().Err(decodeErr).Str("key", key).Msg("Discarding unreadable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn().Err(err).Str("key", key).Msg("Reference cache unavailable")
	}

	fc, err := c.next.GetTrafficSignals(ctx, bound)
	if err != nil {
		return model.FeatureCollection{}, err
	}

	// an empty answer is usually an upstream hiccup, so it is not cached
	if fc.IsEmpty() {
		return fc, nil
	}

	encoded, err := encodeCached(fc)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to encode reference cache entry")
		return fc, nil
	}
	if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to store reference cache entry")
	}
	return fc, nil
}

func encodeCached(fc model.FeatureCollection) ([]byte, error) {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		gf := geojson.NewFeature(f.Point)
		gf.ID = f.ID
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		out.Append(gf)
	}
	return out.MarshalJSON()
}

// decodeCached restores integer OSM ids, which JSON decoding turns into
// float64.
func decodeCached(data []byte) (model.FeatureCollection, error) {
	raw, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return model.FeatureCollection{}, err
	}
	fc, _ := model.FromGeoJSON(raw, model.FrameWGS84)
	for _, f := range fc.Features {
		if id, ok := f.Properties[model.TagOSMID].(float64); ok && id == math.Trunc(id) {
			f.Properties[model.TagOSMID] = int64(id)
		}
	}
	return fc, nil
}
