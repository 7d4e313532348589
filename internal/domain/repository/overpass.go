package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"conflation_service/internal/domain/model"
	"conflation_service/internal/infrastructure/retry"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/serjvanilla/go-overpass"
)

type OverpassRepository struct {
	client  *overpass.Client
	timeout time.Duration
	retry   retry.Policy
	logger  zerolog.Logger
}

func NewOverpassRepository(
	endpoint string,
	timeout time.Duration,
	maxParallel int,
	policy retry.Policy,
	logger zerolog.Logger,
) *OverpassRepository {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	if maxParallel < 1 {
		maxParallel = 1
	}
	client := overpass.NewWithSettings(endpoint, maxParallel, httpClient)
	return &OverpassRepository{
		client:  &client,
		timeout: timeout,
		retry:   policy,
		logger:  logger,
	}
}

// TrafficSignalsQuery builds the Overpass QL for every traffic-signal node
// inside bound.
func TrafficSignalsQuery(bound orb.Bound, timeout time.Duration) string {
	seconds := int(timeout.Seconds())
	if seconds <= 0 {
		seconds = 180
	}
	return fmt.Sprintf(`[out:json][timeout:%d];
node["highway"="traffic_signals"](%s);
out body;`, seconds, model.FormatBBox(bound))
}

// GetTrafficSignals fetches the reference traffic signals inside bound.
// Nodes are ordered by OSM id. No nodes is an empty collection, not an error.
func (r *OverpassRepository) GetTrafficSignals(ctx context.Context, bound orb.Bound) (model.FeatureCollection, error) {
	query := TrafficSignalsQuery(bound, r.timeout)

	var result *overpass.Result
	err := retry.Do(ctx, r.retry, r.logger, "overpass", func() error {
		res, err := r.executeQuery(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return model.FeatureCollection{}, fmt.Errorf("failed to execute traffic signals query: %w", err)
	}

	fc := convertToFeatures(result)
	r.logger.Debug().Int("nodes", fc.Len()).Str("bbox", model.FormatBBox(bound)).Msg("Fetched traffic signals")
	return fc, nil
}

// executeQuery runs the query in the background so ctx can abandon it. The
// client itself has no context support.
func (r *OverpassRepository) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type response struct {
		result overpass.Result
		err    error
	}
	done := make(chan response, 1)
	go func() {
		res, err := r.client.Query(query)
		done <- response{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("overpass query aborted: %w", ctx.Err())
	case resp := <-done:
		if resp.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", resp.err)
		}
		return &resp.result, nil
	}
}

func convertToFeatures(result *overpass.Result) model.FeatureCollection {
	fc := model.NewFeatureCollection(model.FrameWGS84)
	if result == nil {
		return fc
	}

	ids := make([]int64, 0, len(result.Nodes))
	for id := range result.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		node := result.Nodes[id]
		props := geojson.Properties{model.TagOSMID: node.ID}
		if v, ok := node.Tags[model.TagRef]; ok {
			props[model.TagRef] = v
		}
		if v, ok := node.Tags[model.TagStartDate]; ok {
			props[model.TagStartDate] = v
		}
		fc.Features = append(fc.Features, model.NewPointFeature(
			fmt.Sprintf("node/%d", node.ID),
			orb.Point{node.Lon, node.Lat},
			props,
		))
	}
	return fc
}
