package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// FormatBBox renders a geographic bound as "minLat,minLon,maxLat,maxLon",
// the order Overpass expects for (south,west,north,east). Coordinates keep
// full precision so the edges never round inward.
func FormatBBox(b orb.Bound) string {
	parts := []float64{b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon()}
	out := make([]string, len(parts))
	for i, v := range parts {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(out, ",")
}

// ParseBBox parses a bbox string in format "lat1,lon1,lat2,lon2".
func ParseBBox(bbox string) (orb.Bound, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox must have 4 components, got %d", len(parts))
	}

	var v [4]float64
	names := [4]string{"minLat", "minLon", "maxLat", "maxLon"}
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid %s: %w", names[i], err)
		}
		v[i] = f
	}
	minLat, minLon, maxLat, maxLon := v[0], v[1], v[2], v[3]

	if minLat < -90 || minLat > 90 || maxLat < -90 || maxLat > 90 {
		return orb.Bound{}, fmt.Errorf("latitude out of range [-90, 90]")
	}
	if minLon < -180 || minLon > 180 || maxLon < -180 || maxLon > 180 {
		return orb.Bound{}, fmt.Errorf("longitude out of range [-180, 180]")
	}
	if minLat > maxLat || minLon > maxLon {
		return orb.Bound{}, fmt.Errorf("minLat must be <= maxLat and minLon must be <= maxLon")
	}

	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}, nil
}
