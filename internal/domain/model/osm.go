package model

import (
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cast"
)

// Frame identifies the coordinate reference frame of a collection.
type Frame string

const (
	// FrameWGS84 is geographic lon/lat.
	FrameWGS84 Frame = "EPSG:4326"
	// FrameWebMercator is the spherical pseudo-Mercator projection, in meters.
	FrameWebMercator Frame = "EPSG:3857"
)

// Canonical OSM tag names used in the output files.
const (
	TagHighway        = "highway"
	TagTrafficSignals = "traffic_signals"
	TagRef            = "ref"
	TagStartDate      = "start_date"
	TagCheckDate      = "check_date"
	TagOSMID          = "osm_id"
)

// Field names used while the two datasets are joined, so that attributes
// from both sides can be flattened into one row without colliding.
const (
	LocalHighway        = "local_highway"
	LocalTrafficSignals = "local_traffic_signals"
	LocalRef            = "local_ref"
	LocalDate           = "local_date"
	OSMRef              = "osm_ref"
	OSMDate             = "osm_date"
)

// PointFeature is a single point with its attributes.
type PointFeature struct {
	ID         string
	Point      orb.Point
	Properties geojson.Properties
}

// NewPointFeature copies props so the feature does not alias the caller's map.
func NewPointFeature(id string, p orb.Point, props geojson.Properties) PointFeature {
	cp := make(geojson.Properties, len(props))
	for k, v := range props {
		cp[k] = v
	}
	return PointFeature{ID: id, Point: p, Properties: cp}
}

// WithPoint returns a copy of the feature placed at p.
func (f PointFeature) WithPoint(p orb.Point) PointFeature {
	return NewPointFeature(f.ID, p, f.Properties)
}

// Renamed returns a copy of the feature with property keys renamed according
// to mapping. Keys not in mapping are kept as they are.
func (f PointFeature) Renamed(mapping map[string]string) PointFeature {
	props := make(geojson.Properties, len(f.Properties))
	for k, v := range f.Properties {
		if to, ok := mapping[k]; ok {
			k = to
		}
		props[k] = v
	}
	return PointFeature{ID: f.ID, Point: f.Point, Properties: props}
}

// FeatureCollection is an ordered set of point features sharing a frame.
type FeatureCollection struct {
	Frame    Frame
	Features []PointFeature
}

func NewFeatureCollection(frame Frame, features ...PointFeature) FeatureCollection {
	return FeatureCollection{Frame: frame, Features: features}
}

func (fc FeatureCollection) Len() int {
	return len(fc.Features)
}

func (fc FeatureCollection) IsEmpty() bool {
	return len(fc.Features) == 0
}

// Bound returns the bounding box of all points. An empty collection yields
// an empty bound at the origin.
func (fc FeatureCollection) Bound() orb.Bound {
	if len(fc.Features) == 0 {
		return orb.Bound{}
	}
	b := fc.Features[0].Point.Bound()
	for _, f := range fc.Features[1:] {
		b = b.Extend(f.Point)
	}
	return b
}

// Renamed applies PointFeature.Renamed to every feature.
func (fc FeatureCollection) Renamed(mapping map[string]string) FeatureCollection {
	out := FeatureCollection{Frame: fc.Frame, Features: make([]PointFeature, len(fc.Features))}
	for i, f := range fc.Features {
		out.Features[i] = f.Renamed(mapping)
	}
	return out
}

// FromGeoJSON converts an orb GeoJSON collection tagged with frame. Features
// whose geometry is not a Point are dropped and counted in skipped.
func FromGeoJSON(in *geojson.FeatureCollection, frame Frame) (fc FeatureCollection, skipped int) {
	fc = FeatureCollection{Frame: frame, Features: make([]PointFeature, 0, len(in.Features))}
	for i, f := range in.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			skipped++
			continue
		}
		id := strconv.Itoa(i)
		if f.ID != nil {
			id = cast.ToString(f.ID)
		}
		fc.Features = append(fc.Features, NewPointFeature(id, p, f.Properties))
	}
	return fc, skipped
}

// GeoJSON converts the collection to an orb GeoJSON collection. Feature IDs
// are not emitted; identifying attributes live in the properties.
func (fc FeatureCollection) GeoJSON() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		gf := geojson.NewFeature(f.Point)
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		out.Append(gf)
	}
	return out
}
