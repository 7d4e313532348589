package model

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Region is a circular tolerance region in a metric frame.
type Region struct {
	Center orb.Point
	Radius float64
}

// Bound is the square enclosing the circle.
func (r Region) Bound() orb.Bound {
	return r.Center.Bound().Pad(r.Radius)
}

// Contains reports whether p lies inside the circle. Points exactly on the
// boundary are inside.
func (r Region) Contains(p orb.Point) bool {
	return planar.Distance(r.Center, p) <= r.Radius
}

// Polygon approximates the circle with the given number of segments.
func (r Region) Polygon(segments int) orb.Polygon {
	if segments < 4 {
		segments = 4
	}
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		ring = append(ring, orb.Point{
			r.Center[0] + r.Radius*math.Cos(a),
			r.Center[1] + r.Radius*math.Sin(a),
		})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// BufferedFeature pairs a local feature with its tolerance region.
type BufferedFeature struct {
	Feature PointFeature
	Region  Region
}

// NoPartner marks a join row without a match.
const NoPartner = -1

// JoinRow is one row of a left spatial join: the driving feature and at
// most one partner from the other collection.
type JoinRow struct {
	Index        int
	Feature      PointFeature
	PartnerIndex int
	Partner      *PointFeature
	Distance     float64
}

func (r JoinRow) Matched() bool {
	return r.Partner != nil
}

// Properties flattens driver and partner attributes into one map. Driver
// keys win on collision.
func (r JoinRow) Properties() geojson.Properties {
	props := make(geojson.Properties, len(r.Feature.Properties)+4)
	if r.Partner != nil {
		for k, v := range r.Partner.Properties {
			props[k] = v
		}
	}
	for k, v := range r.Feature.Properties {
		props[k] = v
	}
	return props
}

// JoinTable is the result of one join pass.
type JoinTable struct {
	Driver string
	Rows   []JoinRow
}

func (t JoinTable) Matched() int {
	n := 0
	for _, r := range t.Rows {
		if r.Matched() {
			n++
		}
	}
	return n
}

func (t JoinTable) Unmatched() int {
	return len(t.Rows) - t.Matched()
}

// MatchLink relates a local feature to a reference feature.
type MatchLink struct {
	LocalID     string
	ReferenceID string
}

// Links lists the matched pairs of a table. driverIsLocal tells which side
// of the link the driving feature belongs to.
func (t JoinTable) Links(driverIsLocal bool) []MatchLink {
	links := make([]MatchLink, 0, len(t.Rows))
	for _, r := range t.Rows {
		if !r.Matched() {
			continue
		}
		if driverIsLocal {
			links = append(links, MatchLink{LocalID: r.Feature.ID, ReferenceID: r.Partner.ID})
		} else {
			links = append(links, MatchLink{LocalID: r.Partner.ID, ReferenceID: r.Feature.ID})
		}
	}
	return links
}

// ClassificationResult holds the three disjoint result sets.
type ClassificationResult struct {
	Missing    FeatureCollection
	Incomplete FeatureCollection
	Extra      FeatureCollection
}

type MatchStats struct {
	Matched      int     `json:"matched" yaml:"matched"`
	MeanDistance float64 `json:"mean_distance" yaml:"mean_distance"`
	MaxDistance  float64 `json:"max_distance" yaml:"max_distance"`
}

// OutputFile describes one written result set.
type OutputFile struct {
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path" yaml:"path"`
	Features int    `json:"features" yaml:"features"`
}

// RunReport summarizes one conflation run.
type RunReport struct {
	StartedAt         time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt        time.Time    `json:"finished_at" yaml:"finished_at"`
	RadiusMeters      float64      `json:"radius_meters" yaml:"radius_meters"`
	BBox              string       `json:"bbox" yaml:"bbox"`
	LocalFeatures     int          `json:"local_features" yaml:"local_features"`
	ReferenceFeatures int          `json:"reference_features" yaml:"reference_features"`
	SkippedReference  int          `json:"skipped_reference" yaml:"skipped_reference"`
	EmptyReference    bool         `json:"empty_reference" yaml:"empty_reference"`
	Missing           int          `json:"missing" yaml:"missing"`
	Incomplete        int          `json:"incomplete" yaml:"incomplete"`
	Extra             int          `json:"extra" yaml:"extra"`
	LocalToReference  MatchStats   `json:"local_to_reference" yaml:"local_to_reference"`
	ReferenceToLocal  MatchStats   `json:"reference_to_local" yaml:"reference_to_local"`
	Files             []OutputFile `json:"files" yaml:"files"`
}
