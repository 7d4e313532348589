package core_test

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"conflation_service/internal/domain/model"
)

// metric builds a Web Mercator collection so distances in tests are exact.
func metric(features ...model.PointFeature) model.FeatureCollection {
	return model.NewFeatureCollection(model.FrameWebMercator, features...)
}

func geographic(features ...model.PointFeature) model.FeatureCollection {
	return model.NewFeatureCollection(model.FrameWGS84, features...)
}

func point(id string, x, y float64, props geojson.Properties) model.PointFeature {
	return model.NewPointFeature(id, orb.Point{x, y}, props)
}

func localProps(ref, date string) geojson.Properties {
	props := geojson.Properties{
		model.LocalHighway:        model.TagTrafficSignals,
		model.LocalTrafficSignals: "signal",
	}
	if ref != "" {
		props[model.LocalRef] = ref
	}
	if date != "" {
		props[model.LocalDate] = date
	}
	return props
}

func referenceProps(osmID int64, ref, date any) geojson.Properties {
	props := geojson.Properties{model.TagOSMID: osmID}
	if ref != nil {
		props[model.OSMRef] = ref
	}
	if date != nil {
		props[model.OSMDate] = date
	}
	return props
}

func ids(fc model.FeatureCollection) []string {
	out := make([]string, 0, fc.Len())
	for _, f := range fc.Features {
		out = append(out, f.ID)
	}
	return out
}
