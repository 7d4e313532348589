package core

import (
	"conflation_service/internal/domain/model"
)

// BuildRegion returns the tolerance region around a feature that is already
// in a metric frame.
func BuildRegion(f model.PointFeature, radius float64) model.Region {
	return model.Region{Center: f.Point, Radius: radius}
}

// Buffer pairs every feature of a metric collection with its tolerance
// region. The radius is validated once by ConflationConfig.Validate.
func Buffer(fc model.FeatureCollection, radius float64) []model.BufferedFeature {
	out := make([]model.BufferedFeature, len(fc.Features))
	for i, f := range fc.Features {
		out[i] = model.BufferedFeature{Feature: f, Region: BuildRegion(f, radius)}
	}
	return out
}
