package core

import (
	"math"

	"conflation_service/internal/domain/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Web Mercator is undefined at the poles; this is the latitude at which the
// projected square ends.
const maxMercatorLat = 85.05112877980659

var mercatorExtent = orb.EarthRadius * math.Pi

type projector func(orb.Point) (orb.Point, error)

// SupportedFrame reports whether Reproject can read or produce frame.
func SupportedFrame(frame model.Frame) bool {
	switch frame {
	case model.FrameWGS84, model.FrameWebMercator:
		return true
	}
	return false
}

// IsMetric reports whether distances in frame are expressed in meters.
func IsMetric(frame model.Frame) bool {
	return frame == model.FrameWebMercator
}

// Reproject transforms every point of fc into target. Attributes, IDs and
// order are preserved. An untagged collection is treated as WGS84.
func Reproject(fc model.FeatureCollection, target model.Frame) (model.FeatureCollection, error) {
	from := fc.Frame
	if from == "" {
		from = model.FrameWGS84
	}

	proj, err := projectorFor(from, target)
	if err != nil {
		return model.FeatureCollection{}, err
	}

	out := model.FeatureCollection{Frame: target, Features: make([]model.PointFeature, len(fc.Features))}
	for i, f := range fc.Features {
		p, err := proj(f.Point)
		if err != nil {
			return model.FeatureCollection{}, err
		}
		out.Features[i] = f.WithPoint(p)
	}
	return out, nil
}

func projectorFor(from, to model.Frame) (projector, error) {
	if !SupportedFrame(from) {
		return nil, model.NewProjectionError(from, to, orb.Point{}, "unsupported source frame")
	}
	if !SupportedFrame(to) {
		return nil, model.NewProjectionError(from, to, orb.Point{}, "unsupported target frame")
	}

	switch {
	case from == to:
		return func(p orb.Point) (orb.Point, error) {
			if !finite(p) {
				return p, model.NewProjectionError(from, to, p, "coordinate is not finite")
			}
			return p, nil
		}, nil
	case from == model.FrameWGS84 && to == model.FrameWebMercator:
		return func(p orb.Point) (orb.Point, error) {
			if !finite(p) || math.Abs(p.Lon()) > 180 || math.Abs(p.Lat()) > maxMercatorLat {
				return p, model.NewProjectionError(from, to, p, "coordinate outside the Web Mercator domain")
			}
			return project.Point(p, project.WGS84.ToMercator), nil
		}, nil
	default:
		return func(p orb.Point) (orb.Point, error) {
			if !finite(p) || math.Abs(p[0]) > mercatorExtent || math.Abs(p[1]) > mercatorExtent {
				return p, model.NewProjectionError(from, to, p, "coordinate outside the Web Mercator extent")
			}
			return project.Point(p, project.Mercator.ToWGS84), nil
		}, nil
	}
}

func finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
