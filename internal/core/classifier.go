package core

import (
	"math"
	"strings"

	"conflation_service/internal/domain/model"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cast"
)

// missingSentinel is how a missing value looks once a tabular export has
// stringified it.
const missingSentinel = "nan"

var (
	// local join names -> OSM tags for the missing set
	missingTags = map[string]string{
		model.LocalRef:            model.TagRef,
		model.LocalDate:           model.TagStartDate,
		model.LocalHighway:        model.TagHighway,
		model.LocalTrafficSignals: model.TagTrafficSignals,
	}

	// reference join names -> OSM tags for the extra set
	extraTags = map[string]string{
		model.TagOSMID: model.TagOSMID,
		model.OSMRef:   model.TagRef,
		model.OSMDate:  model.TagStartDate,
	}
)

// IsAbsent reports whether v carries no information: nil, a blank string,
// the "nan" sentinel, or a NaN number.
func IsAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		return s == "" || strings.EqualFold(s, missingSentinel)
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	}
	return false
}

// presentString renders v as a string, or "" when it is absent.
func presentString(v any) string {
	if IsAbsent(v) {
		return ""
	}
	return cast.ToString(v)
}

// Classify derives the three result sets from the two join passes.
// Missing comes from the local-to-reference table, Incomplete and Extra
// from the reference-to-local table. frame tags the output collections.
func Classify(localToRef, refToLocal model.JoinTable, frame model.Frame) model.ClassificationResult {
	return model.ClassificationResult{
		Missing:    classifyMissing(localToRef, frame),
		Incomplete: classifyIncomplete(refToLocal, frame),
		Extra:      classifyExtra(refToLocal, frame),
	}
}

func classifyMissing(localToRef model.JoinTable, frame model.Frame) model.FeatureCollection {
	out := model.NewFeatureCollection(frame)
	for _, row := range localToRef.Rows {
		if row.Matched() {
			continue
		}
		out.Features = append(out.Features, selectTags(row.Feature, missingTags))
	}
	return out
}

func classifyExtra(refToLocal model.JoinTable, frame model.Frame) model.FeatureCollection {
	out := model.NewFeatureCollection(frame)
	for _, row := range refToLocal.Rows {
		if row.Matched() {
			continue
		}
		out.Features = append(out.Features, selectTags(row.Feature, extraTags))
	}
	return out
}

func classifyIncomplete(refToLocal model.JoinTable, frame model.Frame) model.FeatureCollection {
	out := model.NewFeatureCollection(frame)
	for _, row := range refToLocal.Rows {
		if !row.Matched() {
			continue
		}
		props := row.Properties()
		if !needsUpdate(props) {
			continue
		}
		patch := geojson.Properties{
			model.TagOSMID:     props[model.TagOSMID],
			model.TagRef:       presentString(props[model.LocalRef]),
			model.TagCheckDate: presentString(props[model.LocalDate]),
		}
		out.Features = append(out.Features, model.NewPointFeature(row.Feature.ID, row.Feature.Point, patch))
	}
	return out
}

// needsUpdate is true when the local record knows a ref or a start date
// that the reference feature lacks.
func needsUpdate(props geojson.Properties) bool {
	if !IsAbsent(props[model.LocalRef]) && IsAbsent(props[model.OSMRef]) {
		return true
	}
	return !IsAbsent(props[model.LocalDate]) && IsAbsent(props[model.OSMDate])
}

// selectTags keeps only the keys listed in mapping, renamed. Absent values are
// dropped.
func selectTags(f model.PointFeature, mapping map[string]string) model.PointFeature {
	props := make(geojson.Properties, len(mapping))
	for from, to := range mapping {
		if v, ok := f.Properties[from]; ok && !IsAbsent(v) {
			props[to] = v
		}
	}
	return model.NewPointFeature(f.ID, f.Point, props)
}
