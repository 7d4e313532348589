// Package geojsonio reads and writes the GeoJSON files the service consumes
// and produces.
package geojsonio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"conflation_service/internal/domain/model"

	"github.com/paulmach/orb/geojson"
)

// ReadFile loads a GeoJSON feature collection from path.
func ReadFile(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return fc, nil
}

// ToLocal keeps the point features of a cleaned WGS84 file.
func ToLocal(fc *geojson.FeatureCollection) (model.FeatureCollection, int) {
	return model.FromGeoJSON(fc, model.FrameWGS84)
}

// ReadLocal reads a cleaned file and keeps its point features.
func ReadLocal(path string) (model.FeatureCollection, int, error) {
	raw, err := ReadFile(path)
	if err != nil {
		return model.FeatureCollection{}, 0, err
	}
	fc, skipped := ToLocal(raw)
	return fc, skipped, nil
}

// WriteFile stores fc at path as indented GeoJSON, creating the directory. Absent values are omitted
// rather than written as null.
func WriteFile(path string, fc model.FeatureCollection) error {
	if fc.Frame != "" && fc.Frame != model.FrameWGS84 {
		return fmt.Errorf("refusing to write %s features to GeoJSON", fc.Frame)
	}
	data, err := json.MarshalIndent(fc.GeoJSON(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
