package geojsonio_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflation_service/internal/domain/model"
	"conflation_service/internal/infrastructure/geojsonio"
)

const cleaned = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-38.5, -3.73]},
     "properties": {"highway": "traffic_signals", "traffic_signals": "signal", "ref": "101"}},
    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]},
     "properties": {}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-38.6, -3.8]},
     "properties": {"highway": "traffic_signals", "traffic_signals": "pedestrian_crossing"}}
  ]
}`

func TestReadLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.geojson")
	require.NoError(t, os.WriteFile(path, []byte(cleaned), 0o644))

	fc, skipped, err := geojsonio.ReadLocal(path)
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	require.Equal(t, 2, fc.Len())
	assert.Equal(t, model.FrameWGS84, fc.Frame)
	assert.Equal(t, "101", fc.Features[0].Properties["ref"])
	assert.Equal(t, orb.Point{-38.6, -3.8}, fc.Features[1].Point)
}

func TestReadFileErrors(t *testing.T) {
	_, err := geojsonio.ReadFile(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.geojson")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = geojsonio.ReadFile(path)
	assert.Error(t, err)
}

func TestFileSinkWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	sink := geojsonio.NewFileSink(dir)

	fc := model.NewFeatureCollection(model.FrameWGS84,
		model.NewPointFeature("node/55", orb.Point{-38.5, -3.73}, geojson.Properties{
			model.TagOSMID: int64(55), model.TagRef: "101", model.TagCheckDate: "",
		}),
	)

	file, err := sink.Write(context.Background(), "2_incomplete_osm_data.geojson", fc)
	require.NoError(t, err)
	assert.Equal(t, "2_incomplete_osm_data.geojson", file.Name)
	assert.Equal(t, filepath.Join(dir, "2_incomplete_osm_data.geojson"), file.Path)
	assert.Equal(t, 1, file.Features)

	back, err := geojsonio.ReadFile(file.Path)
	require.NoError(t, err)
	require.Len(t, back.Features, 1)
	assert.Equal(t, orb.Point{-38.5, -3.73}, back.Features[0].Geometry)
	assert.Equal(t, 55.0, back.Features[0].Properties[model.TagOSMID])
	assert.Equal(t, "", back.Features[0].Properties[model.TagCheckDate])
}

func TestFileSinkWritesEmptyCollections(t *testing.T) {
	sink := geojsonio.NewFileSink(t.TempDir())

	file, err := sink.Write(context.Background(), "3_extra_in_osm.geojson", model.NewFeatureCollection(model.FrameWGS84))
	require.NoError(t, err)

	data, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestFileSinkRejectsMetricFrame(t *testing.T) {
	sink := geojsonio.NewFileSink(t.TempDir())
	_, err := sink.Write(context.Background(), "x.geojson", model.NewFeatureCollection(model.FrameWebMercator))
	assert.Error(t, err)
}

func TestFileSinkCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	_, err := geojsonio.NewFileSink(dir).Write(ctx, "x.geojson", model.NewFeatureCollection(model.FrameWGS84))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "x.geojson"))
}

func TestManifestRoundTrip(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := &model.RunReport{
		StartedAt:         started,
		FinishedAt:        started.Add(time.Second),
		RadiusMeters:      65,
		BBox:              "-3.9,-38.7,-3.7,-38.5",
		LocalFeatures:     2,
		ReferenceFeatures: 2,
		Missing:           1,
		Incomplete:        1,
		Extra:             1,
		LocalToReference:  model.MatchStats{Matched: 1},
		Files:             []model.OutputFile{{Name: "1_missing_in_osm.geojson", Path: "out/1_missing_in_osm.geojson", Features: 1}},
	}

	dir := t.TempDir()
	path, err := geojsonio.WriteManifest(dir, report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, geojsonio.ManifestName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "radius_meters: 65.0")
	assert.Contains(t, string(data), "name: 1_missing_in_osm.geojson")

	back, err := geojsonio.ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, report.Missing, back.Missing)
	assert.Equal(t, report.BBox, back.BBox)
	assert.Equal(t, report.Files, back.Files)
	assert.True(t, report.StartedAt.Equal(back.StartedAt))
}
