package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conflation_service/internal/domain/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// Output file names, one per result set.
const (
	MissingFileName    = "1_missing_in_osm.geojson"
	IncompleteFileName = "2_incomplete_osm_data.geojson"
	ExtraFileName      = "3_extra_in_osm.geojson"
)

var (
	localJoinNames = map[string]string{
		model.TagRef:            model.LocalRef,
		model.TagStartDate:      model.LocalDate,
		model.TagHighway:        model.LocalHighway,
		model.TagTrafficSignals: model.LocalTrafficSignals,
	}
	referenceJoinNames = map[string]string{
		model.TagRef:       model.OSMRef,
		model.TagStartDate: model.OSMDate,
	}
)

// ReferenceSource supplies the comparison dataset for a geographic bound.
type ReferenceSource interface {
	GetTrafficSignals(ctx context.Context, bound orb.Bound) (model.FeatureCollection, error)
}

// OutputSink persists one result set under name.
type OutputSink interface {
	Write(ctx context.Context, name string, fc model.FeatureCollection) (model.OutputFile, error)
}

// RunRecorder stores a summary of each completed run.
type RunRecorder interface {
	SaveRun(ctx context.Context, report *model.RunReport) error
}

type ConflationService struct {
	cfg      ConflationConfig
	source   ReferenceSource
	sink     OutputSink
	recorder RunRecorder
	bound    *orb.Bound
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*ConflationService)

// WithRecorder stores every completed run through r.
func WithRecorder(r RunRecorder) Option {
	return func(s *ConflationService) { s.recorder = r }
}

// WithBound fetches reference data for b instead of the local extent.
func WithBound(b orb.Bound) Option {
	return func(s *ConflationService) { s.bound = &b }
}

func WithClock(now func() time.Time) Option {
	return func(s *ConflationService) { s.now = now }
}

// NewConflationService validates cfg up front so that a bad radius fails at
// startup rather than mid-run.
func NewConflationService(
	cfg ConflationConfig,
	source ReferenceSource,
	sink OutputSink,
	logger zerolog.Logger,
	opts ...Option,
) (*ConflationService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil || sink == nil {
		return nil, errors.New("reference source and output sink are required")
	}

	s := &ConflationService{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run conflates local against the reference data covering its extent and
// writes the three result sets. When the reference source returns nothing
// the run stops after a warning and nothing is written.
func (s *ConflationService) Run(ctx context.Context, local model.FeatureCollection) (*model.RunReport, error) {
	report := &model.RunReport{
		StartedAt:     s.now(),
		RadiusMeters:  s.cfg.RadiusMeters,
		LocalFeatures: local.Len(),
	}

	geoLocal, err := Reproject(local, s.cfg.GeographicFrame)
	if err != nil {
		return nil, fmt.Errorf("failed to read local features: %w", err)
	}
	prepared := PrepareLocal(geoLocal)

	// reference signals up to one radius outside the local extent can still
	// match an edge signal
	bound := geo.BoundPad(prepared.Bound(), s.cfg.RadiusMeters)
	if s.bound != nil {
		bound = *s.bound
	}
	report.BBox = model.FormatBBox(bound)

	log := s.logger.With().Str("bbox", report.BBox).Float64("radius", s.cfg.RadiusMeters).Logger()
	log.Info().Int("local", prepared.Len()).Msg("Fetching reference traffic signals")

	fetched, err := s.source.GetTrafficSignals(ctx, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to get reference data: %w", err)
	}

	reference, schemaErrs := PrepareReference(fetched)
	report.ReferenceFeatures = reference.Len()
	report.SkippedReference = len(schemaErrs)
	if len(schemaErrs) > 0 {
		log.Warn().
			Int("skipped", len(schemaErrs)).
			Err(errors.Join(schemaErrs...)).
			Msg("Skipped reference features with missing fields")
	}

	if reference.IsEmpty() {
		log.Warn().Err(model.ErrEmptyReferenceDataset).Msg("No reference traffic signals found, nothing to compare")
		report.EmptyReference = true
		report.FinishedAt = s.now()
		return report, nil
	}

	c, err := Conflate(prepared, reference, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("conflation failed: %w", err)
	}

	analyzer := SpatialAnalyzer{}
	report.LocalToReference = analyzer.Analyze(c.LocalToReference)
	report.ReferenceToLocal = analyzer.Analyze(c.ReferenceToLocal)

	outputs := []struct {
		name string
		fc   model.FeatureCollection
	}{
		{MissingFileName, c.Result.Missing},
		{IncompleteFileName, c.Result.Incomplete},
		{ExtraFileName, c.Result.Extra},
	}
	for _, out := range outputs {
		file, err := s.sink.Write(ctx, out.name, out.fc)
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", out.name, err)
		}
		log.Info().Str("file", file.Name).Int("features", file.Features).Msg("Created result file")
		report.Files = append(report.Files, file)
	}

	report.Missing = c.Result.Missing.Len()
	report.Incomplete = c.Result.Incomplete.Len()
	report.Extra = c.Result.Extra.Len()
	report.FinishedAt = s.now()

	if s.recorder != nil {
		if err := s.recorder.SaveRun(ctx, report); err != nil {
			log.Warn().Err(err).Msg("Failed to record run history")
		}
	}

	return report, nil
}

// PrepareLocal renames the canonical tags of local features to their join
// names so they can be flattened next to reference attributes.
func PrepareLocal(fc model.FeatureCollection) model.FeatureCollection {
	return fc.Renamed(localJoinNames)
}

// PrepareReference drops features without an osm_id, and every feature after
// the first with a given osm_id, then renames the rest to their join names.
// Every dropped feature yields a SchemaError.
func PrepareReference(fc model.FeatureCollection) (model.FeatureCollection, []error) {
	var errs []error
	seen := make(map[string]string, fc.Len())
	out := model.FeatureCollection{Frame: fc.Frame, Features: make([]model.PointFeature, 0, fc.Len())}
	for _, f := range fc.Features {
		id := f.Properties[model.TagOSMID]
		if IsAbsent(id) {
			errs = append(errs, model.NewSchemaError(model.TagOSMID, f.ID))
			continue
		}
		key := cast.ToString(id)
		if first, dup := seen[key]; dup {
			errs = append(errs, model.NewDuplicateError(model.TagOSMID, f.ID, id, first))
			continue
		}
		seen[key] = f.ID
		out.Features = append(out.Features, f.Renamed(referenceJoinNames))
	}
	return out, errs
}
