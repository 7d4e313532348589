package core

import (
	"fmt"

	"conflation_service/internal/domain/model"
)

// DefaultRadiusMeters absorbs GPS and digitization noise between the two
// datasets.
const DefaultRadiusMeters = 65.0

// ConflationConfig holds the constants the matcher depends on.
type ConflationConfig struct {
	RadiusMeters    float64
	MetricFrame     model.Frame
	GeographicFrame model.Frame
}

func DefaultConflationConfig() ConflationConfig {
	return ConflationConfig{
		RadiusMeters:    DefaultRadiusMeters,
		MetricFrame:     model.FrameWebMercator,
		GeographicFrame: model.FrameWGS84,
	}
}

func (c ConflationConfig) Validate() error {
	if !(c.RadiusMeters > 0) {
		return model.NewConfigError("radius_meters", c.RadiusMeters, "must be positive")
	}
	if !IsMetric(c.MetricFrame) {
		return model.NewConfigError("metric_frame", c.MetricFrame, "not a supported metric frame")
	}
	if c.GeographicFrame != model.FrameWGS84 {
		return model.NewConfigError("geographic_frame", c.GeographicFrame, "not a supported geographic frame")
	}
	return nil
}

// Conflation is the full outcome of matching two collections.
type Conflation struct {
	LocalToReference model.JoinTable
	ReferenceToLocal model.JoinTable
	Result           model.ClassificationResult
}

// Conflate matches local against reference and classifies the result. Both
// inputs must already use the join field names (see PrepareLocal and
// PrepareReference). The result sets are returned in the geographic frame.
// A projection failure aborts the whole computation.
func Conflate(local, reference model.FeatureCollection, cfg ConflationConfig) (*Conflation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	localM, err := Reproject(local, cfg.MetricFrame)
	if err != nil {
		return nil, fmt.Errorf("failed to project local features: %w", err)
	}
	referenceM, err := Reproject(reference, cfg.MetricFrame)
	if err != nil {
		return nil, fmt.Errorf("failed to project reference features: %w", err)
	}

	buffered := Buffer(localM, cfg.RadiusMeters)
	refToLocal := JoinWithin(referenceM, buffered)
	localToRef := JoinContains(buffered, referenceM)

	result := Classify(localToRef, refToLocal, cfg.MetricFrame)

	if result.Missing, err = Reproject(result.Missing, cfg.GeographicFrame); err != nil {
		return nil, fmt.Errorf("failed to project missing features: %w", err)
	}
	if result.Incomplete, err = Reproject(result.Incomplete, cfg.GeographicFrame); err != nil {
		return nil, fmt.Errorf("failed to project incomplete features: %w", err)
	}
	if result.Extra, err = Reproject(result.Extra, cfg.GeographicFrame); err != nil {
		return nil, fmt.Errorf("failed to project extra features: %w", err)
	}

	return &Conflation{
		LocalToReference: localToRef,
		ReferenceToLocal: refToLocal,
		Result:           result,
	}, nil
}
