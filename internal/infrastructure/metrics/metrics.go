// Package metrics exports the outcome of a batch run for the node_exporter
// textfile collector.
package metrics

import (
	"fmt"

	"conflation_service/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry *prometheus.Registry

	Features         *prometheus.GaugeVec
	SkippedFeatures  *prometheus.GaugeVec
	MeanDistance     *prometheus.GaugeVec
	RunDuration      prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// New registers the conflation gauges in a private registry so repeated runs
// in one process do not collide with the default one.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Features: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "conflation_features",
			Help: "Number of features per dataset and result set in the last run",
		}, []string{"set"}),
		SkippedFeatures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "conflation_skipped_features",
			Help: "Number of input features dropped in the last run",
		}, []string{"reason"}),
		MeanDistance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "conflation_mean_match_distance_meters",
			Help: "Mean planar distance between matched features",
		}, []string{"pass"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conflation_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conflation_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	m.registry.MustRegister(m.Features)
	m.registry.MustRegister(m.SkippedFeatures)
	m.registry.MustRegister(m.MeanDistance)
	m.registry.MustRegister(m.RunDuration)
	m.registry.MustRegister(m.LastRunTimestamp)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe copies report into the gauges.
func (m *Metrics) Observe(report *model.RunReport) {
	m.Features.WithLabelValues("local").Set(float64(report.LocalFeatures))
	m.Features.WithLabelValues("reference").Set(float64(report.ReferenceFeatures))
	m.Features.WithLabelValues("missing").Set(float64(report.Missing))
	m.Features.WithLabelValues("incomplete").Set(float64(report.Incomplete))
	m.Features.WithLabelValues("extra").Set(float64(report.Extra))

	m.SkippedFeatures.WithLabelValues("reference_schema").Set(float64(report.SkippedReference))

	m.MeanDistance.WithLabelValues("local_to_reference").Set(report.LocalToReference.MeanDistance)
	m.MeanDistance.WithLabelValues("reference_to_local").Set(report.ReferenceToLocal.MeanDistance)

	if !report.FinishedAt.IsZero() {
		m.LastRunTimestamp.Set(float64(report.FinishedAt.Unix()))
		m.RunDuration.Set(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
}

// WriteTextfile observes report and writes every gauge to path.
func WriteTextfile(path string, report *model.RunReport) error {
	m := New()
	m.Observe(report)
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
