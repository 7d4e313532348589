package core

import (
	"strconv"
	"strings"
	"time"

	"conflation_service/internal/domain/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"golang.org/x/text/unicode/norm"
)

// Field names of the municipal export, in NFC.
const (
	FieldStatus           = "STATUS"
	FieldPedestrianOnly   = "SEMÁFORO_EXCLUSIVO_PEDESTRE"
	FieldCode             = "CÓDIGO"
	FieldInstallationDate = "DATA_IMPLANTAÇÃO"
)

const (
	signalTypeDefault    = "signal"
	signalTypePedestrian = "pedestrian_crossing"
	pedestrianOnlyFlag   = "S"

	municipalDateLayout = "2/1/2006"
	osmDateLayout       = "2006-01-02"
)

// IgnoredStatuses are signals that exist only on paper or were switched off.
var IgnoredStatuses = []string{"DESATIVADO", "PROJETO"}

// CleanStats counts what the cleaner dropped.
type CleanStats struct {
	Kept            int `json:"kept" yaml:"kept"`
	SkippedStatus   int `json:"skipped_status" yaml:"skipped_status"`
	SkippedGeometry int `json:"skipped_geometry" yaml:"skipped_geometry"`
}

// Cleaner turns the raw municipal export into local traffic-signal features
// carrying OSM tags.
type Cleaner struct {
	logger  zerolog.Logger
	ignored map[string]struct{}
}

func NewCleaner(logger zerolog.Logger) *Cleaner {
	ignored := make(map[string]struct{}, len(IgnoredStatuses))
	for _, s := range IgnoredStatuses {
		ignored[s] = struct{}{}
	}
	return &Cleaner{logger: logger, ignored: ignored}
}

// Clean converts raw into a WGS84 collection. Features with an ignored
// status or a non-point geometry are skipped. Absent attributes are left
// out instead of being written as null.
func (c *Cleaner) Clean(raw *geojson.FeatureCollection) (model.FeatureCollection, CleanStats) {
	var stats CleanStats
	out := model.NewFeatureCollection(model.FrameWGS84)
	if raw == nil {
		return out, stats
	}

	for i, f := range raw.Features {
		props := normalizeKeys(f.Properties)

		status := strings.ToUpper(strings.TrimSpace(cast.ToString(props[FieldStatus])))
		if _, skip := c.ignored[status]; skip {
			stats.SkippedStatus++
			continue
		}

		p, ok := f.Geometry.(orb.Point)
		if !ok {
			stats.SkippedGeometry++
			continue
		}

		signalType := signalTypeDefault
		if cast.ToString(props[FieldPedestrianOnly]) == pedestrianOnlyFlag {
			signalType = signalTypePedestrian
		}

		tags := geojson.Properties{
			model.TagHighway:        model.TagTrafficSignals,
			model.TagTrafficSignals: signalType,
		}
		if ref := presentString(props[FieldCode]); ref != "" {
			tags[model.TagRef] = ref
		}
		if date := formatDate(props[FieldInstallationDate]); date != "" {
			tags[model.TagStartDate] = date
		}

		id := strconv.Itoa(i)
		if f.ID != nil {
			id = cast.ToString(f.ID)
		}
		out.Features = append(out.Features, model.NewPointFeature(id, p, tags))
	}

	stats.Kept = out.Len()
	c.logger.Info().
		Int("kept", stats.Kept).
		Int("skipped_status", stats.SkippedStatus).
		Int("skipped_geometry", stats.SkippedGeometry).
		Msg("Cleaned municipal dataset")

	return out, stats
}

// formatDate rewrites d/m/yyyy as yyyy-mm-dd, with or without leading
// zeros. Anything else is returned unchanged.
func formatDate(v any) string {
	s := strings.TrimSpace(presentString(v))
	if s == "" {
		return ""
	}
	t, err := time.Parse(municipalDateLayout, s)
	if err != nil {
		return s
	}
	return t.Format(osmDateLayout)
}

// normalizeKeys composes property names to NFC so accented names match
// regardless of how the export encoded them.
func normalizeKeys(props geojson.Properties) geojson.Properties {
	out := make(geojson.Properties, len(props))
	for k, v := range props {
		out[norm.NFC.String(k)] = v
	}
	return out
}
