package core

import (
	"conflation_service/internal/domain/model"
)

type SpatialAnalyzer struct{}

// Analyze summarizes the partner distances of a join table, in the units of
// the frame the join ran in.
func (a *SpatialAnalyzer) Analyze(table model.JoinTable) model.MatchStats {
	var stats model.MatchStats
	var total float64
	for _, row := range table.Rows {
		if !row.Matched() {
			continue
		}
		stats.Matched++
		total += row.Distance
		if row.Distance > stats.MaxDistance {
			stats.MaxDistance = row.Distance
		}
	}

	if stats.Matched == 0 {
		return stats
	}
	stats.MeanDistance = total / float64(stats.Matched)
	return stats
}
