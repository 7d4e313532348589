package core

import (
	"conflation_service/internal/domain/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"
)

const (
	DriverReference = "reference"
	DriverLocal     = "local"
)

// candidate keeps the winning partner while the index is scanned. When a
// region holds several points the nearest one wins and equal distances go to
// the lowest collection index, so results do not depend on tree layout.
type candidate struct {
	index    int
	distance float64
}

func noCandidate() candidate {
	return candidate{index: model.NoPartner}
}

func (c candidate) consider(index int, distance float64) candidate {
	if c.index == model.NoPartner || distance < c.distance || (distance == c.distance && index < c.index) {
		return candidate{index: index, distance: distance}
	}
	return c
}

func (c candidate) found() bool {
	return c.index != model.NoPartner
}

func computeBoundsForRTree(b orb.Bound) ([2]float64, [2]float64) {
	return [2]float64{b.Min.X(), b.Min.Y()}, [2]float64{b.Max.X(), b.Max.Y()}
}

// JoinWithin is the reference-to-local pass: a left join driven by the
// reference collection where a reference point matches a local feature when
// it lies within that feature's tolerance region. Both inputs must share a
// metric frame.
func JoinWithin(reference model.FeatureCollection, regions []model.BufferedFeature) model.JoinTable {
	var tree rtree.RTreeG[int]
	for i, b := range regions {
		leftBottom, topRight := computeBoundsForRTree(b.Region.Bound())
		tree.Insert(leftBottom, topRight, i)
	}

	rows := make([]model.JoinRow, len(reference.Features))
	for i, f := range reference.Features {
		point := [2]float64{f.Point.X(), f.Point.Y()}
		best := noCandidate()
		tree.Search(point, point, func(_, _ [2]float64, j int) bool {
			region := regions[j].Region
			if region.Contains(f.Point) {
				best = best.consider(j, planar.Distance(region.Center, f.Point))
			}
			return true
		})

		row := model.JoinRow{Index: i, Feature: f, PartnerIndex: model.NoPartner}
		if best.found() {
			partner := regions[best.index].Feature
			row.Partner = &partner
			row.PartnerIndex = best.index
			row.Distance = best.distance
		}
		rows[i] = row
	}

	return model.JoinTable{Driver: DriverReference, Rows: rows}
}

// JoinContains is the local-to-reference pass: a left join driven by the
// local tolerance regions where a region matches a reference point it
// contains. Rows carry the local point, not the region.
func JoinContains(regions []model.BufferedFeature, reference model.FeatureCollection) model.JoinTable {
	var tree rtree.RTreeG[int]
	for i, f := range reference.Features {
		leftBottom, topRight := computeBoundsForRTree(f.Point.Bound())
		tree.Insert(leftBottom, topRight, i)
	}

	rows := make([]model.JoinRow, len(regions))
	for i, b := range regions {
		leftBottom, topRight := computeBoundsForRTree(b.Region.Bound())
		best := noCandidate()
		tree.Search(leftBottom, topRight, func(_, _ [2]float64, j int) bool {
			p := reference.Features[j].Point
			if b.Region.Contains(p) {
				best = best.consider(j, planar.Distance(b.Region.Center, p))
			}
			return true
		})

		row := model.JoinRow{Index: i, Feature: b.Feature, PartnerIndex: model.NoPartner}
		if best.found() {
			partner := reference.Features[best.index]
			row.Partner = &partner
			row.PartnerIndex = best.index
			row.Distance = best.distance
		}
		rows[i] = row
	}

	return model.JoinTable{Driver: DriverLocal, Rows: rows}
}
