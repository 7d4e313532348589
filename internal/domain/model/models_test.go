package model_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflation_service/internal/domain/model"
)

func TestRegionContains(t *testing.T) {
	r := model.Region{Center: orb.Point{1000, 2000}, Radius: 65}

	tests := []struct {
		name  string
		point orb.Point
		want  bool
	}{
		{"center", orb.Point{1000, 2000}, true},
		{"on boundary along axis", orb.Point{1065, 2000}, true},
		{"on boundary diagonal", orb.Point{1039, 2052}, true},
		{"just outside", orb.Point{1065.001, 2000}, false},
		{"inside bound but outside circle", orb.Point{1060, 2060}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.point))
		})
	}
}

func TestRegionBound(t *testing.T) {
	r := model.Region{Center: orb.Point{10, 20}, Radius: 5}
	assert.Equal(t, orb.Bound{Min: orb.Point{5, 15}, Max: orb.Point{15, 25}}, r.Bound())
}

func TestRegionPolygon(t *testing.T) {
	r := model.Region{Center: orb.Point{0, 0}, Radius: 10}
	poly := r.Polygon(32)

	require.Len(t, poly, 1)
	ring := poly[0]
	require.Len(t, ring, 33)
	assert.True(t, ring.Closed())
	for _, p := range ring {
		assert.InDelta(t, 10, planar.Distance(r.Center, p), 1e-9)
	}

	assert.Len(t, r.Polygon(1)[0], 5, "fewer than 4 segments is raised to 4")
}

func TestJoinRowProperties(t *testing.T) {
	partner := model.NewPointFeature("l1", orb.Point{}, geojson.Properties{
		model.LocalRef: "101",
		"shared":       "partner",
	})
	row := model.JoinRow{
		Feature: model.NewPointFeature("r1", orb.Point{}, geojson.Properties{
			model.TagOSMID: int64(55),
			"shared":       "driver",
		}),
		Partner:      &partner,
		PartnerIndex: 0,
	}

	props := row.Properties()

	assert.True(t, row.Matched())
	assert.Equal(t, "101", props[model.LocalRef])
	assert.Equal(t, int64(55), props[model.TagOSMID])
	assert.Equal(t, "driver", props["shared"])
}

func TestJoinTableCountsAndLinks(t *testing.T) {
	partner := model.NewPointFeature("r1", orb.Point{}, nil)
	table := model.JoinTable{Rows: []model.JoinRow{
		{Index: 0, Feature: model.NewPointFeature("l1", orb.Point{}, nil), Partner: &partner, PartnerIndex: 0},
		{Index: 1, Feature: model.NewPointFeature("l2", orb.Point{}, nil), PartnerIndex: model.NoPartner},
	}}

	assert.Equal(t, 1, table.Matched())
	assert.Equal(t, 1, table.Unmatched())
	assert.Equal(t, []model.MatchLink{{LocalID: "l1", ReferenceID: "r1"}}, table.Links(true))
	assert.Equal(t, []model.MatchLink{{LocalID: "r1", ReferenceID: "l1"}}, table.Links(false))
}
