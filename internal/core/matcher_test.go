package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflation_service/internal/core"
	"conflation_service/internal/domain/model"
)

func TestBuffer(t *testing.T) {
	local := metric(point("l1", 100, 200, nil), point("l2", 300, 400, nil))

	buffered := core.Buffer(local, 65)

	require.Len(t, buffered, 2)
	for i, b := range buffered {
		assert.Equal(t, local.Features[i].Point, b.Region.Center)
		assert.Equal(t, local.Features[i].ID, b.Feature.ID)
		assert.Equal(t, 65.0, b.Region.Radius)
	}
}

func TestJoinBoundaryIsInclusive(t *testing.T) {
	local := metric(point("l1", 1000, 2000, nil))
	buffered := core.Buffer(local, 65)

	tests := []struct {
		name    string
		x, y    float64
		matched bool
	}{
		{"exactly on radius", 1065, 2000, true},
		{"on radius diagonal", 1039, 2052, true},
		{"just beyond radius", 1065.0001, 2000, false},
		{"bounding box corner", 1060, 2060, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reference := metric(point("r1", tt.x, tt.y, nil))

			within := core.JoinWithin(reference, buffered)
			contains := core.JoinContains(buffered, reference)

			assert.Equal(t, tt.matched, within.Rows[0].Matched())
			assert.Equal(t, tt.matched, contains.Rows[0].Matched())
		})
	}
}

func TestJoinContainsTieBreak(t *testing.T) {
	buffered := core.Buffer(metric(point("l1", 1000, 1000, nil)), 65)

	t.Run("nearest wins", func(t *testing.T) {
		reference := metric(
			point("far", 1050, 1000, nil),
			point("near", 1010, 1000, nil),
		)
		table := core.JoinContains(buffered, reference)
		require.True(t, table.Rows[0].Matched())
		assert.Equal(t, 1, table.Rows[0].PartnerIndex)
		assert.Equal(t, "near", table.Rows[0].Partner.ID)
		assert.InDelta(t, 10, table.Rows[0].Distance, 1e-9)
	})

	t.Run("equal distance goes to lowest index", func(t *testing.T) {
		reference := metric(
			point("east", 1030, 1000, nil),
			point("west", 970, 1000, nil),
		)
		table := core.JoinContains(buffered, reference)
		assert.Equal(t, 0, table.Rows[0].PartnerIndex)

		reversed := metric(reference.Features[1], reference.Features[0])
		table = core.JoinContains(buffered, reversed)
		assert.Equal(t, 0, table.Rows[0].PartnerIndex)
		assert.Equal(t, "west", table.Rows[0].Partner.ID)
	})
}

func TestJoinWithinTieBreak(t *testing.T) {
	buffered := core.Buffer(metric(
		point("l0", 1000, 1000, nil),
		point("l1", 1040, 1000, nil),
		point("l2", 1080, 1000, nil),
	), 65)

	reference := metric(
		point("r0", 1035, 1000, nil), // inside l0, l1 and l2; l1 is nearest
		point("r1", 1060, 1000, nil), // 20 from l1 and l2
	)

	table := core.JoinWithin(reference, buffered)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, core.DriverReference, table.Driver)
	assert.Equal(t, 1, table.Rows[0].PartnerIndex)
	assert.Equal(t, 1, table.Rows[1].PartnerIndex)
}

func TestJoinPartitionIsComplete(t *testing.T) {
	local := metric(
		point("l0", 0, 0, nil),
		point("l1", 500, 0, nil),
		point("l2", 1000, 0, nil),
		point("l3", 5000, 5000, nil),
	)
	reference := metric(
		point("r0", 10, 10, nil),
		point("r1", 520, -30, nil),
		point("r2", 2000, 2000, nil),
		point("r3", 1000, 65, nil),
		point("r4", -9000, 0, nil),
	)
	buffered := core.Buffer(local, 65)

	contains := core.JoinContains(buffered, reference)
	within := core.JoinWithin(reference, buffered)

	require.Len(t, contains.Rows, local.Len())
	require.Len(t, within.Rows, reference.Len())
	assert.Equal(t, core.DriverLocal, contains.Driver)

	for i, row := range contains.Rows {
		assert.Equal(t, i, row.Index)
		assert.Equal(t, local.Features[i].ID, row.Feature.ID)
	}
	assert.Equal(t, local.Len(), contains.Matched()+contains.Unmatched())
	assert.Equal(t, 3, contains.Matched())

	for i, row := range within.Rows {
		assert.Equal(t, reference.Features[i].ID, row.Feature.ID)
	}
	assert.Equal(t, 3, within.Matched())
	assert.False(t, within.Rows[2].Matched())
	assert.False(t, within.Rows[4].Matched())
}

func TestJoinEmptyInputs(t *testing.T) {
	buffered := core.Buffer(metric(point("l0", 0, 0, nil)), 65)

	within := core.JoinWithin(metric(), buffered)
	assert.Empty(t, within.Rows)

	contains := core.JoinContains(buffered, metric())
	require.Len(t, contains.Rows, 1)
	assert.False(t, contains.Rows[0].Matched())
	assert.Equal(t, model.NoPartner, contains.Rows[0].PartnerIndex)
}
