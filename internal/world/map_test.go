package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/runstrict-season/internal/social"
)

func TestApplyCountsOnlyOwnershipChanges(t *testing.T) {
	terr := TerritoryFrom(map[CellID]social.Team{
		"a": social.TeamRed,
		"b": social.TeamBlue,
	})

	flips := terr.Apply([]CellID{"a", "b", "c"}, social.TeamRed)
	assert.Equal(t, 2, flips) // b changes hands, c is unclaimed

	for _, c := range []CellID{"a", "b", "c"} {
		owner, ok := terr.Owner(c)
		require.True(t, ok)
		assert.Equal(t, social.TeamRed, owner)
	}
}

func TestApplyRepeatedCellInOnePath(t *testing.T) {
	terr := NewTerritory()
	flips := terr.Apply([]CellID{"a", "a", "a"}, social.TeamBlue)
	assert.Equal(t, 1, flips)
	assert.Equal(t, 1, terr.Len())
}

func TestApplyEmptyPathIsNoop(t *testing.T) {
	terr := TerritoryFrom(map[CellID]social.Team{"a": social.TeamPurple})
	assert.Equal(t, 0, terr.Apply(nil, social.TeamRed))
	owner, _ := terr.Owner("a")
	assert.Equal(t, social.TeamPurple, owner)
}

func TestApplyOwnedPathYieldsNoFlips(t *testing.T) {
	terr := TerritoryFrom(map[CellID]social.Team{"a": social.TeamBlue, "b": social.TeamBlue})
	assert.Equal(t, 0, terr.Apply([]CellID{"a", "b"}, social.TeamBlue))
}

func TestDominantTieBreaksByPriority(t *testing.T) {
	_, ok := NewTerritory().Dominant()
	assert.False(t, ok)

	terr := TerritoryFrom(map[CellID]social.Team{
		"a": social.TeamBlue,
		"b": social.TeamPurple,
	})
	team, ok := terr.Dominant()
	require.True(t, ok)
	assert.Equal(t, social.TeamBlue, team)

	terr.Apply([]CellID{"c", "d"}, social.TeamRed)
	terr.Apply([]CellID{"e"}, social.TeamBlue)
	team, _ = terr.Dominant()
	assert.Equal(t, social.TeamRed, team)

	c := terr.Counts()
	assert.Equal(t, 2, c[social.TeamRed])
	assert.Equal(t, 2, c[social.TeamBlue])
	assert.Equal(t, 1, c[social.TeamPurple])
}

func TestCloneIsIndependent(t *testing.T) {
	terr := TerritoryFrom(map[CellID]social.Team{"a": social.TeamRed})
	cp := terr.Clone()
	cp.Apply([]CellID{"a", "b"}, social.TeamBlue)

	owner, _ := terr.Owner("a")
	assert.Equal(t, social.TeamRed, owner)
	assert.Equal(t, 1, terr.Len())
	assert.Equal(t, []CellID{"a", "b"}, cp.Cells())
}

func TestTerritoryJSON(t *testing.T) {
	terr := TerritoryFrom(map[CellID]social.Team{"a": social.TeamRed, "b": social.TeamPurple})
	data, err := json.Marshal(terr)
	require.NoError(t, err)

	got := NewTerritory()
	require.NoError(t, json.Unmarshal(data, got))
	assert.Equal(t, terr.Snapshot(), got.Snapshot())

	assert.Error(t, json.Unmarshal([]byte(`{"a":"green"}`), got))
}

func TestDensityFieldIsDeterministic(t *testing.T) {
	cells, err := Children(regionA, 9)
	require.NoError(t, err)

	a := NewDensityField(142)
	b := NewDensityField(142)
	for _, c := range cells {
		w := a.Weight(c)
		assert.Equal(t, w, b.Weight(c))
		assert.GreaterOrEqual(t, w, densityFloor)
		assert.LessOrEqual(t, w, 1.0)
	}

	for _, u := range []float64{0, 0.25, 0.5, 0.999} {
		pick := a.PickWeighted(cells, u)
		assert.Contains(t, cells, pick)
		assert.Equal(t, pick, b.PickWeighted(cells, u))
	}
	assert.Equal(t, CellID(""), a.PickWeighted(nil, 0.3))
}
