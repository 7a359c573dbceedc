package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/runstrict-season/internal/social"
	"github.com/talgya/runstrict-season/internal/world"
)

func testConfig() SpawnConfig {
	return SpawnConfig{
		Seed:       42,
		TotalUsers: 100,
		Teams: []TeamQuota{
			{Team: social.TeamRed, Count: 40},
			{Team: social.TeamBlue, Count: 40},
			{Team: social.TeamPurple, Count: 20},
		},
		Archetypes:     DefaultArchetypes(),
		Regions:        []world.CellID{"872830828ffffff", "872830829ffffff"},
		CellResolution: 9,
	}
}

func TestGenerateFillsQuotasExactly(t *testing.T) {
	roster, err := NewSpawner(testConfig(), world.HexGrid{}).Generate()
	require.NoError(t, err)
	require.Len(t, roster, 100)

	sizes := roster.TeamSizes()
	assert.Equal(t, 40, sizes[social.TeamRed])
	assert.Equal(t, 40, sizes[social.TeamBlue])
	assert.Equal(t, 20, sizes[social.TeamPurple])

	// Teams are filled in order.
	assert.Equal(t, social.TeamRed, roster[39].Team)
	assert.Equal(t, social.TeamBlue, roster[40].Team)
	assert.Equal(t, social.TeamPurple, roster[80].Team)

	perArchetype := map[string]int{}
	for _, u := range roster {
		perArchetype[u.Archetype]++
		assert.Equal(t, u.Team, u.OriginalTeam)
		assert.False(t, u.Defected())
	}
	assert.Equal(t, map[string]int{ArchStar: 10, ArchRegular: 40, ArchCasual: 35, ArchGhost: 15}, perArchetype)
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := NewSpawner(testConfig(), world.HexGrid{}).Generate()
	require.NoError(t, err)
	b, err := NewSpawner(testConfig(), world.HexGrid{}).Generate()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateHomesInsideRegions(t *testing.T) {
	cfg := testConfig()
	roster, err := NewSpawner(cfg, world.HexGrid{}).Generate()
	require.NoError(t, err)

	for i, u := range roster {
		want := 0
		if i >= 50 {
			want = 1
		}
		assert.Equal(t, want, u.Region)

		parent, err := world.Parent(u.HomeCell, 7)
		require.NoError(t, err)
		assert.Equal(t, cfg.Regions[want], parent)
	}
}

func TestGenerateIdentity(t *testing.T) {
	roster, err := NewSpawner(testConfig(), world.HexGrid{}).Generate()
	require.NoError(t, err)

	assert.Equal(t, UserID("aaaaaaaa-0000-0000-0000-000000000000"), roster[0].ID)
	assert.Equal(t, UserID("aaaaaaaa-0042-0042-0042-000000000042"), roster[42].ID)
	assert.Equal(t, "AlexRunner", roster[0].Name)
	assert.Equal(t, "AlexRunner1", roster[96].Name)
	assert.Len(t, roster.Index(), 100)
}

func TestGenerateRejectsBadQuotas(t *testing.T) {
	cfg := testConfig()
	cfg.Teams[2].Count = 19
	_, err := NewSpawner(cfg, world.HexGrid{}).Generate()
	assert.ErrorIs(t, err, ErrInvalidQuota)

	cfg = testConfig()
	cfg.Archetypes[0].Weight = 11
	_, err = NewSpawner(cfg, world.HexGrid{}).Generate()
	assert.ErrorIs(t, err, ErrInvalidQuota)
}

// wrongResGeo hands back the region's coarse children instead of res-9 cells.
type wrongResGeo struct{ world.HexGrid }

func (wrongResGeo) Children(cell world.CellID, _ int) ([]world.CellID, error) {
	return world.Children(cell, 8)
}

// strayGeo claims every region holds a cell from somewhere else.
type strayGeo struct{ world.HexGrid }

func (strayGeo) Children(world.CellID, int) ([]world.CellID, error) {
	return []world.CellID{"89283082d03ffff"}, nil
}

func TestGenerateRejectsBadHomeCells(t *testing.T) {
	_, err := NewSpawner(testConfig(), wrongResGeo{}).Generate()
	assert.ErrorIs(t, err, ErrInvalidHomeCell)

	_, err = NewSpawner(testConfig(), strayGeo{}).Generate()
	assert.ErrorIs(t, err, ErrInvalidHomeCell)

	cfg := testConfig()
	cfg.Regions = []world.CellID{"bogus"}
	_, err = NewSpawner(cfg, world.HexGrid{}).Generate()
	assert.ErrorIs(t, err, ErrInvalidHomeCell)
}

func TestWeightedRoundRobinIsSmooth(t *testing.T) {
	slots := weightedRoundRobin([]int{1, 2, 1}, 4)
	assert.Equal(t, []int{1, 0, 2, 1}, slots)

	counts := make([]int, 4)
	for _, idx := range weightedRoundRobin([]int{10, 40, 35, 15}, 100) {
		counts[idx]++
	}
	assert.Equal(t, []int{10, 40, 35, 15}, counts)
}

func TestRosterClone(t *testing.T) {
	roster, err := NewSpawner(testConfig(), world.HexGrid{}).Generate()
	require.NoError(t, err)

	cp := roster.Clone()
	cp[0].Team = social.TeamPurple
	assert.Equal(t, social.TeamRed, roster[0].Team)
	assert.Len(t, cp.Members(social.TeamPurple), 21)
}
