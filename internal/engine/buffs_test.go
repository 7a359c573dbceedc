package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/social"
	"github.com/talgya/runstrict-season/internal/world"
)

func member(id string, team social.Team) *agents.User {
	return &agents.User{ID: agents.UserID(id), Team: team, OriginalTeam: team}
}

func ownedBy(counts map[social.Team]int) *world.Territory {
	terr := world.NewTerritory()
	n := 0
	for _, team := range social.Teams {
		for i := 0; i < counts[team]; i++ {
			terr.Apply([]world.CellID{world.CellID(fmt.Sprintf("cell-%d", n))}, team)
			n++
		}
	}
	return terr
}

func TestDayOneMultiplierIsAlwaysOne(t *testing.T) {
	roster := agents.Roster{member("r", social.TeamRed), member("b", social.TeamBlue), member("p", social.TeamPurple)}
	terr := ownedBy(map[social.Team]int{social.TeamRed: 5})
	yesterday := map[agents.UserID]int{"r": 10, "b": 10, "p": 10}

	buffs := NewBuffCalculator(1, terr, roster, yesterday)
	for _, u := range roster {
		assert.Equal(t, 1, buffs.MultiplierFor(u))
	}
}

func TestEliteAtThresholdWithDominanceIsCappedAtFour(t *testing.T) {
	roster := agents.Roster{
		member("r0", social.TeamRed), member("r1", social.TeamRed), member("r2", social.TeamRed),
		member("r3", social.TeamRed), member("r4", social.TeamRed), member("r5", social.TeamRed),
	}
	// Positive scores sorted: 1 2 3 4 5 → index ⌊0.8·5⌋ = 4 → threshold 5.
	yesterday := map[agents.UserID]int{"r0": 1, "r1": 2, "r2": 3, "r3": 4, "r4": 5, "r5": 0}
	terr := ownedBy(map[social.Team]int{social.TeamRed: 3, social.TeamBlue: 2})

	buffs := NewBuffCalculator(2, terr, roster, yesterday)
	assert.Equal(t, 4, buffs.MultiplierFor(roster[4])) // elite + dominant
	assert.Equal(t, 2, buffs.MultiplierFor(roster[3])) // dominant only
	assert.Equal(t, 2, buffs.MultiplierFor(roster[5])) // zero points, dominant only
}

func TestEliteWithoutDominance(t *testing.T) {
	roster := agents.Roster{member("r0", social.TeamRed), member("r1", social.TeamRed)}
	yesterday := map[agents.UserID]int{"r0": 3, "r1": 7}
	terr := ownedBy(map[social.Team]int{social.TeamBlue: 4, social.TeamRed: 1})

	buffs := NewBuffCalculator(5, terr, roster, yesterday)
	// n=2 → index 1 → threshold 7.
	assert.Equal(t, 2, buffs.MultiplierFor(roster[1]))
	assert.Equal(t, 1, buffs.MultiplierFor(roster[0]))
}

func TestSingleRedScorerIsElite(t *testing.T) {
	roster := agents.Roster{member("r0", social.TeamRed), member("r1", social.TeamRed)}
	buffs := NewBuffCalculator(3, world.NewTerritory(), roster, map[agents.UserID]int{"r0": 2})
	assert.Equal(t, 2, buffs.MultiplierFor(roster[0]))
	assert.Equal(t, 1, buffs.MultiplierFor(roster[1]))
}

func TestBlueHasTwoReachableValues(t *testing.T) {
	blue := member("b", social.TeamBlue)
	roster := agents.Roster{blue}

	dominant := NewBuffCalculator(2, ownedBy(map[social.Team]int{social.TeamBlue: 2}), roster, nil)
	assert.Equal(t, 3, dominant.MultiplierFor(blue))

	trailing := NewBuffCalculator(2, ownedBy(map[social.Team]int{social.TeamRed: 2, social.TeamBlue: 1}), roster, nil)
	assert.Equal(t, 1, trailing.MultiplierFor(blue))

	empty := NewBuffCalculator(2, world.NewTerritory(), roster, nil)
	assert.Equal(t, 1, empty.MultiplierFor(blue))
}

func TestDominanceTieGoesToEarlierTeam(t *testing.T) {
	red, blue := member("r", social.TeamRed), member("b", social.TeamBlue)
	terr := ownedBy(map[social.Team]int{social.TeamRed: 2, social.TeamBlue: 2})

	buffs := NewBuffCalculator(2, terr, agents.Roster{red, blue}, nil)
	team, ok := buffs.Dominant()
	assert.True(t, ok)
	assert.Equal(t, social.TeamRed, team)
	assert.Equal(t, 2, buffs.MultiplierFor(red))
	assert.Equal(t, 1, buffs.MultiplierFor(blue))
}

func TestPurpleParticipationTiers(t *testing.T) {
	roster := agents.Roster{}
	for i := 0; i < 5; i++ {
		roster = append(roster, member(fmt.Sprintf("p%d", i), social.TeamPurple))
	}
	cases := []struct {
		active int
		want   int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 3}, {5, 3},
	}
	for _, tc := range cases {
		yesterday := map[agents.UserID]int{}
		for i := 0; i < tc.active; i++ {
			yesterday[roster[i].ID] = 1
		}
		buffs := NewBuffCalculator(4, world.NewTerritory(), roster, yesterday)
		assert.Equal(t, tc.want, buffs.MultiplierFor(roster[4]), "active=%d", tc.active)
	}
}

func TestPurpleWithoutMembersIsNeutral(t *testing.T) {
	buffs := NewBuffCalculator(4, world.NewTerritory(), agents.Roster{member("r", social.TeamRed)}, nil)
	assert.Equal(t, 1, buffs.MultiplierFor(member("p", social.TeamPurple)))
}

func TestBuffCalculatorIsStable(t *testing.T) {
	roster := agents.Roster{member("r0", social.TeamRed), member("p0", social.TeamPurple)}
	yesterday := map[agents.UserID]int{"r0": 4, "p0": 1}
	buffs := NewBuffCalculator(9, ownedBy(map[social.Team]int{social.TeamRed: 1}), roster, yesterday)

	first := buffs.MultiplierFor(roster[0])
	yesterday["r0"] = 0 // the calculator keeps its own snapshot
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, buffs.MultiplierFor(roster[0]))
	}
}
