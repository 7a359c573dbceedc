package world

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/talgya/runstrict-season/internal/social"
)

// Territory records the current owner of every claimed cell.
// Unclaimed cells are simply absent. Not safe for concurrent use.
type Territory struct {
	owners map[CellID]social.Team
}

// NewTerritory creates an empty ledger.
func NewTerritory() *Territory {
	return &Territory{owners: make(map[CellID]social.Team)}
}

// TerritoryFrom builds a ledger from a snapshot, copying it.
func TerritoryFrom(owners map[CellID]social.Team) *Territory {
	t := NewTerritory()
	for c, team := range owners {
		t.owners[c] = team
	}
	return t
}

// Owner returns the team holding c, or ok=false if the cell is unclaimed.
func (t *Territory) Owner(c CellID) (social.Team, bool) {
	team, ok := t.owners[c]
	return team, ok
}

// Apply walks a run path in order and hands every cell to team.
// It returns the number of flips: cells whose owner differed from team
// (including unclaimed cells) at the moment they were visited.
func (t *Territory) Apply(path []CellID, team social.Team) int {
	flips := 0
	for _, c := range path {
		if owner, ok := t.owners[c]; !ok || owner != team {
			flips++
		}
		t.owners[c] = team
	}
	return flips
}

// Counts tallies owned cells per team.
func (t *Territory) Counts() social.Counts {
	counts := make(social.Counts, len(social.Teams))
	for _, team := range social.Teams {
		counts[team] = 0
	}
	for _, team := range t.owners {
		counts[team]++
	}
	return counts
}

// Dominant returns the team holding the most cells. Ties go to the earlier
// team in social.Teams; ok is false when nothing is owned.
func (t *Territory) Dominant() (social.Team, bool) {
	return t.Counts().Leader()
}

// Len returns the number of owned cells.
func (t *Territory) Len() int {
	return len(t.owners)
}

// Clone returns an independent copy.
func (t *Territory) Clone() *Territory {
	return TerritoryFrom(t.owners)
}

// Snapshot returns a copy of the owner map.
func (t *Territory) Snapshot() map[CellID]social.Team {
	out := make(map[CellID]social.Team, len(t.owners))
	for c, team := range t.owners {
		out[c] = team
	}
	return out
}

// Cells returns every owned cell in ascending order.
func (t *Territory) Cells() []CellID {
	cells := make([]CellID, 0, len(t.owners))
	for c := range t.owners {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
	return cells
}

// MarshalJSON encodes the ledger as a cell → team object.
func (t *Territory) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.owners)
}

// UnmarshalJSON decodes a cell → team object, rejecting unknown teams.
func (t *Territory) UnmarshalJSON(data []byte) error {
	var owners map[CellID]social.Team
	if err := json.Unmarshal(data, &owners); err != nil {
		return err
	}
	for c, team := range owners {
		if !team.Valid() {
			return fmt.Errorf("territory cell %s: unknown team %q", c, team)
		}
	}
	if owners == nil {
		owners = make(map[CellID]social.Team)
	}
	t.owners = owners
	return nil
}

// String returns a summary of the ledger.
func (t *Territory) String() string {
	c := t.Counts()
	return fmt.Sprintf("Territory(cells=%d, red=%d, blue=%d, purple=%d)",
		t.Len(), c[social.TeamRed], c[social.TeamBlue], c[social.TeamPurple])
}
