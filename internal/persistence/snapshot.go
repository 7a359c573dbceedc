package persistence

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/engine"
	"github.com/talgya/runstrict-season/internal/world"
)

// ExportJSON writes st as an indented JSON snapshot (the .sim_state.json layout).
func ExportJSON(w io.Writer, st *engine.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ImportJSON reads a snapshot written by ExportJSON.
func ImportJSON(r io.Reader) (*engine.State, error) {
	st := engine.NewState(0, nil)
	if err := json.NewDecoder(r).Decode(st); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if st.Territory == nil {
		st.Territory = world.NewTerritory()
	}
	if st.CumulativePoints == nil {
		st.CumulativePoints = make(map[agents.UserID]int)
	}
	if st.CumulativeStats == nil {
		st.CumulativeStats = make(map[agents.UserID]engine.UserStats)
	}
	if st.YesterdayPoints == nil {
		st.YesterdayPoints = make(map[agents.UserID]int)
	}
	for _, u := range st.Roster {
		if !u.Team.Valid() || !u.OriginalTeam.Valid() {
			return nil, fmt.Errorf("decode snapshot: user %s has unknown team", u.ID)
		}
	}
	return st, nil
}
