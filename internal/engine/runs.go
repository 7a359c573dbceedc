// Daily run synthesis: who runs, how far, where, and what they flip.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/entropy"
	"github.com/talgya/runstrict-season/internal/social"
	"github.com/talgya/runstrict-season/internal/world"
)

// Path shaping.
const (
	minPathLength   = 3
	cellsPerKm      = 2.5
	defaultHomeBias = 0.7
)

// RunRecord is one synthesized run. Immutable once emitted.
type RunRecord struct {
	ID              uuid.UUID      `json:"id"`
	UserID          agents.UserID  `json:"user_id"`
	Day             int            `json:"day"`
	RunDate         time.Time      `json:"run_date"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	DistanceKm      float64        `json:"distance_km"`
	DurationSeconds int            `json:"duration_seconds"`
	PaceMinPerKm    float64        `json:"avg_pace_min_per_km"`
	CV              float64        `json:"cv"`
	Path            []world.CellID `json:"hex_path"`
	FlipCount       int            `json:"flip_count"`
	Multiplier      int            `json:"buff_multiplier"`
	Points          int            `json:"flip_points"`
	TeamAtRun       social.Team    `json:"team_at_run"`
}

// Standings are the derived results of one day.
type Standings struct {
	Day        int                   `json:"day"`
	CellCounts social.Counts         `json:"cell_counts"`
	Dominant   social.Team           `json:"dominant,omitempty"` // Empty when no cell is owned
	Points     map[agents.UserID]int `json:"points"`             // Runners who ran that day only
}

// simulateDay synthesizes every run of the day in roster order, writing
// flips into territory as it goes. Later runners see cells already taken
// by earlier runners the same day. All draws come from rng in a fixed order
// per runner: participation, distance, pace, variability, path, start time, id.
func (s *Simulator) simulateDay(day int, roster agents.Roster, territory *world.Territory, buffs *BuffCalculator, rng *entropy.Stream) ([]RunRecord, Standings, error) {
	runDate := s.calendar.RunDate(day)
	standings := Standings{Day: day, Points: make(map[agents.UserID]int)}
	var runs []RunRecord

	for _, u := range roster {
		arch, err := s.archetypes.Get(u.Archetype)
		if err != nil {
			return nil, Standings{}, fmt.Errorf("user %s: %w", u.ID, err)
		}
		if rng.Float() > arch.Participation {
			continue
		}

		distance := round(rng.Uniform(arch.DistanceKm.Min, arch.DistanceKm.Max), 2)
		pace := round(rng.Uniform(arch.PaceMinPerKm.Min, arch.PaceMinPerKm.Max), 2)
		duration := int(distance * pace * 60)
		cv := round(rng.Uniform(arch.CV.Min, arch.CV.Max), 1)

		length := max(minPathLength, int(distance*cellsPerKm))
		home, other := s.poolsFor(u)
		path := buildPath(rng, u.HomeCell, home, other, length, s.cfg.HomeRegionBias)

		flips := territory.Apply(path, u.Team)
		mult := buffs.MultiplierFor(u)
		points := flips * mult

		hour := rng.IntRange(earliestStartHour, latestStartHour)
		minute := rng.IntRange(0, 59)
		start := runDate.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)

		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, Standings{}, fmt.Errorf("run id for %s: %w", u.ID, err)
		}

		runs = append(runs, RunRecord{
			ID:              id,
			UserID:          u.ID,
			Day:             day,
			RunDate:         runDate,
			StartTime:       start,
			EndTime:         start.Add(time.Duration(duration) * time.Second),
			DistanceKm:      distance,
			DurationSeconds: duration,
			PaceMinPerKm:    pace,
			CV:              cv,
			Path:            path,
			FlipCount:       flips,
			Multiplier:      mult,
			Points:          points,
			TeamAtRun:       u.Team,
		})
		standings.Points[u.ID] += points
	}

	standings.CellCounts = territory.Counts()
	standings.Dominant, _ = territory.Dominant()
	return runs, standings, nil
}

// poolsFor returns the runner's home-region cells and the other region's cells.
func (s *Simulator) poolsFor(u *agents.User) (home, other []world.CellID) {
	if u.Region < 0 || u.Region >= len(s.pools) {
		return nil, nil
	}
	home = s.pools[u.Region]
	if len(s.pools) > 1 {
		other = s.pools[(u.Region+1)%len(s.pools)]
	}
	return home, other
}

// buildPath draws up to length distinct cells. Each step picks the home
// pool with probability bias (the other pool otherwise, or whichever pool
// still has cells) and removes the chosen cell from it. A path that never
// gets a cell is just the home cell.
func buildPath(rng *entropy.Stream, homeCell world.CellID, home, other []world.CellID, length int, bias float64) []world.CellID {
	homeLeft := append([]world.CellID(nil), home...)
	otherLeft := append([]world.CellID(nil), other...)

	path := make([]world.CellID, 0, length)
	for len(path) < length && len(homeLeft)+len(otherLeft) > 0 {
		fromHome := rng.Float() < bias
		if len(homeLeft) == 0 {
			fromHome = false
		} else if len(otherLeft) == 0 {
			fromHome = true
		}

		src := &otherLeft
		if fromHome {
			src = &homeLeft
		}
		i := rng.Intn(len(*src))
		path = append(path, (*src)[i])

		last := len(*src) - 1
		(*src)[i] = (*src)[last]
		*src = (*src)[:last]
	}

	if len(path) == 0 {
		return []world.CellID{homeCell}
	}
	return path
}
