package engine

import (
	"math"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/world"
)

// UserStats are a runner's cumulative running aggregates.
type UserStats struct {
	RunCount               int     `json:"total_runs"`
	TotalDistance          float64 `json:"total_distance_km"` // Kept at 2 decimal places
	PaceSum                float64 `json:"sum_pace"`
	VariabilitySum         float64 `json:"sum_cv"`
	VariabilitySampleCount int     `json:"cv_count"`
}

// AvgPace returns the mean pace in min/km; ok is false before the first run.
func (s UserStats) AvgPace() (float64, bool) {
	if s.RunCount == 0 {
		return 0, false
	}
	return s.PaceSum / float64(s.RunCount), true
}

// AvgCV returns the mean variability; ok is false without samples.
func (s UserStats) AvgCV() (float64, bool) {
	if s.VariabilitySampleCount == 0 {
		return 0, false
	}
	return s.VariabilitySum / float64(s.VariabilitySampleCount), true
}

func (s *UserStats) add(r RunRecord) {
	s.RunCount++
	s.TotalDistance = round(s.TotalDistance+r.DistanceKm, 2)
	s.PaceSum += r.PaceMinPerKm
	s.VariabilitySum += r.CV
	s.VariabilitySampleCount++
}

// State is the season's durable aggregate. A zero LastDay means no day has
// been simulated yet.
type State struct {
	LastDay          int                         `json:"last_day"`
	Seed             int64                       `json:"seed"`
	Roster           agents.Roster               `json:"users"`
	CumulativePoints map[agents.UserID]int       `json:"user_points"`
	CumulativeStats  map[agents.UserID]UserStats `json:"user_stats"`
	Territory        *world.Territory            `json:"hex_teams"`
	YesterdayPoints  map[agents.UserID]int       `json:"yesterday_flip_points"`
}

// NewState creates the state for a fresh season.
func NewState(seed int64, roster agents.Roster) *State {
	return &State{
		Seed:             seed,
		Roster:           roster,
		CumulativePoints: make(map[agents.UserID]int),
		CumulativeStats:  make(map[agents.UserID]UserStats),
		Territory:        world.NewTerritory(),
		YesterdayPoints:  make(map[agents.UserID]int),
	}
}

// Clone returns a deep copy; advancing the copy never touches the original.
func (st *State) Clone() *State {
	cp := &State{
		LastDay:          st.LastDay,
		Seed:             st.Seed,
		Roster:           st.Roster.Clone(),
		CumulativePoints: make(map[agents.UserID]int, len(st.CumulativePoints)),
		CumulativeStats:  make(map[agents.UserID]UserStats, len(st.CumulativeStats)),
		YesterdayPoints:  make(map[agents.UserID]int, len(st.YesterdayPoints)),
	}
	for id, p := range st.CumulativePoints {
		cp.CumulativePoints[id] = p
	}
	for id, s := range st.CumulativeStats {
		cp.CumulativeStats[id] = s
	}
	for id, p := range st.YesterdayPoints {
		cp.YesterdayPoints[id] = p
	}
	if st.Territory != nil {
		cp.Territory = st.Territory.Clone()
	} else {
		cp.Territory = world.NewTerritory()
	}
	return cp
}

// fold merges a completed day into the aggregates.
func (st *State) fold(day int, runs []RunRecord, standings Standings) {
	for _, r := range runs {
		st.CumulativePoints[r.UserID] += r.Points
		stats := st.CumulativeStats[r.UserID]
		stats.add(r)
		st.CumulativeStats[r.UserID] = stats
	}
	st.YesterdayPoints = make(map[agents.UserID]int, len(standings.Points))
	for id, p := range standings.Points {
		st.YesterdayPoints[id] = p
	}
	st.LastDay = day
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
