// Package engine advances a territory-control season one day at a time.
//
// A day is: load the previous state (or reset on day 1), apply scripted
// defections, synthesize every runner's run in roster order, then fold the
// results into the cumulative aggregates. The whole season is a pure
// function of the seed and the configuration.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/entropy"
	"github.com/talgya/runstrict-season/internal/social"
	"github.com/talgya/runstrict-season/internal/world"
)

// Config holds everything the engine needs to play a season.
type Config struct {
	Seed           int64
	SeasonLength   int
	SeasonStart    time.Time
	TotalUsers     int
	Teams          []agents.TeamQuota
	Archetypes     []agents.Archetype
	Regions        []world.CellID
	CellResolution int
	HomeRegionBias float64 // Probability a path step stays in the home region
	Defections     DefectionPolicy
}

// DefaultConfig returns the standard 40-day, 100-runner season.
func DefaultConfig() Config {
	return Config{
		Seed:         42,
		SeasonLength: DefaultSeasonLength,
		SeasonStart:  DefaultSeasonStart,
		TotalUsers:   100,
		Teams: []agents.TeamQuota{
			{Team: social.TeamRed, Count: 40},
			{Team: social.TeamBlue, Count: 40},
			{Team: social.TeamPurple, Count: 20},
		},
		Archetypes:     agents.DefaultArchetypes(),
		Regions:        []world.CellID{"872830828ffffff", "872830829ffffff"},
		CellResolution: 9,
		HomeRegionBias: defaultHomeBias,
		Defections: DefectionPolicy{
			WindowStart: 15,
			WindowEnd:   25,
			Quota:       8,
			Target:      social.TeamPurple,
		},
	}
}

// DayReport is everything produced by one successful advance, handed to
// the emission and publishing collaborators.
type DayReport struct {
	Day       int           `json:"day"`
	RunDate   time.Time     `json:"run_date"`
	Runs      []RunRecord   `json:"runs"`
	Defectors []agents.User `json:"defectors,omitempty"`
	Standings Standings     `json:"standings"`
	Dominant  social.Team   `json:"dominant_at_dawn,omitempty"`
	Reset     bool          `json:"reset"` // Day 1 discarded any prior state
}

// TotalFlips sums flips over the day's runs.
func (r *DayReport) TotalFlips() int {
	n := 0
	for _, run := range r.Runs {
		n += run.FlipCount
	}
	return n
}

// TotalPoints sums points over the day's runs.
func (r *DayReport) TotalPoints() int {
	n := 0
	for _, run := range r.Runs {
		n += run.Points
	}
	return n
}

// Simulator advances season state. It holds only immutable configuration,
// so one Simulator can advance any number of independent states.
type Simulator struct {
	cfg        Config
	geo        world.Geography
	pools      [][]world.CellID
	archetypes agents.ArchetypeTable
	calendar   Calendar
}

// NewSimulator validates the geography and prepares region pools.
func NewSimulator(cfg Config, geo world.Geography) (*Simulator, error) {
	if cfg.HomeRegionBias == 0 {
		cfg.HomeRegionBias = defaultHomeBias
	}
	if cfg.SeasonLength <= 0 {
		cfg.SeasonLength = DefaultSeasonLength
	}
	if cfg.SeasonStart.IsZero() {
		cfg.SeasonStart = DefaultSeasonStart
	}
	pools, err := world.RegionPools(geo, cfg.Regions, cfg.CellResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: region pools: %v", ErrInvalidHomeCell, err)
	}
	return &Simulator{
		cfg:        cfg,
		geo:        geo,
		pools:      pools,
		archetypes: agents.NewArchetypeTable(cfg.Archetypes),
		calendar:   Calendar{Start: cfg.SeasonStart, Length: cfg.SeasonLength},
	}, nil
}

// Calendar returns the season calendar.
func (s *Simulator) Calendar() Calendar {
	return s.calendar
}

// Config returns the configuration the simulator was built with.
func (s *Simulator) Config() Config {
	return s.cfg
}

// Advance simulates day on top of prev and returns the new state. prev is
// never modified; on error no state changes at all. Day 1 ignores prev and
// starts a fresh season from the configured seed; any other day must be
// exactly prev.LastDay+1 and keeps prev's seed.
func (s *Simulator) Advance(prev *State, day int) (*State, *DayReport, error) {
	if day > s.cfg.SeasonLength {
		return nil, nil, fmt.Errorf("%w: day %d is past the %d-day season", ErrSeasonComplete, day, s.cfg.SeasonLength)
	}
	if day < 1 {
		return nil, nil, fmt.Errorf("%w: day %d", ErrDayOutOfOrder, day)
	}

	var st *State
	if day == 1 {
		roster, err := agents.NewSpawner(s.spawnConfig(), s.geo).Generate()
		if err != nil {
			return nil, nil, fmt.Errorf("generate roster: %w", err)
		}
		st = NewState(s.cfg.Seed, roster)
	} else {
		if prev == nil {
			return nil, nil, fmt.Errorf("%w: day %d requested with no season in progress", ErrDayOutOfOrder, day)
		}
		if day != prev.LastDay+1 {
			return nil, nil, fmt.Errorf("%w: day %d requested, last completed day is %d", ErrDayOutOfOrder, day, prev.LastDay)
		}
		if prev.Seed != s.cfg.Seed {
			slog.Warn("configured seed differs from season seed; keeping season seed",
				"configured", s.cfg.Seed, "season", prev.Seed)
		}
		st = prev.Clone()
	}

	defectors := applyDefections(day, s.cfg.Defections, st.Roster,
		entropy.NewStream(st.Seed, day, entropy.PurposeDefections))

	buffs := NewBuffCalculator(day, st.Territory, st.Roster, st.YesterdayPoints)
	rng := entropy.NewStream(st.Seed, day, entropy.PurposeRuns)
	runs, standings, err := s.simulateDay(day, st.Roster, st.Territory, buffs, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("simulate day %d: %w", day, err)
	}
	st.fold(day, runs, standings)

	report := &DayReport{
		Day:       day,
		RunDate:   s.calendar.RunDate(day),
		Runs:      runs,
		Standings: standings,
		Reset:     day == 1,
	}
	report.Dominant, _ = buffs.Dominant()
	for _, u := range defectors {
		report.Defectors = append(report.Defectors, *u)
	}

	slog.Info("day simulated",
		"day", day,
		"runs", len(runs),
		"flips", report.TotalFlips(),
		"points", report.TotalPoints(),
		"cells", st.Territory.Len(),
		"defectors", len(defectors),
		"draws", rng.Draws(),
	)
	return st, report, nil
}

func (s *Simulator) spawnConfig() agents.SpawnConfig {
	return agents.SpawnConfig{
		Seed:           s.cfg.Seed,
		TotalUsers:     s.cfg.TotalUsers,
		Teams:          s.cfg.Teams,
		Archetypes:     s.cfg.Archetypes,
		Regions:        s.cfg.Regions,
		CellResolution: s.cfg.CellResolution,
	}
}
