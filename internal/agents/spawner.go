// Roster spawning: creates the season's fixed population with teams,
// archetypes, names and home cells.
package agents

import (
	"errors"
	"fmt"

	"github.com/talgya/runstrict-season/internal/entropy"
	"github.com/talgya/runstrict-season/internal/social"
	"github.com/talgya/runstrict-season/internal/world"
)

var (
	// ErrInvalidQuota means team or archetype quotas do not add up to the population.
	ErrInvalidQuota = errors.New("invalid quota")
	// ErrInvalidHomeCell means the geography produced an unusable home cell.
	ErrInvalidHomeCell = errors.New("invalid home cell")
)

// densitySeedOffset separates the home density field from other seeded streams.
const densitySeedOffset = 100

// TeamQuota is the number of roster slots given to a team.
type TeamQuota struct {
	Team  social.Team `yaml:"team" json:"team"`
	Count int         `yaml:"count" json:"count"`
}

// SpawnConfig controls roster generation.
type SpawnConfig struct {
	Seed           int64
	TotalUsers     int
	Teams          []TeamQuota // Filled in order
	Archetypes     []Archetype // Weights are quotas
	Regions        []world.CellID
	CellResolution int
}

// Spawner creates the roster for a season.
type Spawner struct {
	cfg     SpawnConfig
	geo     world.Geography
	rng     *entropy.Stream
	density *world.DensityField
}

// NewSpawner creates a spawner for cfg.
func NewSpawner(cfg SpawnConfig, geo world.Geography) *Spawner {
	return &Spawner{
		cfg:     cfg,
		geo:     geo,
		rng:     entropy.NewStream(cfg.Seed, 0, entropy.PurposePopulation),
		density: world.NewDensityField(cfg.Seed + densitySeedOffset),
	}
}

// Generate builds the roster. It is a pure function of the config and the
// geography: the same inputs always yield the same roster.
func (s *Spawner) Generate() (Roster, error) {
	teams, err := s.teamSlots()
	if err != nil {
		return nil, err
	}
	archetypes, err := s.archetypeSlots()
	if err != nil {
		return nil, err
	}
	if len(s.cfg.Regions) == 0 {
		return nil, fmt.Errorf("%w: no regions configured", ErrInvalidHomeCell)
	}
	pools, err := world.RegionPools(s.geo, s.cfg.Regions, s.cfg.CellResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHomeCell, err)
	}

	roster := make(Roster, 0, s.cfg.TotalUsers)
	for i := 0; i < s.cfg.TotalUsers; i++ {
		region := RegionFor(i, s.cfg.TotalUsers, len(s.cfg.Regions))
		home := s.density.PickWeighted(pools[region], s.rng.Float())
		if err := s.checkHome(home, region); err != nil {
			return nil, err
		}

		roster = append(roster, &User{
			ID:           NewUserID(i),
			Name:         nameFor(i),
			Avatar:       avatars[i%len(avatars)],
			Team:         teams[i],
			OriginalTeam: teams[i],
			Archetype:    archetypes[i],
			HomeCell:     home,
			Region:       region,
		})
	}
	return roster, nil
}

// RegionFor places the first half of the roster in region 0 and the rest in region 1.
func RegionFor(i, total, regions int) int {
	if regions < 2 || i < total/2 {
		return 0
	}
	return 1
}

// NewUserID formats the deterministic id for roster slot i.
func NewUserID(i int) UserID {
	return UserID(fmt.Sprintf("aaaaaaaa-%04d-%04d-%04d-%012d", i, i, i, i))
}

func (s *Spawner) teamSlots() ([]social.Team, error) {
	slots := make([]social.Team, 0, s.cfg.TotalUsers)
	for _, q := range s.cfg.Teams {
		if !q.Team.Valid() || q.Count < 0 {
			return nil, fmt.Errorf("%w: team %q count %d", ErrInvalidQuota, q.Team, q.Count)
		}
		for n := 0; n < q.Count; n++ {
			slots = append(slots, q.Team)
		}
	}
	if len(slots) != s.cfg.TotalUsers {
		return nil, fmt.Errorf("%w: team quotas sum to %d, want %d", ErrInvalidQuota, len(slots), s.cfg.TotalUsers)
	}
	return slots, nil
}

func (s *Spawner) archetypeSlots() ([]string, error) {
	weights := make([]int, len(s.cfg.Archetypes))
	total := 0
	for i, a := range s.cfg.Archetypes {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuota, err)
		}
		weights[i] = a.Weight
		total += a.Weight
	}
	if total != s.cfg.TotalUsers {
		return nil, fmt.Errorf("%w: archetype quotas sum to %d, want %d", ErrInvalidQuota, total, s.cfg.TotalUsers)
	}
	names := make([]string, s.cfg.TotalUsers)
	for i, idx := range weightedRoundRobin(weights, s.cfg.TotalUsers) {
		names[i] = s.cfg.Archetypes[idx].Name
	}
	return names, nil
}

// checkHome rejects a home cell at the wrong resolution or outside its region.
func (s *Spawner) checkHome(home world.CellID, region int) error {
	if home == "" {
		return fmt.Errorf("%w: region %s has no cells", ErrInvalidHomeCell, s.cfg.Regions[region])
	}
	res, err := world.Resolution(home)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHomeCell, err)
	}
	if res != s.cfg.CellResolution {
		return fmt.Errorf("%w: %s has resolution %d, want %d", ErrInvalidHomeCell, home, res, s.cfg.CellResolution)
	}
	regionRes, err := world.Resolution(s.cfg.Regions[region])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHomeCell, err)
	}
	parent, err := s.geo.Parent(home, regionRes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHomeCell, err)
	}
	if parent != s.cfg.Regions[region] {
		return fmt.Errorf("%w: %s lies in %s, not region %s", ErrInvalidHomeCell, home, parent, s.cfg.Regions[region])
	}
	return nil
}

func nameFor(i int) string {
	name := firstNames[i%len(firstNames)] + lastNames[i%len(lastNames)]
	if i >= len(firstNames) {
		name += fmt.Sprint(i / len(firstNames))
	}
	return name
}

// Name pools for procedural generation.
var firstNames = []string{
	"Alex", "Jordan", "Casey", "Riley", "Morgan", "Taylor", "Quinn", "Avery",
	"Blake", "Cameron", "Dakota", "Emery", "Finley", "Gray", "Harper", "Indigo",
	"Jamie", "Kai", "Logan", "Mason", "Noah", "Oliver", "Parker", "Reese",
	"Sage", "Skyler", "Tatum", "River", "Winter", "Phoenix", "Storm", "Arrow",
	"Blaze", "Cloud", "Dawn", "Echo", "Falcon", "Galaxy", "Hawk", "Ion",
	"Jade", "Knight", "Luna", "Midnight", "Nova", "Orion", "Pulse", "Quantum",
	"Raven", "Shadow", "Thunder", "Ultra", "Vega", "Wolf", "Xenon", "Zen",
	"Ace", "Bolt", "Cinder", "Drake", "Ember", "Flint", "Gale", "Haven",
	"Ivy", "Jinx", "Koda", "Lynx", "Mist", "Nyx", "Opal", "Pax",
	"Rain", "Slate", "Trek", "Vale", "Wren", "Xyla", "Yara", "Zephyr",
	"Atlas", "Birch", "Coral", "Dusk", "Elm", "Fern", "Grove", "Haze",
	"Isle", "Jet", "Kite", "Lark", "Moss", "Nebula", "Onyx", "Pine",
}

var lastNames = []string{
	"Runner", "Dash", "Swift", "Flash", "Bolt", "Stride", "Pace", "Sprint",
	"Blaze", "Storm", "Wind", "Fire", "Wave", "Tide", "Frost", "Thunder",
	"Shadow", "Night", "Dawn", "Star", "Moon", "Sun", "Sky", "Cloud",
	"Stone", "Steel", "Iron", "Gold", "Silver", "Bronze", "Copper", "Chrome",
}

var avatars = []string{
	"\U0001f3c3", "\U0001f3c3\u200d\u2642\ufe0f", "\U0001f3c3\u200d\u2640\ufe0f",
	"\U0001f98a", "\U0001f43a", "\U0001f985", "\U0001f42c", "\U0001f525",
	"\U0001f4a8", "\u26a1", "\U0001f30a", "\U0001f32a\ufe0f",
	"\U0001f48e", "\U0001f680", "\U0001f31f", "\u2728",
}
