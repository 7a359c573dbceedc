// Behavioural archetypes. Each archetype fixes how often a runner turns up
// and the ranges their distance, pace and variability are drawn from.
package agents

import "fmt"

// Archetype names used by the default table.
const (
	ArchStar    = "star"
	ArchRegular = "regular"
	ArchCasual  = "casual"
	ArchGhost   = "ghost"
)

// Range is a closed-open interval [Min, Max) for uniform draws.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Valid reports whether the range is non-empty and non-negative.
func (r Range) Valid() bool {
	return r.Min >= 0 && r.Max >= r.Min
}

// Archetype is a behavioural profile. Weight doubles as the archetype's
// quota: across the roster it appears exactly Weight times.
type Archetype struct {
	Name          string  `yaml:"name" json:"name"`
	Weight        int     `yaml:"weight" json:"weight"`
	Participation float64 `yaml:"participation" json:"participation"` // Daily probability of running, 0.0–1.0
	DistanceKm    Range   `yaml:"distance_km" json:"distance_km"`
	PaceMinPerKm  Range   `yaml:"pace_min_per_km" json:"pace_min_per_km"`
	CV            Range   `yaml:"cv" json:"cv"` // Pace variability, percent
}

// Validate checks a single archetype's fields.
func (a Archetype) Validate() error {
	switch {
	case a.Name == "":
		return fmt.Errorf("archetype: empty name")
	case a.Weight < 0:
		return fmt.Errorf("archetype %s: negative weight %d", a.Name, a.Weight)
	case a.Participation < 0 || a.Participation > 1:
		return fmt.Errorf("archetype %s: participation %.2f outside [0,1]", a.Name, a.Participation)
	case !a.DistanceKm.Valid(), !a.PaceMinPerKm.Valid(), !a.CV.Valid():
		return fmt.Errorf("archetype %s: invalid range", a.Name)
	}
	return nil
}

// DefaultArchetypes returns the four-tier table used for a 100-runner season.
func DefaultArchetypes() []Archetype {
	return []Archetype{
		{Name: ArchStar, Weight: 10, Participation: 0.92,
			DistanceKm: Range{8, 15}, PaceMinPerKm: Range{4.5, 5.5}, CV: Range{3, 8}},
		{Name: ArchRegular, Weight: 40, Participation: 0.62,
			DistanceKm: Range{4, 10}, PaceMinPerKm: Range{5.0, 6.5}, CV: Range{5, 15}},
		{Name: ArchCasual, Weight: 35, Participation: 0.32,
			DistanceKm: Range{2, 6}, PaceMinPerKm: Range{6.0, 7.5}, CV: Range{10, 25}},
		{Name: ArchGhost, Weight: 15, Participation: 0.08,
			DistanceKm: Range{2, 4}, PaceMinPerKm: Range{6.5, 8.0}, CV: Range{15, 30}},
	}
}

// ArchetypeTable indexes archetypes by name.
type ArchetypeTable map[string]Archetype

// NewArchetypeTable builds a lookup table from a list.
func NewArchetypeTable(list []Archetype) ArchetypeTable {
	t := make(ArchetypeTable, len(list))
	for _, a := range list {
		t[a.Name] = a
	}
	return t
}

// Get returns the archetype for name.
func (t ArchetypeTable) Get(name string) (Archetype, error) {
	a, ok := t[name]
	if !ok {
		return Archetype{}, fmt.Errorf("unknown archetype %q", name)
	}
	return a, nil
}

// weightedRoundRobin spreads n slots over weights with the smooth weighted
// round-robin schedule: each step every weight is added to its running total,
// the largest total wins the slot and is reduced by the sum of weights.
// When n equals the sum, index i is chosen exactly weights[i] times.
func weightedRoundRobin(weights []int, n int) []int {
	total := 0
	for _, w := range weights {
		total += w
	}
	out := make([]int, n)
	if total == 0 {
		return out
	}
	current := make([]int, len(weights))
	for slot := 0; slot < n; slot++ {
		best := -1
		for i, w := range weights {
			current[i] += w
			if best < 0 || current[i] > current[best] {
				best = i
			}
		}
		current[best] -= total
		out[slot] = best
	}
	return out
}
