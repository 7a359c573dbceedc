// Daily point multipliers. Each team earns its buff differently; all of
// them look only at yesterday's points and the territory at dawn.
package engine

import (
	"sort"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/social"
	"github.com/talgya/runstrict-season/internal/world"
)

// Multiplier caps per rule.
const (
	eliteCap     = 4
	dominanceCap = 3

	elitePercentile     = 8 // Tenths: the threshold sits at index ⌊0.8·n⌋
	participationHigh   = 0.60
	participationMedium = 0.30
)

// BuffCalculator answers "what is this runner's multiplier today". It is
// built once per day and never changes afterwards, so repeated lookups for
// the same runner agree.
type BuffCalculator struct {
	day         int
	dominant    social.Team
	hasDominant bool
	yesterday   map[agents.UserID]int

	eliteThreshold int // 0 when red had no positive scorers
	purpleRate     float64
}

// NewBuffCalculator snapshots the inputs of the day's buffs: the territory
// as it stood at the start of the day, the roster after the day's
// defections and yesterday's per-runner points.
func NewBuffCalculator(day int, territory *world.Territory, roster agents.Roster, yesterday map[agents.UserID]int) *BuffCalculator {
	b := &BuffCalculator{day: day, yesterday: make(map[agents.UserID]int, len(yesterday))}
	for id, p := range yesterday {
		b.yesterday[id] = p
	}
	if day <= 1 {
		return b
	}
	b.dominant, b.hasDominant = territory.Dominant()

	var redScores []int
	purpleMembers, purpleActive := 0, 0
	for _, u := range roster {
		pts := b.yesterday[u.ID]
		switch u.Team.Rule() {
		case social.RuleElite:
			if pts > 0 {
				redScores = append(redScores, pts)
			}
		case social.RuleParticipation:
			purpleMembers++
			if pts > 0 {
				purpleActive++
			}
		}
	}
	if n := len(redScores); n > 0 {
		sort.Ints(redScores)
		idx := 0
		if n > 1 {
			idx = n * elitePercentile / 10
		}
		b.eliteThreshold = redScores[idx]
	}
	if purpleMembers > 0 {
		b.purpleRate = float64(purpleActive) / float64(purpleMembers)
	}
	return b
}

// Dominant returns the team holding the most cells at dawn.
func (b *BuffCalculator) Dominant() (social.Team, bool) {
	return b.dominant, b.hasDominant
}

// MultiplierFor returns u's multiplier for the day, always ≥ 1.
func (b *BuffCalculator) MultiplierFor(u *agents.User) int {
	if b.day <= 1 {
		return 1
	}
	leads := b.hasDominant && b.dominant == u.Team

	switch u.Team.Rule() {
	case social.RuleElite:
		own := b.yesterday[u.ID]
		elite := b.eliteThreshold > 0 && own > 0 && own >= b.eliteThreshold
		base := 1
		switch {
		case elite && leads:
			base = 3
		case elite:
			base = 2
		}
		return min(base+bonus(leads), eliteCap)

	case social.RuleDominance:
		// The dominance bonus stacks on a dominance-conditioned base, so
		// only 1 and 3 are reachable.
		base := 1
		if leads {
			base = 2
		}
		return min(base+bonus(leads), dominanceCap)

	case social.RuleParticipation:
		switch {
		case b.purpleRate >= participationHigh:
			return 3
		case b.purpleRate >= participationMedium:
			return 2
		}
		return 1
	}
	return 1
}

func bonus(leads bool) int {
	if leads {
		return 1
	}
	return 0
}
