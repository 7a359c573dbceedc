// Package social defines the competing teams and the incentive rule each one plays under.
package social

import "fmt"

// Team is one of the three competing teams. The zero value means "no team".
type Team string

const (
	TeamRed    Team = "red"
	TeamBlue   Team = "blue"
	TeamPurple Team = "purple"
)

// Teams lists every team in fixed priority order. Ties between teams
// (e.g. equal cell counts) are always resolved in this order.
var Teams = []Team{TeamRed, TeamBlue, TeamPurple}

// BuffRule categorizes how a team's point multiplier is earned.
type BuffRule uint8

const (
	RuleNone          BuffRule = iota
	RuleElite                  // Aggressive: top scorers plus territorial dominance, capped at 4
	RuleDominance              // Balanced: dominance only, capped at 3
	RuleParticipation          // Participation-driven: share of members who scored yesterday
)

// Rule returns the buff rule the team plays under.
func (t Team) Rule() BuffRule {
	switch t {
	case TeamRed:
		return RuleElite
	case TeamBlue:
		return RuleDominance
	case TeamPurple:
		return RuleParticipation
	default:
		return RuleNone
	}
}

// Valid reports whether t is one of the three teams.
func (t Team) Valid() bool {
	return t.Priority() >= 0
}

// Priority is the team's position in Teams, or -1 for an unknown team.
func (t Team) Priority() int {
	for i, team := range Teams {
		if team == t {
			return i
		}
	}
	return -1
}

// Title returns the display name ("Red").
func (t Team) Title() string {
	switch t {
	case TeamRed:
		return "Red"
	case TeamBlue:
		return "Blue"
	case TeamPurple:
		return "Purple"
	default:
		return "None"
	}
}

// ParseTeam converts a configuration string into a Team.
func ParseTeam(s string) (Team, error) {
	t := Team(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown team %q", s)
	}
	return t, nil
}

// Counts is a per-team tally in Teams order.
type Counts map[Team]int

// Leader returns the team with the strictly highest count, scanning in
// priority order so the earlier team wins a tie. ok is false when every
// count is zero.
func (c Counts) Leader() (Team, bool) {
	var best Team
	bestN := 0
	for _, t := range Teams {
		if n := c[t]; n > bestN {
			best, bestN = t, n
		}
	}
	return best, bestN > 0
}
