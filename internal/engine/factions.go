// Scripted defections: during a window of days, a few runners from the
// other teams switch permanently to the target team.
package engine

import (
	"log/slog"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/entropy"
	"github.com/talgya/runstrict-season/internal/social"
)

// DefectionPolicy schedules defections to Target on days
// WindowStart..WindowEnd inclusive. Quota is spread over the window.
type DefectionPolicy struct {
	WindowStart int         `yaml:"window_start" json:"window_start"`
	WindowEnd   int         `yaml:"window_end" json:"window_end"`
	Quota       int         `yaml:"quota" json:"quota"`
	Target      social.Team `yaml:"target" json:"target"`
}

// Active reports whether day falls inside the window of an enabled policy.
func (p DefectionPolicy) Active(day int) bool {
	return p.Quota > 0 && p.WindowEnd >= p.WindowStart && day >= p.WindowStart && day <= p.WindowEnd
}

// WindowDays is the number of days in the window.
func (p DefectionPolicy) WindowDays() int {
	if p.WindowEnd < p.WindowStart {
		return 0
	}
	return p.WindowEnd - p.WindowStart + 1
}

// PerDay is the sample size for each window day before capping to the
// eligible pool. It rounds the even share up, so at least one runner
// defects per window day while anyone is eligible.
func (p DefectionPolicy) PerDay() int {
	days := p.WindowDays()
	if days == 0 {
		return 0
	}
	return p.Quota/days + 1
}

// eligible lists runners who may still defect: not on the target team now
// and never on it originally. Roster order is kept.
func (p DefectionPolicy) eligible(roster agents.Roster) []*agents.User {
	var pool []*agents.User
	for _, u := range roster {
		if u.Team != p.Target && u.OriginalTeam != p.Target {
			pool = append(pool, u)
		}
	}
	return pool
}

// applyDefections moves the day's sample of eligible runners to the target
// team and returns them in selection order. An empty pool yields no
// defectors. OriginalTeam is never modified.
func applyDefections(day int, policy DefectionPolicy, roster agents.Roster, rng *entropy.Stream) []*agents.User {
	if !policy.Active(day) {
		return nil
	}
	pool := policy.eligible(roster)
	if len(pool) == 0 {
		slog.Debug("no eligible defectors", "day", day, "target", policy.Target)
		return nil
	}
	count := min(policy.PerDay(), len(pool))

	// Partial Fisher–Yates: the first count slots become the sample.
	for i := 0; i < count; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	defectors := pool[:count]
	for _, u := range defectors {
		slog.Debug("runner defected", "day", day, "user", u.ID, "from", u.Team, "to", policy.Target)
		u.Team = policy.Target
	}
	slog.Info("defections applied", "day", day, "count", count, "target", policy.Target)
	return defectors
}
