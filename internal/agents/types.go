// Package agents provides the simulated runner roster: identities, team
// membership, behavioural archetypes and home placement.
package agents

import (
	"github.com/talgya/runstrict-season/internal/social"
	"github.com/talgya/runstrict-season/internal/world"
)

// UserID is a roster member's identifier, e.g. "aaaaaaaa-0007-0007-0007-000000000007".
type UserID string

// User is one simulated runner. Created once at season start and never
// deleted; only Team changes afterwards, and only through a defection.
type User struct {
	ID     UserID `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`

	// Team membership
	Team         social.Team `json:"team"`
	OriginalTeam social.Team `json:"original_team"`

	// Behaviour
	Archetype string `json:"archetype"`

	// Location
	HomeCell world.CellID `json:"home_hex"`
	Region   int          `json:"region"` // Index into the configured regions
}

// Defected reports whether the user has left their starting team.
func (u *User) Defected() bool {
	return u.Team != u.OriginalTeam
}

// Roster is the season's population in its fixed processing order.
type Roster []*User

// Clone deep-copies the roster.
func (r Roster) Clone() Roster {
	out := make(Roster, len(r))
	for i, u := range r {
		cp := *u
		out[i] = &cp
	}
	return out
}

// Index maps user ids to roster entries. Build once per operation.
func (r Roster) Index() map[UserID]*User {
	idx := make(map[UserID]*User, len(r))
	for _, u := range r {
		idx[u.ID] = u
	}
	return idx
}

// TeamSizes counts current members per team.
func (r Roster) TeamSizes() social.Counts {
	counts := make(social.Counts, len(social.Teams))
	for _, t := range social.Teams {
		counts[t] = 0
	}
	for _, u := range r {
		counts[u.Team]++
	}
	return counts
}

// Members returns the current members of team in roster order.
func (r Roster) Members(team social.Team) []*User {
	var out []*User
	for _, u := range r {
		if u.Team == team {
			out = append(out, u)
		}
	}
	return out
}
