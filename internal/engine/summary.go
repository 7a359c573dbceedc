package engine

import (
	"sort"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/social"
)

// DefaultLeaderboardSize is the number of runners shown by status output.
const DefaultLeaderboardSize = 10

// TeamSummary aggregates a team's current standing.
type TeamSummary struct {
	Team    social.Team `json:"team"`
	Members int         `json:"members"`
	Points  int         `json:"points"` // Cumulative points of current members
	Cells   int         `json:"cells"`
}

// LeaderboardEntry is one ranked runner.
type LeaderboardEntry struct {
	Rank   int           `json:"rank"`
	UserID agents.UserID `json:"user_id"`
	Name   string        `json:"name"`
	Team   social.Team   `json:"team"`
	Points int           `json:"points"`
}

// Summary is a point-in-time overview of a season.
type Summary struct {
	LastDay     int                `json:"last_day"`
	Seed        int64              `json:"seed"`
	Users       int                `json:"users"`
	Teams       []TeamSummary      `json:"teams"` // social.Teams order
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// Team returns the summary row for t.
func (s Summary) Team(t social.Team) TeamSummary {
	for _, ts := range s.Teams {
		if ts.Team == t {
			return ts
		}
	}
	return TeamSummary{Team: t}
}

// Summarize reports team sizes, points and cells plus the top runners by
// cumulative points. Ties keep roster order.
func Summarize(st *State, top int) Summary {
	sum := Summary{LastDay: st.LastDay, Seed: st.Seed, Users: len(st.Roster)}

	sizes := st.Roster.TeamSizes()
	cells := st.Territory.Counts()
	points := make(map[social.Team]int, len(social.Teams))
	for _, u := range st.Roster {
		points[u.Team] += st.CumulativePoints[u.ID]
	}
	for _, t := range social.Teams {
		sum.Teams = append(sum.Teams, TeamSummary{
			Team:    t,
			Members: sizes[t],
			Points:  points[t],
			Cells:   cells[t],
		})
	}

	ranked := make([]*agents.User, 0, len(st.Roster))
	for _, u := range st.Roster {
		if _, ok := st.CumulativePoints[u.ID]; ok {
			ranked = append(ranked, u)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return st.CumulativePoints[ranked[i].ID] > st.CumulativePoints[ranked[j].ID]
	})
	if top >= 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	for i, u := range ranked {
		sum.Leaderboard = append(sum.Leaderboard, LeaderboardEntry{
			Rank:   i + 1,
			UserID: u.ID,
			Name:   u.Name,
			Team:   u.Team,
			Points: st.CumulativePoints[u.ID],
		})
	}
	return sum
}
