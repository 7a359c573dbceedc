// Package emit renders a simulated day as a SQL script for the app database
// (auth users, public users, run history and the hex map).
package emit

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/engine"
	"github.com/talgya/runstrict-season/internal/social"
)

const (
	sqlTimeLayout = "2006-01-02 15:04:05+00"
	sqlDateLayout = "2006-01-02"

	simulatedIDPattern = "aaaaaaaa-%"
	fakePasswordHash   = "$2a$10$SimulatedPasswordHashForTestingOnly000000000000000000000"
)

// DayScript renders the script for report, given the state after that day.
func DayScript(st *engine.State, report *engine.DayReport, seasonLength int) string {
	var b strings.Builder
	// strings.Builder never fails to write.
	_ = WriteDay(&b, st, report, seasonLength)
	return b.String()
}

// WriteDay writes the script for one day to w. Sections, in order: day-1
// user creation, defections, runs, hex map, cumulative user stats,
// verification queries and a stats trailer.
func WriteDay(w io.Writer, st *engine.State, report *engine.DayReport, seasonLength int) error {
	var sections []string
	add := func(lines ...string) { sections = append(sections, lines...) }

	add(fmt.Sprintf("-- RunStrict Day %d / %d (%s)", report.Day, seasonLength, report.RunDate.Format(sqlDateLayout)),
		"-- Generated by seasonsim", "")

	if report.Reset {
		add(fmt.Sprintf("-- === CREATE %d SIMULATION AUTH ENTRIES ===", len(st.Roster)), authUsersInsert(st.Roster), "")
		add(fmt.Sprintf("-- === CREATE %d SIMULATION USERS ===", len(st.Roster)), usersUpsert(st.Roster), "")
	}

	if len(report.Defectors) > 0 {
		target := report.Defectors[0].Team
		add(fmt.Sprintf("-- === DEFECTIONS: %d users join %s ===", len(report.Defectors), strings.ToUpper(string(target))),
			defectionUpdates(report.Defectors), "")
	}

	add(fmt.Sprintf("-- === DAY %d RUNS (%d runs) ===", report.Day, len(report.Runs)), runsInsert(report.Runs), "")
	add(fmt.Sprintf("-- === HEX MAP (%d hexes) ===", st.Territory.Len()), hexesUpsert(st), "")
	add("-- === UPDATE USER SEASON STATS ===", userStatsUpdates(st), "")
	add("-- === VERIFICATION QUERIES ===", verifyQueries(report), "")
	add(statsTrailer(st, report)...)

	_, err := io.WriteString(w, strings.Join(sections, "\n"))
	return err
}

// ResetScript removes every simulated row from the app database.
func ResetScript() string {
	return strings.Join([]string{
		"-- RunStrict simulation reset",
		"-- Generated by seasonsim",
		"",
		fmt.Sprintf("DELETE FROM public.run_history WHERE user_id::text LIKE '%s';", simulatedIDPattern),
		"DELETE FROM public.hexes;",
		fmt.Sprintf("DELETE FROM public.users WHERE id::text LIKE '%s';", simulatedIDPattern),
		fmt.Sprintf("DELETE FROM auth.users WHERE id::text LIKE '%s';", simulatedIDPattern),
		"",
	}, "\n")
}

func authUsersInsert(roster agents.Roster) string {
	lines := []string{"INSERT INTO auth.users (id, instance_id, aud, role, encrypted_password, email_confirmed_at, created_at, updated_at, confirmation_token, email, raw_app_meta_data, raw_user_meta_data) VALUES"}
	vals := make([]string, 0, len(roster))
	for _, u := range roster {
		id := string(u.ID)
		email := fmt.Sprintf("sim_%s_%s@runstrict.test", id[:min(8, len(id))], strings.ToLower(u.Name))
		vals = append(vals, fmt.Sprintf(
			"  ('%s', '00000000-0000-0000-0000-000000000000', 'authenticated', 'authenticated', '%s', now(), now(), now(), '', '%s', '{\"provider\":\"email\",\"providers\":[\"email\"]}', '{}')",
			id, fakePasswordHash, esc(email)))
	}
	lines = append(lines, strings.Join(vals, ",\n"), "ON CONFLICT (id) DO NOTHING;")
	return strings.Join(lines, "\n")
}

func usersUpsert(roster agents.Roster) string {
	lines := []string{"INSERT INTO public.users (id, name, team, avatar, season_points, home_hex, season_home_hex, home_hex_end, total_distance_km, total_runs) VALUES"}
	vals := make([]string, 0, len(roster))
	for _, u := range roster {
		vals = append(vals, fmt.Sprintf("  ('%s', '%s', '%s', '%s', 0, '%s', '%s', '%s', 0, 0)",
			u.ID, esc(u.Name), u.OriginalTeam, esc(u.Avatar), u.HomeCell, u.HomeCell, u.HomeCell))
	}
	lines = append(lines,
		strings.Join(vals, ",\n"),
		"ON CONFLICT (id) DO UPDATE SET",
		"  name = EXCLUDED.name, team = EXCLUDED.team, avatar = EXCLUDED.avatar,",
		"  season_points = 0, home_hex = EXCLUDED.home_hex,",
		"  season_home_hex = EXCLUDED.season_home_hex, home_hex_end = EXCLUDED.home_hex_end,",
		"  total_distance_km = 0, total_runs = 0;",
	)
	return strings.Join(lines, "\n")
}

func defectionUpdates(defectors []agents.User) string {
	lines := make([]string, 0, len(defectors))
	for _, u := range defectors {
		lines = append(lines, fmt.Sprintf("UPDATE public.users SET team = '%s' WHERE id = '%s';", u.Team, u.ID))
	}
	return strings.Join(lines, "\n")
}

func runsInsert(runs []engine.RunRecord) string {
	if len(runs) == 0 {
		return "-- No runs this day"
	}
	lines := []string{"INSERT INTO public.run_history (id, user_id, run_date, start_time, end_time, distance_km, duration_seconds, avg_pace_min_per_km, flip_count, flip_points, team_at_run, cv) VALUES"}
	vals := make([]string, 0, len(runs))
	for _, r := range runs {
		vals = append(vals, fmt.Sprintf("  ('%s', '%s', '%s', '%s', '%s', %s, %d, %s, %d, %d, '%s', %s)",
			r.ID, r.UserID, r.RunDate.Format(sqlDateLayout),
			r.StartTime.UTC().Format(sqlTimeLayout), r.EndTime.UTC().Format(sqlTimeLayout),
			num(r.DistanceKm), r.DurationSeconds, num(r.PaceMinPerKm),
			r.FlipCount, r.Points, r.TeamAtRun, num(r.CV)))
	}
	return lines[0] + "\n" + strings.Join(vals, ",\n") + ";"
}

func hexesUpsert(st *engine.State) string {
	if st.Territory.Len() == 0 {
		return "-- No hex updates"
	}
	lines := []string{"INSERT INTO public.hexes (id, last_runner_team) VALUES"}
	cells := st.Territory.Cells()
	vals := make([]string, 0, len(cells))
	for _, c := range cells {
		team, _ := st.Territory.Owner(c)
		vals = append(vals, fmt.Sprintf("  ('%s', '%s')", c, team))
	}
	lines = append(lines, strings.Join(vals, ",\n"),
		"ON CONFLICT (id) DO UPDATE SET last_runner_team = EXCLUDED.last_runner_team;")
	return strings.Join(lines, "\n")
}

// userStatsUpdates emits one UPDATE per runner with points or runs,
// highest cumulative points first (roster order on ties).
func userStatsUpdates(st *engine.State) string {
	users := make([]*agents.User, 0, len(st.Roster))
	for _, u := range st.Roster {
		if st.CumulativePoints[u.ID] > 0 || st.CumulativeStats[u.ID].RunCount > 0 {
			users = append(users, u)
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		return st.CumulativePoints[users[i].ID] > st.CumulativePoints[users[j].ID]
	})
	if len(users) == 0 {
		return "-- No point updates"
	}

	lines := make([]string, 0, len(users))
	for _, u := range users {
		stats := st.CumulativeStats[u.ID]
		avgPace, avgCV := "NULL", "NULL"
		if v, ok := stats.AvgPace(); ok {
			avgPace = num(roundTo(v, 2))
		}
		if v, ok := stats.AvgCV(); ok {
			avgCV = num(roundTo(v, 1))
		}
		lines = append(lines, fmt.Sprintf(
			"UPDATE public.users SET season_points = %d, total_distance_km = %s, total_runs = %d, avg_pace_min_per_km = %s, avg_cv = %s WHERE id = '%s';",
			st.CumulativePoints[u.ID], num(stats.TotalDistance), stats.RunCount, avgPace, avgCV, u.ID))
	}
	return strings.Join(lines, "\n")
}

func verifyQueries(report *engine.DayReport) string {
	return fmt.Sprintf(`
SELECT 'Day %d Summary' as info;

SELECT team, count(*) as user_count, sum(season_points) as total_points
FROM public.users WHERE id::text LIKE '%s' GROUP BY team ORDER BY total_points DESC;

SELECT team, count(*) as hex_count
FROM (SELECT last_runner_team as team FROM public.hexes WHERE last_runner_team IS NOT NULL) t
GROUP BY team ORDER BY hex_count DESC;

SELECT u.name, u.team, u.season_points, u.total_distance_km, u.total_runs,
       CASE WHEN u.avg_cv IS NOT NULL THEN (100 - u.avg_cv)::INTEGER ELSE NULL END as stability
FROM public.users u
WHERE u.id::text LIKE '%s' AND u.season_points > 0
ORDER BY u.season_points DESC LIMIT 15;

SELECT count(*) as total_runs_today
FROM public.run_history WHERE run_date = '%s';
`, report.Day, simulatedIDPattern, simulatedIDPattern, report.RunDate.Format(sqlDateLayout))
}

func statsTrailer(st *engine.State, report *engine.DayReport) []string {
	sum := engine.Summarize(st, 0)
	lines := []string{
		fmt.Sprintf("-- === DAY %d STATS ===", report.Day),
		fmt.Sprintf("-- Runs today: %d", len(report.Runs)),
		fmt.Sprintf("-- Flips today: %d", report.TotalFlips()),
		fmt.Sprintf("-- Points earned today: %d", report.TotalPoints()),
	}
	if len(report.Defectors) > 0 {
		names := make([]string, len(report.Defectors))
		for i, u := range report.Defectors {
			names[i] = u.Name
		}
		lines = append(lines, "-- Defectors: "+strings.Join(names, ", "))
	}
	lines = append(lines,
		"-- Cumulative Points: "+teamLine(sum, func(ts engine.TeamSummary) string { return humanize.Comma(int64(ts.Points)) }),
		"-- Hex Control: "+teamLine(sum, func(ts engine.TeamSummary) string { return strconv.Itoa(ts.Cells) }),
		"-- Team sizes: "+teamLine(sum, func(ts engine.TeamSummary) string { return strconv.Itoa(ts.Members) }),
	)
	return lines
}

// teamLine formats "Red a | Blue b | Purple c".
func teamLine(sum engine.Summary, value func(engine.TeamSummary) string) string {
	parts := make([]string, 0, len(social.Teams))
	for _, t := range social.Teams {
		parts = append(parts, t.Title()+" "+value(sum.Team(t)))
	}
	return strings.Join(parts, " | ")
}

// esc doubles single quotes for SQL string literals.
func esc(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// num formats a float the way a SQL literal reads naturally: shortest form,
// always with a decimal point ("12.0", "5.25").
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
