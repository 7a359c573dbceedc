// Package persistence provides SQLite-based season state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/engine"
	"github.com/talgya/runstrict-season/internal/social"
	"github.com/talgya/runstrict-season/internal/world"
)

// Meta keys.
const (
	metaLastDay = "last_day"
	metaSeed    = "seed"
)

// DB wraps a SQLite connection for season state persistence.
//
// A season has exactly one writer. Running two processes that advance the
// same database at once is unsupported and will interleave snapshots.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		avatar TEXT NOT NULL,
		team TEXT NOT NULL,
		original_team TEXT NOT NULL,
		archetype TEXT NOT NULL,
		home_cell TEXT NOT NULL,
		region INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_points (
		user_id TEXT PRIMARY KEY,
		points INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_stats (
		user_id TEXT PRIMARY KEY,
		total_runs INTEGER NOT NULL,
		total_distance_km REAL NOT NULL,
		sum_pace REAL NOT NULL,
		sum_cv REAL NOT NULL,
		cv_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS territory (
		cell TEXT PRIMARY KEY,
		team TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS yesterday_points (
		user_id TEXT PRIMARY KEY,
		points INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		day INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		run_date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		distance_km REAL NOT NULL,
		duration_seconds INTEGER NOT NULL,
		pace REAL NOT NULL,
		cv REAL NOT NULL,
		path_json TEXT NOT NULL,
		flip_count INTEGER NOT NULL,
		multiplier INTEGER NOT NULL,
		points INTEGER NOT NULL,
		team_at_run TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS season_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_day ON runs(day, seq);
	CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveState replaces the stored snapshot with st (full replace, one transaction).
func (db *DB) SaveState(st *engine.State) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveState(tx, st); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveDay stores the state after a day together with that day's runs. Runs
// already recorded for this day or later are dropped first, so replaying a
// day never duplicates the log. Day 1 clears the whole run log.
func (db *DB) SaveDay(st *engine.State, report *engine.DayReport) error {
	slog.Info("saving season state", "day", report.Day, "users", len(st.Roster), "runs", len(report.Runs))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM runs WHERE day >= ?", report.Day); err != nil {
		return fmt.Errorf("trim runs: %w", err)
	}
	if report.Reset {
		if _, err := tx.Exec("DELETE FROM runs"); err != nil {
			return fmt.Errorf("clear runs: %w", err)
		}
	}
	if err := appendRuns(tx, report.Runs); err != nil {
		return err
	}
	if err := saveState(tx, st); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("season state saved", "day", st.LastDay)
	return nil
}

func saveState(tx *sqlx.Tx, st *engine.State) error {
	for _, table := range []string{"users", "user_points", "user_stats", "territory", "yesterday_points"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO users
		(id, position, name, avatar, team, original_team, archetype, home_cell, region)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, u := range st.Roster {
		_, err := stmt.Exec(
			u.ID, i, u.Name, u.Avatar, u.Team, u.OriginalTeam,
			u.Archetype, u.HomeCell, u.Region,
		)
		if err != nil {
			return fmt.Errorf("insert user %s: %w", u.ID, err)
		}
	}

	for id, pts := range st.CumulativePoints {
		if _, err := tx.Exec("INSERT INTO user_points (user_id, points) VALUES (?, ?)", id, pts); err != nil {
			return fmt.Errorf("insert points %s: %w", id, err)
		}
	}
	for id, s := range st.CumulativeStats {
		_, err := tx.Exec(`INSERT INTO user_stats
			(user_id, total_runs, total_distance_km, sum_pace, sum_cv, cv_count)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, s.RunCount, s.TotalDistance, s.PaceSum, s.VariabilitySum, s.VariabilitySampleCount,
		)
		if err != nil {
			return fmt.Errorf("insert stats %s: %w", id, err)
		}
	}
	if st.Territory != nil {
		for cell, team := range st.Territory.Snapshot() {
			if _, err := tx.Exec("INSERT INTO territory (cell, team) VALUES (?, ?)", cell, team); err != nil {
				return fmt.Errorf("insert cell %s: %w", cell, err)
			}
		}
	}
	for id, pts := range st.YesterdayPoints {
		if _, err := tx.Exec("INSERT INTO yesterday_points (user_id, points) VALUES (?, ?)", id, pts); err != nil {
			return fmt.Errorf("insert yesterday %s: %w", id, err)
		}
	}

	for key, value := range map[string]string{
		metaLastDay: strconv.Itoa(st.LastDay),
		metaSeed:    strconv.FormatInt(st.Seed, 10),
	} {
		if _, err := tx.Exec("INSERT OR REPLACE INTO season_meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}
	return nil
}

func appendRuns(tx *sqlx.Tx, runs []engine.RunRecord) error {
	stmt, err := tx.Preparex(`INSERT INTO runs
		(id, day, seq, user_id, run_date, start_time, end_time, distance_km,
		 duration_seconds, pace, cv, path_json, flip_count, multiplier, points, team_at_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range runs {
		pathJSON, err := json.Marshal(r.Path)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(
			r.ID.String(), r.Day, i, r.UserID,
			r.RunDate.Format(time.RFC3339), r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339),
			r.DistanceKm, r.DurationSeconds, r.PaceMinPerKm, r.CV, string(pathJSON),
			r.FlipCount, r.Multiplier, r.Points, r.TeamAtRun,
		)
		if err != nil {
			return fmt.Errorf("insert run %s: %w", r.ID, err)
		}
	}
	return nil
}

type userRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Avatar       string `db:"avatar"`
	Team         string `db:"team"`
	OriginalTeam string `db:"original_team"`
	Archetype    string `db:"archetype"`
	HomeCell     string `db:"home_cell"`
	Region       int    `db:"region"`
}

type pointsRow struct {
	UserID string `db:"user_id"`
	Points int    `db:"points"`
}

type statsRow struct {
	UserID        string  `db:"user_id"`
	TotalRuns     int     `db:"total_runs"`
	TotalDistance float64 `db:"total_distance_km"`
	SumPace       float64 `db:"sum_pace"`
	SumCV         float64 `db:"sum_cv"`
	CVCount       int     `db:"cv_count"`
}

type cellRow struct {
	Cell string `db:"cell"`
	Team string `db:"team"`
}

// LoadState reads the stored snapshot. An empty database yields a state
// with LastDay 0 and no roster.
func (db *DB) LoadState() (*engine.State, error) {
	lastDay, err := db.metaInt(metaLastDay)
	if err != nil {
		return nil, err
	}
	seed, err := db.metaInt(metaSeed)
	if err != nil {
		return nil, err
	}
	st := engine.NewState(seed, nil)
	st.LastDay = int(lastDay)

	var users []userRow
	if err := db.conn.Select(&users, `SELECT id, name, avatar, team, original_team, archetype, home_cell, region
		FROM users ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, r := range users {
		st.Roster = append(st.Roster, &agents.User{
			ID:           agents.UserID(r.ID),
			Name:         r.Name,
			Avatar:       r.Avatar,
			Team:         social.Team(r.Team),
			OriginalTeam: social.Team(r.OriginalTeam),
			Archetype:    r.Archetype,
			HomeCell:     world.CellID(r.HomeCell),
			Region:       r.Region,
		})
	}

	var points []pointsRow
	if err := db.conn.Select(&points, "SELECT user_id, points FROM user_points"); err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	for _, r := range points {
		st.CumulativePoints[agents.UserID(r.UserID)] = r.Points
	}

	var stats []statsRow
	if err := db.conn.Select(&stats, `SELECT user_id, total_runs, total_distance_km, sum_pace, sum_cv, cv_count
		FROM user_stats`); err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	for _, r := range stats {
		st.CumulativeStats[agents.UserID(r.UserID)] = engine.UserStats{
			RunCount:               r.TotalRuns,
			TotalDistance:          r.TotalDistance,
			PaceSum:                r.SumPace,
			VariabilitySum:         r.SumCV,
			VariabilitySampleCount: r.CVCount,
		}
	}

	var cells []cellRow
	if err := db.conn.Select(&cells, "SELECT cell, team FROM territory"); err != nil {
		return nil, fmt.Errorf("load territory: %w", err)
	}
	owners := make(map[world.CellID]social.Team, len(cells))
	for _, r := range cells {
		owners[world.CellID(r.Cell)] = social.Team(r.Team)
	}
	st.Territory = world.TerritoryFrom(owners)

	var yesterday []pointsRow
	if err := db.conn.Select(&yesterday, "SELECT user_id, points FROM yesterday_points"); err != nil {
		return nil, fmt.Errorf("load yesterday: %w", err)
	}
	for _, r := range yesterday {
		st.YesterdayPoints[agents.UserID(r.UserID)] = r.Points
	}

	return st, nil
}

type runRow struct {
	ID              string  `db:"id"`
	Day             int     `db:"day"`
	UserID          string  `db:"user_id"`
	RunDate         string  `db:"run_date"`
	StartTime       string  `db:"start_time"`
	EndTime         string  `db:"end_time"`
	DistanceKm      float64 `db:"distance_km"`
	DurationSeconds int     `db:"duration_seconds"`
	Pace            float64 `db:"pace"`
	CV              float64 `db:"cv"`
	PathJSON        string  `db:"path_json"`
	FlipCount       int     `db:"flip_count"`
	Multiplier      int     `db:"multiplier"`
	Points          int     `db:"points"`
	TeamAtRun       string  `db:"team_at_run"`
}

// RunsForDay returns a day's runs in the order they were simulated.
func (db *DB) RunsForDay(day int) ([]engine.RunRecord, error) {
	var rows []runRow
	err := db.conn.Select(&rows, `SELECT id, day, user_id, run_date, start_time, end_time, distance_km,
		duration_seconds, pace, cv, path_json, flip_count, multiplier, points, team_at_run
		FROM runs WHERE day = ? ORDER BY seq`, day)
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}

	runs := make([]engine.RunRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		runs = append(runs, rec)
	}
	return runs, nil
}

// RunCount returns the number of logged runs.
func (db *DB) RunCount() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM runs")
	return n, err
}

func (r runRow) record() (engine.RunRecord, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return engine.RunRecord{}, err
	}
	var times [3]time.Time
	for i, s := range []string{r.RunDate, r.StartTime, r.EndTime} {
		if times[i], err = time.Parse(time.RFC3339, s); err != nil {
			return engine.RunRecord{}, err
		}
	}
	var path []world.CellID
	if err := json.Unmarshal([]byte(r.PathJSON), &path); err != nil {
		return engine.RunRecord{}, err
	}
	return engine.RunRecord{
		ID:              id,
		UserID:          agents.UserID(r.UserID),
		Day:             r.Day,
		RunDate:         times[0],
		StartTime:       times[1],
		EndTime:         times[2],
		DistanceKm:      r.DistanceKm,
		DurationSeconds: r.DurationSeconds,
		PaceMinPerKm:    r.Pace,
		CV:              r.CV,
		Path:            path,
		FlipCount:       r.FlipCount,
		Multiplier:      r.Multiplier,
		Points:          r.Points,
		TeamAtRun:       social.Team(r.TeamAtRun),
	}, nil
}

// Reset wipes the season: snapshot, run log and metadata.
func (db *DB) Reset() error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"users", "user_points", "user_stats", "territory", "yesterday_points", "runs", "season_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("season reset")
	return nil
}

// SaveMeta stores a key-value pair in season metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO season_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM season_meta WHERE key = ?", key)
	return value, err
}

// metaInt reads an integer meta value, treating a missing key as 0.
func (db *DB) metaInt(key string) (int64, error) {
	v, err := db.GetMeta(key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read meta %s: %w", key, err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", key, err)
	}
	return n, nil
}
