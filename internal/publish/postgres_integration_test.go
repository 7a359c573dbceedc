//go:build integration

package publish

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/talgya/runstrict-season/internal/emit"
	"github.com/talgya/runstrict-season/internal/engine"
	"github.com/talgya/runstrict-season/internal/world"
)

// appSchema is the subset of the app database the day scripts touch.
const appSchema = `
CREATE SCHEMA IF NOT EXISTS auth;
CREATE TABLE auth.users (
	id uuid PRIMARY KEY,
	instance_id uuid,
	aud text,
	role text,
	encrypted_password text,
	email_confirmed_at timestamptz,
	created_at timestamptz,
	updated_at timestamptz,
	confirmation_token text,
	email text,
	raw_app_meta_data jsonb,
	raw_user_meta_data jsonb
);
CREATE TABLE public.users (
	id uuid PRIMARY KEY,
	name text NOT NULL,
	team text NOT NULL,
	avatar text,
	season_points integer NOT NULL DEFAULT 0,
	home_hex text,
	season_home_hex text,
	home_hex_end text,
	total_distance_km double precision NOT NULL DEFAULT 0,
	total_runs integer NOT NULL DEFAULT 0,
	avg_pace_min_per_km double precision,
	avg_cv double precision
);
CREATE TABLE public.run_history (
	id uuid PRIMARY KEY,
	user_id uuid NOT NULL,
	run_date date NOT NULL,
	start_time timestamptz NOT NULL,
	end_time timestamptz NOT NULL,
	distance_km double precision NOT NULL,
	duration_seconds integer NOT NULL,
	avg_pace_min_per_km double precision,
	flip_count integer NOT NULL,
	flip_points integer NOT NULL,
	team_at_run text NOT NULL,
	cv double precision
);
CREATE TABLE public.hexes (
	id text PRIMARY KEY,
	last_runner_team text
);`

func TestPostgresAppliesDayScripts(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("runstrict"),
		postgrescontainer.WithUsername("runstrict"),
		postgrescontainer.WithPassword("runstrict"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pub, err := NewPostgres(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pub.Close)
	require.NoError(t, pub.Apply(ctx, appSchema))

	sim, err := engine.NewSimulator(engine.DefaultConfig(), world.HexGrid{})
	require.NoError(t, err)

	var st *engine.State
	runs := 0
	for day := 1; day <= 2; day++ {
		next, report, err := sim.Advance(st, day)
		require.NoError(t, err)
		require.NoError(t, pub.Apply(ctx, emit.DayScript(next, report, sim.Calendar().Length)))
		runs += len(report.Runs)
		st = next
	}

	require.Equal(t, len(st.Roster), count(t, pub.pool, "SELECT count(*) FROM public.users"))
	require.Equal(t, runs, count(t, pub.pool, "SELECT count(*) FROM public.run_history"))
	require.Equal(t, st.Territory.Len(), count(t, pub.pool, "SELECT count(*) FROM public.hexes"))

	var points int
	require.NoError(t, pub.pool.QueryRow(ctx, "SELECT coalesce(sum(season_points), 0) FROM public.users").Scan(&points))
	want := 0
	for _, p := range st.CumulativePoints {
		want += p
	}
	require.Equal(t, want, points)

	// A failing script leaves nothing behind.
	err = pub.Apply(ctx, "DELETE FROM public.hexes; SELECT * FROM missing_table;")
	require.Error(t, err)
	require.Equal(t, st.Territory.Len(), count(t, pub.pool, "SELECT count(*) FROM public.hexes"))

	require.NoError(t, pub.Apply(ctx, emit.ResetScript()))
	require.Zero(t, count(t, pub.pool, "SELECT count(*) FROM public.users"))
	require.Zero(t, count(t, pub.pool, "SELECT count(*) FROM public.run_history"))
}

func count(t *testing.T, pool *pgxpool.Pool, query string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), query).Scan(&n))
	return n
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
