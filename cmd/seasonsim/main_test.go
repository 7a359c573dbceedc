package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t      *testing.T
	db     string
	sqlDir string
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	h := &harness{t: t, db: filepath.Join(dir, "season.db"), sqlDir: filepath.Join(dir, "sql")}
	t.Setenv("SEASONSIM_SQL_DIR", h.sqlDir)
	return h
}

func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--db", h.db))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := newHarness(t).run("version")
	require.NoError(t, err)
	assert.Equal(t, "seasonsim version "+version+"\n", out)
}

func TestDayPrintsScriptAndSavesState(t *testing.T) {
	h := newHarness(t)

	out, errOut, err := h.run("day", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "-- RunStrict Day 1 / 40 (2026-02-11)"))
	assert.Contains(t, errOut, "Day 1 generated. State saved.")
	assert.Contains(t, errOut, "Last simulated day: 1 / 40 (39 left)")

	status, _, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, status, "Last simulated day: 1 / 40")
	assert.Contains(t, status, "Team Sizes: Red 40 | Blue 40 | Purple 20")
	assert.Contains(t, status, "Top 10 Leaderboard:")
}

func TestDayOutOfOrder(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("day", "1")
	require.NoError(t, err)

	_, _, err = h.run("day", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `run "day 2" next`)

	_, _, err = h.run("day", "41")
	require.Error(t, err)

	_, _, err = h.run("day", "two")
	require.Error(t, err)
}

func TestSaveAndRunWriteScripts(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("day", "1", "--save")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(h.sqlDir, "day_01.sql"))

	_, errOut, err := h.run("run", "--through", "4")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Days 2-4 generated.")
	for _, name := range []string{"day_02.sql", "day_03.sql", "day_04.sql"} {
		raw, err := os.ReadFile(filepath.Join(h.sqlDir, name))
		require.NoError(t, err)
		assert.Contains(t, string(raw), "-- === HEX MAP")
	}

	_, _, err = h.run("run", "--through", "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to do")
}

func TestRunIsDeterministicAcrossInvocations(t *testing.T) {
	a := newHarness(t)
	_, _, err := a.run("run", "--through", "3")
	require.NoError(t, err)

	b := newHarness(t)
	for _, day := range []string{"1", "2", "3"} {
		_, _, err := b.run("day", day, "--save")
		require.NoError(t, err)
	}

	want, err := os.ReadFile(filepath.Join(a.sqlDir, "day_03.sql"))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(b.sqlDir, "day_03.sql"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestExportImportAndReset(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("run", "--through", "2")
	require.NoError(t, err)

	snapshot := filepath.Join(t.TempDir(), "state.json")
	_, _, err = h.run("export", snapshot)
	require.NoError(t, err)

	out, errOut, err := h.run("reset")
	require.NoError(t, err)
	assert.Contains(t, out, "DELETE FROM public.hexes;")
	assert.Contains(t, errOut, "State cleared.")

	status, _, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, status, "No simulation data.")

	_, _, err = h.run("import", snapshot)
	require.NoError(t, err)
	status, _, err = h.run("status")
	require.NoError(t, err)
	assert.Contains(t, status, "Last simulated day: 2 / 40")

	_, _, err = h.run("day", "3")
	require.NoError(t, err)
}

func TestSeedFlagStartsDifferentSeason(t *testing.T) {
	a := newHarness(t)
	outA, _, err := a.run("day", "1")
	require.NoError(t, err)

	b := newHarness(t)
	outB, _, err := b.run("day", "1", "--seed", "7")
	require.NoError(t, err)
	assert.NotEqual(t, outA, outB)
}
