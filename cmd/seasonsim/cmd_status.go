package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/runstrict-season/internal/emit"
	"github.com/talgya/runstrict-season/internal/engine"
	"github.com/talgya/runstrict-season/internal/persistence"
	"github.com/talgya/runstrict-season/internal/social"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current season state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.db.LoadState()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st, a.sim.Calendar())
			return nil
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Print the reset SQL and clear the saved season",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.connectPublishers(ctx); err != nil {
				return err
			}

			script := emit.ResetScript()
			fmt.Fprintln(cmd.OutOrStdout(), script)
			if a.pg != nil {
				if err := a.pg.Apply(ctx, script); err != nil {
					return err
				}
			}
			if err := a.db.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "-- State cleared.")
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write the saved season as a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.db.LoadState()
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create snapshot: %w", err)
			}
			if err := persistence.ExportJSON(f, st); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close snapshot: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported day %d to %s\n", st.LastDay, args[0])
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the saved season with a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open snapshot: %w", err)
			}
			defer f.Close()

			st, err := persistence.ImportJSON(f)
			if err != nil {
				return err
			}
			if err := a.db.SaveState(st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Imported day %d from %s\n", st.LastDay, args[0])
			return nil
		},
	}
}

// printStatus writes the season overview: team sizes, points, hex control
// and the leaderboard.
func printStatus(w io.Writer, st *engine.State, cal engine.Calendar) {
	if st.LastDay == 0 {
		fmt.Fprintln(w, `No simulation data. Run "seasonsim day 1" to start.`)
		return
	}

	sum := engine.Summarize(st, engine.DefaultLeaderboardSize)
	fmt.Fprintf(w, "Last simulated day: %d / %d (%d left)\n", sum.LastDay, cal.Length, cal.DaysLeft(sum.LastDay))
	fmt.Fprintf(w, "Users: %d  Seed: %d\n", sum.Users, sum.Seed)

	fmt.Fprintf(w, "\nTeam Sizes: %s\n", teamLine(sum, func(ts engine.TeamSummary) string { return fmt.Sprint(ts.Members) }))
	fmt.Fprintf(w, "Points:     %s\n", teamLine(sum, func(ts engine.TeamSummary) string { return humanize.Comma(int64(ts.Points)) }))
	fmt.Fprintf(w, "Hexes:      %s\n", teamLine(sum, func(ts engine.TeamSummary) string { return fmt.Sprint(ts.Cells) }))

	fmt.Fprintf(w, "\nTop %d Leaderboard:\n", engine.DefaultLeaderboardSize)
	for _, e := range sum.Leaderboard {
		fmt.Fprintf(w, "  #%2d  %-20s  %-6s  %s pts\n", e.Rank, e.Name, e.Team, humanize.Comma(int64(e.Points)))
	}
}

func teamLine(sum engine.Summary, value func(engine.TeamSummary) string) string {
	line := ""
	for i, t := range social.Teams {
		if i > 0 {
			line += " | "
		}
		line += t.Title() + " " + value(sum.Team(t))
	}
	return line
}
