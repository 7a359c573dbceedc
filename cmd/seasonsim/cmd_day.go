package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/talgya/runstrict-season/internal/emit"
	"github.com/talgya/runstrict-season/internal/engine"
)

func newDayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "day N",
		Short: "Simulate day N and print its SQL",
		Long: `Simulate one season day on top of the saved state and print the SQL for it.
Day 1 starts a new season; any other day must follow the last completed day.
The new state is always saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("day must be a number, got %q", args[0])
			}
			save, _ := cmd.Flags().GetBool("save")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.connectPublishers(ctx); err != nil {
				return err
			}

			st, err := a.db.LoadState()
			if err != nil {
				return err
			}
			next, script, err := a.playDay(ctx, st, day)
			if err != nil {
				return err
			}

			if save {
				if _, err := a.saveScript(day, script); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), script)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "\nDay %d generated. State saved.\n", day)
			printStatus(cmd.ErrOrStderr(), next, a.sim.Calendar())
			return nil
		},
	}
	cmd.Flags().Bool("save", false, "Write SQL to <sql_dir>/day_NN.sql instead of stdout")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate consecutive days, saving each day's SQL",
		Long: `Continue the season from the last completed day through --through,
writing one SQL file per day. --restart begins again from day 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			through, _ := cmd.Flags().GetInt("through")
			restart, _ := cmd.Flags().GetBool("restart")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if through == 0 {
				through = a.sim.Calendar().Length
			}

			ctx := cmd.Context()
			if err := a.connectPublishers(ctx); err != nil {
				return err
			}

			st, err := a.db.LoadState()
			if err != nil {
				return err
			}
			first := st.LastDay + 1
			if restart {
				first = 1
			}
			if first > through {
				return fmt.Errorf("nothing to do: last completed day is %d, --through is %d", st.LastDay, through)
			}

			for day := first; day <= through; day++ {
				var script string
				st, script, err = a.playDay(ctx, st, day)
				if err != nil {
					return err
				}
				if _, err := a.saveScript(day, script); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "\nDays %d-%d generated. State saved.\n", first, through)
			printStatus(cmd.ErrOrStderr(), st, a.sim.Calendar())
			return nil
		},
	}
	cmd.Flags().Int("through", 0, "Last day to simulate (default: end of season)")
	cmd.Flags().Bool("restart", false, "Start a new season from day 1")
	return cmd
}

// playDay advances st by one day, persists the result and hands it to the
// enabled publishers. The returned script is the day's SQL.
func (a *app) playDay(ctx context.Context, st *engine.State, day int) (*engine.State, string, error) {
	next, report, err := a.sim.Advance(st, day)
	if errors.Is(err, engine.ErrDayOutOfOrder) {
		return nil, "", fmt.Errorf("%w (run \"day %d\" next)", err, st.LastDay+1)
	}
	if err != nil {
		return nil, "", err
	}

	if err := a.db.SaveDay(next, report); err != nil {
		return nil, "", err
	}
	script := emit.DayScript(next, report, a.sim.Calendar().Length)

	if a.pg != nil {
		if err := a.pg.Apply(ctx, script); err != nil {
			return nil, "", fmt.Errorf("day %d: %w", day, err)
		}
	}
	if a.kafka != nil {
		if err := a.kafka.PublishDay(ctx, report); err != nil {
			return nil, "", err
		}
	}

	a.metrics.Observe(next, report)
	if path := a.cfg.Storage.MetricsFile; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			slog.Warn("metrics not written", "error", err)
		}
	}
	return next, script, nil
}

// saveScript writes a day's SQL to the configured directory.
func (a *app) saveScript(day int, script string) (string, error) {
	if err := os.MkdirAll(a.cfg.Storage.SQLDir, 0755); err != nil {
		return "", fmt.Errorf("create sql dir: %w", err)
	}
	path := filepath.Join(a.cfg.Storage.SQLDir, fmt.Sprintf("day_%02d.sql", day))
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	slog.Info("saved script", "day", day, "path", path)
	return path, nil
}
