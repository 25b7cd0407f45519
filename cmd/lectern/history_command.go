package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))

	return historyCmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in the configuration")
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded yet.")
					return nil
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.Root,
						run.StartedAt.Local().Format(time.RFC3339),
						strconv.Itoa(run.Succeeded),
						strconv.Itoa(run.Partial),
						strconv.Itoa(run.Failed),
					})
				}
				headers := []string{"Run", "Root", "Started", "OK", "Partial", "Failed"}
				fmt.Fprintln(out, renderTable(headers, rows, 3, 4, 5))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the unit outcomes of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				units, err := store.UnitsForRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(units) == 0 {
					fmt.Fprintf(out, "No units recorded for run %s\n", args[0])
					return nil
				}

				rows := make([][]string, 0, len(units))
				for _, unit := range units {
					detail := unit.Error
					if detail == "" && unit.RenderEngine != "" {
						detail = "rendered with " + unit.RenderEngine
					}
					rows = append(rows, []string{
						unit.Dir,
						unit.Prefix,
						unit.Kind,
						unit.Outcome,
						unit.FailedStage,
						detail,
					})
				}
				headers := []string{"Directory", "Unit", "Kind", "Outcome", "Stage", "Detail"}
				fmt.Fprintln(out, renderTable(headers, rows))
				return nil
			})
		},
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			})
		},
	}
}
