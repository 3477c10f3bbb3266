package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/chxlky/trello-quickcard/database"
	"github.com/chxlky/trello-quickcard/history"
	"github.com/chxlky/trello-quickcard/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyFlags struct {
	status string
	sort   string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the card creation history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded card creation attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := models.HistoryStatus(historyFlags.status)
		if status != "" && status != models.StatusSuccess && status != models.StatusFailed {
			return fmt.Errorf("invalid status %q, expected success or failed", historyFlags.status)
		}
		order := history.SortOrder(historyFlags.sort)
		if order != history.Newest && order != history.Oldest {
			return fmt.Errorf("invalid sort order %q, expected newest or oldest", historyFlags.sort)
		}

		return withLedger(func(l *history.Ledger) error {
			entries, err := l.Entries()
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), history.Sort(history.Filter(entries, status), order))
			return nil
		})
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the card creation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *history.Ledger) error {
			entries, err := l.Entries()
			if err != nil {
				return err
			}
			s := history.Summarize(entries)
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d  Successful: %d  Failed: %d\n", s.Total, s.Successful, s.Failed)
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the card creation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *history.Ledger) error {
			if err := l.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ History cleared")
			return nil
		})
	},
}

func init() {
	historyListCmd.Flags().StringVar(&historyFlags.status, "status", "", "only show success or failed entries")
	historyListCmd.Flags().StringVar(&historyFlags.sort, "sort", string(history.Newest), "newest or oldest first")
	historyCmd.AddCommand(historyListCmd, historyStatsCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// withLedger opens only the store; history needs no Trello transport.
func withLedger(fn func(*history.Ledger) error) error {
	store, err := database.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			zap.L().Error("Error closing store", zap.Error(err))
		}
	}()
	return fn(history.NewLedger(store, history.WithLimit(cfg.History.Limit)))
}

func printHistory(out io.Writer, entries []models.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No cards recorded yet")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tSTATUS\tTITLE\tDETAIL")
	for _, e := range entries {
		detail := e.CardURL
		if e.Status == models.StatusFailed {
			detail = e.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Status,
			models.Truncate(e.Title, 40),
			detail,
		)
	}
	_ = w.Flush()
}
