package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chxlky/trello-quickcard/database"
	"github.com/chxlky/trello-quickcard/integrations"
	"github.com/chxlky/trello-quickcard/session"
	"github.com/spf13/cobra"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List the open boards of the connected account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.requireConnection(); err != nil {
			return err
		}
		boards, err := a.session.LoadBoards(cmd.Context())
		if err != nil {
			return errors.New(integrations.Message(err))
		}

		var selected string
		if _, err := database.GetJSON(a.store, selectedBoardKey, &selected); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tNAME")
		for _, b := range boards {
			marker := ""
			if b.ID == selected {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", marker, b.ID, b.Name)
		}
		return w.Flush()
	},
}

var boardCmd = &cobra.Command{
	Use:   "board <id>",
	Short: "Select a board and show its lists, labels and members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.requireConnection(); err != nil {
			return err
		}
		data, err := a.session.SelectBoard(cmd.Context(), args[0])
		if err != nil {
			return errors.New(integrations.Message(err))
		}
		if err := database.SetJSON(a.store, selectedBoardKey, data.BoardID); err != nil {
			return err
		}

		printBoard(cmd.OutOrStdout(), data)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(boardsCmd, boardCmd)
}

func printBoard(out io.Writer, data *session.BoardData) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "LISTS")
	for _, l := range data.Lists {
		fmt.Fprintf(w, "  %s\t%s\n", l.ID, l.Name)
	}
	fmt.Fprintln(w, "LABELS")
	for _, l := range data.Labels {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", l.ID, l.DisplayName(), l.DisplayColor())
	}
	fmt.Fprintln(w, "MEMBERS")
	for _, m := range data.Members {
		fmt.Fprintf(w, "  %s\t%s\t@%s\n", m.ID, m.FullName, m.Username)
	}
	_ = w.Flush()
}
