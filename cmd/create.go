package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chxlky/trello-quickcard/database"
	"github.com/chxlky/trello-quickcard/integrations"
	"github.com/chxlky/trello-quickcard/internal/models"
	"github.com/chxlky/trello-quickcard/session"
	"github.com/spf13/cobra"
)

const dueLayout = "2006-01-02"

var createFlags struct {
	board       string
	list        string
	title       string
	description string
	labels      []string
	assignee    string
	due         string
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a card on the selected board",
	Long: `Create a card on a list of the selected board (or --board). Labels are
attached one by one after the card exists; a label that fails is reported
but does not fail the card.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		due, err := parseDue(createFlags.due)
		if err != nil {
			return err
		}
		req := models.CardRequest{
			Title:       createFlags.title,
			Description: createFlags.description,
			ListID:      createFlags.list,
			LabelIDs:    createFlags.labels,
			AssigneeID:  createFlags.assignee,
			DueDate:     due,
		}
		if err := req.Validate(); err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.requireConnection(); err != nil {
			return err
		}

		boardID := createFlags.board
		if boardID == "" {
			if _, err := database.GetJSON(a.store, selectedBoardKey, &boardID); err != nil {
				return err
			}
		}
		if boardID == "" {
			return fmt.Errorf("%w: pass --board or run `%s board <id>`", session.ErrNoBoardSelected, AppName)
		}
		if _, err := a.session.SelectBoard(cmd.Context(), boardID); err != nil {
			return errors.New(integrations.Message(err))
		}

		card, err := a.session.CreateCard(cmd.Context(), req)
		if err != nil {
			if errors.Is(err, session.ErrUnknownList) {
				return err
			}
			return errors.New(integrations.Message(err))
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created card %s\n", card.ID)
		fmt.Fprintf(out, "  %s\n", card.URL)
		if len(card.FailedLabelIDs) > 0 {
			fmt.Fprintf(out, "  ! could not attach labels: %s\n", strings.Join(card.FailedLabelIDs, ", "))
		}
		return nil
	},
}

func init() {
	f := createCmd.Flags()
	f.StringVarP(&createFlags.board, "board", "b", "", "board ID (defaults to the selected board)")
	f.StringVarP(&createFlags.list, "list", "l", "", "list ID")
	f.StringVarP(&createFlags.title, "title", "t", "", "card title")
	f.StringVarP(&createFlags.description, "description", "d", "", "card description")
	f.StringSliceVar(&createFlags.labels, "labels", nil, "comma separated label IDs")
	f.StringVar(&createFlags.assignee, "assignee", "", "member ID to assign")
	f.StringVar(&createFlags.due, "due", "", "due date as YYYY-MM-DD")
	_ = createCmd.MarkFlagRequired("list")
	_ = createCmd.MarkFlagRequired("title")
	_ = createCmd.MarkFlagRequired("description")
	rootCmd.AddCommand(createCmd)
}

// parseDue reads a calendar date as midnight UTC. Empty means no due date.
func parseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dueLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q, expected YYYY-MM-DD", s)
	}
	return &t, nil
}
