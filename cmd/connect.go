package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/chxlky/trello-quickcard/integrations"
	"github.com/chxlky/trello-quickcard/internal/models"
	"github.com/spf13/cobra"
)

var (
	connectKey   string
	connectToken string
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Validate and save Trello credentials",
	Long: `Validate an API key and token against Trello and store them for later
commands. The key and token may also come from TRELLO_API_KEY and TRELLO_TOKEN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := models.Credentials{APIKey: connectKey, Token: connectToken}
		if creds.APIKey == "" {
			creds.APIKey = os.Getenv("TRELLO_API_KEY")
		}
		if creds.Token == "" {
			creds.Token = os.Getenv("TRELLO_TOKEN")
		}
		if !creds.Complete() {
			return errors.New("both an API key and a token are required")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.session.Connect(cmd.Context(), creds)
		if err != nil {
			return errors.New(integrations.Message(err))
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Connected as %s (@%s)\n", user.FullName, user.Username)
		if boards := a.session.Boards(); len(boards) > 0 {
			fmt.Fprintf(out, "  %d boards available, run `%s boards` to list them\n", len(boards), AppName)
		}
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the saved Trello credentials",
	Long:  `Remove the saved credentials and selected board. Card history is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.session.Disconnect(); err != nil {
			return err
		}
		if err := a.store.Remove(selectedBoardKey); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Disconnected")
		return nil
	},
}

func init() {
	connectCmd.Flags().StringVar(&connectKey, "key", "", "Trello API key")
	connectCmd.Flags().StringVar(&connectToken, "token", "", "Trello API token")
	rootCmd.AddCommand(connectCmd, disconnectCmd)
}
