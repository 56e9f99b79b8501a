package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/ingest"
	"github.com/pable/go-lineup-metrics/internal/report"
)

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "Manage player attributes used for lineup composites",
}

var playersImportCmd = &cobra.Command{
	Use:   "import <players.jsonl>",
	Short: "Import player attributes (one JSON object per line)",
	Long: `Import player attributes. Each line holds player_id and optionally name,
age, height_in, weight_lb and experience. Existing players are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlayersImport,
}

var playersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored player attributes",
	Args:  cobra.NoArgs,
	RunE:  runPlayersList,
}

func init() {
	playersCmd.AddCommand(playersImportCmd)
	playersCmd.AddCommand(playersListCmd)
}

func runPlayersImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open players file: %w", err)
	}
	defer f.Close()

	players, err := ingest.ReadPlayers(f)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.UpsertPlayers(cmd.Context(), players); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Imported %d player(s).\n", len(players))
	return nil
}

func runPlayersList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	players, err := db.ListPlayers(cmd.Context())
	if err != nil {
		return err
	}
	if len(players) == 0 {
		fmt.Fprintln(os.Stdout, "No player attributes stored. Run 'lineups players import <file>'.")
		return nil
	}
	report.PrintPlayers(os.Stdout, players)
	return nil
}
