package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored games",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	games, err := db.ListGames(cmd.Context())
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	if len(games) == 0 {
		fmt.Fprintln(os.Stdout, "No games stored yet. Run 'lineups ingest <events.jsonl>' to add some.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-16s  %-8s  %-8s  %-8s  %-11s  %6s  %5s\n",
		"GAME", "SEASON", "HOME", "AWAY", "STATUS", "EVENTS", "POSS")
	fmt.Fprintf(os.Stdout, "%-16s  %-8s  %-8s  %-8s  %-11s  %6s  %5s\n",
		"────────────────", "────────", "────────", "────────", "───────────", "──────", "─────")
	for _, g := range games {
		fmt.Fprintf(os.Stdout, "%-16s  %-8s  %-8s  %-8s  %-11s  %6d  %5d\n",
			g.GameID, g.Season, g.HomeTeamID, g.AwayTeamID, g.Status, g.Events, g.Possessions)
	}
	return nil
}
