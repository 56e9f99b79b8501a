package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/report"
)

var stintsEvents bool

var stintsCmd = &cobra.Command{
	Use:   "stints <game-id> <player-id>",
	Short: "Show a player's stints in a game",
	Args:  cobra.ExactArgs(2),
	RunE:  runStints,
}

func init() {
	stintsCmd.Flags().BoolVar(&stintsEvents, "events", false, "also print the per-event records")
}

func runStints(cmd *cobra.Command, args []string) error {
	gameID, playerID := args[0], args[1]
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	recs, stints, err := newService(db).Stints(cmd.Context(), playerID, gameID)
	if err != nil {
		return err
	}

	var played float64
	if n := len(recs); n > 0 {
		played = recs[n-1].SecondsPlayed
	}
	fmt.Fprintf(os.Stdout, "\nGame: %s  |  Player: %s  |  Stints: %d  |  Played: %.0fs\n\n",
		gameID, playerID, len(stints), played)
	report.PrintStintTable(os.Stdout, stints)
	if stintsEvents {
		fmt.Fprintln(os.Stdout)
		report.PrintStintRecords(os.Stdout, recs)
	}
	return nil
}
