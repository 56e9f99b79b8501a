package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/model"
	"github.com/pable/go-lineup-metrics/internal/report"
)

var statusPending bool

var statusCmd = &cobra.Command{
	Use:   "status [game-id]",
	Short: "Show ingestion status of games",
	Long: `Without arguments, list the status of every game. With --pending, list
only games that a resumed run still has to ingest. With a game id, show that
game and its flagged events.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusPending, "pending", false, "only games that are not complete")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	svc := newService(db)

	if len(args) == 1 {
		g, err := svc.GameStatus(ctx, args[0])
		if err != nil {
			return err
		}
		report.PrintGames(os.Stdout, []model.Game{*g})
		flags, err := db.Flags(ctx, g.GameID)
		if err != nil {
			return fmt.Errorf("get flags: %w", err)
		}
		if len(flags) > 0 {
			fmt.Fprintf(os.Stdout, "\nFlagged events:\n")
			for _, f := range flags {
				fmt.Fprintf(os.Stdout, "  event %-6d %-20s %s\n", f.Seq, f.Reason, f.RawKind)
			}
		}
		return nil
	}

	var games []model.Game
	if statusPending {
		games, err = svc.PendingGames(ctx)
	} else {
		games, err = svc.ListGames(ctx)
	}
	if err != nil {
		return err
	}
	if len(games) == 0 {
		if statusPending {
			fmt.Fprintln(os.Stdout, "Nothing pending.")
		} else {
			fmt.Fprintln(os.Stdout, "No games stored yet. Run 'lineups ingest <events.jsonl>' to add some.")
		}
		return nil
	}
	report.PrintGames(os.Stdout, games)
	return nil
}
