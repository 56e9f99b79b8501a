package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/ingest"
	"github.com/pable/go-lineup-metrics/internal/metrics"
	"github.com/pable/go-lineup-metrics/internal/model"
	"github.com/pable/go-lineup-metrics/internal/report"
)

var (
	ingestForce        bool
	ingestWorkers      int
	ingestSkipComplete bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <events.jsonl|-> [...]",
	Short: "Ingest play-by-play event streams",
	Long: `Decode newline-delimited JSON events, derive possessions, stints and
lineup snapshots per game, and store them. Each game is committed as a unit;
a failed game leaves no partial facts and is reported by 'status --pending'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "take over games left in_progress by another run")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "concurrent games (default from config)")
	ingestCmd.Flags().BoolVar(&ingestSkipComplete, "skip-complete", false, "skip games already stored as complete")
}

func readGameFile(path string) ([]ingest.GameInput, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	games, err := ingest.ReadGames(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return games, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var games []ingest.GameInput
	for _, path := range args {
		g, err := readGameFile(path)
		if err != nil {
			return err
		}
		games = append(games, g...)
	}
	if len(games) == 0 {
		fmt.Fprintln(os.Stdout, "No events found.")
		return nil
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if ingestSkipComplete {
		kept := games[:0]
		for _, g := range games {
			st, err := db.GetGame(ctx, g.GameID)
			if err != nil {
				return err
			}
			if st != nil && st.Status == model.StatusComplete {
				log.Debug("skipping complete game", "game", g.GameID)
				continue
			}
			kept = append(kept, g)
		}
		games = kept
		if len(games) == 0 {
			fmt.Fprintln(os.Stdout, "All games already complete.")
			return nil
		}
	}

	workers := ingestWorkers
	if workers <= 0 {
		workers = cfg.Workers
	}
	p := ingest.New(db, ingest.WithLogger(log), ingest.WithMetrics(metrics.New()), ingest.WithForce(ingestForce))

	fmt.Fprintf(os.Stdout, "Ingesting %d game(s) with %d worker(s)...\n", len(games), workers)
	var results []ingest.Result
	if len(games) == 1 {
		results = []ingest.Result{p.Ingest(ctx, games[0])}
	} else {
		results, err = p.Batch(ctx, games, workers)
		if err != nil {
			return err
		}
	}

	var failed int
	stored := make([]model.Game, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			failed++
			hint := ""
			if errkind.IsRecoverable(r.Err) {
				hint = " (retry later or pass --force)"
			}
			fmt.Fprintf(os.Stderr, "game %s: %v%s\n", r.GameID, r.Err, hint)
		}
		g, err := db.GetGame(ctx, r.GameID)
		if err != nil {
			return err
		}
		if g != nil {
			stored = append(stored, *g)
		}
	}
	fmt.Fprintln(os.Stdout)
	report.PrintGames(os.Stdout, stored)
	if failed > 0 {
		return fmt.Errorf("%d of %d games failed", failed, len(results))
	}
	return nil
}
