package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/model"
)

var (
	rebuildScopes []string
	rebuildVerify bool
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute stored aggregates",
	Long: `Recompute lineup and on/off aggregates from the stored facts. Without
--scope, every game, every season and the all-time scope are rebuilt. Only
complete games count; rebuilding a failed game's scope clears it.

With --verify, each complete game's stored aggregates are checked against
totals recomputed from its possessions.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func init() {
	rebuildCmd.Flags().StringSliceVar(&rebuildScopes, "scope", nil, "scopes to rebuild (repeatable)")
	rebuildCmd.Flags().BoolVar(&rebuildVerify, "verify", false, "check game aggregates against their possessions afterwards")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var scopes []model.Scope
	for _, s := range rebuildScopes {
		scope, err := model.ParseScope(s)
		if err != nil {
			return err
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		games, err := db.ListGames(ctx)
		if err != nil {
			return fmt.Errorf("list games: %w", err)
		}
		seasons := map[string]bool{}
		for _, g := range games {
			scopes = append(scopes, model.GameScope(g.GameID))
			if g.Season != "" {
				seasons[g.Season] = true
			}
		}
		names := make([]string, 0, len(seasons))
		for s := range seasons {
			names = append(names, s)
		}
		sort.Strings(names)
		for _, s := range names {
			scopes = append(scopes, model.SeasonScope(s))
		}
		scopes = append(scopes, model.AllScope())
	}

	svc := newService(db)
	start := time.Now()
	if err := svc.Rebuild(ctx, scopes...); err != nil {
		return err
	}
	log.Info("aggregates rebuilt", "scopes", len(scopes), "elapsed", time.Since(start))
	fmt.Fprintf(os.Stdout, "Rebuilt %d scope(s) in %s.\n", len(scopes), time.Since(start).Round(time.Millisecond))
	if !rebuildVerify {
		return nil
	}

	games, err := db.ListGames(ctx)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	var bad, checked int
	for _, g := range games {
		if g.Status != model.StatusComplete {
			continue
		}
		checked++
		problems, err := svc.VerifyGame(ctx, g.GameID)
		if err != nil {
			return err
		}
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "game %s: %s\n", g.GameID, p)
		}
		if len(problems) > 0 {
			bad++
		}
	}
	fmt.Fprintf(os.Stdout, "Verified %d game(s), %d inconsistent.\n", checked, bad)
	if bad > 0 {
		return fmt.Errorf("%d game(s) have inconsistent aggregates", bad)
	}
	return nil
}
