package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/query"
	"github.com/pable/go-lineup-metrics/internal/report"
)

var (
	lineupPlayers string
	lineupTeam    string
	lineupFocus   string
	lineupMinPoss int
	lineupLimit   int
)

var lineupCmd = &cobra.Command{
	Use:   "lineup [lineup-id]",
	Short: "Show lineup ratings",
	Long: `With a lineup id (or --players), show that lineup's ratings and composite
attributes in scope. Without one, list lineups by possessions played.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLineup,
}

func init() {
	addScopeFlag(lineupCmd)
	lineupCmd.Flags().StringVar(&lineupPlayers, "players", "", "five comma-separated player ids, in any order")
	lineupCmd.Flags().StringVar(&lineupTeam, "team", "", "only lineups of this team")
	lineupCmd.Flags().StringVar(&lineupFocus, "player", "", "only lineups containing this player")
	lineupCmd.Flags().IntVar(&lineupMinPoss, "min-poss", 0, "minimum possessions")
	lineupCmd.Flags().IntVar(&lineupLimit, "limit", 25, "maximum rows (0 for all)")
}

func runLineup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	scope, err := scopeFlag(cmd)
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	svc := newService(db)

	id := ""
	switch {
	case len(args) == 1:
		id = args[0]
	case lineupPlayers != "":
		lid, err := svc.LineupIdentity(strings.Split(lineupPlayers, ","))
		if err != nil {
			return err
		}
		id = string(lid)
	}

	if id != "" {
		agg, err := svc.LineupStats(ctx, id, scope)
		if err != nil {
			return err
		}
		report.PrintLineupDetail(os.Stdout, *agg)
		return nil
	}

	aggs, err := svc.ListLineups(ctx, scope, query.LineupFilter{
		TeamID:         lineupTeam,
		PlayerID:       lineupFocus,
		MinPossessions: lineupMinPoss,
		Limit:          lineupLimit,
	})
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		fmt.Fprintf(os.Stdout, "No lineups in scope %s.\n", scope)
		return nil
	}
	fmt.Fprintf(os.Stdout, "\nScope: %s\n\n", scope)
	report.PrintLineupTable(os.Stdout, aggs, lineupFocus)
	return nil
}
