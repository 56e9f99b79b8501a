package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/report"
)

var (
	onoffMinPoss int
	onoffLimit   int
)

var onoffCmd = &cobra.Command{
	Use:   "onoff [player-id]",
	Short: "Show player on/off differentials",
	Long: `With a player id, show the team's ratings with that player on and off
the court in scope. Without one, list every player by on-court possessions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOnOff,
}

func init() {
	addScopeFlag(onoffCmd)
	onoffCmd.Flags().IntVar(&onoffMinPoss, "min-poss", 0, "minimum on-court possessions")
	onoffCmd.Flags().IntVar(&onoffLimit, "limit", 25, "maximum rows (0 for all)")
}

func runOnOff(cmd *cobra.Command, args []string) error {
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

	if len(args) == 1 {
		agg, err := svc.OnOffDifferential(ctx, args[0], scope)
		if err != nil {
			return err
		}
		report.PrintOnOffDetail(os.Stdout, *agg)
		return nil
	}

	aggs, err := svc.ListOnOff(ctx, scope, onoffMinPoss, onoffLimit)
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		fmt.Fprintf(os.Stdout, "No players in scope %s.\n", scope)
		return nil
	}
	fmt.Fprintf(os.Stdout, "\nScope: %s  |  confidence thresholds: %d / %d possessions\n\n",
		scope, cfg.MinSampleLow, cfg.MinSampleHigh)
	report.PrintOnOffTable(os.Stdout, aggs)
	return nil
}
