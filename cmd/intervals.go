package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/report"
)

var intervalSize int

var intervalsCmd = &cobra.Command{
	Use:   "intervals <game-id>",
	Short: "Show team ratings over fixed possession windows",
	Long:  "Slice a game's possessions into consecutive windows of 10, 25, 50 or 100 and rate each team per window.",
	Args:  cobra.ExactArgs(1),
	RunE:  runIntervals,
}

func init() {
	intervalsCmd.Flags().IntVar(&intervalSize, "size", 25, "window size: 10, 25, 50 or 100")
}

func runIntervals(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	windows, err := newService(db).PossessionIntervals(cmd.Context(), args[0], intervalSize)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		fmt.Fprintln(os.Stdout, "No possessions stored for this game.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "\nGame: %s  |  Window: %d possessions\n\n", args[0], intervalSize)
	report.PrintWindowTable(os.Stdout, windows)
	return nil
}
