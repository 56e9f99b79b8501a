package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-lineup-metrics/internal/report"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the lineups database",
	Long: `Run an arbitrary SQL query against the lineups database and print results as a table.

Schema overview:
  games(game_id, season, home_team_id, away_team_id, status, run_id, attempts,
    events, possessions, flags, error, started_at, finished_at)
  lineups(lineup_id, team_id, p1, p2, p3, p4, p5)
  lineup_players(lineup_id, player_id, slot)
  players(player_id, name, age, height_in, weight_lb, experience)
  player_games(game_id, player_id, team_id, seconds_played, stints)
  lineup_snapshots(game_id, seq, team_id, lineup_id, point_diff, has_possession, possession)
  player_stints(game_id, seq, player_id, team_id, elapsed, on_court, stint_id,
    stint_seq, seconds_played, rest_seconds)
  possessions(game_id, number, period, start_seq, end_seq, start_elapsed, end_elapsed,
    outcome, points, shot_category, offense_team, defense_team, offense_lineup, defense_lineup)
  event_flags(game_id, seq, reason, raw_kind)
  lineup_aggregates(scope, lineup_id, team_id, games, off_possessions, def_possessions,
    points_for, points_against)
  player_onoff_aggregates(scope, player_id, games, on_off_possessions, on_def_possessions,
    on_points_for, on_points_against, off_off_possessions, off_def_possessions,
    off_points_for, off_points_against)

Scopes are stored as 'all', 'season:<id>' or 'game:<id>'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(cmd.Context(), query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	report.PrintRaw(os.Stdout, cols, rows)
	return nil
}
