package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pable/go-lineup-metrics/internal/model"
)

// RebuildAggregates recomputes the lineup and on/off views of one scope from
// the fact tables. Each view is one grouped pass over the scope's
// possessions; the old rows are replaced in the same transaction, so running
// it twice leaves the same result.
func (db *DB) RebuildAggregates(ctx context.Context, scope model.Scope) error {
	games, gameArgs := scopeGames(scope)
	key := scope.String()

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lineup_aggregates WHERE scope = ?`, key); err != nil {
		return fmt.Errorf("clear lineup_aggregates %s: %w", key, err)
	}
	_, err = tx.ExecContext(ctx, `
		WITH scoped AS (
			SELECT game_id, offense_team, defense_team, offense_lineup, defense_lineup, points
			FROM possessions
			WHERE game_id IN (`+games+`)
		),
		sides AS (
			SELECT offense_lineup AS lineup_id, offense_team AS team_id, game_id,
			       1 AS off_poss, 0 AS def_poss, points AS pf, 0 AS pa
			FROM scoped
			UNION ALL
			SELECT defense_lineup, defense_team, game_id, 0, 1, 0, points
			FROM scoped
		)
		INSERT INTO lineup_aggregates(
			scope, lineup_id, team_id, games,
			off_possessions, def_possessions, points_for, points_against
		)
		SELECT ?, lineup_id, MIN(team_id), COUNT(DISTINCT game_id),
		       SUM(off_poss), SUM(def_poss), SUM(pf), SUM(pa)
		FROM sides
		GROUP BY lineup_id`,
		append(gameArgs, key)...,
	)
	if err != nil {
		return fmt.Errorf("rebuild lineup_aggregates %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM player_onoff_aggregates WHERE scope = ?`, key); err != nil {
		return fmt.Errorf("clear player_onoff_aggregates %s: %w", key, err)
	}
	_, err = tx.ExecContext(ctx, `
		WITH sides AS (
			SELECT r.player_id, r.game_id, p.points,
			       CASE WHEN p.offense_team = r.team_id THEN 1 ELSE 0 END AS is_off,
			       CASE WHEN p.offense_team = r.team_id THEN p.offense_lineup ELSE p.defense_lineup END AS lineup_id
			FROM player_games r
			JOIN possessions p ON p.game_id = r.game_id
			WHERE r.game_id IN (`+games+`)
		),
		flagged AS (
			SELECT s.player_id, s.game_id, s.points, s.is_off,
			       CASE WHEN lp.player_id IS NULL THEN 0 ELSE 1 END AS on_court
			FROM sides s
			LEFT JOIN lineup_players lp ON lp.lineup_id = s.lineup_id AND lp.player_id = s.player_id
		)
		INSERT INTO player_onoff_aggregates(
			scope, player_id, games,
			on_off_possessions, on_def_possessions, on_points_for, on_points_against,
			off_off_possessions, off_def_possessions, off_points_for, off_points_against
		)
		SELECT ?, player_id, COUNT(DISTINCT game_id),
		       SUM(on_court * is_off),
		       SUM(on_court * (1 - is_off)),
		       SUM(on_court * is_off * points),
		       SUM(on_court * (1 - is_off) * points),
		       SUM((1 - on_court) * is_off),
		       SUM((1 - on_court) * (1 - is_off)),
		       SUM((1 - on_court) * is_off * points),
		       SUM((1 - on_court) * (1 - is_off) * points)
		FROM flagged
		GROUP BY player_id`,
		append(gameArgs, key)...,
	)
	if err != nil {
		return fmt.Errorf("rebuild player_onoff_aggregates %s: %w", key, err)
	}
	return tx.Commit()
}

// NaiveLineupAggregates computes lineup totals with one correlated subquery
// per metric per lineup. It is only kept as a baseline for the grouped
// rebuild in benchmarks and tests.
func (db *DB) NaiveLineupAggregates(ctx context.Context, scope model.Scope) ([]model.LineupAggregate, error) {
	games, gameArgs := scopeGames(scope)
	sub := func(expr, cond string) string {
		return `(SELECT ` + expr + ` FROM possessions p WHERE ` + cond + ` AND p.game_id IN (` + games + `))`
	}
	query := `
		SELECT * FROM (
			SELECT l.lineup_id, l.team_id, l.p1, l.p2, l.p3, l.p4, l.p5,
			       ` + sub("COUNT(DISTINCT p.game_id)", "(p.offense_lineup = l.lineup_id OR p.defense_lineup = l.lineup_id)") + ` AS games,
			       ` + sub("COUNT(*)", "p.offense_lineup = l.lineup_id") + ` AS off_possessions,
			       ` + sub("COUNT(*)", "p.defense_lineup = l.lineup_id") + ` AS def_possessions,
			       ` + sub("COALESCE(SUM(p.points), 0)", "p.offense_lineup = l.lineup_id") + ` AS points_for,
			       ` + sub("COALESCE(SUM(p.points), 0)", "p.defense_lineup = l.lineup_id") + ` AS points_against
			FROM lineups l
		) WHERE off_possessions + def_possessions > 0
		ORDER BY lineup_id`
	var args []any
	for i := 0; i < 5; i++ {
		args = append(args, gameArgs...)
	}

	var rows []lineupAggregateRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("naive lineup aggregates: %w", err)
	}
	out := make([]model.LineupAggregate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel(scope))
	}
	return out, nil
}

type lineupAggregateRow struct {
	lineupRow
	Games          int `db:"games"`
	OffPossessions int `db:"off_possessions"`
	DefPossessions int `db:"def_possessions"`
	PointsFor      int `db:"points_for"`
	PointsAgainst  int `db:"points_against"`
}

func (r lineupAggregateRow) toModel(scope model.Scope) model.LineupAggregate {
	l := r.lineupRow.toModel()
	return model.LineupAggregate{
		Scope:    scope,
		LineupID: l.ID,
		TeamID:   l.TeamID,
		Players:  l.Players,
		Games:    r.Games,
		RatingSplit: model.RatingSplit{
			OffPossessions: r.OffPossessions,
			DefPossessions: r.DefPossessions,
			PointsFor:      r.PointsFor,
			PointsAgainst:  r.PointsAgainst,
		},
	}
}

const lineupAggregateSelect = `
	SELECT l.lineup_id, l.team_id, l.p1, l.p2, l.p3, l.p4, l.p5,
	       a.games, a.off_possessions, a.def_possessions, a.points_for, a.points_against
	FROM lineup_aggregates a
	JOIN lineups l ON l.lineup_id = a.lineup_id`

// LineupAggregate returns the stored aggregate of one lineup in scope, or
// nil when the lineup has no possessions there.
func (db *DB) LineupAggregate(ctx context.Context, scope model.Scope, id model.LineupID) (*model.LineupAggregate, error) {
	var row lineupAggregateRow
	err := db.conn.GetContext(ctx, &row, lineupAggregateSelect+`
		WHERE a.scope = ? AND a.lineup_id = ?`, scope.String(), string(id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lineup aggregate %s/%s: %w", scope, id, err)
	}
	agg := row.toModel(scope)
	return &agg, nil
}

// LineupFilter narrows LineupAggregates.
type LineupFilter struct {
	TeamID         string
	PlayerID       string
	MinPossessions int
	Limit          int
}

// LineupAggregates lists stored lineup aggregates in scope, most possessions
// first.
func (db *DB) LineupAggregates(ctx context.Context, scope model.Scope, f LineupFilter) ([]model.LineupAggregate, error) {
	where := []string{"a.scope = ?", "a.off_possessions + a.def_possessions >= ?"}
	args := []any{scope.String(), f.MinPossessions}
	if f.TeamID != "" {
		where = append(where, "a.team_id = ?")
		args = append(args, f.TeamID)
	}
	if f.PlayerID != "" {
		where = append(where, "a.lineup_id IN (SELECT lineup_id FROM lineup_players WHERE player_id = ?)")
		args = append(args, f.PlayerID)
	}
	query := lineupAggregateSelect + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY a.off_possessions + a.def_possessions DESC, a.lineup_id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var rows []lineupAggregateRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list lineup aggregates %s: %w", scope, err)
	}
	out := make([]model.LineupAggregate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel(scope))
	}
	return out, nil
}

type onOffRow struct {
	PlayerID          string `db:"player_id"`
	Games             int    `db:"games"`
	OnOffPossessions  int    `db:"on_off_possessions"`
	OnDefPossessions  int    `db:"on_def_possessions"`
	OnPointsFor       int    `db:"on_points_for"`
	OnPointsAgainst   int    `db:"on_points_against"`
	OffOffPossessions int    `db:"off_off_possessions"`
	OffDefPossessions int    `db:"off_def_possessions"`
	OffPointsFor      int    `db:"off_points_for"`
	OffPointsAgainst  int    `db:"off_points_against"`
}

func (r onOffRow) toModel(scope model.Scope) model.PlayerOnOffAggregate {
	agg := model.PlayerOnOffAggregate{
		PlayerID: r.PlayerID,
		Scope:    scope,
		Games:    r.Games,
		On: model.RatingSplit{
			OffPossessions: r.OnOffPossessions,
			DefPossessions: r.OnDefPossessions,
			PointsFor:      r.OnPointsFor,
			PointsAgainst:  r.OnPointsAgainst,
		},
	}
	if r.OffOffPossessions+r.OffDefPossessions > 0 {
		agg.Off = &model.RatingSplit{
			OffPossessions: r.OffOffPossessions,
			DefPossessions: r.OffDefPossessions,
			PointsFor:      r.OffPointsFor,
			PointsAgainst:  r.OffPointsAgainst,
		}
	}
	return agg
}

const onOffSelect = `
	SELECT player_id, games,
	       on_off_possessions, on_def_possessions, on_points_for, on_points_against,
	       off_off_possessions, off_def_possessions, off_points_for, off_points_against
	FROM player_onoff_aggregates`

// PlayerOnOff returns the stored on/off split of a player in scope, or nil
// when the player has no possessions there. Confidence is left unset.
func (db *DB) PlayerOnOff(ctx context.Context, scope model.Scope, playerID string) (*model.PlayerOnOffAggregate, error) {
	var row onOffRow
	err := db.conn.GetContext(ctx, &row, onOffSelect+` WHERE scope = ? AND player_id = ?`, scope.String(), playerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get on/off %s/%s: %w", scope, playerID, err)
	}
	agg := row.toModel(scope)
	return &agg, nil
}

// PlayerOnOffAggregates lists on/off splits in scope, most on-court
// possessions first.
func (db *DB) PlayerOnOffAggregates(ctx context.Context, scope model.Scope, minOnPossessions, limit int) ([]model.PlayerOnOffAggregate, error) {
	query := onOffSelect + `
		WHERE scope = ? AND on_off_possessions + on_def_possessions >= ?
		ORDER BY on_off_possessions + on_def_possessions DESC, player_id`
	args := []any{scope.String(), minOnPossessions}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []onOffRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list on/off %s: %w", scope, err)
	}
	out := make([]model.PlayerOnOffAggregate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel(scope))
	}
	return out, nil
}
