package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pable/go-lineup-metrics/internal/model"
)

// insertLineups registers lineup identities. The identity never changes for
// a player set, so existing rows are left alone.
func insertLineups(ctx context.Context, tx *sqlx.Tx, lineups []model.Lineup) error {
	if len(lineups) == 0 {
		return nil
	}
	lstmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO lineups(lineup_id, team_id, p1, p2, p3, p4, p5)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer lstmt.Close()

	pstmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO lineup_players(lineup_id, player_id, slot) VALUES (?,?,?)`)
	if err != nil {
		return err
	}
	defer pstmt.Close()

	for _, l := range lineups {
		p := l.Players
		if _, err := lstmt.ExecContext(ctx, string(l.ID), l.TeamID, p[0], p[1], p[2], p[3], p[4]); err != nil {
			return fmt.Errorf("insert lineup %s: %w", l.ID, err)
		}
		for slot, playerID := range p {
			if _, err := pstmt.ExecContext(ctx, string(l.ID), playerID, slot); err != nil {
				return fmt.Errorf("insert lineup_players %s/%s: %w", l.ID, playerID, err)
			}
		}
	}
	return nil
}

func insertPlayerGames(ctx context.Context, tx *sqlx.Tx, players []model.PlayerGame) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO player_games(game_id, player_id, team_id, seconds_played, stints)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		if _, err := stmt.ExecContext(ctx, p.GameID, p.PlayerID, p.TeamID, p.SecondsPlayed, p.Stints); err != nil {
			return fmt.Errorf("insert player_games for %s: %w", p.PlayerID, err)
		}
	}
	return nil
}

func insertSnapshots(ctx context.Context, tx *sqlx.Tx, snaps []model.LineupSnapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO lineup_snapshots(
			game_id, seq, team_id, lineup_id, point_diff, has_possession, possession
		) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range snaps {
		_, err := stmt.ExecContext(ctx,
			s.GameID, s.Seq, s.TeamID, string(s.LineupID), s.PointDiff, boolInt(s.HasPossession), s.Possession)
		if err != nil {
			return fmt.Errorf("insert lineup_snapshots %s/%d/%s: %w", s.GameID, s.Seq, s.TeamID, err)
		}
	}
	return nil
}

func insertStints(ctx context.Context, tx *sqlx.Tx, recs []model.PlayerStintRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO player_stints(
			game_id, seq, player_id, team_id, elapsed, on_court,
			stint_id, stint_seq, seconds_played, rest_seconds
		) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		var rest sql.NullFloat64
		if r.RestSeconds != nil {
			rest = sql.NullFloat64{Float64: *r.RestSeconds, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			r.GameID, r.Seq, r.PlayerID, r.TeamID, r.Elapsed, boolInt(r.OnCourt),
			r.StintID, r.StintSeq, r.SecondsPlayed, rest)
		if err != nil {
			return fmt.Errorf("insert player_stints %s/%d/%s: %w", r.GameID, r.Seq, r.PlayerID, err)
		}
	}
	return nil
}

func insertPossessions(ctx context.Context, tx *sqlx.Tx, recs []model.PossessionRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO possessions(
			game_id, number, period, start_seq, end_seq, start_elapsed, end_elapsed,
			outcome, points, shot_category, offense_team, defense_team,
			offense_lineup, defense_lineup
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range recs {
		_, err := stmt.ExecContext(ctx,
			p.GameID, p.Number, p.Period, p.StartSeq, p.EndSeq, p.StartElapsed, p.EndElapsed,
			string(p.Outcome), p.Points, p.ShotCategory, p.OffenseTeam, p.DefenseTeam,
			string(p.OffenseLineup), string(p.DefenseLineup))
		if err != nil {
			return fmt.Errorf("insert possessions %s/%d: %w", p.GameID, p.Number, err)
		}
	}
	return nil
}

func insertFlags(ctx context.Context, tx *sqlx.Tx, flags []model.EventFlag) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO event_flags(game_id, seq, reason, raw_kind) VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range flags {
		if _, err := stmt.ExecContext(ctx, f.GameID, f.Seq, f.Reason, f.RawKind); err != nil {
			return fmt.Errorf("insert event_flags %s/%d: %w", f.GameID, f.Seq, err)
		}
	}
	return nil
}

// ---- reads ----

type lineupRow struct {
	LineupID string `db:"lineup_id"`
	TeamID   string `db:"team_id"`
	P1       string `db:"p1"`
	P2       string `db:"p2"`
	P3       string `db:"p3"`
	P4       string `db:"p4"`
	P5       string `db:"p5"`
}

func (r lineupRow) toModel() model.Lineup {
	return model.Lineup{
		ID:      model.LineupID(r.LineupID),
		TeamID:  r.TeamID,
		Players: [5]string{r.P1, r.P2, r.P3, r.P4, r.P5},
	}
}

// GetLineup returns a stored lineup, or nil when the identity was never seen.
func (db *DB) GetLineup(ctx context.Context, id model.LineupID) (*model.Lineup, error) {
	var row lineupRow
	err := db.conn.GetContext(ctx, &row,
		`SELECT lineup_id, team_id, p1, p2, p3, p4, p5 FROM lineups WHERE lineup_id = ?`, string(id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lineup %s: %w", id, err)
	}
	l := row.toModel()
	return &l, nil
}

type stintRow struct {
	GameID        string   `db:"game_id"`
	Seq           int      `db:"seq"`
	PlayerID      string   `db:"player_id"`
	TeamID        string   `db:"team_id"`
	Elapsed       float64  `db:"elapsed"`
	OnCourt       bool     `db:"on_court"`
	StintID       string   `db:"stint_id"`
	StintSeq      int      `db:"stint_seq"`
	SecondsPlayed float64  `db:"seconds_played"`
	RestSeconds   *float64 `db:"rest_seconds"`
}

// PlayerStints returns a player's per-event stint records for one game in
// event order.
func (db *DB) PlayerStints(ctx context.Context, gameID, playerID string) ([]model.PlayerStintRecord, error) {
	var rows []stintRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT game_id, seq, player_id, team_id, elapsed, on_court,
		       stint_id, stint_seq, seconds_played, rest_seconds
		FROM player_stints WHERE game_id = ? AND player_id = ?
		ORDER BY seq`, gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("get player_stints %s/%s: %w", gameID, playerID, err)
	}
	out := make([]model.PlayerStintRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.PlayerStintRecord{
			GameID:        r.GameID,
			Seq:           r.Seq,
			PlayerID:      r.PlayerID,
			TeamID:        r.TeamID,
			Elapsed:       r.Elapsed,
			OnCourt:       r.OnCourt,
			StintID:       r.StintID,
			StintSeq:      r.StintSeq,
			SecondsPlayed: r.SecondsPlayed,
			RestSeconds:   r.RestSeconds,
		})
	}
	return out, nil
}

type possessionRow struct {
	GameID        string  `db:"game_id"`
	Number        int     `db:"number"`
	Period        int     `db:"period"`
	StartSeq      int     `db:"start_seq"`
	EndSeq        int     `db:"end_seq"`
	StartElapsed  float64 `db:"start_elapsed"`
	EndElapsed    float64 `db:"end_elapsed"`
	Outcome       string  `db:"outcome"`
	Points        int     `db:"points"`
	ShotCategory  string  `db:"shot_category"`
	OffenseTeam   string  `db:"offense_team"`
	DefenseTeam   string  `db:"defense_team"`
	OffenseLineup string  `db:"offense_lineup"`
	DefenseLineup string  `db:"defense_lineup"`
}

// Possessions returns a game's possessions ordered by number.
func (db *DB) Possessions(ctx context.Context, gameID string) ([]model.PossessionRecord, error) {
	var rows []possessionRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT game_id, number, period, start_seq, end_seq, start_elapsed, end_elapsed,
		       outcome, points, shot_category, offense_team, defense_team,
		       offense_lineup, defense_lineup
		FROM possessions WHERE game_id = ?
		ORDER BY number`, gameID)
	if err != nil {
		return nil, fmt.Errorf("get possessions %s: %w", gameID, err)
	}
	out := make([]model.PossessionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.PossessionRecord{
			GameID:        r.GameID,
			Number:        r.Number,
			Period:        r.Period,
			StartSeq:      r.StartSeq,
			EndSeq:        r.EndSeq,
			StartElapsed:  r.StartElapsed,
			EndElapsed:    r.EndElapsed,
			Outcome:       model.PossessionOutcome(r.Outcome),
			Points:        r.Points,
			ShotCategory:  r.ShotCategory,
			OffenseTeam:   r.OffenseTeam,
			DefenseTeam:   r.DefenseTeam,
			OffenseLineup: model.LineupID(r.OffenseLineup),
			DefenseLineup: model.LineupID(r.DefenseLineup),
		})
	}
	return out, nil
}

type snapshotRow struct {
	GameID        string `db:"game_id"`
	Seq           int    `db:"seq"`
	TeamID        string `db:"team_id"`
	LineupID      string `db:"lineup_id"`
	PointDiff     int    `db:"point_diff"`
	HasPossession bool   `db:"has_possession"`
	Possession    int    `db:"possession"`
}

// Snapshots returns a game's lineup snapshots ordered by event then team.
func (db *DB) Snapshots(ctx context.Context, gameID string) ([]model.LineupSnapshot, error) {
	var rows []snapshotRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT s.game_id, s.seq, s.team_id, s.lineup_id, s.point_diff, s.has_possession, s.possession
		FROM lineup_snapshots s WHERE s.game_id = ?
		ORDER BY s.seq, s.team_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("get lineup_snapshots %s: %w", gameID, err)
	}
	lineups := map[string]model.Lineup{}
	out := make([]model.LineupSnapshot, 0, len(rows))
	for _, r := range rows {
		l, ok := lineups[r.LineupID]
		if !ok {
			got, err := db.GetLineup(ctx, model.LineupID(r.LineupID))
			if err != nil {
				return nil, err
			}
			if got != nil {
				l = *got
			}
			lineups[r.LineupID] = l
		}
		out = append(out, model.LineupSnapshot{
			GameID:        r.GameID,
			Seq:           r.Seq,
			TeamID:        r.TeamID,
			Players:       l.Players,
			LineupID:      model.LineupID(r.LineupID),
			PointDiff:     r.PointDiff,
			HasPossession: r.HasPossession,
			Possession:    r.Possession,
		})
	}
	return out, nil
}

// Flags returns the recoverable issues recorded for a game.
func (db *DB) Flags(ctx context.Context, gameID string) ([]model.EventFlag, error) {
	var rows []struct {
		GameID  string `db:"game_id"`
		Seq     int    `db:"seq"`
		Reason  string `db:"reason"`
		RawKind string `db:"raw_kind"`
	}
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT game_id, seq, reason, raw_kind FROM event_flags WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("get event_flags %s: %w", gameID, err)
	}
	out := make([]model.EventFlag, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.EventFlag{GameID: r.GameID, Seq: r.Seq, Reason: r.Reason, RawKind: r.RawKind})
	}
	return out, nil
}

// PlayerGames returns the games a player appeared in within scope.
func (db *DB) PlayerGames(ctx context.Context, scope model.Scope, playerID string) ([]model.PlayerGame, error) {
	games, args := scopeGames(scope)
	var rows []struct {
		GameID        string  `db:"game_id"`
		PlayerID      string  `db:"player_id"`
		TeamID        string  `db:"team_id"`
		SecondsPlayed float64 `db:"seconds_played"`
		Stints        int     `db:"stints"`
	}
	args = append([]any{playerID}, args...)
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT game_id, player_id, team_id, seconds_played, stints
		FROM player_games
		WHERE player_id = ? AND game_id IN (`+games+`)
		ORDER BY game_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("get player_games %s: %w", playerID, err)
	}
	out := make([]model.PlayerGame, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.PlayerGame{
			GameID: r.GameID, PlayerID: r.PlayerID, TeamID: r.TeamID,
			SecondsPlayed: r.SecondsPlayed, Stints: r.Stints,
		})
	}
	return out, nil
}
