package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/model"
)

var (
	// ErrGameInProgress is returned when another run holds the game.
	ErrGameInProgress = errkind.New("game ingestion already in progress", errkind.Recoverable)
	// ErrNotOwner is returned when a run commits a game it no longer owns.
	ErrNotOwner = errkind.New("ingestion run does not own game", errkind.IngestionFatal)
)

type gameRow struct {
	GameID      string `db:"game_id"`
	Season      string `db:"season"`
	HomeTeamID  string `db:"home_team_id"`
	AwayTeamID  string `db:"away_team_id"`
	Status      string `db:"status"`
	RunID       string `db:"run_id"`
	Attempts    int    `db:"attempts"`
	Events      int    `db:"events"`
	Possessions int    `db:"possessions"`
	Flags       int    `db:"flags"`
	Error       string `db:"error"`
	StartedAt   string `db:"started_at"`
	FinishedAt  string `db:"finished_at"`
}

const gameColumns = `game_id, season, home_team_id, away_team_id, status, run_id,
	attempts, events, possessions, flags, error, started_at, finished_at`

func (r gameRow) toModel() model.Game {
	return model.Game{
		GameID:      r.GameID,
		Season:      r.Season,
		HomeTeamID:  r.HomeTeamID,
		AwayTeamID:  r.AwayTeamID,
		Status:      model.IngestStatus(r.Status),
		RunID:       r.RunID,
		Attempts:    r.Attempts,
		Events:      r.Events,
		Possessions: r.Possessions,
		Flags:       r.Flags,
		Error:       r.Error,
		StartedAt:   parseTime(r.StartedAt),
		FinishedAt:  parseTime(r.FinishedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// ClaimGame marks a game in_progress under runID. A game already
// in_progress under another run is only taken over when force is set.
func (db *DB) ClaimGame(ctx context.Context, g model.Game, runID string, force bool) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	var status, owner string
	err = tx.QueryRowxContext(ctx, `SELECT status, run_id FROM games WHERE game_id = ?`, g.GameID).Scan(&status, &owner)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("read game status: %w", err)
	case model.IngestStatus(status) == model.StatusInProgress && owner != runID && !force:
		return crerr.Wrapf(ErrGameInProgress, "game %s held by run %s", g.GameID, owner)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games(game_id, season, home_team_id, away_team_id, status, run_id, attempts, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, '', ?, '')
		ON CONFLICT(game_id) DO UPDATE SET
			season = excluded.season,
			home_team_id = excluded.home_team_id,
			away_team_id = excluded.away_team_id,
			status = excluded.status,
			run_id = excluded.run_id,
			attempts = games.attempts + 1,
			error = '',
			started_at = excluded.started_at,
			finished_at = ''`,
		g.GameID, g.Season, g.HomeTeamID, g.AwayTeamID, string(model.StatusInProgress), runID,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("claim game %s: %w", g.GameID, err)
	}
	return tx.Commit()
}

// FailGame records a failed run. Facts of an earlier successful run stay.
func (db *DB) FailGame(ctx context.Context, gameID, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := db.conn.ExecContext(ctx, `
		UPDATE games SET status = ?, error = ?, finished_at = ?
		WHERE game_id = ? AND run_id = ?`,
		string(model.StatusFailed), msg, formatTime(time.Now()), gameID, runID,
	)
	if err != nil {
		return fmt.Errorf("fail game %s: %w", gameID, err)
	}
	return nil
}

// GetGame returns the status record of a game, or nil when it was never seen.
func (db *DB) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	var row gameRow
	err := db.conn.GetContext(ctx, &row, `SELECT `+gameColumns+` FROM games WHERE game_id = ?`, gameID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", gameID, err)
	}
	g := row.toModel()
	return &g, nil
}

// ListGames returns every status record, newest season first.
func (db *DB) ListGames(ctx context.Context) ([]model.Game, error) {
	return db.selectGames(ctx, `SELECT `+gameColumns+` FROM games ORDER BY season DESC, game_id`)
}

// PendingGames returns games that are not complete: never finished, failed,
// or abandoned mid-run. Resuming a batch means re-ingesting these.
func (db *DB) PendingGames(ctx context.Context) ([]model.Game, error) {
	return db.selectGames(ctx, `SELECT `+gameColumns+` FROM games WHERE status != ? ORDER BY game_id`,
		string(model.StatusComplete))
}

func (db *DB) selectGames(ctx context.Context, query string, args ...any) ([]model.Game, error) {
	var rows []gameRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	out := make([]model.Game, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// CommitGame replaces every fact of a game and marks it complete in one
// transaction. If ctx is cancelled midway nothing of it is visible.
func (db *DB) CommitGame(ctx context.Context, facts *model.GameFacts) error {
	g := facts.Game
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"lineup_snapshots", "player_stints", "possessions", "event_flags", "player_games"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE game_id = ?`, g.GameID); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, g.GameID, err)
		}
	}

	if err := insertLineups(ctx, tx, facts.Lineups); err != nil {
		return err
	}
	if err := insertPlayerGames(ctx, tx, facts.Players); err != nil {
		return err
	}
	if err := insertSnapshots(ctx, tx, facts.Snapshots); err != nil {
		return err
	}
	if err := insertStints(ctx, tx, facts.Stints); err != nil {
		return err
	}
	if err := insertPossessions(ctx, tx, facts.Possessions); err != nil {
		return err
	}
	if err := insertFlags(ctx, tx, facts.Flags); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE games SET status = ?, events = ?, possessions = ?, flags = ?, error = '', finished_at = ?
		WHERE game_id = ? AND run_id = ?`,
		string(model.StatusComplete), g.Events, len(facts.Possessions), len(facts.Flags),
		formatTime(time.Now()), g.GameID, g.RunID,
	)
	if err != nil {
		return fmt.Errorf("complete game %s: %w", g.GameID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("complete game %s: %w", g.GameID, err)
	} else if n == 0 {
		return crerr.Wrapf(ErrNotOwner, "game %s run %s", g.GameID, g.RunID)
	}
	return tx.Commit()
}
