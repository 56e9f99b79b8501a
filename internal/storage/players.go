package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pable/go-lineup-metrics/internal/model"
)

type playerRow struct {
	PlayerID   string   `db:"player_id"`
	Name       string   `db:"name"`
	Age        *float64 `db:"age"`
	HeightIn   *float64 `db:"height_in"`
	WeightLb   *float64 `db:"weight_lb"`
	Experience *float64 `db:"experience"`
}

func (r playerRow) toModel() model.PlayerAttributes {
	return model.PlayerAttributes{
		PlayerID:   r.PlayerID,
		Name:       r.Name,
		Age:        r.Age,
		HeightIn:   r.HeightIn,
		WeightLb:   r.WeightLb,
		Experience: r.Experience,
	}
}

// UpsertPlayers bulk-writes player attributes in a transaction. Missing
// attributes are stored as NULL.
func (db *DB) UpsertPlayers(ctx context.Context, players []model.PlayerAttributes) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO players(player_id, name, age, height_in, weight_lb, experience)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		if _, err := stmt.ExecContext(ctx, p.PlayerID, p.Name, p.Age, p.HeightIn, p.WeightLb, p.Experience); err != nil {
			return fmt.Errorf("insert players for %s: %w", p.PlayerID, err)
		}
	}
	return tx.Commit()
}

// PlayerAttributes returns the stored attributes of the given players keyed
// by id. Players without a row are absent from the map.
func (db *DB) PlayerAttributes(ctx context.Context, ids []string) (map[string]model.PlayerAttributes, error) {
	out := make(map[string]model.PlayerAttributes, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
		SELECT player_id, name, age, height_in, weight_lb, experience
		FROM players WHERE player_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build players query: %w", err)
	}
	var rows []playerRow
	if err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get players: %w", err)
	}
	for _, r := range rows {
		out[r.PlayerID] = r.toModel()
	}
	return out, nil
}

// ListPlayers returns every player with stored attributes, ordered by id.
func (db *DB) ListPlayers(ctx context.Context) ([]model.PlayerAttributes, error) {
	var rows []playerRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT player_id, name, age, height_in, weight_lb, experience
		FROM players ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	out := make([]model.PlayerAttributes, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
