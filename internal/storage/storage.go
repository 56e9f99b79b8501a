// Package storage is the SQLite snapshot store: per-game facts written once
// per ingestion, ingestion status, player attributes and the pre-aggregated
// lineup and on/off views rebuilt from the facts.
package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pable/go-lineup-metrics/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sqlx.DB for the snapshot store.
type DB struct {
	conn *sqlx.DB
}

// Open opens (or creates) the SQLite database at the given path and migrates
// it to the latest schema.
func Open(path string) (*DB, error) {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "foreign_keys(1)")
	if path != ":memory:" {
		params.Add("_pragma", "journal_mode(WAL)")
	}
	params.Set("_txlock", "immediate")
	dsn := fmt.Sprintf("file:%s?%s", path, params.Encode())

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every new connection to :memory: is a fresh, empty database.
		conn.SetMaxOpenConns(1)
	}
	if err := migrateUp(conn.DB); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func migrateUp(conn *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// m.Close would close conn as well; only the source is released here.
	defer src.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scopeGames returns a subquery selecting the complete game ids inside
// scope, plus its arguments. Facts left behind by a failed or running
// re-ingest never reach an aggregate.
func scopeGames(scope model.Scope) (string, []any) {
	complete := string(model.StatusComplete)
	switch scope.Kind {
	case model.ScopeSeason:
		return "SELECT game_id FROM games WHERE status = ? AND season = ?", []any{complete, scope.Value}
	case model.ScopeGame:
		return "SELECT game_id FROM games WHERE status = ? AND game_id = ?", []any{complete, scope.Value}
	default:
		return "SELECT game_id FROM games WHERE status = ?", []any{complete}
	}
}
