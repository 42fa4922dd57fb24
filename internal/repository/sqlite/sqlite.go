// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHY SQLITE?
// SQLite is an embedded database: a single file, no server to run. It suits a
// single-instance deployment and tests (":memory:" gives every test a fresh DB).
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of SQLite, so no C compiler is
// needed and cross-compilation just works. It also ships the JSON1 functions
// the document collections rely on (json_extract).
//
// DOCUMENT LAYOUT:
// Every entity is stored as a JSON document in one table:
//
//	documents(collection, id, body, created_at, updated_at)
//
// A Collection[T] is a typed view over the rows of one collection. Field
// lookups (find-by-email) run json_extract over the body, so adding a field
// to a model never needs a schema change.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/recipe-organizer/internal/model"
	"github.com/sakif/recipe-organizer/internal/repository"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DB wraps a sql.DB connection pool and hands out typed collections.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/recipes.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
//
// ONE CONNECTION:
// The pool is capped at a single connection. SQLite allows one writer at a
// time anyway, and with ":memory:" every new connection would otherwise open
// a separate, empty database. It also makes the read-check-write transactions
// in Collection atomic with respect to each other.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate applies the embedded goose migrations in migrations/.
//
// goose records applied versions in its own goose_db_version table, so this
// is safe to run on every start.
func (db *DB) migrate() error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(db.conn, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Users returns the credential store. Email is unique within it.
func (db *DB) Users() *Collection[model.User, *model.User] {
	return NewCollection[model.User](db, repository.UsersCollection, repository.EmailField)
}

// Recipes returns the recipe record store.
func (db *DB) Recipes() *Collection[model.Recipe, *model.Recipe] {
	return NewCollection[model.Recipe](db, repository.RecipesCollection)
}
