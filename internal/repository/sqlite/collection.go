package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/xid"

	"github.com/sakif/recipe-organizer/internal/apperror"
	"github.com/sakif/recipe-organizer/internal/model"
	"github.com/sakif/recipe-organizer/internal/repository"
)

// compile-time checks that the collections satisfy the repository interfaces
var (
	_ repository.UserRepository   = (*Collection[model.User, *model.User])(nil)
	_ repository.RecipeRepository = (*Collection[model.Recipe, *model.Recipe])(nil)
)

// fieldPattern restricts FindByField/ExistsByField to plain JSON member names.
// The name is written into the SQL text as a JSON path literal, so nothing
// outside this pattern may reach fieldExpr.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// fieldExpr returns json_extract(body, '$.<field>') for a field already
// checked against fieldPattern. The path must be a literal, not a bound
// parameter, for SQLite to match it against an expression index such as
// idx_documents_email.
func fieldExpr(field string) string {
	return "json_extract(body, '$." + field + "')"
}

func findByFieldQuery(field string) string {
	return `SELECT body FROM documents
		 WHERE collection = ? AND ` + fieldExpr(field) + ` = ?
		 ORDER BY rowid LIMIT 1`
}

func existsByFieldQuery(field string) string {
	return `SELECT EXISTS (
			SELECT 1 FROM documents WHERE collection = ? AND ` + fieldExpr(field) + ` = ?
		 )`
}

func uniqueTakenQuery(field string) string {
	return `SELECT EXISTS (
			SELECT 1 FROM documents
			WHERE collection = ? AND id <> ? AND ` + fieldExpr(field) + ` = ?
		 )`
}

// Collection is a typed view over one collection in the documents table.
//
// TYPE PARAMETERS:
// T is the entity (model.User); PT is its pointer type (*model.User), which
// must implement model.Document so the collection can read and assign IDs.
// Callers only spell out T, the compiler infers PT:
//
//	users := sqlite.NewCollection[model.User](db, "users", "email")
type Collection[T any, PT interface {
	*T
	model.Document
}] struct {
	db     *DB
	name   string
	unique []string
}

// NewCollection returns a collection named name. Every field listed in unique
// must hold a distinct value across the collection; Create and Save enforce
// it inside their write transaction.
func NewCollection[T any, PT interface {
	*T
	model.Document
}](db *DB, name string, unique ...string) *Collection[T, PT] {
	return &Collection[T, PT]{db: db, name: name, unique: unique}
}

// Create assigns a fresh xid to doc and inserts it.
func (c *Collection[T, PT]) Create(ctx context.Context, doc *T) error {
	PT(doc).SetID(xid.New().String())

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlite: encoding %s document: %w", c.name, err)
	}

	return c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.checkUnique(ctx, tx, PT(doc).GetID(), body); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`,
			c.name, PT(doc).GetID(), string(body),
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting %s %s: %w", c.name, PT(doc).GetID(), err)
		}
		return nil
	})
}

// FindByID returns the document with the given id, or apperror.ErrNotFound.
func (c *Collection[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	var body string
	err := c.db.conn.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		c.name, id,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(c.name, id)
		}
		return nil, fmt.Errorf("sqlite: getting %s %s: %w", c.name, id, err)
	}

	return c.decode(body)
}

// FindAll returns every document in insertion order.
//
// ORDER BY rowid:
// The documents table is an ordinary rowid table. Save updates rows in place
// (ON CONFLICT DO UPDATE), so the rowid of a document never changes and
// rowid order is insertion order.
func (c *Collection[T, PT]) FindAll(ctx context.Context) ([]T, error) {
	rows, err := c.db.conn.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection = ? ORDER BY rowid`,
		c.name,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", c.name, err)
	}
	defer rows.Close()

	docs := make([]T, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", c.name, err)
		}
		doc, err := c.decode(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", c.name, err)
	}

	return docs, nil
}

// Save inserts doc, or replaces the stored document with the same id.
// A doc without an id is given one, which makes Save usable as an insert.
func (c *Collection[T, PT]) Save(ctx context.Context, doc *T) error {
	if PT(doc).GetID() == "" {
		PT(doc).SetID(xid.New().String())
	}
	id := PT(doc).GetID()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlite: encoding %s document: %w", c.name, err)
	}

	return c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.checkUnique(ctx, tx, id, body); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
			 ON CONFLICT (collection, id) DO UPDATE
			 SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
			c.name, id, string(body),
		)
		if err != nil {
			return fmt.Errorf("sqlite: saving %s %s: %w", c.name, id, err)
		}
		return nil
	})
}

// DeleteByID removes the document if it exists. A missing id is not an error.
func (c *Collection[T, PT]) DeleteByID(ctx context.Context, id string) error {
	_, err := c.db.conn.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		c.name, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s %s: %w", c.name, id, err)
	}
	return nil
}

// FindByField returns the first document (in insertion order) whose string
// member field equals value, or apperror.ErrNotFound.
func (c *Collection[T, PT]) FindByField(ctx context.Context, field, value string) (*T, error) {
	if !fieldPattern.MatchString(field) {
		return nil, fmt.Errorf("sqlite: invalid field name %q", field)
	}

	var body string
	err := c.db.conn.QueryRowContext(ctx, findByFieldQuery(field), c.name, value).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(c.name, field+"="+value)
		}
		return nil, fmt.Errorf("sqlite: finding %s by %s: %w", c.name, field, err)
	}

	return c.decode(body)
}

// ExistsByField reports whether any document has field equal to value.
func (c *Collection[T, PT]) ExistsByField(ctx context.Context, field, value string) (bool, error) {
	if !fieldPattern.MatchString(field) {
		return false, fmt.Errorf("sqlite: invalid field name %q", field)
	}

	var exists bool
	err := c.db.conn.QueryRowContext(ctx, existsByFieldQuery(field), c.name, value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking %s by %s: %w", c.name, field, err)
	}
	return exists, nil
}

// checkUnique fails with apperror.ErrConflict when another document (any id
// other than selfID) already holds one of the unique field values in body.
func (c *Collection[T, PT]) checkUnique(ctx context.Context, tx *sql.Tx, selfID string, body []byte) error {
	if len(c.unique) == 0 {
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Errorf("sqlite: decoding %s document: %w", c.name, err)
	}

	for _, field := range c.unique {
		if !fieldPattern.MatchString(field) {
			return fmt.Errorf("sqlite: invalid unique field name %q", field)
		}
		value, ok := fields[field].(string)
		if !ok {
			continue
		}

		var taken bool
		err := tx.QueryRowContext(ctx, uniqueTakenQuery(field), c.name, selfID, value).Scan(&taken)
		if err != nil {
			return fmt.Errorf("sqlite: checking unique %s.%s: %w", c.name, field, err)
		}
		if taken {
			return apperror.Conflict(c.name, field)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back if fn fails.
func (c *Collection[T, PT]) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

func (c *Collection[T, PT]) decode(body string) (*T, error) {
	doc := new(T)
	if err := json.Unmarshal([]byte(body), doc); err != nil {
		return nil, fmt.Errorf("sqlite: decoding %s document: %w", c.name, err)
	}
	return doc, nil
}
