// Package bolt implements the repository interfaces on top of bbolt, an
// embedded key/value store.
//
// Each collection is a bucket. Keys are document ids (xids, which sort by
// creation time) and values are the JSON-encoded documents, so a cursor walk
// over a bucket yields documents in insertion order.
package bolt

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/sakif/recipe-organizer/internal/model"
	"github.com/sakif/recipe-organizer/internal/repository"
)

// DB wraps an open bbolt database file.
type DB struct {
	db *bbolt.DB
}

// New opens (or creates) the bbolt file at dbPath and makes sure every
// collection bucket exists.
//
// bbolt holds an exclusive file lock while open; Timeout stops a second
// process from blocking forever on it.
func New(dbPath string) (*DB, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: opening %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{repository.UsersCollection, repository.RecipesCollection} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: initializing buckets: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the file lock and closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Users returns the credential store. Email is unique within it.
func (d *DB) Users() *Collection[model.User, *model.User] {
	return NewCollection[model.User](d, repository.UsersCollection, repository.EmailField)
}

// Recipes returns the recipe record store.
func (d *DB) Recipes() *Collection[model.Recipe, *model.Recipe] {
	return NewCollection[model.Recipe](d, repository.RecipesCollection)
}
