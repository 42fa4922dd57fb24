package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"go.etcd.io/bbolt"

	"github.com/sakif/recipe-organizer/internal/apperror"
	"github.com/sakif/recipe-organizer/internal/model"
	"github.com/sakif/recipe-organizer/internal/repository"
)

var (
	_ repository.UserRepository   = (*Collection[model.User, *model.User])(nil)
	_ repository.RecipeRepository = (*Collection[model.Recipe, *model.Recipe])(nil)
)

// errStop ends a ForEach walk early once a match is found.
var errStop = errors.New("stop")

// Collection is a typed view over one bucket. See the sqlite package for the
// meaning of the PT type parameter.
type Collection[T any, PT interface {
	*T
	model.Document
}] struct {
	db     *DB
	bucket []byte
	unique []string
}

// NewCollection returns a collection over the bucket called name. The bucket
// is created on first write if New did not already create it.
func NewCollection[T any, PT interface {
	*T
	model.Document
}](d *DB, name string, unique ...string) *Collection[T, PT] {
	return &Collection[T, PT]{db: d, bucket: []byte(name), unique: unique}
}

func (c *Collection[T, PT]) Create(ctx context.Context, doc *T) error {
	PT(doc).SetID(xid.New().String())
	return c.put(doc)
}

func (c *Collection[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	var doc *T
	err := c.db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		var err error
		doc, err = c.decode(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NotFound(string(c.bucket), id)
	}
	return doc, nil
}

// FindAll walks the bucket in key order, which is xid (creation) order.
func (c *Collection[T, PT]) FindAll(ctx context.Context) ([]T, error) {
	docs := make([]T, 0)
	err := c.db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			doc, err := c.decode(v)
			if err != nil {
				return err
			}
			docs = append(docs, *doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Save replaces the document stored under doc's id, inserting it when absent.
func (c *Collection[T, PT]) Save(ctx context.Context, doc *T) error {
	if PT(doc).GetID() == "" {
		PT(doc).SetID(xid.New().String())
	}
	return c.put(doc)
}

func (c *Collection[T, PT]) DeleteByID(ctx context.Context, id string) error {
	err := c.db.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("bolt: deleting %s %s: %w", c.bucket, id, err)
	}
	return nil
}

// FindByField scans the bucket for the first document whose string member
// field equals value. There are no secondary indexes; collections here are
// small enough for a scan.
func (c *Collection[T, PT]) FindByField(ctx context.Context, field, value string) (*T, error) {
	var found *T
	err := c.db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			ok, err := fieldEquals(v, field, value)
			if err != nil || !ok {
				return err
			}
			found, err = c.decode(v)
			if err != nil {
				return err
			}
			return errStop
		})
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("bolt: finding %s by %s: %w", c.bucket, field, err)
	}
	if found == nil {
		return nil, apperror.NotFound(string(c.bucket), field+"="+value)
	}
	return found, nil
}

func (c *Collection[T, PT]) ExistsByField(ctx context.Context, field, value string) (bool, error) {
	_, err := c.FindByField(ctx, field, value)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// put writes doc under its id. The unique-field check and the write share one
// read-write transaction; bbolt allows a single writer at a time, so two
// concurrent registrations with the same email cannot both pass the check.
func (c *Collection[T, PT]) put(doc *T) error {
	id := PT(doc).GetID()
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("bolt: encoding %s document: %w", c.bucket, err)
	}

	return c.db.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(c.bucket)
		if err != nil {
			return fmt.Errorf("bolt: creating %s bucket: %w", c.bucket, err)
		}
		if err := c.checkUnique(b, id, data); err != nil {
			return err
		}
		if err := b.Put([]byte(id), data); err != nil {
			return fmt.Errorf("bolt: writing %s %s: %w", c.bucket, id, err)
		}
		return nil
	})
}

func (c *Collection[T, PT]) checkUnique(b *bbolt.Bucket, selfID string, data []byte) error {
	if len(c.unique) == 0 {
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("bolt: decoding %s document: %w", c.bucket, err)
	}

	for _, field := range c.unique {
		value, ok := fields[field].(string)
		if !ok {
			continue
		}
		err := b.ForEach(func(k, v []byte) error {
			if string(k) == selfID {
				return nil
			}
			match, err := fieldEquals(v, field, value)
			if err != nil {
				return err
			}
			if match {
				return apperror.Conflict(string(c.bucket), field)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection[T, PT]) decode(data []byte) (*T, error) {
	doc := new(T)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("bolt: decoding %s document: %w", c.bucket, err)
	}
	return doc, nil
}

// fieldEquals reports whether the JSON object data has a string member field
// equal to value.
func fieldEquals(data []byte, field, value string) (bool, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return false, err
	}
	s, ok := fields[field].(string)
	return ok && s == value, nil
}
