package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/recipe-organizer/internal/apperror"
	"github.com/sakif/recipe-organizer/internal/model"
	"github.com/sakif/recipe-organizer/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is an in-memory repository.Store. It keeps documents in insertion
// order like the real adapters, enforces unique fields, and counts writes so
// tests can assert that a rejected operation touched nothing.
//
// Set failWith to simulate a broken store: every method then returns it.

type fakeStore[T any, PT interface {
	*T
	model.Document
}] struct {
	docs     []T
	unique   []string
	nextID   int
	writes   int
	failWith error
}

var (
	_ repository.UserRepository   = (*fakeStore[model.User, *model.User])(nil)
	_ repository.RecipeRepository = (*fakeStore[model.Recipe, *model.Recipe])(nil)
)

func newFakeUsers() *fakeStore[model.User, *model.User] {
	return &fakeStore[model.User, *model.User]{unique: []string{repository.EmailField}}
}

func newFakeRecipes() *fakeStore[model.Recipe, *model.Recipe] {
	return &fakeStore[model.Recipe, *model.Recipe]{}
}

func (f *fakeStore[T, PT]) Create(_ context.Context, doc *T) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.nextID++
	PT(doc).SetID(fmt.Sprintf("fake-%d", f.nextID))
	return f.put(doc)
}

func (f *fakeStore[T, PT]) FindByID(_ context.Context, id string) (*T, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if i := f.index(id); i >= 0 {
		doc := f.docs[i]
		return &doc, nil
	}
	return nil, apperror.NotFound("fake", id)
}

func (f *fakeStore[T, PT]) FindAll(_ context.Context) ([]T, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]T, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *fakeStore[T, PT]) Save(_ context.Context, doc *T) error {
	if f.failWith != nil {
		return f.failWith
	}
	if PT(doc).GetID() == "" {
		f.nextID++
		PT(doc).SetID(fmt.Sprintf("fake-%d", f.nextID))
	}
	return f.put(doc)
}

func (f *fakeStore[T, PT]) DeleteByID(_ context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if i := f.index(id); i >= 0 {
		f.docs = append(f.docs[:i], f.docs[i+1:]...)
		f.writes++
	}
	return nil
}

func (f *fakeStore[T, PT]) FindByField(_ context.Context, field, value string) (*T, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, doc := range f.docs {
		if fieldOf(&doc, field) == value {
			found := doc
			return &found, nil
		}
	}
	return nil, apperror.NotFound("fake", field+"="+value)
}

func (f *fakeStore[T, PT]) ExistsByField(ctx context.Context, field, value string) (bool, error) {
	_, err := f.FindByField(ctx, field, value)
	if err == nil {
		return true, nil
	}
	if f.failWith != nil {
		return false, err
	}
	return false, nil
}

func (f *fakeStore[T, PT]) put(doc *T) error {
	id := PT(doc).GetID()
	for _, field := range f.unique {
		value := fieldOf(doc, field)
		for i := range f.docs {
			if PT(&f.docs[i]).GetID() != id && fieldOf(&f.docs[i], field) == value {
				return apperror.Conflict("fake", field)
			}
		}
	}

	f.writes++
	if i := f.index(id); i >= 0 {
		f.docs[i] = *doc
		return nil
	}
	f.docs = append(f.docs, *doc)
	return nil
}

func (f *fakeStore[T, PT]) index(id string) int {
	for i := range f.docs {
		if PT(&f.docs[i]).GetID() == id {
			return i
		}
	}
	return -1
}

// fieldOf reads a string member of doc through its JSON form, the same way
// the real adapters see documents.
func fieldOf(doc any, field string) string {
	data, _ := json.Marshal(doc)
	var fields map[string]any
	_ = json.Unmarshal(data, &fields)
	s, _ := fields[field].(string)
	return s
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
