package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/recipe-organizer/internal/model"
	"github.com/sakif/recipe-organizer/internal/service"
)

// RecipeService is what RecipeHandler needs from service.RecipeService.
type RecipeService interface {
	Create(ctx context.Context, in service.RecipeInput) (*model.Recipe, error)
	List(ctx context.Context) ([]model.Recipe, error)
	Update(ctx context.Context, id string, in service.RecipeInput) (*model.Recipe, error)
	Delete(ctx context.Context, id string) error
}

var _ RecipeService = (*service.RecipeService)(nil)

// RecipeHandler serves /api/recipes. These routes are public: recipes have no
// owner and no token is required.
type RecipeHandler struct {
	recipes RecipeService
	logger  *slog.Logger
}

func NewRecipeHandler(recipes RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, logger: logger}
}

// HandleList returns every recipe as a JSON array ([] when there are none).
//
// HTTP: GET /api/recipes
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleCreate stores the posted recipe and returns it with its id.
//
// HTTP: POST /api/recipes
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipe, err := h.recipes.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleUpdate replaces the recipe's fields.
//
// HTTP: PUT /api/recipes/{id}
//
// An unknown id is not a 404: the response is 200 with a JSON null body,
// which the web client treats as "nothing to update".
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in service.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipe, err := h.recipes.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	// a nil *model.Recipe encodes as null
	writeJSON(w, http.StatusOK, recipe)
}

// HandleDelete removes the recipe. 200 with an empty body whether or not it
// existed.
//
// HTTP: DELETE /api/recipes/{id}
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.recipes.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
