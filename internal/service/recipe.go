package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/recipe-organizer/internal/apperror"
	"github.com/sakif/recipe-organizer/internal/model"
	"github.com/sakif/recipe-organizer/internal/repository"
)

// RecipeService is a thin pass-through to the recipe store. Recipes are not
// validated and have no owner.
type RecipeService struct {
	recipes repository.RecipeRepository
	logger  *slog.Logger
}

func NewRecipeService(recipes repository.RecipeRepository, logger *slog.Logger) *RecipeService {
	return &RecipeService{recipes: recipes, logger: logger}
}

// RecipeInput is the client-editable part of a recipe. Any id the client
// sends is ignored.
type RecipeInput struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
}

// Create stores the recipe as received and returns it with its new id.
func (s *RecipeService) Create(ctx context.Context, in RecipeInput) (*model.Recipe, error) {
	recipe := &model.Recipe{
		Title:        in.Title,
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
	}
	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, fmt.Errorf("service/recipe: creating: %w", err)
	}

	s.logger.Info("recipe created", slog.String("recipeID", recipe.ID))
	return recipe, nil
}

// List returns every recipe in store order. The result is never nil.
func (s *RecipeService) List(ctx context.Context) ([]model.Recipe, error) {
	recipes, err := s.recipes.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/recipe: listing: %w", err)
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	return recipes, nil
}

// Update overwrites title, ingredients and instructions of recipe id.
// A missing id is not an error: Update returns (nil, nil).
func (s *RecipeService) Update(ctx context.Context, id string, in RecipeInput) (*model.Recipe, error) {
	recipe, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/recipe: finding %s: %w", id, err)
	}

	recipe.Title = in.Title
	recipe.Ingredients = in.Ingredients
	recipe.Instructions = in.Instructions

	if err := s.recipes.Save(ctx, recipe); err != nil {
		return nil, fmt.Errorf("service/recipe: saving %s: %w", id, err)
	}
	return recipe, nil
}

// Delete removes recipe id. Deleting a missing id succeeds silently.
func (s *RecipeService) Delete(ctx context.Context, id string) error {
	if err := s.recipes.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("service/recipe: deleting %s: %w", id, err)
	}
	return nil
}
