package app

import (
	"context"
	"fmt"
	"log/slog"

	"balanced-bowl/internal/assistant"
	"balanced-bowl/internal/cookmode"
	"balanced-bowl/internal/metrics"
	"balanced-bowl/internal/planner"
	"balanced-bowl/internal/rating"
	"balanced-bowl/internal/recipe"
	"balanced-bowl/internal/spoonacular"

	"golang.org/x/sync/errgroup"
)

// detailFetchLimit bounds concurrent recipe detail requests.
const detailFetchLimit = 4

// App holds the application's dependencies.
type App struct {
	recipes      spoonacular.Client
	ratings      *rating.Aggregator
	sessions     *Sessions
	assistant    *assistant.Assistant
	metricsStore *metrics.Store
}

// NewApp creates and initializes a new App instance.
func NewApp(
	recipes spoonacular.Client,
	ratings *rating.Aggregator,
	sessions *Sessions,
	assistant *assistant.Assistant,
	metricsStore *metrics.Store,
) *App {
	return &App{
		recipes:      recipes,
		ratings:      ratings,
		sessions:     sessions,
		assistant:    assistant,
		metricsStore: metricsStore,
	}
}

// Sessions returns the planner session registry.
func (a *App) Sessions() *Sessions { return a.sessions }

// Assistant returns the cooking assistant.
func (a *App) Assistant() *assistant.Assistant { return a.assistant }

// MetricsStore returns the assistant usage ledger.
func (a *App) MetricsStore() *metrics.Store { return a.metricsStore }

// State returns a user's planner state.
func (a *App) State(ctx context.Context, userID string) (planner.AppState, error) {
	return a.sessions.State(ctx, userID)
}

// Dispatch applies a planner action for a user.
func (a *App) Dispatch(ctx context.Context, userID string, action planner.Action) (planner.AppState, error) {
	return a.sessions.Dispatch(ctx, userID, action)
}

// Update applies a planner action and reports whether it changed anything.
func (a *App) Update(ctx context.Context, userID string, action planner.Action) (planner.AppState, bool, error) {
	return a.sessions.Update(ctx, userID, action)
}

// SearchRecipes searches recipes and attaches ratings.
func (a *App) SearchRecipes(ctx context.Context, userID, query, diet string, offset int) (*spoonacular.SearchResult, error) {
	result, err := a.recipes.SearchRecipes(ctx, query, diet, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}
	a.enhanceSummaries(ctx, result.Results, userID)
	return result, nil
}

// FindByIngredients finds recipes using the given ingredients and attaches ratings.
func (a *App) FindByIngredients(ctx context.Context, userID string, q spoonacular.IngredientQuery) ([]recipe.Summary, error) {
	results, err := a.recipes.FindByIngredients(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipes by ingredients: %w", err)
	}
	a.enhanceSummaries(ctx, results, userID)
	return results, nil
}

// RandomRecipes returns random recipes with ratings attached.
func (a *App) RandomRecipes(ctx context.Context, userID string, count int) ([]recipe.Recipe, error) {
	recipes, err := a.recipes.RandomRecipes(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("failed to get random recipes: %w", err)
	}
	for i := range recipes {
		a.enhanceRecipe(ctx, &recipes[i], userID)
	}
	return recipes, nil
}

// Recipe returns full recipe details with ratings attached.
func (a *App) Recipe(ctx context.Context, userID string, id int64) (*recipe.Recipe, error) {
	rec, err := a.recipes.GetRecipe(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %d: %w", id, err)
	}
	a.enhanceRecipe(ctx, rec, userID)
	return rec, nil
}

// SearchProducts searches grocery products.
func (a *App) SearchProducts(ctx context.Context, query string) (*spoonacular.ProductResult, error) {
	result, err := a.recipes.SearchProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return result, nil
}

// Rate records a user's star rating for a recipe.
func (a *App) Rate(ctx context.Context, userID string, recipeID int64, stars int) (rating.Summary, error) {
	if stars < 1 || stars > 5 {
		return rating.Summary{}, rating.ErrInvalidRating
	}
	rec, err := a.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return rating.Summary{}, fmt.Errorf("failed to get recipe %d: %w", recipeID, err)
	}
	return a.ratings.Rate(ctx, recipeID, stars, rec.HealthScore, userID)
}

// AssignRecipe plans a recipe, looked up by ID, for a day and meal.
func (a *App) AssignRecipe(ctx context.Context, userID string, day planner.Day, mealType planner.MealType, recipeID int64) (planner.AppState, error) {
	if !day.Valid() || !mealType.Valid() {
		return planner.AppState{}, fmt.Errorf("failed to assign recipe: invalid slot %q %q", day, mealType)
	}
	rec, err := a.Recipe(ctx, userID, recipeID)
	if err != nil {
		return planner.AppState{}, err
	}
	return a.sessions.Dispatch(ctx, userID, planner.AssignMeal{Day: day, MealType: mealType, Recipe: rec.Card()})
}

// AddRecipeToGroceries adds the ingredients of one recipe to a user's grocery list.
func (a *App) AddRecipeToGroceries(ctx context.Context, userID string, recipeID int64) (planner.AppState, error) {
	rec, err := a.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return planner.AppState{}, fmt.Errorf("failed to get recipe %d: %w", recipeID, err)
	}
	return a.sessions.Dispatch(ctx, userID, planner.AddGroceries{Items: rec.ExtendedIngredients})
}

// GenerateGroceryList adds the ingredients of every planned meal to the grocery list.
// Meals are taken in calendar order and a recipe planned twice contributes twice.
// Either every detail fetch succeeds and one batch is added, or nothing changes.
func (a *App) GenerateGroceryList(ctx context.Context, userID string) (planner.AppState, error) {
	state, err := a.sessions.State(ctx, userID)
	if err != nil {
		return planner.AppState{}, err
	}

	meals := PlanOrder(state.PlannedMeals)
	if len(meals) == 0 {
		return state, nil
	}

	var ids []int64
	seen := make(map[int64]int)
	for _, m := range meals {
		if _, ok := seen[m.Recipe.ID]; !ok {
			seen[m.Recipe.ID] = len(ids)
			ids = append(ids, m.Recipe.ID)
		}
	}

	details := make([]*recipe.Recipe, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchLimit)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := a.recipes.GetRecipe(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to get recipe %d: %w", id, err)
			}
			details[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return planner.AppState{}, fmt.Errorf("failed to generate grocery list: %w", err)
	}

	var items []recipe.Ingredient
	for _, m := range meals {
		items = append(items, details[seen[m.Recipe.ID]].ExtendedIngredients...)
	}
	slog.Info("Generating grocery list", "user_id", userID, "meals", len(meals), "recipes", len(ids), "items", len(items))

	return a.sessions.Dispatch(ctx, userID, planner.AddGroceries{Items: items})
}

// Chat asks the cooking assistant.
func (a *App) Chat(ctx context.Context, history []assistant.Turn, message string) string {
	return a.assistant.Reply(ctx, history, message)
}

// CookSession starts cook mode for a recipe.
func (a *App) CookSession(ctx context.Context, recipeID int64) (*cookmode.Session, error) {
	rec, err := a.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %d: %w", recipeID, err)
	}
	return cookmode.NewSession(*rec)
}

// PlanOrder returns meals sorted by day of week and then by meal of day.
func PlanOrder(meals []planner.PlannedMeal) []planner.PlannedMeal {
	var ordered []planner.PlannedMeal
	for _, day := range planner.Days {
		for _, mt := range planner.MealTypes {
			for _, m := range meals {
				if m.Day == day && m.MealType == mt {
					ordered = append(ordered, m)
				}
			}
		}
	}
	return ordered
}

func (a *App) enhanceSummaries(ctx context.Context, list []recipe.Summary, userID string) {
	if a.ratings == nil {
		return
	}
	if err := a.ratings.EnhanceSummaries(ctx, list, userID); err != nil {
		slog.Warn("Failed to attach ratings", "error", err)
	}
}

func (a *App) enhanceRecipe(ctx context.Context, rec *recipe.Recipe, userID string) {
	if a.ratings == nil {
		return
	}
	if err := a.ratings.EnhanceRecipe(ctx, rec, userID); err != nil {
		slog.Warn("Failed to attach ratings", "recipe_id", rec.ID, "error", err)
	}
}
