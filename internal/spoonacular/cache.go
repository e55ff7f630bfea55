package spoonacular

import (
	"context"
	"log/slog"
	"time"

	"balanced-bowl/internal/recipe"
)

// CachingClient serves recipe details from the local cache while they are fresher than ttl.
// All other calls go straight to the wrapped client.
type CachingClient struct {
	Client
	repo *recipe.Repository
	ttl  time.Duration
}

// NewCachingClient wraps next with a recipe detail cache.
func NewCachingClient(next Client, repo *recipe.Repository, ttl time.Duration) *CachingClient {
	return &CachingClient{Client: next, repo: repo, ttl: ttl}
}

// GetRecipe returns the cached recipe if fresh, otherwise fetches and caches it.
func (c *CachingClient) GetRecipe(ctx context.Context, id int64) (*recipe.Recipe, error) {
	cached, err := c.repo.Get(ctx, id)
	if err != nil {
		slog.Warn("Recipe cache read failed", "recipe_id", id, "error", err)
	}
	if cached != nil && time.Since(cached.FetchedAt) < c.ttl {
		slog.Debug("Recipe cache hit", "recipe_id", id)
		return &cached.Recipe, nil
	}

	rec, err := c.Client.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.repo.Save(ctx, *rec); err != nil {
		slog.Warn("Recipe cache write failed", "recipe_id", id, "error", err)
	}
	return rec, nil
}

// RandomRecipes fetches random recipes and caches their details on the way through.
func (c *CachingClient) RandomRecipes(ctx context.Context, count int) ([]recipe.Recipe, error) {
	recipes, err := c.Client.RandomRecipes(ctx, count)
	if err != nil {
		return nil, err
	}
	for _, rec := range recipes {
		if err := c.repo.Save(ctx, rec); err != nil {
			slog.Warn("Recipe cache write failed", "recipe_id", rec.ID, "error", err)
		}
	}
	return recipes, nil
}
