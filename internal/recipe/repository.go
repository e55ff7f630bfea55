package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CachedRecipe is a recipe detail together with the time it was fetched.
type CachedRecipe struct {
	Recipe    Recipe
	FetchedAt time.Time
}

// Repository is a database-backed cache of recipe details.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or replaces a recipe in the cache.
func (r *Repository) Save(ctx context.Context, rec Recipe) error {
	recipeJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO recipe_cache (id, data, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
		rec.ID, string(recipeJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save recipe %d: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a cached recipe by its ID. It returns nil when the recipe is not cached.
func (r *Repository) Get(ctx context.Context, id int64) (*CachedRecipe, error) {
	var data string
	var fetchedAt time.Time
	err := r.db.QueryRowContext(ctx,
		"SELECT data, fetched_at FROM recipe_cache WHERE id = ?", id,
	).Scan(&data, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	var rec Recipe
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}

	return &CachedRecipe{Recipe: rec, FetchedAt: fetchedAt}, nil
}

// Count returns the number of cached recipes.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recipe_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}

// Purge removes entries fetched before the given time and reports how many were removed.
func (r *Repository) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recipe_cache WHERE fetched_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge recipe cache: %w", err)
	}
	return res.RowsAffected()
}
