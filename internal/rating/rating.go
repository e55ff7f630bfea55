// Package rating keeps community star ratings for recipes.
//
// Recipes nobody has rated yet are seeded with a plausible rating derived
// from their health score, so listings never show an empty rating.
package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"balanced-bowl/internal/recipe"
)

// ErrInvalidRating is returned for ratings outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Summary is the aggregate rating of a recipe as seen by one user.
type Summary struct {
	AverageRating float64 `json:"averageRating"`
	RatingCount   int     `json:"ratingCount"`
	// UserRating is zero when the user has not rated the recipe.
	UserRating int `json:"userRating,omitempty"`
}

// Aggregator is a database-backed rating aggregator.
type Aggregator struct {
	db *sql.DB
}

// NewAggregator creates a new Aggregator.
func NewAggregator(d *sql.DB) *Aggregator {
	return &Aggregator{db: d}
}

// seed is the simulated starting aggregate for a recipe: a pseudo-random count
// of ratings averaging healthScore/20, clamped to 3.5..5.
func seed(recipeID int64, healthScore float64) (total float64, count int) {
	count = int(recipeID%50) + 5
	if count < 5 {
		// Negative IDs give a negative remainder.
		count = int(-recipeID%50) + 5
	}
	base := math.Min(5, math.Max(3.5, healthScore/20))
	return base * float64(count), count
}

func average(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(total/float64(count)*10) / 10
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ensure(ctx context.Context, q queryer, recipeID int64, healthScore float64) (float64, int, error) {
	total, count := seed(recipeID, healthScore)
	_, err := q.ExecContext(ctx,
		"INSERT OR IGNORE INTO recipe_ratings (recipe_id, total_rating, rating_count) VALUES (?, ?, ?)",
		recipeID, total, count,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to seed rating for recipe %d: %w", recipeID, err)
	}

	err = q.QueryRowContext(ctx,
		"SELECT total_rating, rating_count FROM recipe_ratings WHERE recipe_id = ?", recipeID,
	).Scan(&total, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get rating for recipe %d: %w", recipeID, err)
	}
	return total, count, nil
}

func userRating(ctx context.Context, q queryer, recipeID int64, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	var r int
	err := q.QueryRowContext(ctx,
		"SELECT rating FROM user_ratings WHERE recipe_id = ? AND user_id = ?", recipeID, userID,
	).Scan(&r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get user rating: %w", err)
	}
	return r, nil
}

// Enhance returns the rating summary for a recipe, seeding it on first sight.
func (a *Aggregator) Enhance(ctx context.Context, recipeID int64, healthScore float64, userID string) (Summary, error) {
	total, count, err := ensure(ctx, a.db, recipeID, healthScore)
	if err != nil {
		return Summary{}, err
	}
	mine, err := userRating(ctx, a.db, recipeID, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{AverageRating: average(total, count), RatingCount: count, UserRating: mine}, nil
}

// Rate records a user's rating. A first rating adds to the aggregate;
// a repeat rating replaces the user's previous one.
func (a *Aggregator) Rate(ctx context.Context, recipeID int64, rating int, healthScore float64, userID string) (Summary, error) {
	if rating < 1 || rating > 5 {
		return Summary{}, ErrInvalidRating
	}
	if userID == "" {
		return Summary{}, fmt.Errorf("failed to rate recipe %d: missing user", recipeID)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	total, count, err := ensure(ctx, tx, recipeID, healthScore)
	if err != nil {
		return Summary{}, err
	}
	old, err := userRating(ctx, tx, recipeID, userID)
	if err != nil {
		return Summary{}, err
	}

	if old != 0 {
		total = total - float64(old) + float64(rating)
	} else {
		total += float64(rating)
		count++
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE recipe_ratings SET total_rating = ?, rating_count = ? WHERE recipe_id = ?",
		total, count, recipeID,
	); err != nil {
		return Summary{}, fmt.Errorf("failed to update rating for recipe %d: %w", recipeID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_ratings (recipe_id, user_id, rating) VALUES (?, ?, ?)
		 ON CONFLICT(recipe_id, user_id) DO UPDATE SET rating = excluded.rating`,
		recipeID, userID, rating,
	); err != nil {
		return Summary{}, fmt.Errorf("failed to save user rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("failed to commit rating: %w", err)
	}
	return Summary{AverageRating: average(total, count), RatingCount: count, UserRating: rating}, nil
}

// UserRating returns the user's rating of a recipe, or zero if they have not rated it.
func (a *Aggregator) UserRating(ctx context.Context, recipeID int64, userID string) (int, error) {
	return userRating(ctx, a.db, recipeID, userID)
}

// EnhanceRecipe fills the rating fields of a recipe.
func (a *Aggregator) EnhanceRecipe(ctx context.Context, rec *recipe.Recipe, userID string) error {
	s, err := a.Enhance(ctx, rec.ID, rec.HealthScore, userID)
	if err != nil {
		return err
	}
	rec.AverageRating, rec.RatingCount, rec.UserRating = s.AverageRating, s.RatingCount, s.UserRating
	return nil
}

// EnhanceSummaries fills the rating fields of each listing entry in place.
func (a *Aggregator) EnhanceSummaries(ctx context.Context, list []recipe.Summary, userID string) error {
	for i := range list {
		s, err := a.Enhance(ctx, list[i].ID, list[i].HealthScore, userID)
		if err != nil {
			return err
		}
		list[i].AverageRating, list[i].RatingCount, list[i].UserRating = s.AverageRating, s.RatingCount, s.UserRating
	}
	return nil
}
