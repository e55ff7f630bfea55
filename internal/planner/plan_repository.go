package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StateRepository is a database-backed store of per-user planner snapshots.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new StateRepository.
func NewStateRepository(d *sql.DB) *StateRepository {
	return &StateRepository{db: d}
}

// Save replaces the stored snapshot for a user.
func (r *StateRepository) Save(ctx context.Context, userID string, state AppState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal planner state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO planner_states (user_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save planner state for user %s: %w", userID, err)
	}
	return nil
}

// Load returns the stored snapshot for a user, or the empty state if none exists.
func (r *StateRepository) Load(ctx context.Context, userID string) (AppState, error) {
	var data string
	err := r.db.QueryRowContext(ctx, "SELECT state FROM planner_states WHERE user_id = ?", userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AppState{PlannedMeals: []PlannedMeal{}, GroceryList: []GroceryItem{}}, nil
		}
		return AppState{}, fmt.Errorf("failed to load planner state for user %s: %w", userID, err)
	}

	var state AppState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return AppState{}, fmt.Errorf("failed to unmarshal planner state: %w", err)
	}
	return state, nil
}

// DeleteStale removes snapshots not updated since before and reports how many were removed.
func (r *StateRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM planner_states WHERE updated_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale planner states: %w", err)
	}
	return res.RowsAffected()
}
