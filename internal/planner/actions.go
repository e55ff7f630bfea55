package planner

import "balanced-bowl/internal/recipe"

// Action is a request to change the planner state.
// The set of actions is closed: only types in this package implement it.
type Action interface {
	isAction()
}

// AssignMeal puts a recipe in a day/meal slot, replacing any current occupant.
type AssignMeal struct {
	Day      Day
	MealType MealType
	Recipe   recipe.Card
}

// RemoveMeal empties a day/meal slot.
type RemoveMeal struct {
	Day      Day
	MealType MealType
}

// AddGroceries merges a batch of ingredients into the grocery list.
type AddGroceries struct {
	Items []recipe.Ingredient
}

// ToggleGroceryItem flips the checked flag of the items whose Original matches.
type ToggleGroceryItem struct {
	Original string
}

// ClearGroceries empties the grocery list.
type ClearGroceries struct{}

// AddCustomGroceryItem appends a free-text grocery item.
// A zero ID is filled in by the Store when dispatched.
type AddCustomGroceryItem struct {
	Text string
	ID   int64
}

// EditGroceryItem relabels the items whose Original matches.
type EditGroceryItem struct {
	Original string
	NewText  string
}

func (AssignMeal) isAction()           {}
func (RemoveMeal) isAction()           {}
func (AddGroceries) isAction()         {}
func (ToggleGroceryItem) isAction()    {}
func (ClearGroceries) isAction()       {}
func (AddCustomGroceryItem) isAction() {}
func (EditGroceryItem) isAction()      {}
