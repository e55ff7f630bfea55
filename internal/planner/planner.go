package planner

import (
	"strings"

	"balanced-bowl/internal/recipe"
)

// Apply returns the state that results from applying action to state.
// It never mutates state and returns it unchanged for nil or unknown actions.
func Apply(state AppState, action Action) AppState {
	next, _ := transition(state, action)
	return next
}

// transition applies action and reports whether anything changed.
// Only the collection an action touches is copied; the other is shared with the input.
func transition(state AppState, action Action) (AppState, bool) {
	switch a := action.(type) {
	case AssignMeal:
		return assignMeal(state, a)
	case RemoveMeal:
		return removeMeal(state, a)
	case AddGroceries:
		return addGroceries(state, a)
	case ToggleGroceryItem:
		return toggleGroceryItem(state, a)
	case ClearGroceries:
		if len(state.GroceryList) == 0 {
			return state, false
		}
		state.GroceryList = []GroceryItem{}
		return state, true
	case AddCustomGroceryItem:
		return addCustomGroceryItem(state, a)
	case EditGroceryItem:
		return editGroceryItem(state, a)
	default:
		return state, false
	}
}

func assignMeal(state AppState, a AssignMeal) (AppState, bool) {
	if !a.Day.Valid() || !a.MealType.Valid() {
		return state, false
	}
	meals := make([]PlannedMeal, 0, len(state.PlannedMeals)+1)
	for _, m := range state.PlannedMeals {
		if !m.occupies(a.Day, a.MealType) {
			meals = append(meals, m)
		}
	}
	state.PlannedMeals = append(meals, PlannedMeal{Day: a.Day, MealType: a.MealType, Recipe: a.Recipe})
	return state, true
}

func removeMeal(state AppState, a RemoveMeal) (AppState, bool) {
	if _, ok := state.Meal(a.Day, a.MealType); !ok {
		return state, false
	}
	meals := make([]PlannedMeal, 0, len(state.PlannedMeals)-1)
	for _, m := range state.PlannedMeals {
		if !m.occupies(a.Day, a.MealType) {
			meals = append(meals, m)
		}
	}
	state.PlannedMeals = meals
	return state, true
}

// addGroceries merges by exact Name. Items in the same batch merge with each other too.
func addGroceries(state AppState, a AddGroceries) (AppState, bool) {
	if len(a.Items) == 0 {
		return state, false
	}
	list := make([]GroceryItem, len(state.GroceryList), len(state.GroceryList)+len(a.Items))
	copy(list, state.GroceryList)

	for _, ing := range a.Items {
		if i := indexByName(list, ing.Name); i >= 0 {
			list[i].Amount += ing.Amount
			continue
		}
		item := GroceryItem{Ingredient: ing}
		if item.Aisle == "" {
			item.Aisle = UncategorizedAisle
		}
		list = append(list, item.clone())
	}
	state.GroceryList = list
	return state, true
}

func toggleGroceryItem(state AppState, a ToggleGroceryItem) (AppState, bool) {
	var list []GroceryItem
	for i, item := range state.GroceryList {
		if item.Original != a.Original {
			continue
		}
		if list == nil {
			list = copyGroceries(state.GroceryList)
		}
		list[i].Checked = !list[i].Checked
	}
	if list == nil {
		return state, false
	}
	state.GroceryList = list
	return state, true
}

func addCustomGroceryItem(state AppState, a AddCustomGroceryItem) (AppState, bool) {
	text := strings.TrimSpace(a.Text)
	if text == "" || indexByOriginalFold(state.GroceryList, text, "") >= 0 {
		return state, false
	}
	item := GroceryItem{Ingredient: recipe.Ingredient{
		ID:           a.ID,
		Aisle:        UncategorizedAisle,
		Name:         text,
		NameClean:    text,
		Original:     text,
		OriginalName: text,
		Amount:       1,
		Unit:         "item",
	}}
	list := make([]GroceryItem, len(state.GroceryList), len(state.GroceryList)+1)
	copy(list, state.GroceryList)
	state.GroceryList = append(list, item)
	return state, true
}

func editGroceryItem(state AppState, a EditGroceryItem) (AppState, bool) {
	text := strings.TrimSpace(a.NewText)
	if text == "" {
		return state, false
	}
	// Stricter than a plain rewrite: an edit onto a label another item
	// already owns is refused so Original stays a unique key.
	if indexByOriginalFold(state.GroceryList, text, a.Original) >= 0 {
		return state, false
	}

	var list []GroceryItem
	for i, item := range state.GroceryList {
		if item.Original != a.Original {
			continue
		}
		if list == nil {
			list = copyGroceries(state.GroceryList)
		}
		list[i].Name = text
		list[i].NameClean = text
		list[i].Original = text
		list[i].OriginalName = text
	}
	if list == nil {
		return state, false
	}
	state.GroceryList = list
	return state, true
}

func indexByName(list []GroceryItem, name string) int {
	for i, item := range list {
		if item.Name == name {
			return i
		}
	}
	return -1
}

// indexByOriginalFold finds an item whose Original equals text ignoring case,
// skipping items whose Original is exactly except.
func indexByOriginalFold(list []GroceryItem, text, except string) int {
	for i, item := range list {
		if except != "" && item.Original == except {
			continue
		}
		if strings.EqualFold(item.Original, text) {
			return i
		}
	}
	return -1
}

func copyGroceries(list []GroceryItem) []GroceryItem {
	out := make([]GroceryItem, len(list))
	copy(out, list)
	return out
}
