package planner

import (
	"strings"

	"balanced-bowl/internal/recipe"
)

// Day is a weekday name.
type Day string

const (
	Sunday    Day = "Sunday"
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
)

// Days lists the week in display order.
var Days = []Day{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// Valid reports whether d is one of the seven weekday names.
func (d Day) Valid() bool {
	for _, day := range Days {
		if d == day {
			return true
		}
	}
	return false
}

// ParseDay resolves a weekday name case-insensitively, accepting three-letter abbreviations.
func ParseDay(s string) (Day, bool) {
	s = strings.TrimSpace(s)
	for _, day := range Days {
		if strings.EqualFold(s, string(day)) || (len(s) == 3 && strings.EqualFold(s, string(day)[:3])) {
			return day, true
		}
	}
	return "", false
}

// MealType is the meal slot within a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// MealTypes lists the meal slots in display order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

// Valid reports whether m is a known meal slot.
func (m MealType) Valid() bool {
	return m == Breakfast || m == Lunch || m == Dinner
}

// ParseMealType resolves a meal slot name case-insensitively.
func ParseMealType(s string) (MealType, bool) {
	m := MealType(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// PlannedMeal is one recipe assigned to one day/meal slot.
type PlannedMeal struct {
	Day      Day         `json:"day"`
	MealType MealType    `json:"mealType"`
	Recipe   recipe.Card `json:"recipe"`
}

func (m PlannedMeal) occupies(day Day, mealType MealType) bool {
	return m.Day == day && m.MealType == mealType
}

// UncategorizedAisle is the aisle given to items without one.
const UncategorizedAisle = "Uncategorized"

// GroceryItem is one line on the shopping list.
type GroceryItem struct {
	recipe.Ingredient
	Checked bool `json:"checked"`
}

// AppState is everything the planner store owns.
type AppState struct {
	PlannedMeals []PlannedMeal `json:"plannedMeals"`
	GroceryList  []GroceryItem `json:"groceryList"`
}

// Meal returns the meal planned for a slot, if any.
func (s AppState) Meal(day Day, mealType MealType) (PlannedMeal, bool) {
	for _, m := range s.PlannedMeals {
		if m.occupies(day, mealType) {
			return m, true
		}
	}
	return PlannedMeal{}, false
}

// GroceryItem returns the item whose Original equals key, if any.
func (s AppState) GroceryItem(original string) (GroceryItem, bool) {
	for _, item := range s.GroceryList {
		if item.Original == original {
			return item, true
		}
	}
	return GroceryItem{}, false
}

// Clone returns a deep copy of the state.
func (s AppState) Clone() AppState {
	out := AppState{
		PlannedMeals: make([]PlannedMeal, len(s.PlannedMeals)),
		GroceryList:  make([]GroceryItem, len(s.GroceryList)),
	}
	copy(out.PlannedMeals, s.PlannedMeals)
	for i, item := range s.GroceryList {
		out.GroceryList[i] = item.clone()
	}
	return out
}

func (g GroceryItem) clone() GroceryItem {
	if g.Meta != nil {
		g.Meta = append([]string(nil), g.Meta...)
	}
	return g
}
